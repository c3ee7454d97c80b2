package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in RefreshMessage.JobType.
const (
	JobStationRefresh = "station_refresh"
	JobHealthCheck    = "health_check"
)

// ErrUnknownJobType is returned by Handle for messages it does not understand.
var ErrUnknownJobType = errors.New("unknown job type")

// RefreshMessage is the payload of a worker Pub/Sub message.
type RefreshMessage struct {
	JobType string `json:"job_type"`

	// Regions limits a station refresh to the named regions.
	Regions []string `json:"regions,omitempty"`
}

// ParseMessage decodes a message payload.
func ParseMessage(data []byte) (RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return RefreshMessage{}, fmt.Errorf("decoding refresh message: %w", err)
	}
	return msg, nil
}

// Handle runs the job a message asks for.
func (j *RefreshJob) Handle(ctx context.Context, msg RefreshMessage) error {
	switch msg.JobType {
	case JobStationRefresh:
		result := j.RunRegions(ctx, msg.Regions)
		// Consider it successful if at least half of the regions refreshed.
		if result.Failed > result.Successful {
			return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalRegions)
		}
		return nil
	case JobHealthCheck:
		if err := j.CheckHealth(ctx); err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

// PubSubHandler receives worker jobs from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	refreshJob       *RefreshJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// A refresh samples many points; keep few in flight.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		refreshJob:       cfg.RefreshJob,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.process(ctx, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// process runs one message and reports whether it should be acked. Malformed
// and unknown messages are acked so they are not redelivered.
func (h *PubSubHandler) process(ctx context.Context, id string, data []byte) bool {
	startTime := time.Now()
	logger := h.logger.With().Str("message_id", id).Logger()

	msg, err := ParseMessage(data)
	if err != nil {
		logger.Error().Err(err).Msg("dropping malformed message")
		return true
	}

	err = h.refreshJob.Handle(ctx, msg)
	switch {
	case errors.Is(err, ErrUnknownJobType):
		logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return true
	case err != nil:
		logger.Error().Err(err).Str("job_type", msg.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}
