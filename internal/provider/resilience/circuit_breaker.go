// Package resilience wraps outbound provider HTTP calls with a circuit breaker,
// per-attempt timeouts and retries, and tracks provider health for the ops
// endpoints.
package resilience

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Breaker defaults, used for any zero field of CircuitBreakerConfig.
const (
	DefaultBreakerTimeout      = 60 * time.Second
	DefaultBreakerFailureRatio = 0.5
	DefaultBreakerMinRequests  = 5
)

// CircuitBreakerConfig configures the breaker in front of one provider.
type CircuitBreakerConfig struct {
	// Name is the provider name reported in state change logs.
	Name string

	// MaxRequests may pass while half-open. Default: 1
	MaxRequests uint32

	// Interval clears the counts while closed. Zero keeps them until the
	// breaker changes state.
	Interval time.Duration

	// Timeout is how long the breaker stays open before letting a trial
	// request through.
	Timeout time.Duration

	// FailureRatio and MinRequests set when the breaker opens: after at least
	// MinRequests calls, once the failed share reaches FailureRatio.
	FailureRatio float64
	MinRequests  uint32

	// ReadyToTrip replaces the FailureRatio rule when set.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker used when a client is not
// given one.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      DefaultBreakerTimeout,
		FailureRatio: DefaultBreakerFailureRatio,
		MinRequests:  DefaultBreakerMinRequests,
	}
}

// ProviderBreaker builds a breaker config for a named provider from the
// configured timeout and trip rule. Zero values fall back to the defaults.
func ProviderBreaker(name string, timeout time.Duration, failureRatio float64, minRequests uint32) *CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig(name)
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	if failureRatio > 0 {
		cfg.FailureRatio = failureRatio
	}
	if minRequests > 0 {
		cfg.MinRequests = minRequests
	}
	return &cfg
}

// TripOnFailureRatio opens the breaker once minRequests calls have been made
// and at least ratio of them failed.
func TripOnFailureRatio(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 || counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

// DefaultReadyToTrip is TripOnFailureRatio with the default settings.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	return TripOnFailureRatio(DefaultBreakerMinRequests, DefaultBreakerFailureRatio)(counts)
}

// LogStateChanges reports transitions on logger. Opening is a warning.
func LogStateChanges(logger zerolog.Logger) func(name string, from, to gobreaker.State) {
	return func(name string, from, to gobreaker.State) {
		event := logger.Info()
		if to == gobreaker.StateOpen {
			event = logger.Warn()
		}
		event.
			Str("provider", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
}

// NewCircuitBreaker creates a breaker from cfg, filling unset fields with the
// defaults.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBreakerTimeout
	}

	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		ratio, minRequests := cfg.FailureRatio, cfg.MinRequests
		if ratio <= 0 {
			ratio = DefaultBreakerFailureRatio
		}
		if minRequests == 0 {
			minRequests = DefaultBreakerMinRequests
		}
		readyToTrip = TripOnFailureRatio(minRequests, ratio)
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
