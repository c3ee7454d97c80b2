package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/airwatch/airwatch/internal/api/middleware"

// Metrics holds the OpenTelemetry metrics instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates a new Metrics instance with initialized instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http.server.requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("Size of HTTP server responses in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		requestsInFlight: requestsInFlight,
		responseSize:     responseSize,
	}, nil
}

// Middleware returns an HTTP middleware that records metrics for each request.
// Requests are labelled by chi route pattern to keep query coordinates out of
// the metric attributes.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			inFlight := metric.WithAttributes(attribute.String("http.method", r.Method))
			m.requestsInFlight.Add(ctx, 1, inFlight)
			defer m.requestsInFlight.Add(ctx, -1, inFlight)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.String("http.status_code", strconv.Itoa(wrapped.statusCode)),
			}
			if wrapped.statusCode >= 400 {
				attrs = append(attrs, attribute.Bool("error", true))
			}

			opt := metric.WithAttributes(attrs...)
			m.requestDuration.Record(ctx, time.Since(start).Seconds(), opt)
			m.requestTotal.Add(ctx, 1, opt)
			m.responseSize.Record(ctx, wrapped.written, opt)
		})
	}
}

// routePattern returns the matched chi route, or "unmatched" outside a chi
// router or for 404s.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
