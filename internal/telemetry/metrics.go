package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/airwatch/airwatch/internal/telemetry"

// ProviderMetrics holds metrics for external provider calls.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// NewProviderMetrics creates metrics for monitoring external provider calls.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Number of station lookups served from cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Number of station lookups that missed the cache"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}, nil
}

// RecordRequest records metrics for a provider request.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := providerAttrs(provider, operation)
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context so a cancelled request still gets counted.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit for a provider.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.cacheHits.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

// RecordCacheMiss records a cache miss for a provider.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.cacheMisses.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, operation)...))
}

func providerAttrs(provider, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
}
