package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/airwatch/airwatch/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "airwatch-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.NotNil(t, provider)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)

	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_Shutdown_TracerProvider(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	provider := &telemetry.Provider{TracerProvider: tp}

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	always := telemetry.Sampler(0).Description()
	assert.Contains(t, always, "AlwaysOnSampler")
	assert.Equal(t, always, telemetry.Sampler(1).Description())
	assert.Equal(t, always, telemetry.Sampler(-0.5).Description())

	ratio := telemetry.Sampler(0.25).Description()
	assert.Contains(t, ratio, "TraceIDRatioBased{0.25}")
}

func TestTracer_ReturnsGlobalTracer(t *testing.T) {
	tracer := telemetry.Tracer("test-tracer")
	assert.NotNil(t, tracer)
}

func TestMeter_ReturnsGlobalMeter(t *testing.T) {
	meter := telemetry.Meter("test-meter")
	assert.NotNil(t, meter)
}

func TestProviderMetrics_RecordWithoutExporter(t *testing.T) {
	metrics, err := telemetry.NewProviderMetrics()
	require.NoError(t, err)
	require.NotNil(t, metrics)

	// The global no-op meter accepts recordings without panicking.
	metrics.RecordRequest("openaq", "fetch_stations", 120*time.Millisecond, nil)
	metrics.RecordRequest("openaq", "fetch_stations", 80*time.Millisecond, errors.New("boom"))
	metrics.RecordCacheHit("openaq", "fetch_stations")
	metrics.RecordCacheMiss("openaq", "fetch_readings")
}
