// Package app wires configuration into the services shared by the API server
// and the worker.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/airwatch/airwatch/internal/airquality"
	"github.com/airwatch/airwatch/internal/airquality/openaq"
	aqopenmeteo "github.com/airwatch/airwatch/internal/airquality/openmeteo"
	"github.com/airwatch/airwatch/internal/airquality/rediscache"
	"github.com/airwatch/airwatch/internal/api/handler"
	"github.com/airwatch/airwatch/internal/config"
	"github.com/airwatch/airwatch/internal/heatmap"
	"github.com/airwatch/airwatch/internal/provider/resilience"
	"github.com/airwatch/airwatch/internal/telemetry"
	"github.com/airwatch/airwatch/internal/weather"
	wxopenmeteo "github.com/airwatch/airwatch/internal/weather/openmeteo"
)

// NewLogger returns the root logger for a service.
func NewLogger(w io.Writer, cfg config.Config, service, version string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return zerolog.New(w).
		Level(cfg.Level()).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// BootstrapLogger is used before a Config exists, e.g. to report a config
// that failed to load.
func BootstrapLogger(w io.Writer, service string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// Services are the long-lived components built from a Config.
type Services struct {
	Registry   *resilience.Registry
	AirQuality *airquality.Service
	Weather    *weather.Service
	Sampler    *heatmap.Sampler

	// Redis is nil unless a shared cache is configured.
	Redis *redis.Client
}

// NewServices builds the provider clients and services. metrics may be nil.
func NewServices(ctx context.Context, cfg config.Config, logger zerolog.Logger, metrics *telemetry.ProviderMetrics) (*Services, error) {
	registry := resilience.NewRegistry()

	provider, err := newProvider(cfg.Provider, registry, logger)
	if err != nil {
		return nil, err
	}

	s := &Services{Registry: registry}

	var cache airquality.Cache
	if cfg.Cache.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.Redis = client
		cache = rediscache.NewStore(client, cfg.Cache.RedisPrefix)
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("shared station cache enabled")
	}

	s.AirQuality = airquality.NewService(airquality.ServiceConfig{
		Provider:        provider,
		Logger:          logger.With().Str("component", "airquality").Logger(),
		Cache:           cache,
		Metrics:         metrics,
		SearchRadius:    cfg.Provider.SearchRadius,
		CacheTTL:        cfg.Cache.TTL,
		CacheGridSize:   cfg.Cache.GridSize,
		StaleIfErrorTTL: cfg.Cache.StaleTTL,
	})

	s.Weather = weather.NewService(weather.ServiceConfig{
		Provider: wxopenmeteo.NewClient(wxopenmeteo.ClientConfig{
			BaseURL:        cfg.Provider.OpenMeteoWeatherURL,
			Timeout:        cfg.Provider.Timeout,
			Registry:       registry,
			CircuitBreaker: breaker(cfg.Provider, wxopenmeteo.ProviderName, logger),
		}),
		Logger: logger.With().Str("component", "weather").Logger(),
	})

	s.Sampler = heatmap.NewSampler(heatmap.SamplerConfig{
		Source:       s.AirQuality,
		Logger:       logger.With().Str("component", "heatmap").Logger(),
		Concurrency:  cfg.Heatmap.Concurrency,
		MaxPoints:    cfg.Heatmap.MaxPoints,
		DefaultSteps: cfg.Heatmap.DefaultSteps,
	})

	logger.Info().
		Str("provider", provider.Name()).
		Float64("search_radius_m", cfg.Provider.SearchRadius).
		Msg("air quality service initialized")

	return s, nil
}

func newProvider(cfg config.ProviderConfig, registry *resilience.Registry, logger zerolog.Logger) (airquality.Provider, error) {
	switch cfg.Name {
	case config.ProviderOpenAQ:
		return openaq.NewClient(openaq.ClientConfig{
			BaseURL:        cfg.OpenAQBaseURL,
			APIKey:         cfg.OpenAQAPIKey,
			Timeout:        cfg.Timeout,
			Registry:       registry,
			CircuitBreaker: breaker(cfg, openaq.ProviderName, logger),
		}), nil
	case config.ProviderOpenMeteo:
		return aqopenmeteo.NewClient(aqopenmeteo.ClientConfig{
			BaseURL:        cfg.OpenMeteoAirQualityURL,
			Timeout:        cfg.Timeout,
			Registry:       registry,
			CircuitBreaker: breaker(cfg, aqopenmeteo.ProviderName, logger),
		}), nil
	default:
		return nil, fmt.Errorf("unknown air quality provider %q", cfg.Name)
	}
}

// breaker applies the configured trip rule to a provider client and logs its
// state changes.
func breaker(cfg config.ProviderConfig, name string, logger zerolog.Logger) *resilience.CircuitBreakerConfig {
	cb := resilience.ProviderBreaker(name, cfg.BreakerTimeout, cfg.BreakerFailureRatio, cfg.BreakerMinRequests)
	cb.OnStateChange = resilience.LogStateChanges(logger.With().Str("component", "resilience").Logger())
	return cb
}

// Checks returns the readiness checks for the configured dependencies.
func (s *Services) Checks() []handler.Check {
	var checks []handler.Check
	if s.Redis != nil {
		checks = append(checks, handler.Check{
			Name: "redis",
			Func: func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() },
		})
	}
	return checks
}

// Details summarizes cache state for the status endpoint.
func (s *Services) Details() map[string]string {
	aq := s.AirQuality.CacheStats()
	wx := s.Weather.CacheStats()
	return map[string]string{
		"station_cache": fmt.Sprintf("%d entries, %d fresh", aq.Entries, aq.FreshEntries),
		"weather_cache": fmt.Sprintf("%d entries, %d forecasts", wx.Entries, wx.ForecastEntries),
	}
}

// Close releases external connections.
func (s *Services) Close() error {
	if s.Redis != nil {
		return s.Redis.Close()
	}
	return nil
}

// shutdownTimeout bounds telemetry flushing on exit.
const shutdownTimeout = 5 * time.Second

// InitTelemetry starts OpenTelemetry for a service and returns a function
// that flushes it.
func InitTelemetry(ctx context.Context, cfg config.Config, service, version string, logger zerolog.Logger) (func(), error) {
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Enabled {
		logger.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}, nil
}
