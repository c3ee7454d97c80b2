// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Supported air quality providers.
const (
	ProviderOpenAQ    = "openaq"
	ProviderOpenMeteo = "openmeteo"
)

// Config is the complete service configuration.
type Config struct {
	Env      string `yaml:"env" env:"APP_ENV"`
	LogLevel string `yaml:"logLevel" env:"LOG_LEVEL"`

	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Provider  ProviderConfig  `yaml:"provider"`
	Cache     CacheConfig     `yaml:"cache"`
	Heatmap   HeatmapConfig   `yaml:"heatmap"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string        `yaml:"port" env:"APP_PORT"`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SERVER_SHUTDOWN_TIMEOUT"`

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool `yaml:"requireTls" env:"REQUIRE_TLS"`

	// AllowedOrigins lists browser origins allowed by CORS. "*" allows any.
	AllowedOrigins []string `yaml:"allowedOrigins" env:"CORS_ALLOWED_ORIGINS"`

	// Requests per minute per client IP.
	DefaultRateLimit int `yaml:"defaultRateLimit" env:"RATE_LIMIT_DEFAULT"`
	HeatmapRateLimit int `yaml:"heatmapRateLimit" env:"RATE_LIMIT_HEATMAP"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"OTEL_ENABLED"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRatio  float64 `yaml:"sampleRatio" env:"OTEL_TRACES_SAMPLER_ARG"`
}

// ProviderConfig selects and configures the station data provider.
type ProviderConfig struct {
	Name string `yaml:"name" env:"AQ_PROVIDER"`

	OpenAQAPIKey  string `yaml:"openaqApiKey" env:"OPENAQ_API_KEY"`
	OpenAQBaseURL string `yaml:"openaqBaseUrl" env:"OPENAQ_BASE_URL"`

	OpenMeteoAirQualityURL string `yaml:"openMeteoAirQualityUrl" env:"OPENMETEO_AIR_QUALITY_URL"`
	OpenMeteoWeatherURL    string `yaml:"openMeteoWeatherUrl" env:"OPENMETEO_WEATHER_URL"`

	// SearchRadius is in meters.
	SearchRadius float64       `yaml:"searchRadius" env:"AQ_SEARCH_RADIUS"`
	Timeout      time.Duration `yaml:"timeout" env:"PROVIDER_TIMEOUT"`

	// Breaker settings apply to every provider client. The breaker opens once
	// BreakerMinRequests calls have been seen and at least
	// BreakerFailureRatio of them failed, and stays open for BreakerTimeout.
	BreakerTimeout      time.Duration `yaml:"breakerTimeout" env:"PROVIDER_BREAKER_TIMEOUT"`
	BreakerFailureRatio float64       `yaml:"breakerFailureRatio" env:"PROVIDER_BREAKER_FAILURE_RATIO"`
	BreakerMinRequests  uint32        `yaml:"breakerMinRequests" env:"PROVIDER_BREAKER_MIN_REQUESTS"`
}

// CacheConfig configures station lookup caching.
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl" env:"CACHE_TTL"`
	StaleTTL time.Duration `yaml:"staleTtl" env:"CACHE_STALE_TTL"`
	GridSize float64       `yaml:"gridSize" env:"CACHE_GRID_SIZE"`

	// RedisAddr enables the shared Redis cache when set.
	RedisAddr     string `yaml:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redisPassword" env:"REDIS_PASSWORD"`
	RedisPrefix   string `yaml:"redisPrefix" env:"REDIS_PREFIX"`
}

// HeatmapConfig bounds heatmap sampling.
type HeatmapConfig struct {
	DefaultSteps int `yaml:"defaultSteps" env:"HEATMAP_DEFAULT_STEPS"`
	MaxPoints    int `yaml:"maxPoints" env:"HEATMAP_MAX_POINTS"`
	Concurrency  int `yaml:"concurrency" env:"HEATMAP_CONCURRENCY"`
}

// WorkerConfig configures the cache warm-up worker.
type WorkerConfig struct {
	ProjectID    string        `yaml:"projectId" env:"PUBSUB_PROJECT_ID"`
	Subscription string        `yaml:"subscription" env:"PUBSUB_SUBSCRIPTION"`
	Interval     time.Duration `yaml:"interval" env:"WORKER_INTERVAL"`
	Timeout      time.Duration `yaml:"timeout" env:"WORKER_TIMEOUT"`
	Concurrency  int           `yaml:"concurrency" env:"WORKER_CONCURRENCY"`

	// Regions are only configurable from YAML.
	Regions []Region `yaml:"regions" env:"-"`
}

// Region is a named viewport the worker keeps warm.
type Region struct {
	Name  string  `yaml:"name"`
	North float64 `yaml:"north"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	West  float64 `yaml:"west"`
	Steps int     `yaml:"steps"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Env:      "development",
		LogLevel: "info",
		Server: ServerConfig{
			Port:             "8080",
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			DefaultRateLimit: 100,
			HeatmapRateLimit: 30,
			AllowedOrigins:   []string{"*"},
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
		Provider: ProviderConfig{
			Name:                ProviderOpenMeteo,
			SearchRadius:        10000,
			Timeout:             10 * time.Second,
			BreakerTimeout:      60 * time.Second,
			BreakerFailureRatio: 0.5,
			BreakerMinRequests:  5,
		},
		Cache: CacheConfig{
			TTL:      5 * time.Minute,
			StaleTTL: 30 * time.Minute,
			GridSize: 0.01,
		},
		Heatmap: HeatmapConfig{
			DefaultSteps: 10,
			MaxPoints:    2500,
			Concurrency:  8,
		},
		Worker: WorkerConfig{
			Interval:    15 * time.Minute,
			Timeout:     2 * time.Minute,
			Concurrency: 2,
			Regions: []Region{
				{Name: "Szczecin", North: 53.50, South: 53.35, East: 14.70, West: 14.45, Steps: 5},
				{Name: "Warszawa", North: 52.35, South: 52.10, East: 21.25, West: 20.85, Steps: 5},
			},
		},
	}
}

// Load returns Default overridden by the file named in CONFIG_FILE (if any)
// and then by environment variables.
func Load() (Config, error) {
	cfg := Default()
	if err := LoadInto(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}

	switch c.Provider.Name {
	case ProviderOpenMeteo:
	case ProviderOpenAQ:
		if c.Provider.OpenAQAPIKey == "" {
			errs = append(errs, errors.New("provider: OPENAQ_API_KEY is required for openaq"))
		}
	default:
		errs = append(errs, fmt.Errorf("provider: unknown provider %q", c.Provider.Name))
	}

	if c.Provider.SearchRadius <= 0 {
		errs = append(errs, errors.New("provider: searchRadius must be positive"))
	}
	if c.Provider.BreakerFailureRatio <= 0 || c.Provider.BreakerFailureRatio > 1 {
		errs = append(errs, errors.New("provider: breakerFailureRatio must be within (0, 1]"))
	}
	if c.Provider.BreakerTimeout <= 0 {
		errs = append(errs, errors.New("provider: breakerTimeout must be positive"))
	}
	if c.Cache.GridSize <= 0 {
		errs = append(errs, errors.New("cache: gridSize must be positive"))
	}
	if c.Heatmap.MaxPoints <= 0 || c.Heatmap.Concurrency <= 0 || c.Heatmap.DefaultSteps <= 0 {
		errs = append(errs, errors.New("heatmap: defaultSteps, maxPoints and concurrency must be positive"))
	}
	if c.Heatmap.DefaultSteps*c.Heatmap.DefaultSteps > c.Heatmap.MaxPoints {
		errs = append(errs, errors.New("heatmap: default grid exceeds maxPoints"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry: sampleRatio must be within [0, 1]"))
	}

	for _, r := range c.Worker.Regions {
		if r.North <= r.South || r.East <= r.West {
			errs = append(errs, fmt.Errorf("worker: region %q has an invalid viewport", r.Name))
		}
	}

	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
