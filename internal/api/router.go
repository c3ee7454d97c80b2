// Package api provides the HTTP API for AirWatch.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airwatch/airwatch/internal/api/handler"
	"github.com/airwatch/airwatch/internal/api/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger  zerolog.Logger
	Metrics *middleware.Metrics

	AirQuality handler.AirQualityService
	Sampler    handler.Sampler
	Weather    handler.WeatherService
	Ops        handler.OpsConfig

	// CacheMaxAge is advertised on data responses (Cache-Control).
	CacheMaxAge time.Duration

	// Requests per minute per client IP. Zero uses the defaults.
	DefaultRateLimit int
	HeatmapRateLimit int

	AllowedOrigins []string
	RequireTLS     bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing()) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	metadataHandler := handler.NewMetadataHandler()

	standardRateLimit := middleware.RateLimitByIP(middleware.PerMinute(cfg.DefaultRateLimit, middleware.StandardRateLimit))
	heatmapRateLimit := middleware.RateLimitByIP(middleware.PerMinute(cfg.HeatmapRateLimit, middleware.HeatmapRateLimit))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints are not rate limited so health checkers never see 429.
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)

			r.Route("/metadata", func(r chi.Router) {
				r.Get("/enums", metadataHandler.GetEnums)
				r.Get("/breakpoints", metadataHandler.GetBreakpoints)
			})

			if cfg.AirQuality != nil {
				aq := handler.NewAirQualityHandler(cfg.AirQuality, cfg.Logger, cfg.CacheMaxAge)
				r.Get("/aqi", aq.GetAQI)
				r.Get("/air-quality", aq.GetReadings)
				r.Get("/air-quality/stations", aq.ListStations)
			}

			if cfg.Weather != nil {
				wh := handler.NewWeatherHandler(cfg.Weather, cfg.Logger, cfg.CacheMaxAge)
				r.Get("/weather/current", wh.GetCurrent)
				r.Get("/weather/forecast", wh.GetForecast)
			}
		})

		if cfg.Sampler != nil {
			provider := ""
			if cfg.AirQuality != nil {
				provider = cfg.AirQuality.ProviderName()
			}
			hm := handler.NewHeatmapHandler(cfg.Sampler, provider, cfg.Logger, cfg.CacheMaxAge)
			r.With(heatmapRateLimit).Get("/heatmap", hm.GetHeatmap)
		}
	})

	return r
}
