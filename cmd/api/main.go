// Package main provides the entrypoint for the AirWatch API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/airwatch/airwatch/internal/api"
	"github.com/airwatch/airwatch/internal/api/handler"
	"github.com/airwatch/airwatch/internal/api/middleware"
	"github.com/airwatch/airwatch/internal/app"
	"github.com/airwatch/airwatch/internal/config"
	"github.com/airwatch/airwatch/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airwatch-api"

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := app.BootstrapLogger(os.Stderr, serviceName)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := app.NewLogger(os.Stdout, cfg, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting AirWatch API")

	ctx := context.Background()

	shutdownTelemetry, err := app.InitTelemetry(ctx, cfg, serviceName, Version, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer shutdownTelemetry()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	services, err := app.NewServices(ctx, cfg, log, providerMetrics)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize services")
		os.Exit(1)
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close services")
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:     log,
		Metrics:    metrics,
		AirQuality: services.AirQuality,
		Sampler:    services.Sampler,
		Weather:    services.Weather,
		Ops: handler.OpsConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Registry:  services.Registry,
			Checks:    services.Checks(),
			Details:   services.Details,
		},
		CacheMaxAge:      cfg.Cache.TTL,
		DefaultRateLimit: cfg.Server.DefaultRateLimit,
		HeatmapRateLimit: cfg.Server.HeatmapRateLimit,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		RequireTLS:       cfg.Server.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
