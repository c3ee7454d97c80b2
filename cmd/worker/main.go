// Package main provides the entrypoint for the AirWatch cache warm-up worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/airwatch/airwatch/internal/api/handler"
	"github.com/airwatch/airwatch/internal/app"
	"github.com/airwatch/airwatch/internal/config"
	"github.com/airwatch/airwatch/internal/heatmap"
	"github.com/airwatch/airwatch/internal/telemetry"
	"github.com/airwatch/airwatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airwatch-worker"

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := app.BootstrapLogger(os.Stderr, serviceName)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := app.NewLogger(os.Stdout, cfg, serviceName, Version)
	log.Info().Str("build_time", BuildTime).Msg("starting AirWatch worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := app.InitTelemetry(ctx, cfg, serviceName, Version, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer shutdownTelemetry()

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	services, err := app.NewServices(ctx, cfg, log, providerMetrics)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize services")
		os.Exit(1)
	}
	defer services.Close()

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  refreshConfig(cfg.Worker),
		Logger:  log.With().Str("component", "refresh").Logger(),
		Sampler: services.Sampler,
		Weather: services.Weather,
	})

	// The worker exposes the ops endpoints for its platform's health checks.
	ops := handler.NewOpsHandler(handler.OpsConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Registry:  services.Registry,
		Checks:    services.Checks(),
		Details:   job.MetricsSnapshot,
	})
	mux := chi.NewRouter()
	mux.Get("/v1/ops/health", ops.HealthCheck)
	mux.Get("/v1/ops/ready", ops.ReadinessCheck)
	mux.Get("/v1/ops/status", ops.SystemStatus)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Worker.ProjectID != "" && cfg.Worker.Subscription != "" {
		ps, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.ProjectID,
			SubscriptionName: cfg.Worker.Subscription,
			RefreshJob:       job,
			Logger:           log.With().Str("component", "pubsub").Logger(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create pubsub handler")
			os.Exit(1)
		}
		defer ps.Close()

		go func() {
			if err := ps.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Info().Msg("pubsub not configured, refreshing on schedule only")
	}

	go func() {
		job.Run(ctx)

		ticker := time.NewTicker(cfg.Worker.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job.Run(ctx)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func refreshConfig(cfg config.WorkerConfig) worker.RefreshConfig {
	regions := make([]worker.Region, 0, len(cfg.Regions))
	for _, r := range cfg.Regions {
		regions = append(regions, worker.Region{
			Name:     r.Name,
			Viewport: heatmap.Viewport{North: r.North, South: r.South, East: r.East, West: r.West},
			Steps:    r.Steps,
		})
	}

	return worker.RefreshConfig{
		Regions:        regions,
		Concurrency:    cfg.Concurrency,
		Timeout:        cfg.Timeout,
		RefreshWeather: true,
	}
}
