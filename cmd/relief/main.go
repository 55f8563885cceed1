package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"relief/internal/cli"
	apphttp "relief/internal/http"
	applog "relief/internal/log"
	"relief/internal/metrics"
	"relief/internal/middleware/ratelimit"
	"relief/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	if err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting relief",
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		applog.FieldDeviceID, cfg.DeviceID,
		"amqp_enabled", cfg.AMQPURL != "")

	m := metrics.New()
	session, err := cli.OpenEngine(context.Background(), cfg, logger.WithComponent(applog.ComponentEngine),
		services.WithMetrics(m))
	if err != nil {
		logger.Error("Failed to load relief state", applog.FieldError, err)
		os.Exit(1)
	}
	for _, w := range session.Report.Warnings {
		logger.Warn("Loaded with fallback state", applog.FieldError, w)
	}
	logger.Info("State loaded",
		"donations", session.Report.Donations,
		"proposals", session.Report.Proposals,
		"seeded", session.Report.SeededProposals)

	srv := apphttp.NewServer(":"+cfg.Port, session.Engine, apphttp.Options{
		Logger:  logger,
		Metrics: m,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := session.Close(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	})

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed to start", applog.FieldError, err, "addr", srv.Addr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
