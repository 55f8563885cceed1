package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"relief/internal/backend"
	"relief/internal/cli"
	applog "relief/internal/log"
	"relief/internal/metrics"
	"relief/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	if err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting relief-worker", "export_target", cfg.ExportTarget)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	// proposals and donations are written by the relief server; a local
	// cache here would export stale state until its TTL ran out
	bc.CacheSize = 0

	factory := backend.NewFactory(logger)
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	stores, err := factory.CreateStore(setupCtx, bc)
	if err != nil {
		setupCancel()
		logger.Error("Failed to initialize store", applog.FieldError, err)
		os.Exit(1)
	}
	exporters, err := factory.CreateExporter(setupCtx, bc)
	setupCancel()
	if err != nil {
		logger.Error("Failed to initialize exporter", applog.FieldError, err)
		_ = backend.Cleanups(stores.Cleanup)
		os.Exit(1)
	}

	m := metrics.New()
	exportWorker := worker.NewExportWorker(exporters.Exporter, stores.Store, logger, m,
		worker.Config{RefreshInterval: cfg.TallyRefreshInterval})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Performing startup sync...")
	if err := exportWorker.StartupSync(ctx); err != nil {
		// the periodic refresh retries
		logger.Error("Startup sync failed", applog.FieldError, err)
	}
	if err := exportWorker.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := factory.CreatePublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeMessages(ctx, exportWorker.HandleDonation, exportWorker.HandleVote)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
			cancel()
		}()
	} else {
		logger.Info("Skipping AMQP message consumption, relying on periodic refresh")
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !exportWorker.IsRunning() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", applog.FieldError, err, "addr", srv.Addr)
		}
	}()

	cleanup := func(ctx context.Context) {
		cancel()
		if err := exportWorker.Stop(ctx); err != nil {
			logger.Error("Failed to stop export worker", applog.FieldError, err)
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Metrics server shutdown error", applog.FieldError, err)
		}
		var closeAMQP backend.CleanupFunc
		if amqpClient != nil {
			closeAMQP = amqpClient.Close
		}
		if err := backend.Cleanups(closeAMQP, exporters.Cleanup, stores.Cleanup); err != nil {
			logger.Error("Cleanup failed", applog.FieldError, err)
		}
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, cleanup)

	select {
	case <-shutdownCtx.Done():
		cli.WaitForShutdown(shutdownCtx, done)
	case <-ctx.Done():
		logger.Info("Message consumption stopped, shutting down")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		cleanup(stopCtx)
		stopCancel()
	}
	logger.Info("relief-worker stopped")
}
