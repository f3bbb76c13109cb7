package main

import (
	"context"
	"os"
	_ "time/tzdata"

	"spendlog/internal/backend"
	"spendlog/internal/cli"
	applog "spendlog/internal/log"
	"spendlog/internal/services"
	gsheet "spendlog/internal/sheets/google"
	"spendlog/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting spendlog-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	if !backend.BackendType(cfg.DataBackend).Durable() {
		logger.Error("The worker reads the API's store; use the sqlite or postgres backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if !cfg.MirrorEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	if res.Publisher == nil {
		logger.Error("AMQP broker unreachable", "url_set", cfg.AMQPURL != "")
		_ = res.Cleanup()
		os.Exit(1)
	}

	mirror, err := gsheet.NewFromEnv(context.Background(), cfg.Location())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	var sweeper *services.SyncProcessor
	if res.Queue != nil {
		sweeper = services.NewSyncProcessor(res.Queue, res.Store, mirror, services.SyncProcessorConfig{
			PollInterval: cfg.SyncInterval,
			BatchSize:    cfg.SyncBatchSize,
		})
	}
	syncWorker := worker.NewSyncWorker(res.Store, res.Queue, mirror)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	// Catch up on anything left pending while the worker was down.
	if sweeper != nil {
		if n, err := sweeper.RunOnce(ctx); err != nil {
			logger.Error("Startup sync failed", "error", err)
		} else if n > 0 {
			logger.Info("Startup sync mirrored pending rows", "count", n)
		}
	}

	err = syncWorker.Run(ctx, res.Publisher, sweeper)
	if cerr := res.Cleanup(); cerr != nil {
		logger.Error("Backend cleanup error", "error", cerr)
	}
	if err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
