package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"spendlog/internal/auth"
	"spendlog/internal/cache"
	"spendlog/internal/cli"
	"spendlog/internal/core"
	apphttp "spendlog/internal/http"
	applog "spendlog/internal/log"
	"spendlog/internal/services"
	gsheet "spendlog/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AuthJWTSecret == "" {
		logger.Error("AUTH_JWT_SECRET is required to verify API tokens")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	// CACHE_SIZE=0 turns the list cache off.
	var listCache *cache.LRUCache[[]core.Transaction]
	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	if cfg.CacheSize > 0 {
		listCache = cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
		cacheManager.Register(listCache)
	}
	cacheManager.StartCleanup(10 * time.Minute)

	var publisher services.EventPublisher
	if res.Publisher != nil {
		publisher = res.Publisher
	}
	svc := services.NewTransactionService(res.Store, publisher, listCache)

	// Without a broker the server sweeps pending rows itself.
	var sweeper *services.SyncProcessor
	if res.Publisher == nil && res.Queue != nil && cfg.MirrorEnabled() {
		mirror, err := gsheet.NewFromEnv(context.Background(), cfg.Location())
		if err != nil {
			logger.Warn("Sheets mirror disabled", "error", err)
		} else {
			sweeper = services.NewSyncProcessor(res.Queue, res.Store, mirror, services.SyncProcessorConfig{
				PollInterval: cfg.SyncInterval,
				BatchSize:    cfg.SyncBatchSize,
			})
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, auth.NewVerifier(cfg.AuthJWTSecret), apphttp.Options{
		Location:       cfg.Location(),
		RateLimit:      cfg.RateLimit,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
		ListCache:      listCache,
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if sweeper != nil {
			if err := sweeper.Stop(shutdownCtx); err != nil {
				logger.Warn("Sync processor stop error", "error", err)
			}
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	if sweeper != nil {
		if err := sweeper.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", "error", err)
		}
	}

	logger.Info("Starting spendlog server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Location().String(),
		"amqp", res.Publisher != nil,
		"mirror_sweep", sweeper != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
