// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sales-import/internal/config"
	"sales-import/internal/domain/ports/repository"
	"sales-import/internal/infra/api"
	pg "sales-import/internal/infra/db/postgres"
	"sales-import/internal/infra/logging"
	"sales-import/internal/infra/metrics"
	red "sales-import/internal/infra/redis"
	"sales-import/internal/infra/sched"
	"sales-import/internal/infra/worker"
	"sales-import/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Repositories ----
	var jobRepo repository.ImportJobRepository = pg.NewImportJobRepo(pool)
	salesRepo := pg.NewSalesRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Redis (optional) ----
	var (
		locker  red.Locker
		limiter api.Limiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		jobRepo = pg.NewImportJobRepoCacheDecorator(jobRepo, redisClient, cfg.Redis.TTL)
		locker = red.NewLocker(redisClient.Raw())
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; running without cache, sweeper lock and upload rate limit")
	}

	// ---- Worker pool ----
	// Workers get their own context so in-flight imports can finish during shutdown.
	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopWork()
	workers := worker.NewPool(cfg.Import.Workers, cfg.Import.QueueSize, logger)
	workers.Start(workCtx)

	// ---- Use cases ----
	importUC := usecase.NewImportUseCase(jobRepo, salesRepo, txManager, workers, cfg.Import.BatchSize, logger)

	// ---- Stuck import sweeper ----
	sweeper := sched.NewStuckImportSweeper(
		jobRepo, locker,
		cfg.Sweeper.Interval, cfg.Sweeper.StaleAfter, cfg.Sweeper.LockTTL,
		cfg.Sweeper.PageSize, logger,
	)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- HTTP server ----
	srv := api.NewServer(importUC, api.Options{
		APIKey:           cfg.HTTP.APIKey,
		MaxUploadBytes:   cfg.HTTP.MaxUploadMB << 20,
		Limiter:          limiter,
		UploadsPerMinute: cfg.HTTP.UploadsPerMinute,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	if err := workers.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Int("pending", workers.Pending()).Msg("worker pool did not drain in time; unfinished imports are left to the sweeper")
	}
	stopWork()
}
