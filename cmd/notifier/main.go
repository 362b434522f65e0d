// Package main provides the swap notifier entry point: periodic fetch,
// process and cleanup jobs plus the admin HTTP API.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swap-notifier/internal/api"
	"github.com/swap-notifier/internal/config"
	"github.com/swap-notifier/internal/indexer"
	"github.com/swap-notifier/internal/job"
	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/notify"
	"github.com/swap-notifier/internal/pipeline"
	"github.com/swap-notifier/internal/storage"
	"github.com/swap-notifier/internal/telegram"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.Info("Swap notifier starting")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	logger.Info("Database connections established")

	swapRepo := storage.NewSwapRepository(postgres)
	subRepo := storage.NewSubscriptionRepository(postgres)
	chainRepo := storage.NewChainRepository(postgres)
	metadataRepo := storage.NewTokenMetadataRepository(postgres)
	metadataCache := storage.NewMetadataCache(redis, metadataRepo, cfg.Poll.MetadataCacheTTL)

	indexerClient := indexer.NewClient(&cfg.Indexer)

	telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken)
	if err != nil {
		logger.Fatalf("Failed to create Telegram client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rateState := notify.NewRateState()
	queueCfg := notify.DefaultConfig()
	queueCfg.MaxRetries = cfg.Telegram.MaxRetries
	queueCfg.RetryDelay = cfg.Telegram.RetryDelay
	queueCfg.RequeueMargin = cfg.Telegram.RequeueMargin
	queueCfg.DefaultCooldown = cfg.Telegram.DefaultCooldown
	queue := notify.NewQueue(telegramClient, rateState, queueCfg, logger)
	if err := queue.Start(ctx); err != nil {
		logger.Fatalf("Failed to start delivery queue: %v", err)
	}

	fetcher := pipeline.NewFetcher(indexerClient, subRepo, swapRepo, logger)
	processor := pipeline.NewProcessor(subRepo, swapRepo, chainRepo, queue, cfg.Poll.ProcessBatchSize, logger)
	sweeper := pipeline.NewSweeper(swapRepo, cfg.Poll.RetentionPeriod, logger)
	refresher := pipeline.NewMetadataRefresher(subRepo, indexerClient, metadataRepo, metadataCache, logger)

	scheduler := job.NewScheduler(logger)
	mustRegister(logger, scheduler, "fetch_swaps", cfg.Poll.FetchInterval, fetcher.Run)
	mustRegister(logger, scheduler, "process_swaps", cfg.Poll.ProcessInterval, processor.Run)
	mustRegister(logger, scheduler, "cleanup_swaps", cfg.Poll.CleanupInterval, sweeper.Run)
	mustRegister(logger, scheduler, "refresh_metadata", cfg.Poll.MetadataInterval, refresher.Run)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	serverCfg := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
	server := api.NewServer(serverCfg, swapRepo, chainRepo, postgres, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Admin API server failed: %v", err)
		}
	}()

	logger.Info("Swap notifier running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Admin API shutdown failed")
	}

	scheduler.Stop()
	queue.Stop()
	cancel()

	logger.Info("Swap notifier stopped")
}

func mustRegister(logger *logging.Logger, s *job.Scheduler, name string, interval time.Duration, task job.Task) {
	if err := s.Register(name, interval, task); err != nil {
		logger.Fatalf("Failed to register job %s: %v", name, err)
	}
}
