// Package main provides the API server entry point for the inbox snapshot service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inbox-snapshot/internal/api"
	"github.com/inbox-snapshot/internal/config"
	"github.com/inbox-snapshot/internal/logging"
	"github.com/inbox-snapshot/internal/mailbox"
	"github.com/inbox-snapshot/internal/service"
	"github.com/inbox-snapshot/internal/storage"
	"github.com/inbox-snapshot/internal/summarizer"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Database connections
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Repositories
	userRepo := storage.NewUserRepository(postgres)
	senderRepo := storage.NewSenderRepository(postgres)
	snapshotRepo := storage.NewSnapshotRepository(postgres)
	interactionRepo := storage.NewInteractionRepository(clickhouse)
	snapshotLock := storage.NewSnapshotLock(redis, cfg.Snapshot.LockTTL)

	// External collaborators
	provider := mailbox.NewIMAPProvider(&cfg.Mailbox)
	sum, err := summarizer.NewOpenAISummarizer(&cfg.Summarizer)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize summarizer")
	}

	// Services
	quotaService := service.NewQuotaService(userRepo)
	senderService := service.NewSenderService(senderRepo)
	snapshotService := service.NewSnapshotService(
		snapshotRepo, interactionRepo, senderService, quotaService,
		provider, sum, snapshotLock, &cfg.Snapshot,
	)
	sweeper := service.NewSweeperService(snapshotRepo, cfg.Snapshot.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// HTTP server
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		FreeTierRPS:     cfg.RateLimit.FreeTier,
		TrialTierRPS:    cfg.RateLimit.TrialTier,
		StarterTierRPS:  cfg.RateLimit.StarterTier,
		ProTierRPS:      cfg.RateLimit.ProTier,
	}
	server := api.NewServer(serverConfig, snapshotService, quotaService, senderService, userRepo)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Info("Server stopped")
}
