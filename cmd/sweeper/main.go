// Package main provides a standalone retention sweeper. It deletes expired
// snapshots either once (-once) or on the configured schedule.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/inbox-snapshot/internal/config"
	"github.com/inbox-snapshot/internal/logging"
	"github.com/inbox-snapshot/internal/service"
	"github.com/inbox-snapshot/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	snapshotRepo := storage.NewSnapshotRepository(postgres)
	sweeper := service.NewSweeperService(snapshotRepo, cfg.Snapshot.SweepInterval)

	if *once {
		deleted, err := sweeper.RunOnce(context.Background())
		if err != nil {
			logger.WithError(err).Fatal("Sweep failed")
		}
		logger.WithField("deleted", deleted).Info("Sweep completed")
		return
	}

	sweeper.Start()
	defer sweeper.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Sweeper stopped")
}
