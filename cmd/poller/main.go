package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matchpulse/fixture-poller/internal/app"
	"github.com/matchpulse/fixture-poller/internal/config"
	"github.com/matchpulse/fixture-poller/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	if err := application.Bootstrap(ctx); err != nil {
		logger.Error("bootstrap failed", "error", err)
		shutdown(application, logger)
		os.Exit(1)
	}

	logger.Info("fixture poller running",
		"leagues", len(cfg.LeagueIDs),
		"tracked_fixtures", application.Lifecycle.TrackedCount(),
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := shutdown(application, logger); err != nil {
		os.Exit(1)
	}
	logger.Info("fixture poller stopped")
}

func shutdown(application *app.App, logger *logging.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
