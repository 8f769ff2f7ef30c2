package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"timeline_syncer/internal/app"
	"timeline_syncer/internal/config"
	"timeline_syncer/internal/scheduler"
	"timeline_syncer/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := app.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = app.NewLogger(cfg.LogLevel)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := migrations.Run(a.DB.DB); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler(a.Scraper, a.Authors, cfg.Sync, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting timeline syncer",
		"interval", cfg.Sync.Interval,
		"stale_after", cfg.Sync.StaleAfter,
		"default_count", cfg.Sync.DefaultCount,
		"publisher", cfg.RabbitMQ.Enabled,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}
