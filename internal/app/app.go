// Package app wires configuration into the stores, the Twitter client and the
// scrape service shared by the daemon and the operator CLI.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"timeline_syncer/internal/config"
	"timeline_syncer/internal/publisher"
	"timeline_syncer/internal/service"
	"timeline_syncer/internal/source/twitter"
	"timeline_syncer/internal/storage/postgres"
)

type App struct {
	DB      *sqlx.DB
	Authors *postgres.AuthorStore
	Media   *postgres.MediaStore
	Source  *twitter.Client
	Scraper *service.ScrapeService

	rabbitMQ *publisher.RabbitMQ
	logger   *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database")

	a := &App{
		DB:      db,
		Authors: postgres.NewAuthorStore(db),
		Media:   postgres.NewMediaStore(db),
		logger:  logger,
	}

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		a.rabbitMQ, err = publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		pub = a.rabbitMQ
	}

	a.Source = twitter.New(twitter.Config{
		BaseURL:           cfg.API.BaseURL,
		BearerToken:       cfg.API.BearerToken,
		Timeout:           cfg.API.Timeout,
		RequestsPerWindow: cfg.API.RequestsPerWindow,
		Window:            cfg.API.Window,
	}, logger)

	a.Scraper = service.NewScrapeService(a.Source, a.Authors, a.Media, pub, logger, cfg.Sync)

	return a, nil
}

func (a *App) Close() {
	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(); err != nil {
			a.logger.Warn("close rabbitmq", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}

func NewLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
