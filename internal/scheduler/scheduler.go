package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron/v2"

	"timeline_syncer/internal/config"
	"timeline_syncer/internal/domain"
)

// roundTimeout bounds one rescrape round.
const roundTimeout = 10 * time.Minute

type Scraper interface {
	Scrape(ctx context.Context, ref domain.AuthorRef, count int, onlyRecent bool) (*domain.ScrapeResult, error)
}

type AuthorLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]domain.Author, error)
}

// RoundStats summarises one rescrape round.
type RoundStats struct {
	Authors     int
	Succeeded   int
	Failed      int
	MediaAdded  int
	RateLimited bool
}

// Scheduler periodically rescrapes authors whose last sync is older than the
// configured staleness window.
type Scheduler struct {
	scraper Scraper
	authors AuthorLister
	cfg     config.SyncConfig
	logger  *slog.Logger
	now     func() time.Time
}

func NewScheduler(scraper Scraper, authors AuthorLister, cfg config.SyncConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scraper: scraper,
		authors: authors,
		cfg:     cfg,
		logger:  logger.With("component", "scheduler"),
		now:     time.Now,
	}
}

// Start runs a round immediately and then every interval until ctx is done.
// Rounds never overlap.
func (s *Scheduler) Start(ctx context.Context) error {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			roundCtx, cancel := context.WithTimeout(ctx, roundTimeout)
			defer cancel()
			s.RunOnce(roundCtx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule rescrape job: %w", err)
	}

	cron.Start()
	s.logger.Info("scheduler started", "interval", s.cfg.Interval)

	<-ctx.Done()

	if err := cron.Shutdown(); err != nil {
		s.logger.Warn("scheduler shutdown", "error", err)
	}
	s.logger.Info("scheduler stopped")

	return ctx.Err()
}

// RunOnce rescrapes every stale author, oldest first. A rate limit ends the
// round early; other per-author failures are logged and skipped.
func (s *Scheduler) RunOnce(ctx context.Context) RoundStats {
	var stats RoundStats

	before := s.now().Add(-s.cfg.StaleAfter)
	authors, err := s.authors.ListStale(ctx, before, s.cfg.MaxAuthorsPerRun)
	if err != nil {
		s.logger.Error("failed to list stale authors", "error", err)
		return stats
	}
	stats.Authors = len(authors)

	for _, author := range authors {
		if ctx.Err() != nil {
			break
		}

		result, err := s.scrapeWithRetry(ctx, author)
		switch {
		case err == nil:
			stats.Succeeded++
			stats.MediaAdded += result.MediaAdded
		case errors.Is(err, domain.ErrRateLimited):
			stats.Failed++
			stats.RateLimited = true
			s.logger.Warn("rate limited, ending round early",
				"handle", author.Handle,
				"retry_after", retryAfter(err),
				"error", err,
			)
		case errors.Is(err, domain.ErrNotFound):
			stats.Failed++
			s.logger.Warn("author no longer available",
				"handle", author.Handle,
				"platform_id", author.PlatformID,
			)
		default:
			stats.Failed++
			s.logger.Error("rescrape failed",
				"handle", author.Handle,
				"error", err,
			)
		}

		if stats.RateLimited {
			break
		}
	}

	s.logger.Info("rescrape round completed",
		"authors", stats.Authors,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"media_added", stats.MediaAdded,
	)

	return stats
}

// scrapeWithRetry retries transport failures with exponential backoff. Every
// other error is returned on first occurrence.
//
// A failed attempt has already advanced the author's sync stamp, so retries
// ignore the cutoff; otherwise posts between the previous stamp and the failed
// attempt would never be examined.
func (s *Scheduler) scrapeWithRetry(ctx context.Context, author domain.Author) (*domain.ScrapeResult, error) {
	var result *domain.ScrapeResult
	onlyRecent := s.cfg.OnlyRecent

	operation := func() error {
		res, err := s.scraper.Scrape(ctx, domain.ByPlatformID(author.PlatformID), s.cfg.DefaultCount, onlyRecent)
		onlyRecent = false
		if err != nil {
			if errors.Is(err, domain.ErrTransport) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.Retry.InitialBackoff
	bo.MaxInterval = s.cfg.Retry.MaxBackoff
	bo.Reset()

	retries := uint64(0)
	if s.cfg.Retry.MaxAttempts > 1 {
		retries = uint64(s.cfg.Retry.MaxAttempts - 1)
	}

	notify := func(err error, next time.Duration) {
		s.logger.Warn("rescrape failed, retrying",
			"handle", author.Handle,
			"error", err,
			"next_attempt_in", next.Round(time.Millisecond).String(),
		)
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx), notify)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// retryAfter extracts the reset hint carried by rate limit errors.
func retryAfter(err error) time.Duration {
	var hinted interface{ RetryAfter() time.Duration }
	if errors.As(err, &hinted) {
		return hinted.RetryAfter()
	}
	return 0
}
