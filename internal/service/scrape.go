package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"timeline_syncer/internal/config"
	"timeline_syncer/internal/domain"
	"timeline_syncer/internal/source/twitter"
)

// MinCount is the smallest item budget a scrape accepts.
const MinCount = twitter.MinPageSize

// runTimeout bounds a coalesced run, which outlives any single caller.
const runTimeout = 10 * time.Minute

// testHookJoined runs once a caller is registered with the coalescing group.
var testHookJoined = func() {}

// ScrapeService runs incremental scrapes of one author's timeline into the
// media store.
type ScrapeService struct {
	resolver  *Resolver
	source    Source
	authors   AuthorStore
	media     MediaStore
	publisher Publisher
	logger    *slog.Logger
	group     *singleflight.Group
	now       func() time.Time
}

func NewScrapeService(
	source Source,
	authors AuthorStore,
	media MediaStore,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *ScrapeService {
	logger = logger.With("component", "scraper")

	s := &ScrapeService{
		resolver:  NewResolver(authors, source, logger),
		source:    source,
		authors:   authors,
		media:     media,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	if !cfg.DisableCoalescing {
		s.group = &singleflight.Group{}
	}
	return s
}

// Scrape fetches up to count timeline items for the referenced author and
// upserts their photos. With onlyRecent set, only items newer than the
// author's previous sync are considered.
//
// Concurrent calls with identical arguments share one run unless coalescing
// is disabled. A shared run is not cancelled by its callers; each caller
// stops waiting when its own ctx is done.
func (s *ScrapeService) Scrape(ctx context.Context, ref domain.AuthorRef, count int, onlyRecent bool) (*domain.ScrapeResult, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if count < MinCount {
		return nil, fmt.Errorf("%w: count must be at least %d", domain.ErrInvalidArgument, MinCount)
	}

	if s.group == nil {
		return s.scrape(ctx, ref, count, onlyRecent)
	}

	key := fmt.Sprintf("%s|%d|%t", ref.Key(), count, onlyRecent)
	ch := s.group.DoChan(key, func() (any, error) {
		// Detached so that one caller giving up does not fail the others.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runTimeout)
		defer cancel()
		return s.scrape(runCtx, ref, count, onlyRecent)
	})
	testHookJoined()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined in-flight scrape", "author", ref.String())
		}
		if res.Err != nil {
			return nil, res.Err
		}
		result := *res.Val.(*domain.ScrapeResult)
		return &result, nil
	}
}

func (s *ScrapeService) scrape(ctx context.Context, ref domain.AuthorRef, count int, onlyRecent bool) (*domain.ScrapeResult, error) {
	startTime := time.Now()
	logger := s.logger.With("author", ref.String())
	logger.Info("starting scrape",
		"count", count,
		"only_recent", onlyRecent,
	)

	author, created, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("created author",
			"author_id", author.ID,
			"platform_id", author.PlatformID,
		)
	}

	var since *time.Time
	if onlyRecent && author.LastSyncedAt != nil {
		cutoff := *author.LastSyncedAt
		since = &cutoff
	}

	// Stamped before any timeline request so that a concurrent run for the
	// same author computes a cutoff close to now.
	if err := s.authors.MarkSynced(ctx, author.ID, s.now()); err != nil {
		return nil, fmt.Errorf("mark synced: %w", err)
	}

	posts, err := s.source.FetchTimeline(ctx, author.PlatformID, count)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}

	logger.Debug("fetched posts", "count", len(posts), "since", since)

	result := &domain.ScrapeResult{ItemsExamined: len(posts)}
	if len(posts) == 0 {
		logger.Info("no posts found")
		return result, nil
	}

	candidates := collectPhotos(author, posts, since)
	result.MediaFound = len(candidates)

	for i := range candidates {
		item := &candidates[i]

		inserted, err := s.media.Upsert(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("upsert media %s: %w", item.Key, err)
		}
		if !inserted {
			continue
		}

		result.MediaAdded++
		s.publish(ctx, item, author)
	}

	if err := s.authors.IncrementScrapeCount(ctx, author.ID); err != nil {
		logger.Warn("failed to increment scrape count", "error", err)
	}

	logger.Info("scrape completed",
		"examined", result.ItemsExamined,
		"found", result.MediaFound,
		"added", result.MediaAdded,
		"duration", time.Since(startTime),
	)

	return result, nil
}

func (s *ScrapeService) publish(ctx context.Context, item *domain.MediaItem, author *domain.Author) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMedia(ctx, item, author); err != nil {
		s.logger.Warn("failed to publish media",
			"media_key", item.Key,
			"error", err,
		)
	}
}

// collectPhotos flattens post attachments into media items, keeping only
// photos from posts newer than since.
func collectPhotos(author *domain.Author, posts []domain.Post, since *time.Time) []domain.MediaItem {
	var items []domain.MediaItem
	for _, p := range posts {
		if since != nil && !p.CreatedAt.After(*since) {
			continue
		}
		for _, m := range p.Media {
			if m.Type != domain.MediaTypePhoto {
				continue
			}
			items = append(items, domain.MediaItem{
				Key:       m.Key,
				AuthorID:  author.ID,
				PostID:    p.ID,
				Type:      m.Type,
				URL:       m.URL,
				Sensitive: p.Sensitive,
				PostedAt:  p.CreatedAt,
			})
		}
	}
	return items
}
