package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"timeline_syncer/internal/domain"
)

type AuthorStore interface {
	GetByPlatformID(ctx context.Context, platformID string) (*domain.Author, error)
	GetByHandle(ctx context.Context, handle string) (*domain.Author, error)
	Create(ctx context.Context, profile domain.Profile) (*domain.Author, bool, error)
	MarkSynced(ctx context.Context, authorID int64, at time.Time) error
	IncrementScrapeCount(ctx context.Context, authorID int64) error
}

type MediaStore interface {
	Upsert(ctx context.Context, item *domain.MediaItem) (bool, error)
}

type Source interface {
	ResolveIdentity(ctx context.Context, handle string) (*domain.Profile, error)
	FetchTimeline(ctx context.Context, platformID string, limit int) ([]domain.Post, error)
}

type Publisher interface {
	PublishMedia(ctx context.Context, item *domain.MediaItem, author *domain.Author) error
}
