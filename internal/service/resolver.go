package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"timeline_syncer/internal/domain"
)

// Resolver maps an AuthorRef to exactly one local author, creating it on
// first sight of a handle.
type Resolver struct {
	authors AuthorStore
	source  Source
	logger  *slog.Logger
}

func NewResolver(authors AuthorStore, source Source, logger *slog.Logger) *Resolver {
	return &Resolver{
		authors: authors,
		source:  source,
		logger:  logger,
	}
}

// Resolve returns the author for ref and whether it was created by this call.
// A platform ID must already be known locally; only handles fall back to a
// remote lookup.
func (r *Resolver) Resolve(ctx context.Context, ref domain.AuthorRef) (*domain.Author, bool, error) {
	if err := ref.Validate(); err != nil {
		return nil, false, err
	}

	if id, ok := ref.PlatformID(); ok {
		author, err := r.authors.GetByPlatformID(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("get author %s: %w", id, err)
		}
		return author, false, nil
	}

	handle, _ := ref.Handle()

	author, err := r.authors.GetByHandle(ctx, handle)
	if err == nil {
		return author, false, nil
	}
	if !errors.Is(err, domain.ErrAuthorNotFound) {
		return nil, false, fmt.Errorf("get author by handle: %w", err)
	}

	profile, err := r.source.ResolveIdentity(ctx, handle)
	if err != nil {
		return nil, false, err
	}

	author, created, err := r.authors.Create(ctx, *profile)
	if err != nil {
		return nil, false, fmt.Errorf("create author: %w", err)
	}

	r.logger.Debug("resolved author remotely",
		"handle", handle,
		"platform_id", profile.PlatformID,
		"created", created,
	)

	return author, created, nil
}
