package twitter

import (
	"context"
	"fmt"

	"timeline_syncer/internal/domain"
)

// PageFetcher fetches a single timeline page.
type PageFetcher interface {
	FetchPage(ctx context.Context, userID string, pageSize int, cursor string) ([]domain.Post, string, error)
}

// Paginate calls f until limit is spent or the cursor is exhausted. The
// budget shrinks by MaxPageSize per call regardless of how many posts the
// page held. Every request asks for between MinPageSize and MaxPageSize
// posts. The first error aborts the run and no posts are returned.
func Paginate(ctx context.Context, f PageFetcher, userID string, limit int) ([]domain.Post, error) {
	if limit < MinPageSize {
		return nil, fmt.Errorf("%w: count must be at least %d", domain.ErrInvalidArgument, MinPageSize)
	}

	var posts []domain.Post
	cursor := ""

	for remaining := limit; remaining > 0; remaining -= MaxPageSize {
		page, next, err := f.FetchPage(ctx, userID, pageSize(remaining), cursor)
		if err != nil {
			return nil, err
		}

		posts = append(posts, page...)

		if next == "" {
			break
		}
		cursor = next
	}

	return posts, nil
}

func pageSize(remaining int) int {
	return max(MinPageSize, min(remaining, MaxPageSize))
}
