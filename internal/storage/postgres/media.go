package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"timeline_syncer/internal/domain"
)

type MediaStore struct {
	db *sqlx.DB
}

func NewMediaStore(db *sqlx.DB) *MediaStore {
	return &MediaStore{db: db}
}

// Upsert inserts the item or overwrites the mutable fields of the row with
// the same media key. It reports true only when a new row was inserted. A
// unique violation raised by a concurrent insert counts as already present.
func (s *MediaStore) Upsert(ctx context.Context, item *domain.MediaItem) (bool, error) {
	query := `
		INSERT INTO media_items (
			media_key, author_id, post_id, media_type, url, sensitive, posted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (media_key) DO UPDATE SET
			author_id = EXCLUDED.author_id,
			post_id = EXCLUDED.post_id,
			media_type = EXCLUDED.media_type,
			url = EXCLUDED.url,
			sensitive = EXCLUDED.sensitive,
			posted_at = EXCLUDED.posted_at,
			updated_at = now()
		RETURNING id, (xmax = 0) AS inserted`

	var inserted bool
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		item.Key,
		item.AuthorID,
		item.PostID,
		item.Type,
		item.URL,
		item.Sensitive,
		item.PostedAt,
	).Scan(&item.ID, &inserted)

	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return inserted, nil
}

func (s *MediaStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &n, "SELECT COUNT(*) FROM media_items")
	return n, err
}

func (s *MediaStore) CountByAuthor(ctx context.Context, authorID int64) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &n,
		"SELECT COUNT(*) FROM media_items WHERE author_id = $1", authorID)
	return n, err
}
