package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"timeline_syncer/internal/domain"
)

var authorColumns = []string{
	"id", "platform_id", "handle", "display_name", "avatar_url",
	"last_synced_at", "hit_count", "scrape_count", "created_at", "updated_at",
}

type AuthorStore struct {
	db *sqlx.DB
	tx *TransactionManager
}

func NewAuthorStore(db *sqlx.DB) *AuthorStore {
	return &AuthorStore{db: db, tx: NewTransactionManager(db)}
}

func (s *AuthorStore) GetByPlatformID(ctx context.Context, platformID string) (*domain.Author, error) {
	return s.getOne(ctx, sq.Eq{"platform_id": platformID})
}

// GetByHandle matches the handle case-insensitively.
func (s *AuthorStore) GetByHandle(ctx context.Context, handle string) (*domain.Author, error) {
	return s.getOne(ctx, sq.Expr("lower(handle) = lower(?)", handle))
}

func (s *AuthorStore) getOne(ctx context.Context, pred sq.Sqlizer) (*domain.Author, error) {
	query, args, err := sqBuilder.Select(authorColumns...).From("authors").Where(pred).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}

	var author domain.Author
	err = sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &author, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAuthorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// Create inserts an author for the profile, or refreshes the existing row
// with the same platform ID. The boolean reports whether a row was inserted.
func (s *AuthorStore) Create(ctx context.Context, profile domain.Profile) (*domain.Author, bool, error) {
	var row struct {
		domain.Author
		Inserted bool `db:"inserted"`
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.db)

		// Another account may still hold this handle from before a rename.
		_, err := exec.ExecContext(ctx, `
			UPDATE authors SET handle = '~' || platform_id, updated_at = now()
			WHERE lower(handle) = lower($1) AND platform_id <> $2`,
			profile.Handle, profile.PlatformID,
		)
		if err != nil {
			return fmt.Errorf("release stale handle: %w", err)
		}

		query := `
			INSERT INTO authors (platform_id, handle, display_name, avatar_url)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (platform_id) DO UPDATE SET
				handle = EXCLUDED.handle,
				display_name = EXCLUDED.display_name,
				avatar_url = EXCLUDED.avatar_url,
				updated_at = now()
			RETURNING id, platform_id, handle, display_name, avatar_url,
				last_synced_at, hit_count, scrape_count, created_at, updated_at,
				(xmax = 0) AS inserted`

		return sqlx.GetContext(ctx, exec, &row, query,
			profile.PlatformID,
			profile.Handle,
			profile.Name,
			profile.AvatarURL,
		)
	})
	if err != nil {
		return nil, false, err
	}

	return &row.Author, row.Inserted, nil
}

func (s *AuthorStore) MarkSynced(ctx context.Context, authorID int64, at time.Time) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE authors SET last_synced_at = $2, updated_at = now() WHERE id = $1",
		authorID, at,
	)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *AuthorStore) IncrementScrapeCount(ctx context.Context, authorID int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE authors SET scrape_count = scrape_count + 1 WHERE id = $1",
		authorID,
	)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// ListStale returns up to limit authors never synced or last synced before
// the cutoff, least recently synced first.
func (s *AuthorStore) ListStale(ctx context.Context, before time.Time, limit int) ([]domain.Author, error) {
	query, args, err := sqBuilder.Select(authorColumns...).
		From("authors").
		Where(sq.Or{
			sq.Eq{"last_synced_at": nil},
			sq.Lt{"last_synced_at": before},
		}).
		OrderBy("last_synced_at ASC NULLS FIRST", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}

	var authors []domain.Author
	err = sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &authors, query, args...)
	return authors, err
}

func (s *AuthorStore) List(ctx context.Context) ([]domain.Author, error) {
	query, args, err := sqBuilder.Select(authorColumns...).From("authors").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadQuery, err)
	}

	var authors []domain.Author
	err = sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &authors, query, args...)
	return authors, err
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAuthorNotFound
	}
	return nil
}
