package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline_syncer/internal/domain"
	"timeline_syncer/internal/service"
)

type memoryAuthors struct {
	mu      sync.Mutex
	authors map[string]*domain.Author
}

func (m *memoryAuthors) GetByPlatformID(_ context.Context, platformID string) (*domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.authors[platformID]
	if !ok {
		return nil, domain.ErrAuthorNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAuthors) GetByHandle(_ context.Context, handle string) (*domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.authors {
		if a.Handle == handle {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAuthorNotFound
}

func (m *memoryAuthors) Create(context.Context, domain.Profile) (*domain.Author, bool, error) {
	return nil, false, fmt.Errorf("create not supported")
}

func (m *memoryAuthors) MarkSynced(_ context.Context, authorID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.authors {
		if a.ID == authorID {
			a.LastSyncedAt = &at
			return nil
		}
	}
	return domain.ErrAuthorNotFound
}

func (m *memoryAuthors) IncrementScrapeCount(_ context.Context, authorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.authors {
		if a.ID == authorID {
			a.ScrapeCount++
			return nil
		}
	}
	return domain.ErrAuthorNotFound
}

type memoryMedia struct {
	mu    sync.Mutex
	items map[string]domain.MediaItem
}

func (m *memoryMedia) Upsert(_ context.Context, item *domain.MediaItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.items[item.Key]
	m.items[item.Key] = *item
	return !exists, nil
}

// flakySource fails the first failures timeline fetches with a transport error.
type flakySource struct {
	mu       sync.Mutex
	failures int
	calls    int
	posts    []domain.Post
}

func (f *flakySource) ResolveIdentity(context.Context, string) (*domain.Profile, error) {
	return nil, domain.ErrNotFound
}

func (f *flakySource) FetchTimeline(context.Context, string, int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("fetch page: %w", domain.ErrTransport)
	}
	return f.posts, nil
}

func TestRunOnce_RetryAfterTransportErrorKeepsMissedPosts(t *testing.T) {
	lastSynced := time.Now().Add(-2 * time.Hour)
	author := &domain.Author{ID: 1, PlatformID: "42", Handle: "alice", LastSyncedAt: &lastSynced}

	authors := &memoryAuthors{authors: map[string]*domain.Author{"42": author}}
	media := &memoryMedia{items: map[string]domain.MediaItem{}}
	source := &flakySource{
		failures: 1,
		posts: []domain.Post{{
			ID:        "1001",
			CreatedAt: time.Now().Add(-time.Hour),
			Media:     []domain.Media{{Key: "3_1001", Type: domain.MediaTypePhoto, URL: "https://pbs.example/1001.jpg"}},
		}},
	}

	cfg := testConfig()
	scraper := service.NewScrapeService(source, authors, media, nil, testLogger(), cfg)
	s := NewScheduler(scraper, &fakeLister{authors: []domain.Author{*author}}, cfg, testLogger())

	stats := s.RunOnce(context.Background())

	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.MediaAdded)
	assert.Equal(t, 2, source.calls)
	require.Contains(t, media.items, "3_1001")
	assert.Equal(t, int64(1), media.items["3_1001"].AuthorID)

	stored, err := authors.GetByPlatformID(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, stored.LastSyncedAt)
	assert.True(t, stored.LastSyncedAt.After(lastSynced))
	assert.Equal(t, int64(1), stored.ScrapeCount)
}
