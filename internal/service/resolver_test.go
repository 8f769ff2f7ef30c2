package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"timeline_syncer/internal/domain"
	"timeline_syncer/internal/service/mocks"
)

func newTestResolver(t *testing.T) (*Resolver, *mocks.MockAuthorStore, *mocks.MockSource) {
	ctrl := gomock.NewController(t)
	authors := mocks.NewMockAuthorStore(ctrl)
	source := mocks.NewMockSource(ctrl)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewResolver(authors, source, logger), authors, source
}

func TestResolver_RejectsEmptyRef(t *testing.T) {
	r, _, _ := newTestResolver(t)

	for _, ref := range []domain.AuthorRef{{}, domain.ByHandle("  "), domain.ByPlatformID("")} {
		_, _, err := r.Resolve(context.Background(), ref)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, ref.String())
	}
}

func TestResolver_KnownHandle(t *testing.T) {
	r, authors, _ := newTestResolver(t)
	ctx := context.Background()
	want := &domain.Author{ID: 7, PlatformID: "42", Handle: "alice"}

	authors.EXPECT().GetByHandle(ctx, "alice").Return(want, nil)

	got, created, err := r.Resolve(ctx, domain.ByHandle("@alice"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, want, got)
}

func TestResolver_UnknownHandleCreatesAuthor(t *testing.T) {
	r, authors, source := newTestResolver(t)
	ctx := context.Background()
	profile := &domain.Profile{PlatformID: "42", Name: "Alice", Handle: "alice"}
	want := &domain.Author{ID: 1, PlatformID: "42", Handle: "alice"}

	gomock.InOrder(
		authors.EXPECT().GetByHandle(ctx, "alice").Return(nil, domain.ErrAuthorNotFound),
		source.EXPECT().ResolveIdentity(ctx, "alice").Return(profile, nil),
		authors.EXPECT().Create(ctx, *profile).Return(want, true, nil),
	)

	got, created, err := r.Resolve(ctx, domain.ByHandle("alice"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), got.ID)
}

func TestResolver_UnknownHandleRemoteErrorsPassThrough(t *testing.T) {
	for _, remoteErr := range []error{domain.ErrNotFound, domain.ErrRateLimited} {
		r, authors, source := newTestResolver(t)
		ctx := context.Background()

		authors.EXPECT().GetByHandle(ctx, "ghost").Return(nil, domain.ErrAuthorNotFound)
		source.EXPECT().ResolveIdentity(ctx, "ghost").Return(nil, remoteErr)

		_, _, err := r.Resolve(ctx, domain.ByHandle("ghost"))
		assert.ErrorIs(t, err, remoteErr)
	}
}

func TestResolver_PlatformIDNeverCallsRemote(t *testing.T) {
	r, authors, _ := newTestResolver(t)
	ctx := context.Background()

	authors.EXPECT().GetByPlatformID(ctx, "404").Return(nil, domain.ErrAuthorNotFound)

	_, _, err := r.Resolve(ctx, domain.ByPlatformID("404"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolver_StorageFailure(t *testing.T) {
	r, authors, _ := newTestResolver(t)
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	authors.EXPECT().GetByHandle(ctx, "alice").Return(nil, dbErr)

	_, _, err := r.Resolve(ctx, domain.ByHandle("alice"))
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
