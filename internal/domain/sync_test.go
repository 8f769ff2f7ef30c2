package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorRef(t *testing.T) {
	tests := []struct {
		name    string
		ref     AuthorRef
		wantErr bool
		key     string
		str     string
	}{
		{name: "handle", ref: ByHandle("Alice"), key: "handle:alice", str: "@Alice"},
		{name: "handle with at sign", ref: ByHandle(" @alice "), key: "handle:alice", str: "@alice"},
		{name: "platform id", ref: ByPlatformID("12345"), key: "id:12345", str: "id:12345"},
		{name: "empty handle", ref: ByHandle("@"), wantErr: true},
		{name: "empty id", ref: ByPlatformID(" "), wantErr: true},
		{name: "zero value", ref: AuthorRef{}, wantErr: true, str: "<invalid>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.key, tt.ref.Key())
			}
			if tt.str != "" {
				assert.Equal(t, tt.str, tt.ref.String())
			}
		})
	}
}

func TestAuthorRef_ExactlyOneVariant(t *testing.T) {
	h, ok := ByHandle("alice").Handle()
	assert.True(t, ok)
	assert.Equal(t, "alice", h)
	_, ok = ByHandle("alice").PlatformID()
	assert.False(t, ok)

	id, ok := ByPlatformID("42").PlatformID()
	assert.True(t, ok)
	assert.Equal(t, "42", id)
	_, ok = ByPlatformID("42").Handle()
	assert.False(t, ok)
}

func TestErrAuthorNotFoundIsNotFound(t *testing.T) {
	assert.True(t, errors.Is(ErrAuthorNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrAuthorNotFound))
}
