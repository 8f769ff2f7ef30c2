package publisher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline_syncer/internal/domain"
	"timeline_syncer/internal/service"
)

var _ service.Publisher = (*RabbitMQ)(nil)

func TestNewMediaMessage(t *testing.T) {
	now := time.Date(2024, 3, 1, 13, 0, 0, 0, time.FixedZone("CET", 3600))
	item := &domain.MediaItem{ID: 9, Key: "3_1", AuthorID: 2, Type: domain.MediaTypePhoto, URL: "https://pbs.example/1.jpg"}

	msg := newMediaMessage(item, &domain.Author{Handle: "alice"}, now)

	assert.Equal(t, ActionMediaAdded, msg.Action)
	assert.Equal(t, "alice", msg.AuthorHandle)
	assert.Equal(t, *item, msg.Media)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())
	assert.True(t, now.Equal(msg.Timestamp))
}

func TestMediaMessage_JSONShape(t *testing.T) {
	item := &domain.MediaItem{Key: "3_1", PostID: "100", Type: domain.MediaTypePhoto, Sensitive: true}

	body, err := json.Marshal(newMediaMessage(item, nil, time.Now()))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))

	assert.Equal(t, "media_added", raw["action"])
	assert.Equal(t, "", raw["author_handle"])
	media, ok := raw["media"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "3_1", media["media_key"])
	assert.Equal(t, "photo", media["media_type"])
	assert.Equal(t, true, media["sensitive"])
}
