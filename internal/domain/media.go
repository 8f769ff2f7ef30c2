package domain

import "time"

type MediaType string

const (
	MediaTypePhoto       MediaType = "photo"
	MediaTypeVideo       MediaType = "video"
	MediaTypeAnimatedGIF MediaType = "animated_gif"
)

// MediaItem is one stored media reference. Key is the platform media key and
// the idempotency key for upserts.
type MediaItem struct {
	ID        int64     `db:"id" json:"id"`
	Key       string    `db:"media_key" json:"media_key"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	PostID    string    `db:"post_id" json:"post_id"`
	Type      MediaType `db:"media_type" json:"media_type"`
	URL       string    `db:"url" json:"url"`
	Sensitive bool      `db:"sensitive" json:"sensitive"`
	PostedAt  time.Time `db:"posted_at" json:"posted_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Post is one timeline entry as returned by the remote platform.
type Post struct {
	ID        string
	AuthorID  string
	CreatedAt time.Time
	Sensitive bool
	Media     []Media
}

// Media is an attachment descriptor. URL is empty for media types the
// platform does not expose a direct URL for.
type Media struct {
	Key  string
	Type MediaType
	URL  string
}
