package domain

import "time"

// Author is the local record of a remote account. PlatformID is the
// persistence key; Handle may change over time.
type Author struct {
	ID           int64      `db:"id"`
	PlatformID   string     `db:"platform_id"`
	Handle       string     `db:"handle"`
	DisplayName  string     `db:"display_name"`
	AvatarURL    string     `db:"avatar_url"`
	LastSyncedAt *time.Time `db:"last_synced_at"`
	HitCount     int64      `db:"hit_count"`
	ScrapeCount  int64      `db:"scrape_count"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// Profile is the platform's canonical identity record for a handle.
type Profile struct {
	PlatformID string
	Name       string
	Handle     string
	AvatarURL  string
}
