package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"timeline_syncer/internal/domain"
)

const (
	DefaultBaseURL = "https://api.twitter.com/2"

	// MinPageSize and MaxPageSize bound max_results on the timeline endpoint.
	MinPageSize = 5
	MaxPageSize = 100

	createdAtLayout = "2006-01-02T15:04:05"
)

// Config holds Twitter API client configuration.
type Config struct {
	BaseURL           string
	BearerToken       string
	Timeout           time.Duration
	RequestsPerWindow int
	Window            time.Duration
}

// Client is a thin adapter over the Twitter v2 API. It performs exactly one
// HTTP call per operation and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a new Twitter API client.
func New(cfg Config, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerWindow > 0 && cfg.Window > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.RequestsPerWindow)), cfg.RequestsPerWindow)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.BearerToken,
		limiter: limiter,
		logger:  logger.With("source", "twitter"),
	}
}

// ResolveIdentity looks up the canonical profile for a handle.
func (c *Client) ResolveIdentity(ctx context.Context, handle string) (*domain.Profile, error) {
	if handle == "" {
		return nil, fmt.Errorf("%w: handle cannot be empty", domain.ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("user.fields", "profile_image_url")

	var resp userResponse
	if err := c.get(ctx, "/users/by/username/"+url.PathEscape(handle), params, &resp); err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, transportError(http.StatusOK, "user lookup returned no data", nil)
	}

	return &domain.Profile{
		PlatformID: resp.Data.ID,
		Name:       resp.Data.Name,
		Handle:     resp.Data.Username,
		AvatarURL:  resp.Data.ProfileImageURL,
	}, nil
}

// FetchPage fetches one page of a user's timeline. The returned cursor is
// empty when there are no further pages.
func (c *Client) FetchPage(ctx context.Context, userID string, pageSize int, cursor string) ([]domain.Post, string, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return nil, "", fmt.Errorf("%w: page size %d must be between [%d, %d]",
			domain.ErrInvalidArgument, pageSize, MinPageSize, MaxPageSize)
	}

	params := url.Values{}
	params.Set("exclude", "retweets,replies")
	params.Set("expansions", "attachments.media_keys")
	params.Set("media.fields", "type,url")
	params.Set("tweet.fields", "created_at,possibly_sensitive")
	params.Set("max_results", strconv.Itoa(pageSize))
	if cursor != "" {
		params.Set("pagination_token", cursor)
	}

	var resp timelineResponse
	if err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/tweets", params, &resp); err != nil {
		return nil, "", err
	}

	return c.transform(userID, &resp), resp.Meta.NextToken, nil
}

// FetchTimeline pages through a user's timeline until limit is spent or the
// platform runs out of pages.
func (c *Client) FetchTimeline(ctx context.Context, userID string, limit int) ([]domain.Post, error) {
	posts, err := Paginate(ctx, c, userID, limit)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched timeline",
		"user_id", userID,
		"limit", limit,
		"posts", len(posts),
	)

	return posts, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(0, "wait for request slot", err)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return transportError(0, "create request", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TimelineSyncer/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "path", path, "error", err)
		return transportError(0, "execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(resp.StatusCode, "read response", err)
	}

	c.logger.Debug("request completed",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)

	if err := classify(resp, body, envelope.Errors); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return transportError(resp.StatusCode, "decode response", err)
	}

	return nil
}

func (c *Client) transform(userID string, resp *timelineResponse) []domain.Post {
	media := make(map[string]domain.Media, len(resp.Includes.Media))
	for _, m := range resp.Includes.Media {
		// url is absent for animated_gif and video media
		media[m.MediaKey] = domain.Media{
			Key:  m.MediaKey,
			Type: domain.MediaType(m.Type),
			URL:  m.URL,
		}
	}

	posts := make([]domain.Post, 0, len(resp.Data))
	for _, t := range resp.Data {
		createdAt, err := parseCreatedAt(t.CreatedAt)
		if err != nil {
			c.logger.Warn("failed to parse created_at",
				"tweet_id", t.ID,
				"created_at", t.CreatedAt,
			)
			continue
		}

		post := domain.Post{
			ID:        t.ID,
			AuthorID:  userID,
			CreatedAt: createdAt,
			Sensitive: t.PossiblySensitive,
		}

		if t.Attachments != nil {
			for _, key := range t.Attachments.MediaKeys {
				m, ok := media[key]
				if !ok {
					c.logger.Debug("media key missing from includes", "tweet_id", t.ID, "media_key", key)
					continue
				}
				post.Media = append(post.Media, m)
			}
		}

		posts = append(posts, post)
	}

	return posts
}

// parseCreatedAt keeps the seconds-precision prefix and reads it as UTC. Any
// sub-second or zone suffix is dropped.
func parseCreatedAt(s string) (time.Time, error) {
	if len(s) > len(createdAtLayout) {
		s = s[:len(createdAtLayout)]
	}
	return time.ParseInLocation(createdAtLayout, s, time.UTC)
}
