package twitter

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"timeline_syncer/internal/domain"
)

const notFoundTitle = "Not Found Error"

// Error is a classified API failure. Kind is one of domain.ErrNotFound,
// domain.ErrRateLimited or domain.ErrTransport.
type Error struct {
	Kind       error
	StatusCode int
	Header     http.Header
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("twitter %v (status %d): %s: %v", e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("twitter %v (status %d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RetryAfter reports how long to wait before the rate limit window resets,
// or zero if the response carried no hint.
func (e *Error) RetryAfter() time.Duration {
	return retryAfter(e.Header, time.Now())
}

func retryAfter(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	if v := h.Get("x-rate-limit-reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
			return 0
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func transportError(status int, msg string, err error) *Error {
	return &Error{Kind: domain.ErrTransport, StatusCode: status, Message: msg, Err: err}
}

// classify maps an HTTP status and decoded platform errors onto the error
// vocabulary. It returns nil for a successful response.
func classify(resp *http.Response, body []byte, errs []apiError) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &Error{
			Kind:       domain.ErrRateLimited,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Message:    string(body),
		}
	}

	if len(errs) > 0 && errs[0].Title == notFoundTitle {
		return &Error{Kind: domain.ErrNotFound, StatusCode: resp.StatusCode, Message: errs[0].Detail}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transportError(resp.StatusCode, fmt.Sprintf("unexpected status: %s", string(body)), nil)
	}

	if len(errs) > 0 {
		return transportError(resp.StatusCode, fmt.Sprintf("%s: %s", errs[0].Title, errs[0].Detail), nil)
	}

	return nil
}
