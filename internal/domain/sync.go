package domain

import (
	"fmt"
	"strings"
)

type refKind int

const (
	refByHandle refKind = iota + 1
	refByPlatformID
)

// AuthorRef identifies the author to scrape, either by handle or by stable
// platform ID. The zero value is invalid.
type AuthorRef struct {
	kind  refKind
	value string
}

func ByHandle(handle string) AuthorRef {
	return AuthorRef{kind: refByHandle, value: strings.TrimPrefix(strings.TrimSpace(handle), "@")}
}

func ByPlatformID(id string) AuthorRef {
	return AuthorRef{kind: refByPlatformID, value: strings.TrimSpace(id)}
}

// Handle returns the handle and true if the ref was built with ByHandle.
func (r AuthorRef) Handle() (string, bool) {
	return r.value, r.kind == refByHandle
}

// PlatformID returns the stable ID and true if the ref was built with ByPlatformID.
func (r AuthorRef) PlatformID() (string, bool) {
	return r.value, r.kind == refByPlatformID
}

func (r AuthorRef) Validate() error {
	switch r.kind {
	case refByHandle:
		if r.value == "" {
			return fmt.Errorf("%w: handle cannot be empty", ErrInvalidArgument)
		}
	case refByPlatformID:
		if r.value == "" {
			return fmt.Errorf("%w: platform id cannot be empty", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: exactly one of handle or platform id is required", ErrInvalidArgument)
	}
	return nil
}

// Key is a stable, case-insensitive identifier for the ref.
func (r AuthorRef) Key() string {
	switch r.kind {
	case refByHandle:
		return "handle:" + strings.ToLower(r.value)
	case refByPlatformID:
		return "id:" + r.value
	default:
		return ""
	}
}

func (r AuthorRef) String() string {
	switch r.kind {
	case refByHandle:
		return "@" + r.value
	case refByPlatformID:
		return "id:" + r.value
	default:
		return "<invalid>"
	}
}

// ScrapeResult holds statistics about one scrape run.
type ScrapeResult struct {
	ItemsExamined int
	MediaFound    int
	MediaAdded    int
}
