package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for bad caller input before any network
	// or storage access.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound means the platform has no such identity.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited means the platform refused the request with HTTP 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransport covers every other network or platform failure.
	ErrTransport = errors.New("transport error")

	ErrAuthorNotFound = fmt.Errorf("author %w", ErrNotFound)
)
