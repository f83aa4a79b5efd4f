package domain

import "errors"

var (
	// ErrNotFound marks an absent session, message or saved search.
	ErrNotFound = errors.New("not found")
	// ErrCacheUnavailable marks a failure of the underlying key-value cache.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrValidation marks a request with missing or malformed fields.
	ErrValidation = errors.New("validation error")
	// ErrUpstreamUnavailable marks a failure of the LLM or the sheet source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
