// Package cache provides the key-value store the session state lives in.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache is a string-keyed byte store with per-key expiry.
type Cache interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes all keys in a single atomic operation. Missing keys are
	// ignored.
	Delete(ctx context.Context, keys ...string) error

	// Keys returns every live key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Expire resets the expiry of key. It reports false if the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// GetJSON decodes the value at key into dst. It reports false when the key
// is absent.
func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	data, err := c.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// IsAlive reports whether the backend answers a ping within a second.
func IsAlive(ctx context.Context, c Cache) bool {
	pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	return c.Ping(pingCtx) == nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrCacheUnavailable, err)
}
