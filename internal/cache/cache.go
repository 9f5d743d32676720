// Package cache provides a read-through cache with in-flight deduplication.
// Instances are passed to their users; there is no package-level cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Loader produces the value for a key on a miss
type Loader func(ctx context.Context) ([]byte, error)

// Cache is a read-through byte cache. Concurrent misses on the same key share
// one loader call.
type Cache interface {
	Get(ctx context.Context, key string, ttl time.Duration, load Loader) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON reads key through c, encoding and decoding values as JSON.
func GetJSON[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var out T
	raw, err := c.Get(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache value: %w", err)
		}
		return b, nil
	})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode cache value for %s: %w", key, err)
	}
	return out, nil
}

// Key joins parts into a namespaced cache key
func Key(parts ...string) string {
	k := "agenda"
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
