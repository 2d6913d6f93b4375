// Package cache provides a generic, thread-safe TTL cache with LRU eviction
// under a hard size bound.
package cache

import (
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// EvictCallback is called when an entry is evicted from the cache.
// It receives the key and value of the evicted entry.
type EvictCallback[V any] func(key string, value V)

// entry is a cache entry with its lifecycle metadata. Entries are owned
// exclusively by the cache map; they are mutated only on read (accessedAt)
// and write, and destroyed on expiry, explicit delete, or LRU eviction.
type entry[V any] struct {
	key        string
	value      V
	createdAt  time.Time
	expiresAt  time.Time
	accessedAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// validateKey validates a cache key for basic requirements.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidDomain, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
