package limiter

import (
	"context"
	"sync"
)

// Keyed bounds concurrency per partition key (typically per upstream host),
// independent of any global bound. One semaphore is lazily created the first
// time a key is used and retained for the process lifetime.
type Keyed struct {
	mu       sync.RWMutex
	limiters map[string]*Concurrency
	perKey   int
}

// NewKeyed creates a keyed limiter granting perKey permits to each key.
func NewKeyed(perKey int) *Keyed {
	if perKey <= 0 {
		perKey = 1
	}
	return &Keyed{
		limiters: make(map[string]*Concurrency),
		perKey:   perKey,
	}
}

// Get returns the semaphore for key, creating it on first use.
func (k *Keyed) Get(key string) *Concurrency {
	k.mu.RLock()
	c, exists := k.limiters[key]
	k.mu.RUnlock()
	if exists {
		return c
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// Double-check after acquiring the write lock.
	if c, exists = k.limiters[key]; exists {
		return c
	}

	c, _ = NewConcurrency(k.perKey) // perKey validated at construction
	k.limiters[key] = c
	return c
}

// Run executes fn under key's permit.
func (k *Keyed) Run(ctx context.Context, key string, fn func() error) error {
	return k.Get(key).Run(ctx, fn)
}

// Keys returns the keys that have been used so far.
func (k *Keyed) Keys() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	keys := make([]string, 0, len(k.limiters))
	for key := range k.limiters {
		keys = append(keys, key)
	}
	return keys
}
