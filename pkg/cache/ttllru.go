package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// TTLLRU combines lazy TTL expiry with LRU eviction under a hard capacity.
// Items are removed either when they expire or when the cache is full and a
// new key arrives, in which case the entry with the oldest access time is
// evicted (true LRU, not insertion order).
//
// A background sweep removes expired entries between reads so worst-case
// memory stays bounded; expiry is still enforced lazily on every Get, so
// a Get never returns a stale value even with the sweep disabled.
type TTLLRU[V any] struct {
	mu            sync.Mutex
	capacity      int
	defaultTTL    time.Duration
	sweepInterval time.Duration
	items         map[string]*list.Element // key -> list element
	order         *list.List               // front = most recently accessed
	stats         *Statistics              // always initialized
	metrics       *cacheMetrics            // optional, if metrics enabled
	evictFn       EvictCallback[V]
	clock         func() time.Time

	// Background sweep coordination
	shutdown chan struct{}
	done     chan struct{}
}

// New creates a TTL+LRU cache. A sweepInterval <= 0 disables the background
// sweep; expiry then happens only lazily on access, which is what
// deterministic tests want.
func New[V any](capacity int, defaultTTL, sweepInterval time.Duration, opts ...Option[V]) (*TTLLRU[V], error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("capacity must be positive, got %d", capacity),
			"cache", "New", "capacity validation")
	}
	if defaultTTL <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("default TTL must be positive, got %v", defaultTTL),
			"cache", "New", "TTL validation")
	}

	options := &cacheOptions[V]{}
	for _, opt := range opts {
		opt(options)
	}

	var metrics *cacheMetrics
	if options.metricsReg != nil && options.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(options.metricsReg, options.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "New", "metrics registration")
		}
	}

	clock := options.clock
	if clock == nil {
		clock = time.Now
	}

	c := &TTLLRU[V]{
		capacity:      capacity,
		defaultTTL:    defaultTTL,
		sweepInterval: sweepInterval,
		items:         make(map[string]*list.Element),
		order:         list.New(),
		stats:         NewStatistics(),
		metrics:       metrics,
		evictFn:       options.evictCallback,
		clock:         clock,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}

	if sweepInterval > 0 {
		go c.sweepLoop()
	} else {
		close(c.done)
	}

	return c, nil
}

// Get retrieves a value by key. An entry whose TTL has passed is deleted on
// the read that discovers it and reported as a miss; updating the access time
// on a hit refreshes the entry's LRU position.
func (c *TTLLRU[V]) Get(key string) (V, bool) {
	// Registered before the unlock defer so the callback fires after the
	// mutex is released; a callback that re-enters the cache must not
	// deadlock.
	var evicted *entry[V]
	defer func() { c.runEvict(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		var zero V
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return zero, false
	}

	ent := element.Value.(*entry[V])
	now := c.clock()

	if ent.expired(now) {
		evicted = c.removeElement(element)
		c.stats.Eviction()
		c.stats.Miss()
		c.stats.UpdateSize(int64(len(c.items)))
		if c.metrics != nil {
			c.metrics.recordEviction()
			c.metrics.recordMiss()
			c.metrics.updateSize(len(c.items))
		}

		var zero V
		return zero, false
	}

	ent.accessedAt = now
	c.order.MoveToFront(element)

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}

	return ent.value, true
}

// Set stores a value under the default TTL.
func (c *TTLLRU[V]) Set(key string, value V) error {
	return c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a per-entry TTL override. Overwriting an
// existing key never consumes eviction budget; inserting a new key at
// capacity evicts the least recently accessed entry first, so the size bound
// holds after every call.
func (c *TTLLRU[V]) SetWithTTL(key string, value V, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	var evicted *entry[V]
	defer func() { c.runEvict(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	expiresAt := now.Add(ttl)

	if element, exists := c.items[key]; exists {
		ent := element.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		ent.accessedAt = now
		c.order.MoveToFront(element)

		c.stats.Set()
		if c.metrics != nil {
			c.metrics.recordSet()
		}
		return nil
	}

	if len(c.items) >= c.capacity {
		evicted = c.evictLRU()
	}

	ent := &entry[V]{
		key:        key,
		value:      value,
		createdAt:  now,
		expiresAt:  expiresAt,
		accessedAt: now,
	}
	c.items[key] = c.order.PushFront(ent)

	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(len(c.items))
	}

	return nil
}

// Has reports whether a live entry exists for key without refreshing its LRU
// position. An expired entry is deleted on discovery, same as Get.
func (c *TTLLRU[V]) Has(key string) bool {
	var evicted *entry[V]
	defer func() { c.runEvict(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}

	ent := element.Value.(*entry[V])
	if ent.expired(c.clock()) {
		evicted = c.removeElement(element)
		c.stats.Eviction()
		c.stats.UpdateSize(int64(len(c.items)))
		if c.metrics != nil {
			c.metrics.recordEviction()
			c.metrics.updateSize(len(c.items))
		}
		return false
	}
	return true
}

// Delete removes an entry by key. Returns true if the key existed.
func (c *TTLLRU[V]) Delete(key string) bool {
	var evicted *entry[V]
	defer func() { c.runEvict(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}

	evicted = c.removeElement(element)

	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(len(c.items))
	}

	return true
}

// Clear removes all entries from the cache.
func (c *TTLLRU[V]) Clear() {
	c.mu.Lock()

	var evicted []*entry[V]
	if c.evictFn != nil {
		for element := c.order.Back(); element != nil; element = element.Prev() {
			evicted = append(evicted, element.Value.(*entry[V]))
		}
	}

	c.items = make(map[string]*list.Element)
	c.order.Init()

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}
	c.mu.Unlock()

	// Eviction callbacks run outside the lock.
	for _, ent := range evicted {
		c.runEvict(ent)
	}
}

// Size returns the current number of entries in the cache.
func (c *TTLLRU[V]) Size() int {
	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()
	return size
}

// Keys returns the keys of all live entries in LRU order
// (most recently accessed first).
func (c *TTLLRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	now := c.clock()

	for element := c.order.Front(); element != nil; element = element.Next() {
		ent := element.Value.(*entry[V])
		if !ent.expired(now) {
			keys = append(keys, ent.key)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *TTLLRU[V]) Stats() *Statistics {
	return c.stats
}

// Sweep removes all expired entries immediately. The background loop calls
// this on its interval; tests call it directly instead of waiting.
func (c *TTLLRU[V]) Sweep() {
	now := c.clock()
	var expired []*entry[V]

	c.mu.Lock()
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		ent := element.Value.(*entry[V])

		if ent.expired(now) {
			expired = append(expired, ent)
			delete(c.items, ent.key)
			c.order.Remove(element)
		}

		element = next
	}
	size := len(c.items)

	for range expired {
		c.stats.Eviction()
	}
	if len(expired) > 0 {
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			for range expired {
				c.metrics.recordEviction()
			}
			c.metrics.updateSize(size)
		}
	}
	c.mu.Unlock()

	// Eviction callbacks run outside the lock.
	if c.evictFn != nil {
		for _, ent := range expired {
			c.evictFn(ent.key, ent.value)
		}
	}
}

// Close stops the background sweep goroutine.
func (c *TTLLRU[V]) Close() error {
	select {
	case <-c.shutdown:
		// Already shutting down
	default:
		close(c.shutdown)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for sweep goroutine to finish")
	}
}

// evictLRU removes and returns the least recently accessed entry.
// Must be called with the mutex held.
func (c *TTLLRU[V]) evictLRU() *entry[V] {
	element := c.order.Back()
	if element == nil {
		return nil
	}
	ent := c.removeElement(element)
	c.stats.Eviction()
	if c.metrics != nil {
		c.metrics.recordEviction()
	}
	return ent
}

// removeElement removes an element from both the list and map and returns
// the removed entry. Must be called with the mutex held; the caller is
// responsible for running the eviction callback via runEvict once the mutex
// is released, so a callback that re-enters the cache cannot deadlock.
func (c *TTLLRU[V]) removeElement(element *list.Element) *entry[V] {
	ent := element.Value.(*entry[V])
	delete(c.items, ent.key)
	c.order.Remove(element)
	return ent
}

// runEvict invokes the eviction callback for a removed entry. Must be called
// without the mutex held. A nil entry is a no-op.
func (c *TTLLRU[V]) runEvict(ent *entry[V]) {
	if ent != nil && c.evictFn != nil {
		c.evictFn(ent.key, ent.value)
	}
}

// sweepLoop runs in a background goroutine and periodically removes expired
// entries.
func (c *TTLLRU[V]) sweepLoop() {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
