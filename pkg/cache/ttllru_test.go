package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, capacity int, ttl time.Duration, clk *fakeClock) *TTLLRU[string] {
	t.Helper()
	c, err := New[string](capacity, ttl, 0, WithClock[string](clk.Now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBasicOperations(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Minute, clk)

	if value, exists := c.Get("key1"); exists {
		t.Errorf("Expected cache miss, got value: %s", value)
	}

	if err := c.Set("key1", "value1"); err != nil {
		t.Fatalf("Unexpected error setting key: %v", err)
	}

	if value, exists := c.Get("key1"); !exists || value != "value1" {
		t.Errorf("Expected 'value1', got value: %s, exists: %t", value, exists)
	}

	if err := c.Set("key1", "value1_updated"); err != nil {
		t.Fatalf("Unexpected error updating key: %v", err)
	}

	if value, exists := c.Get("key1"); !exists || value != "value1_updated" {
		t.Errorf("Expected 'value1_updated', got value: %s, exists: %t", value, exists)
	}

	if !c.Delete("key1") {
		t.Error("Expected successful deletion")
	}
	if c.Delete("key1") {
		t.Error("Expected deletion failure for non-existent key")
	}
	if _, exists := c.Get("key1"); exists {
		t.Error("Expected cache miss after deletion")
	}
}

func TestSetRejectsEmptyKey(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Minute, clk)

	if err := c.Set("", "value"); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestTTLExpiry(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Minute, clk)

	if err := c.SetWithTTL("key1", "value1", 100*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}

	clk.Advance(50 * time.Millisecond)
	if value, exists := c.Get("key1"); !exists || value != "value1" {
		t.Errorf("Expected live entry before TTL, got exists=%t", exists)
	}

	clk.Advance(100 * time.Millisecond)
	if _, exists := c.Get("key1"); exists {
		t.Error("Expected expired entry to be absent after TTL")
	}

	// The expired entry must have been deleted on the read that found it.
	if c.Size() != 0 {
		t.Errorf("Expected size 0 after lazy expiry, got %d", c.Size())
	}
}

func TestPerEntryTTLOverridesDefault(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Hour, clk)

	_ = c.SetWithTTL("short", "v", time.Second)
	_ = c.Set("long", "v")

	clk.Advance(2 * time.Second)

	if _, exists := c.Get("short"); exists {
		t.Error("Expected short-TTL entry to expire")
	}
	if _, exists := c.Get("long"); !exists {
		t.Error("Expected default-TTL entry to survive")
	}
}

func TestLRUEvictionByAccessTime(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 3, time.Hour, clk)

	_ = c.Set("a", "1")
	clk.Advance(time.Second)
	_ = c.Set("b", "2")
	clk.Advance(time.Second)
	_ = c.Set("c", "3")
	clk.Advance(time.Second)

	// Refresh "a" so it is no longer the oldest-accessed key, even though
	// it has the oldest creation time.
	if _, exists := c.Get("a"); !exists {
		t.Fatal("Expected 'a' to be present")
	}
	clk.Advance(time.Second)

	// Inserting a fourth key at capacity must evict "b" (oldest access),
	// not "a" (oldest creation).
	_ = c.Set("d", "4")

	if _, exists := c.Get("b"); exists {
		t.Error("Expected 'b' to be evicted as least recently accessed")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, exists := c.Get(key); !exists {
			t.Errorf("Expected %q to survive eviction", key)
		}
	}
	if c.Size() != 3 {
		t.Errorf("Expected size 3 after eviction, got %d", c.Size())
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 2, time.Hour, clk)

	_ = c.Set("a", "1")
	_ = c.Set("b", "2")
	_ = c.Set("a", "1_updated")

	if c.Size() != 2 {
		t.Errorf("Expected size 2 after overwrite, got %d", c.Size())
	}
	if c.Stats().Evictions() != 0 {
		t.Errorf("Expected no evictions on overwrite, got %d", c.Stats().Evictions())
	}
}

func TestSizeBoundHolds(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 5, time.Hour, clk)

	for i := 0; i < 20; i++ {
		_ = c.Set(fmt.Sprintf("key%d", i), "v")
		if c.Size() > 5 {
			t.Fatalf("Size bound violated: %d > 5", c.Size())
		}
		clk.Advance(time.Millisecond)
	}
	if c.Size() != 5 {
		t.Errorf("Expected size 5, got %d", c.Size())
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Minute, clk)

	_ = c.SetWithTTL("stale1", "v", time.Second)
	_ = c.SetWithTTL("stale2", "v", time.Second)
	_ = c.Set("fresh", "v")

	clk.Advance(2 * time.Second)
	c.Sweep()

	if c.Size() != 1 {
		t.Errorf("Expected 1 entry after sweep, got %d", c.Size())
	}
	if _, exists := c.Get("fresh"); !exists {
		t.Error("Expected fresh entry to survive sweep")
	}
	if got := c.Stats().Evictions(); got != 2 {
		t.Errorf("Expected 2 evictions recorded, got %d", got)
	}
}

func TestHasDoesNotRefreshLRU(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 2, time.Hour, clk)

	_ = c.Set("a", "1")
	clk.Advance(time.Second)
	_ = c.Set("b", "2")
	clk.Advance(time.Second)

	// Has must not promote "a"; it stays the LRU candidate.
	if !c.Has("a") {
		t.Fatal("Expected 'a' to be present")
	}
	_ = c.Set("c", "3")

	if _, exists := c.Get("a"); exists {
		t.Error("Expected 'a' to be evicted despite Has check")
	}
}

func TestEvictionCallback(t *testing.T) {
	clk := newFakeClock()
	var evicted []string
	c, err := New[string](2, time.Hour, 0,
		WithClock[string](clk.Now),
		WithEvictionCallback[string](func(key string, _ string) {
			evicted = append(evicted, key)
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	_ = c.Set("a", "1")
	clk.Advance(time.Second)
	_ = c.Set("b", "2")
	clk.Advance(time.Second)
	_ = c.Set("c", "3") // evicts "a"

	if len(evicted) != 1 || evicted[0] != "a" {
		t.Errorf("Expected eviction callback for 'a', got %v", evicted)
	}
}

func TestEvictionCallbackMayReenterCache(t *testing.T) {
	clk := newFakeClock()
	var evicted []string
	var c *TTLLRU[string]
	c, err := New[string](2, time.Hour, 0,
		WithClock[string](clk.Now),
		WithEvictionCallback[string](func(key string, _ string) {
			// The callback runs with the mutex released, so touching the
			// cache from inside it must not deadlock on any removal path.
			_ = c.Size()
			evicted = append(evicted, key)
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = c.Close() }()

	// Delete path.
	_ = c.Set("a", "1")
	if !c.Delete("a") {
		t.Fatal("Expected successful deletion")
	}

	// Lazy-expiry path (Get finding an expired entry).
	_ = c.SetWithTTL("b", "2", time.Second)
	clk.Advance(2 * time.Second)
	if _, exists := c.Get("b"); exists {
		t.Fatal("Expected 'b' to have expired")
	}

	// Capacity-eviction path.
	_ = c.Set("c", "3")
	clk.Advance(time.Second)
	_ = c.Set("d", "4")
	clk.Advance(time.Second)
	_ = c.Set("e", "5") // evicts "c"

	// Clear path.
	c.Clear()

	want := []string{"a", "b", "c", "d", "e"}
	if len(evicted) != len(want) {
		t.Fatalf("Expected callbacks for %v, got %v", want, evicted)
	}
	for i, key := range want {
		if evicted[i] != key {
			t.Errorf("Expected eviction %d to be %q, got %q", i, key, evicted[i])
		}
	}
}

func TestKeysReturnsLiveEntriesInLRUOrder(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Minute, clk)

	_ = c.Set("a", "1")
	clk.Advance(time.Second)
	_ = c.Set("b", "2")
	clk.Advance(time.Second)
	_ = c.SetWithTTL("stale", "v", time.Millisecond)
	clk.Advance(time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a'")
	}

	keys := c.Keys()
	if len(keys) != 2 {
		t.Fatalf("Expected 2 live keys, got %v", keys)
	}
	if keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Expected [a b] in MRU order, got %v", keys)
	}
}

func TestClear(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Minute, clk)

	_ = c.Set("a", "1")
	_ = c.Set("b", "2")
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", c.Size())
	}
	if _, exists := c.Get("a"); exists {
		t.Error("Expected miss after clear")
	}
}

func TestStatsTracking(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 10, time.Minute, clk)

	_ = c.Set("a", "1")
	_, _ = c.Get("a")
	_, _ = c.Get("missing")

	s := c.Stats().Summary()
	if s.Hits != 1 || s.Misses != 1 || s.Sets != 1 {
		t.Errorf("Unexpected stats: %+v", s)
	}
	if s.HitRatio != 0.5 {
		t.Errorf("Expected hit ratio 0.5, got %f", s.HitRatio)
	}
}

func TestConcurrentAccess(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(t, 100, time.Minute, clk)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key%d", (n*100+j)%50)
				_ = c.Set(key, "v")
				_, _ = c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 100 {
		t.Errorf("Size bound violated under concurrency: %d", c.Size())
	}
}

func TestInvalidConstruction(t *testing.T) {
	if _, err := New[string](0, time.Minute, 0); err == nil {
		t.Error("Expected error for zero capacity")
	}
	if _, err := New[string](10, 0, 0); err == nil {
		t.Error("Expected error for zero TTL")
	}
}
