package limiter

import "sync"

// Registry hands out named token buckets, one per upstream. Buckets are
// created on first use with the requested rate and reused afterward; a later
// call with a different rate returns the existing bucket unchanged. Use
// TokenBucket.SetRate to reconfigure a live bucket.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
}

// NewRegistry creates an empty bucket registry.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[string]*TokenBucket)}
}

// Bucket returns the named bucket, creating it at requestsPerMinute when
// absent. Rates at or below zero fall back to a single request per minute.
func (r *Registry) Bucket(name string, requestsPerMinute int) *TokenBucket {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}

	r.mu.RLock()
	tb, ok := r.buckets[name]
	r.mu.RUnlock()
	if ok {
		return tb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tb, ok := r.buckets[name]; ok {
		return tb
	}
	tb, _ = PerMinute(requestsPerMinute) // rpm >= 1 here, cannot fail
	r.buckets[name] = tb
	return tb
}

// Lookup returns the named bucket without creating one.
func (r *Registry) Lookup(name string) (*TokenBucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tb, ok := r.buckets[name]
	return tb, ok
}

// Names lists the registered bucket names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		names = append(names, name)
	}
	return names
}
