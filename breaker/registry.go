package breaker

import "sync"

// Registry hands out named breakers, one per upstream source, sharing a
// default config. Per-name overrides can be installed before first use.
type Registry struct {
	mu        sync.RWMutex
	breakers  map[string]*Breaker
	defaults  Config
	overrides map[string]Config
	opts      []Option
}

// NewRegistry creates a registry whose breakers start from defaults.
// The options are applied to every breaker it creates.
func NewRegistry(defaults Config, opts ...Option) *Registry {
	defaults.withDefaults()
	return &Registry{
		breakers:  make(map[string]*Breaker),
		defaults:  defaults,
		overrides: make(map[string]Config),
		opts:      opts,
	}
}

// Configure installs a per-name config override. It has no effect on a
// breaker that already exists.
func (r *Registry) Configure(name string, cfg Config) {
	r.mu.Lock()
	r.overrides[name] = cfg
	r.mu.Unlock()
}

// Get returns the named breaker, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}

	cfg := r.defaults
	if override, ok := r.overrides[name]; ok {
		cfg = override
	}
	b = New(name, cfg, r.opts...)
	r.breakers[name] = b
	return b
}

// States returns the current state of every breaker, keyed by name.
// Used by the health monitor.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}
