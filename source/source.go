package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// Kind classifies a source once, when it is registered, so the orchestrator
// builds priority lists by kind instead of re-dispatching on names per call.
type Kind int

const (
	// KindRegistrar is a vendor registrar API with pricing data.
	KindRegistrar Kind = iota
	// KindProtocol is a registry protocol fallback (RDAP, WHOIS):
	// availability only, no pricing.
	KindProtocol
	// KindSignal is a signal-only endpoint (aftermarket/auction listings)
	// that never answers availability on its own.
	KindSignal
)

func (k Kind) String() string {
	switch k {
	case KindRegistrar:
		return "registrar"
	case KindProtocol:
		return "protocol"
	case KindSignal:
		return "signal"
	default:
		return "unknown"
	}
}

// Source is the collaborator contract every upstream implements. The
// orchestrator drives lookups exclusively through this interface.
type Source interface {
	// Name identifies the source; used for cache keys, breaker names and
	// rate-limiter buckets.
	Name() string

	// Kind classifies the source for priority-list construction.
	Kind() Kind

	// Supports reports whether this source can answer queries for tld.
	Supports(tld string) bool

	// Search resolves one domain. It returns a *LookupError (or an error
	// wrapping one) on failure so callers can classify the outcome.
	Search(ctx context.Context, domain, tld string) (*Record, error)
}

// PremiumDetector is implemented by sources with native premium/auction
// detection. The orchestrator only merges the secondary aftermarket signal
// into results from sources that lack it.
type PremiumDetector interface {
	DetectsPremium() bool
}

// QuoteFetcher is implemented by sources that can answer a secondary
// pricing-quote call, gated by the per-batch pricing budget.
type QuoteFetcher interface {
	Quote(ctx context.Context, domain, tld string) (*Quote, error)
}

// DetectsPremium reports whether s natively detects premium status.
func DetectsPremium(s Source) bool {
	if pd, ok := s.(PremiumDetector); ok {
		return pd.DetectsPremium()
	}
	return false
}

// Registry holds the configured sources in registration order. Iteration
// order is the configured fallback order within each kind.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Source
	order  []string
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Source)}
}

// Register adds a source. Names must be unique.
func (r *Registry) Register(s Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.byName[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("source %q already registered", name),
			"Registry", "Register", "uniqueness check")
	}
	r.byName[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get returns the named source.
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// Ordered returns all sources in registration order.
func (r *Registry) Ordered() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// OfKind returns the sources of one kind, in registration order.
func (r *Registry) OfKind(kind Kind) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Source
	for _, name := range r.order {
		if s := r.byName[name]; s.Kind() == kind {
			out = append(out, s)
		}
	}
	return out
}

// Names returns the registered source names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
