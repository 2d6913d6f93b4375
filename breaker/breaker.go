package breaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// State is the circuit state. Transitions follow the classic pattern:
// Closed -> Open when failures cross the threshold inside the window,
// Open -> HalfOpen after the reset timeout, HalfOpen -> Closed after
// enough consecutive probe successes, HalfOpen -> Open on a probe failure.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config tunes a breaker. Zero values fall back to defaults.
type Config struct {
	// FailureThreshold is how many counted failures inside FailureWindow
	// trip the breaker. Default 5.
	FailureThreshold int

	// FailureWindow is the sliding window over which failures are counted.
	// Default 60s.
	FailureWindow time.Duration

	// ResetTimeout is how long the breaker stays open before allowing a
	// probe. Default 30s.
	ResetTimeout time.Duration

	// SuccessThreshold is how many consecutive probe successes close a
	// half-open breaker. Default 2.
	SuccessThreshold int

	// CountsFailure decides whether an error trips the breaker. Caller
	// mistakes (invalid domain, unsupported TLD) must not open the circuit;
	// only upstream health problems should. Defaults to errors.IsTransient.
	CountsFailure func(error) bool
}

func (cfg *Config) withDefaults() {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = 60 * time.Second
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.CountsFailure == nil {
		cfg.CountsFailure = errors.IsTransient
	}
}

// OpenError is returned when a call is rejected by an open breaker.
// RetryAfter is how long until the next probe is allowed; callers use it
// for reporting, not for waiting: an open circuit means the upstream is
// already known-bad, so the caller should move to the next source instead.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker %q is open, retry after %s", e.Name, e.RetryAfter.Round(time.Millisecond))
}

func (e *OpenError) Unwrap() error { return errors.ErrCircuitOpen }

// Breaker guards one upstream source. All state is behind a single mutex;
// call bodies execute outside the lock.
type Breaker struct {
	name string
	cfg  Config

	mu                sync.Mutex
	state             State
	openedAt          time.Time
	failures          []time.Time // counted failures, pruned to the window
	halfOpenSuccesses int
	probeInFlight     bool

	clock         func() time.Time
	logger        *slog.Logger
	onStateChange func(name string, from, to State)
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithLogger attaches a structured logger for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) { b.logger = logger }
}

// WithStateChange registers an observer for state transitions, used to
// export breaker state as a gauge.
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// withClock overrides the time source for tests.
func withClock(clock func() time.Time) Option {
	return func(b *Breaker) { b.clock = clock }
}

// New creates a closed breaker.
func New(name string, cfg Config, opts ...Option) *Breaker {
	cfg.withDefaults()
	b := &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's identifier.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, settling an elapsed reset timeout first
// so observers never see a stale "open".
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.clock().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn if the breaker admits the call and feeds the outcome back
// into the state machine. When the breaker is open it returns *OpenError
// without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.settle(err)
	return err
}

// Do is Execute for callables that return a value.
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	b.settle(err)
	return result, err
}

// allow decides whether a call may proceed, transitioning Open -> HalfOpen
// when the reset timeout has elapsed. Half-open admits exactly one probe at
// a time; concurrent callers are rejected until the probe settles.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		elapsed := b.clock().Sub(b.openedAt)
		if elapsed < b.cfg.ResetTimeout {
			return &OpenError{Name: b.name, RetryAfter: b.cfg.ResetTimeout - elapsed}
		}
		b.transitionLocked(StateHalfOpen)
		b.halfOpenSuccesses = 0
		b.probeInFlight = true
		return nil

	case StateHalfOpen:
		if b.probeInFlight {
			return &OpenError{Name: b.name, RetryAfter: 0}
		}
		b.probeInFlight = true
		return nil
	}
	return nil
}

// settle feeds a call outcome back into the state machine.
func (b *Breaker) settle(err error) {
	counted := err != nil && b.cfg.CountsFailure(err)

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.probeInFlight = false
		if counted {
			b.openLocked()
			return
		}
		if err == nil {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
				b.failures = nil
				b.transitionLocked(StateClosed)
			}
		}
		// A non-counted error (caller mistake) is neither a probe success
		// nor a reason to reopen.

	case StateClosed:
		if !counted {
			// Successes and caller mistakes still age out old failures so
			// the window reflects recent history only.
			b.pruneLocked(b.clock())
			return
		}
		now := b.clock()
		b.failures = append(b.failures, now)
		b.pruneLocked(now)
		if len(b.failures) >= b.cfg.FailureThreshold {
			b.openLocked()
		}
	}
}

// openLocked trips the breaker. Must be called with the mutex held.
func (b *Breaker) openLocked() {
	b.openedAt = b.clock()
	b.failures = nil
	b.halfOpenSuccesses = 0
	b.transitionLocked(StateOpen)
}

// pruneLocked drops failures older than the window.
// Must be called with the mutex held.
func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.cfg.FailureWindow)
	kept := b.failures[:0]
	for _, ts := range b.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failures = kept
}

// transitionLocked records a state change and notifies observers.
// Must be called with the mutex held.
func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	if b.logger != nil {
		b.logger.Info("breaker state changed",
			"breaker", b.name,
			"from", from.String(),
			"to", to.String())
	}
	if b.onStateChange != nil {
		// Observers run under the lock; they must not call back into the
		// breaker.
		b.onStateChange(b.name, from, to)
	}
}
