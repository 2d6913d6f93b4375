package limiter

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// TokenBucket paces requests to one upstream source. Tokens refill
// continuously up to a cap and are consumed one per request.
//
// Refill is lazy: the balance is recomputed from elapsed wall-clock time on
// every call, so there is no background goroutine to manage. The invariant
// 0 <= tokens <= maxTokens holds after every refill.
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	clock      func() time.Time
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(maxTokens int, refillPerSecond float64) (*TokenBucket, error) {
	if maxTokens <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("maxTokens must be positive, got %d", maxTokens),
			"TokenBucket", "NewTokenBucket", "capacity validation")
	}
	if refillPerSecond <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("refill rate must be positive, got %f", refillPerSecond),
			"TokenBucket", "NewTokenBucket", "rate validation")
	}
	return &TokenBucket{
		tokens:     float64(maxTokens),
		maxTokens:  float64(maxTokens),
		refillRate: refillPerSecond,
		lastRefill: time.Now(),
		clock:      time.Now,
	}, nil
}

// PerMinute creates a bucket sized for a requests-per-minute quota:
// capacity = rpm, refill rate = rpm/60 per second.
func PerMinute(requestsPerMinute int) (*TokenBucket, error) {
	return NewTokenBucket(requestsPerMinute, float64(requestsPerMinute)/60.0)
}

// setClock overrides the time source for tests.
func (tb *TokenBucket) setClock(clock func() time.Time) {
	tb.mu.Lock()
	tb.clock = clock
	tb.lastRefill = clock()
	tb.mu.Unlock()
}

// refill tops up the balance from elapsed time.
// Must be called with the mutex held.
func (tb *TokenBucket) refill() {
	now := tb.clock()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// TryConsume takes one token if available. Never blocks.
func (tb *TokenBucket) TryConsume() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is consumed or ctx is done. The sleep increment
// is derived from the current refill rate and re-evaluated each pass, so the
// wait stays correct if SetRate reconfigures the bucket mid-wait.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.TryConsume() {
			return nil
		}

		tb.mu.Lock()
		step := time.Duration(math.Ceil(1000/tb.refillRate)) * time.Millisecond
		tb.mu.Unlock()

		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SecondsUntilNextToken reports how long until a full token is available.
// Returns 0 when a token can be consumed right now.
func (tb *TokenBucket) SecondsUntilNextToken() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		return 0
	}
	return (1 - tb.tokens) / tb.refillRate
}

// SetRate reconfigures the refill rate. The balance is settled under the old
// rate first so past elapsed time is not re-priced.
func (tb *TokenBucket) SetRate(refillPerSecond float64) error {
	if refillPerSecond <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("refill rate must be positive, got %f", refillPerSecond),
			"TokenBucket", "SetRate", "rate validation")
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	tb.refillRate = refillPerSecond
	return nil
}

// Tokens returns the current token balance after settling the refill.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}
