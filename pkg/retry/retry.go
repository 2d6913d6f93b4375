// Package retry provides exponential backoff retry logic for upstream calls
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// RetryAfterHinter is implemented by errors that carry a server-provided
// retry-after delay, typically HTTP 429 responses.
type RetryAfterHinter interface {
	RetryAfterHint() (time.Duration, bool)
}

// retryAfterOf extracts a server-provided retry-after hint from an error
// chain, if any.
func retryAfterOf(err error) (time.Duration, bool) {
	var h RetryAfterHinter
	if errors.As(err, &h) {
		return h.RetryAfterHint()
	}
	return 0, false
}

// RetryAfterExceededError indicates the upstream asked us to wait longer than
// the configured sanity bound. The attempt loop aborts so the caller can fall
// through to another source instead of blocking.
type RetryAfterExceededError struct {
	Err   error
	After time.Duration
	Bound time.Duration
}

func (e *RetryAfterExceededError) Error() string {
	return fmt.Sprintf("retry-after %v exceeds bound %v: %v", e.After, e.Bound, e.Err)
}

func (e *RetryAfterExceededError) Unwrap() error {
	return e.Err
}

// Config provides retry configuration
type Config struct {
	MaxAttempts   int           // Maximum number of attempts (0 = no retry, just run once)
	InitialDelay  time.Duration // Initial delay between attempts
	MaxDelay      time.Duration // Maximum delay between attempts
	Multiplier    float64       // Backoff multiplier (typically 2.0)
	AddJitter     bool          // Add randomness to prevent thundering herd
	MaxRetryAfter time.Duration // Sanity bound on honored server retry-after hints (default 60s)
}

// DefaultConfig returns sensible defaults for retry operations
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		AddJitter:     true,
		MaxRetryAfter: 60 * time.Second,
	}
}

// Do executes fn with exponential backoff retry. When a failed attempt
// carries a server-provided retry-after hint, that delay is honored verbatim
// instead of the backoff schedule, unless it exceeds MaxRetryAfter, in which
// case Do aborts with a RetryAfterExceededError.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.InitialDelay < 0 {
		return errors.New("retry: InitialDelay cannot be negative")
	}
	if cfg.MaxDelay < 0 {
		return errors.New("retry: MaxDelay cannot be negative")
	}
	if cfg.Multiplier < 0 {
		return errors.New("retry: Multiplier cannot be negative")
	}
	// Prevent overflow with extremely large multipliers
	if cfg.Multiplier > 1000 {
		cfg.Multiplier = 1000
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1 // At least try once
	}

	// Set defaults if not specified
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.MaxRetryAfter == 0 {
		cfg.MaxRetryAfter = 60 * time.Second
	}

	if cfg.MaxDelay > 0 && cfg.MaxDelay < cfg.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		// Errors marked as non-retryable fail immediately
		if IsNonRetryable(err) {
			return err
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}

		// Don't sleep after the last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		sleepDuration := delay
		if cfg.AddJitter && delay >= 4 {
			// Add up to 25% jitter using thread-safe random
			randMu.Lock()
			jitter := time.Duration(randSource.Int63n(int64(delay / 4)))
			randMu.Unlock()
			sleepDuration = delay + jitter
		}

		// A server-provided retry-after hint overrides the backoff schedule
		// when it fits under the sanity bound. Beyond the bound we abort so
		// the caller can move on to another source.
		if after, ok := retryAfterOf(err); ok && after > 0 {
			if after > cfg.MaxRetryAfter {
				return &RetryAfterExceededError{Err: err, After: after, Bound: cfg.MaxRetryAfter}
			}
			sleepDuration = after
		}

		// Sleep with context cancellation support
		timer := time.NewTimer(sleepDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}

		// Calculate next delay with overflow protection
		nextDelay := float64(delay) * cfg.Multiplier
		if nextDelay > float64(cfg.MaxDelay) || nextDelay > float64(time.Duration(1<<63-1)) {
			delay = cfg.MaxDelay
		} else {
			delay = time.Duration(nextDelay)
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

// Quick returns a config for fast retries (useful during startup)
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}
