package limiter

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

// Concurrency is a counting semaphore with a FIFO wait queue: the
// longest-waiting caller gets the next freed permit. The bound can be
// resized at runtime, which the adaptive limiter relies on.
type Concurrency struct {
	mu      sync.Mutex
	limit   int
	inUse   int
	waiters *list.List // of chan struct{}
}

// NewConcurrency creates a semaphore with the given permit count.
func NewConcurrency(limit int) (*Concurrency, error) {
	if limit <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("limit must be positive, got %d", limit),
			"Concurrency", "NewConcurrency", "limit validation")
	}
	return &Concurrency{
		limit:   limit,
		waiters: list.New(),
	}, nil
}

// Acquire blocks until a permit is granted or ctx is done. Fairness is FIFO:
// a caller that arrives while others wait always queues behind them.
func (c *Concurrency) Acquire(ctx context.Context) error {
	c.mu.Lock()
	if c.inUse < c.limit && c.waiters.Len() == 0 {
		c.inUse++
		c.mu.Unlock()
		return nil
	}

	grant := make(chan struct{})
	elem := c.waiters.PushBack(grant)
	c.mu.Unlock()

	select {
	case <-grant:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		select {
		case <-grant:
			// The permit was granted between ctx firing and us taking the
			// lock; hand it back so it is not leaked.
			c.releaseLocked()
		default:
			c.waiters.Remove(elem)
		}
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Release returns a permit, waking the longest-waiting caller if any.
func (c *Concurrency) Release() {
	c.mu.Lock()
	c.releaseLocked()
	c.mu.Unlock()
}

// releaseLocked frees one permit and re-grants capacity to waiters.
// Must be called with the mutex held.
func (c *Concurrency) releaseLocked() {
	c.inUse--
	c.grantLocked()
}

// grantLocked moves permits to queued waiters while capacity allows.
// Must be called with the mutex held.
func (c *Concurrency) grantLocked() {
	for c.inUse < c.limit && c.waiters.Len() > 0 {
		front := c.waiters.Front()
		c.waiters.Remove(front)
		c.inUse++
		close(front.Value.(chan struct{}))
	}
}

// Run acquires a permit, runs fn, and always releases, even when fn fails.
func (c *Concurrency) Run(ctx context.Context, fn func() error) error {
	if err := c.Acquire(ctx); err != nil {
		return err
	}
	defer c.Release()
	return fn()
}

// RunResult is Run for callables that return a value.
func RunResult[T any](ctx context.Context, c *Concurrency, fn func() (T, error)) (T, error) {
	var zero T
	if err := c.Acquire(ctx); err != nil {
		return zero, err
	}
	defer c.Release()
	return fn()
}

// SetLimit resizes the semaphore. Growing wakes queued waiters immediately;
// shrinking lets in-flight work drain naturally.
func (c *Concurrency) SetLimit(limit int) {
	if limit <= 0 {
		limit = 1
	}
	c.mu.Lock()
	c.limit = limit
	c.grantLocked()
	c.mu.Unlock()
}

// Limit returns the current permit count.
func (c *Concurrency) Limit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// InFlight returns the number of permits currently held.
func (c *Concurrency) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse
}

// Waiting returns the number of queued callers.
func (c *Concurrency) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.Len()
}
