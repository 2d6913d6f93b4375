package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyValidation(t *testing.T) {
	_, err := NewConcurrency(0)
	assert.Error(t, err)

	_, err = NewConcurrency(-1)
	assert.Error(t, err)
}

func TestConcurrencyBound(t *testing.T) {
	c, err := NewConcurrency(3)
	require.NoError(t, err)

	var inFlight, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Run(context.Background(), func() error {
				n := atomic.AddInt64(&inFlight, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
	assert.Equal(t, 0, c.InFlight())
	assert.Equal(t, 0, c.Waiting())
}

func TestConcurrencyFIFOOrder(t *testing.T) {
	c, err := NewConcurrency(1)
	require.NoError(t, err)

	require.NoError(t, c.Acquire(context.Background()))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			require.NoError(t, c.Acquire(context.Background()))
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			c.Release()
		}(i)
		// Give each goroutine time to queue before the next arrives.
		for c.Waiting() != i+1 {
			time.Sleep(time.Millisecond)
		}
	}

	c.Release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestConcurrencyCancelledWaiter(t *testing.T) {
	c, err := NewConcurrency(1)
	require.NoError(t, err)

	require.NoError(t, c.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Acquire(ctx) }()

	for c.Waiting() != 1 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	// The abandoned slot must not leak a permit.
	c.Release()
	require.NoError(t, c.Acquire(context.Background()))
	c.Release()
	assert.Equal(t, 0, c.InFlight())
}

func TestConcurrencySetLimitGrow(t *testing.T) {
	c, err := NewConcurrency(1)
	require.NoError(t, err)

	require.NoError(t, c.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		if err := c.Acquire(context.Background()); err == nil {
			close(acquired)
		}
	}()

	for c.Waiting() != 1 {
		time.Sleep(time.Millisecond)
	}

	// Growing the bound wakes the queued waiter without a Release.
	c.SetLimit(2)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken after SetLimit grow")
	}

	assert.Equal(t, 2, c.Limit())
	assert.Equal(t, 2, c.InFlight())
}

func TestConcurrencySetLimitShrink(t *testing.T) {
	c, err := NewConcurrency(2)
	require.NoError(t, err)

	require.NoError(t, c.Acquire(context.Background()))
	require.NoError(t, c.Acquire(context.Background()))

	// Shrinking never evicts in-flight work; it drains naturally.
	c.SetLimit(1)
	assert.Equal(t, 2, c.InFlight())

	c.Release()
	c.Release()

	require.NoError(t, c.Acquire(context.Background()))
	assert.Equal(t, 1, c.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Acquire(ctx), context.DeadlineExceeded)

	// Floor is one permit.
	c.SetLimit(0)
	assert.Equal(t, 1, c.Limit())
}

func TestRunResult(t *testing.T) {
	c, err := NewConcurrency(1)
	require.NoError(t, err)

	got, err := RunResult(context.Background(), c, func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 0, c.InFlight())
}
