package orchestrator

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Budget is the consumable pricing-quote quota for one logical batch (one
// multi-TLD search or one bulk job). It is never shared across unrelated
// batches: "N quotes per search" and "N quotes per bulk job" are different
// business rules, so each batch creates its own.
type Budget struct {
	id        string
	unlimited bool
	remaining atomic.Int64
}

// NewBudget creates a budget allowing max quote calls. A negative max means
// unlimited; zero disables quotes entirely.
func NewBudget(max int) *Budget {
	b := &Budget{
		id:        uuid.NewString(),
		unlimited: max < 0,
	}
	if max > 0 {
		b.remaining.Store(int64(max))
	}
	return b
}

// ID returns the batch identifier, used to correlate log lines.
func (b *Budget) ID() string { return b.id }

// Take atomically consumes one unit. Concurrent callers can never overdraw:
// the decrement and the zero check are a single CAS loop.
func (b *Budget) Take() bool {
	if b.unlimited {
		return true
	}
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining returns the unconsumed quota. Unlimited budgets report -1.
func (b *Budget) Remaining() int {
	if b.unlimited {
		return -1
	}
	return int(b.remaining.Load())
}
