package worker

import "errors"

// Pool lifecycle and queue errors. Each sentinel is produced by exactly one
// operation; ErrNilProcessor is a panic value, not a return.
var (
	// ErrPoolNotStarted is returned by Submit before Start has run.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolStopped is returned by Submit after the pool has drained.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrPoolAlreadyStarted is returned by a second call to Start.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")

	// ErrQueueFull is returned by Submit when the queue is at capacity;
	// the item is dropped, not queued.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrNilProcessor is the panic value when NewPool gets a nil processor.
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout is returned by Stop when in-flight work does not
	// drain within the timeout.
	ErrStopTimeout = errors.New("timeout waiting for workers to stop")
)
