package queue

import "errors"

var (
	// ErrQueueFull indicates the target priority queue is at capacity.
	ErrQueueFull = errors.New("queue: queue is full")

	// ErrClosed indicates the queue set has been closed.
	ErrClosed = errors.New("queue: queue set is closed")

	// ErrInvalidPriority indicates a priority outside the configured levels.
	ErrInvalidPriority = errors.New("queue: invalid priority level")

	// ErrNilContext indicates a nil request context was passed.
	ErrNilContext = errors.New("queue: nil request context")

	// ErrNilHandle indicates a nil request handle was passed.
	ErrNilHandle = errors.New("queue: nil request handle")

	// ErrNoMemory indicates the allocator could not satisfy the context's
	// buffers even at the fallback size.
	ErrNoMemory = errors.New("queue: out of memory for request context")

	// ErrStatsUnavailable indicates a statistics snapshot could not acquire
	// the queue lock within its bounded wait.
	ErrStatsUnavailable = errors.New("queue: statistics temporarily unavailable")
)
