package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ryswick/floodgate/types"
)

// QueueStats is a consistent snapshot of one priority queue's counters.
type QueueStats struct {
	Priority      types.PriorityLevel
	CurrentDepth  int
	Capacity      int
	TotalEnqueued uint64
	TotalDequeued uint64
	TotalTimeouts uint64
	TotalExpired  uint64
	PeakDepth     int
	LastActivity  time.Time
	AverageWait   time.Duration
	Utilization   float64
}

// priorityQueue is one fixed-capacity FIFO ring. A buffered channel acts as
// the counting semaphore: one token per queued context, so a blocked dequeuer
// wakes exactly once per enqueue and the token count never exceeds the item
// count. Enqueue writes the ring under the mutex, then sends the token;
// dequeue receives a token first, then pops under the mutex.
type priorityQueue struct {
	priority types.PriorityLevel
	capacity int

	mu    sync.Mutex
	slots []*RequestContext
	head  int
	tail  int
	count int

	tokens chan struct{}

	clock      types.Clock
	monitoring *atomic.Bool
	metrics    Metrics

	totalEnqueued uint64
	totalDequeued uint64
	totalTimeouts uint64
	totalExpired  uint64
	peakDepth     int
	lastActivity  time.Time
	cumWait       time.Duration
	waitSamples   uint64
}

func newPriorityQueue(
	priority types.PriorityLevel,
	capacity int,
	clock types.Clock,
	monitoring *atomic.Bool,
	metrics Metrics,
) *priorityQueue {
	return &priorityQueue{
		priority:   priority,
		capacity:   capacity,
		slots:      make([]*RequestContext, capacity),
		tokens:     make(chan struct{}, capacity),
		clock:      clock,
		monitoring: monitoring,
		metrics:    metrics,
	}
}

// enqueue appends the context, or returns ErrQueueFull. The token send after
// the critical section cannot block: the ring admitted the context, so the
// channel has room.
func (q *priorityQueue) enqueue(ctx *RequestContext) error {
	now := q.clock.Now()

	q.mu.Lock()
	if q.count >= q.capacity {
		q.mu.Unlock()
		q.metrics.ObserveEnqueueFull(q.priority)
		return ErrQueueFull
	}
	ctx.enqueuedAt = now
	q.slots[q.tail] = ctx
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	depth := q.count
	if q.monitoring.Load() {
		q.totalEnqueued++
		q.lastActivity = now
		if q.count > q.peakDepth {
			q.peakDepth = q.count
		}
	}
	q.mu.Unlock()

	q.tokens <- struct{}{}
	q.metrics.ObserveEnqueue(q.priority, depth)
	return nil
}

// dequeue waits up to timeout for a context. A non-positive timeout is a
// non-blocking attempt.
func (q *priorityQueue) dequeue(timeout time.Duration) *RequestContext {
	if timeout <= 0 {
		return q.tryDequeue()
	}

	timer := q.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.tokens:
		return q.pop()
	case <-timer.Chan():
		q.noteTimeout()
		return nil
	}
}

// tryDequeue is a non-blocking dequeue. It takes a token first, like the
// blocking path, so the token count stays in step with the item count.
func (q *priorityQueue) tryDequeue() *RequestContext {
	select {
	case <-q.tokens:
		return q.pop()
	default:
		return nil
	}
}

// pop removes the head context. A nil return after a token receive means
// expiry cleanup removed the item the token referred to.
func (q *priorityQueue) pop() *RequestContext {
	now := q.clock.Now()

	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return nil
	}
	ctx := q.slots[q.head]
	q.slots[q.head] = nil
	q.head = (q.head + 1) % q.capacity
	q.count--
	depth := q.count
	wait := now.Sub(ctx.enqueuedAt)
	if q.monitoring.Load() {
		q.totalDequeued++
		q.lastActivity = now
		q.cumWait += wait
		q.waitSamples++
	}
	q.mu.Unlock()

	q.metrics.ObserveDequeue(q.priority, wait, depth)
	return ctx
}

func (q *priorityQueue) noteTimeout() {
	q.mu.Lock()
	if q.monitoring.Load() {
		q.totalTimeouts++
	}
	q.mu.Unlock()
	q.metrics.ObserveTimeout(q.priority)
}

// removeExpired removes and returns every context whose residency timeout has
// elapsed, preserving FIFO order of the survivors. One token is drained per
// removed context; a shortfall means a dequeuer already holds the token and
// will observe an empty pop, which is safe.
func (q *priorityQueue) removeExpired(now time.Time) []*RequestContext {
	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return nil
	}

	var expired []*RequestContext
	kept := make([]*RequestContext, 0, q.count)
	for i := 0; i < q.count; i++ {
		ctx := q.slots[(q.head+i)%q.capacity]
		if ctx.Expired(now) {
			expired = append(expired, ctx)
		} else {
			kept = append(kept, ctx)
		}
	}

	if len(expired) > 0 {
		for i := range q.slots {
			q.slots[i] = nil
		}
		copy(q.slots, kept)
		q.head = 0
		q.tail = len(kept) % q.capacity
		q.count = len(kept)
		if q.monitoring.Load() {
			q.totalExpired += uint64(len(expired))
			q.lastActivity = now
		}
	}
	q.mu.Unlock()

	for range expired {
		select {
		case <-q.tokens:
		default:
		}
	}
	if len(expired) > 0 {
		q.metrics.ObserveExpired(q.priority, len(expired))
	}
	return expired
}

// drain removes every queued context. Used on close.
func (q *priorityQueue) drain() []*RequestContext {
	q.mu.Lock()
	drained := make([]*RequestContext, 0, q.count)
	for i := 0; i < q.count; i++ {
		idx := (q.head + i) % q.capacity
		drained = append(drained, q.slots[idx])
		q.slots[idx] = nil
	}
	q.head = 0
	q.tail = 0
	q.count = 0
	q.mu.Unlock()

	for range drained {
		select {
		case <-q.tokens:
		default:
		}
	}
	return drained
}

func (q *priorityQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *priorityQueue) isFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count >= q.capacity
}

func (q *priorityQueue) isEmpty() bool {
	return q.depth() == 0
}

// resetStats zeroes the counters; peak depth restarts at the current depth.
func (q *priorityQueue) resetStats() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.totalEnqueued = 0
	q.totalDequeued = 0
	q.totalTimeouts = 0
	q.totalExpired = 0
	q.peakDepth = q.count
	q.cumWait = 0
	q.waitSamples = 0
}

// snapshot returns a consistent copy of the counters. The lock wait is
// bounded; contention past the deadline is reported as a soft failure rather
// than blocking the caller.
func (q *priorityQueue) snapshot() (QueueStats, error) {
	deadline := q.clock.Now().Add(statsLockTimeout)
	for !q.mu.TryLock() {
		if q.clock.Now().After(deadline) {
			return QueueStats{}, ErrStatsUnavailable
		}
		q.clock.Sleep(statsLockRetryInterval)
	}
	defer q.mu.Unlock()

	stats := QueueStats{
		Priority:      q.priority,
		CurrentDepth:  q.count,
		Capacity:      q.capacity,
		TotalEnqueued: q.totalEnqueued,
		TotalDequeued: q.totalDequeued,
		TotalTimeouts: q.totalTimeouts,
		TotalExpired:  q.totalExpired,
		PeakDepth:     q.peakDepth,
		LastActivity:  q.lastActivity,
	}
	if q.waitSamples > 0 {
		stats.AverageWait = q.cumWait / time.Duration(q.waitSamples)
	}
	if q.capacity > 0 {
		stats.Utilization = float64(q.count) / float64(q.capacity) * 100
	}
	return stats, nil
}
