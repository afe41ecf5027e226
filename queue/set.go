package queue

import (
	"sync/atomic"
	"time"

	"github.com/ryswick/floodgate/logger"
	"github.com/ryswick/floodgate/mempool"
	"github.com/ryswick/floodgate/types"
)

// QueueSet owns one fixed-capacity FIFO ring per priority level plus the
// request context lifecycle. All methods are safe for concurrent use.
type QueueSet struct {
	cfg    Config
	queues [types.NumPriorityLevels]*priorityQueue

	alloc   mempool.Allocator
	logger  logger.Logger
	metrics Metrics
	clock   types.Clock

	monitoring atomic.Bool
	closed     atomic.Bool
}

// NewQueueSet builds a queue set from the given config.
func NewQueueSet(cfg Config) (*QueueSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &QueueSet{
		cfg:     cfg,
		alloc:   cfg.Allocator,
		logger:  cfg.Logger.WithComponent("queue"),
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
	}
	s.monitoring.Store(cfg.Monitoring)

	for p := range s.queues {
		priority := types.PriorityLevel(p)
		s.queues[p] = newPriorityQueue(priority, cfg.Capacities[p], s.clock, &s.monitoring, s.metrics)
	}

	s.logger.Infow("queue set initialized",
		"capacities", cfg.Capacities,
		"default_timeout", cfg.DefaultTimeout,
		"emergency_timeout", cfg.EmergencyTimeout)
	return s, nil
}

// CreateContext builds a request context for an admitted request. Buffer
// sizes above the configured maximum are clamped. Request and response
// buffers are allocated at the large-buffer tier; if that fails, a smaller
// fallback pair is taken from the reliable region. Failure is atomic: no
// partial allocation survives an error return.
func (s *QueueSet) CreateContext(
	handle types.RequestHandle,
	priority types.PriorityLevel,
	bufferSize int,
) (*RequestContext, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if handle == nil {
		return nil, ErrNilHandle
	}
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	if bufferSize > s.cfg.MaxBufferSize {
		bufferSize = s.cfg.MaxBufferSize
	}

	ctx := &RequestContext{
		id:        newRequestID(),
		handle:    handle,
		priority:  priority,
		createdAt: s.clock.Now(),
		timeout:   s.cfg.DefaultTimeout,
		alloc:     s.alloc,
	}
	if priority == types.PriorityEmergency {
		ctx.timeout = s.cfg.EmergencyTimeout
	}

	if bufferSize > 0 {
		if err := s.allocateBuffers(ctx, bufferSize); err != nil {
			return nil, err
		}
	}

	s.logger.Debugw("created request context",
		"request", ctx.id, "priority", priority.String(), "buffer_size", ctx.bufferSize)
	return ctx, nil
}

// allocateBuffers fills the context's request/response buffer pair, trying
// the preferred size first and the smaller reliable fallback second.
func (s *QueueSet) allocateBuffers(ctx *RequestContext, size int) error {
	reqBuf, respBuf, err := s.allocatePair(size, mempool.TierLargeBuffer)
	if err == nil {
		ctx.requestBuf = reqBuf
		ctx.responseBuf = respBuf
		ctx.bufferSize = size
		return nil
	}

	fallback := size
	if fallback > FallbackBufferSize {
		fallback = FallbackBufferSize
	}
	s.logger.Warnw("preferred buffer allocation failed, trying reliable fallback",
		"request", ctx.id, "size", size, "fallback_size", fallback)

	reqBuf, respBuf, err = s.allocatePair(fallback, mempool.TierCritical)
	if err != nil {
		s.logger.Errorw("request buffer allocation failed",
			"request", ctx.id, "size", size, "error", err)
		return ErrNoMemory
	}
	ctx.requestBuf = reqBuf
	ctx.responseBuf = respBuf
	ctx.bufferSize = fallback
	return nil
}

// allocatePair allocates a request/response buffer pair atomically.
func (s *QueueSet) allocatePair(size int, tier mempool.Tier) ([]byte, []byte, error) {
	reqBuf, err := s.alloc.Alloc(size, tier)
	if err != nil {
		return nil, nil, err
	}
	respBuf, err := s.alloc.Alloc(size, tier)
	if err != nil {
		s.alloc.Free(reqBuf)
		return nil, nil, err
	}
	return reqBuf, respBuf, nil
}

// Enqueue appends the context to its priority's queue. On ErrQueueFull the
// caller still owns the context and must release it.
func (s *QueueSet) Enqueue(ctx *RequestContext) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		return ErrNilContext
	}
	if !ctx.priority.IsValid() {
		return ErrInvalidPriority
	}

	q := s.queues[ctx.priority]
	if err := q.enqueue(ctx); err != nil {
		s.logger.Warnw("enqueue rejected",
			"request", ctx.id, "priority", ctx.priority.String(), "error", err)
		return err
	}

	s.logger.Debugw("enqueued request",
		"request", ctx.id, "priority", ctx.priority.String(), "depth", q.depth())
	return nil
}

// DequeuePriority removes the oldest context from one priority's queue,
// waiting up to timeout. A non-positive timeout is a non-blocking attempt.
// Returns nil when nothing was available.
func (s *QueueSet) DequeuePriority(priority types.PriorityLevel, timeout time.Duration) *RequestContext {
	if s.closed.Load() || !priority.IsValid() {
		return nil
	}
	return s.queues[priority].dequeue(timeout)
}

// Dequeue returns the highest-priority ready context. It polls every queue
// from Emergency down without blocking; if all are empty and timeout is
// positive, it blocks on the Emergency queue as a last resort.
func (s *QueueSet) Dequeue(timeout time.Duration) *RequestContext {
	if s.closed.Load() {
		return nil
	}

	for p := range s.queues {
		if ctx := s.queues[p].tryDequeue(); ctx != nil {
			return ctx
		}
	}

	if timeout > 0 {
		return s.queues[types.PriorityEmergency].dequeue(timeout)
	}
	return nil
}

// DequeueRange returns the highest-priority ready context within the
// inclusive priority range, polling without blocking.
func (s *QueueSet) DequeueRange(min, max types.PriorityLevel) *RequestContext {
	if s.closed.Load() || !min.IsValid() || !max.IsValid() || min > max {
		return nil
	}
	for p := min; p <= max; p++ {
		if ctx := s.queues[p].tryDequeue(); ctx != nil {
			return ctx
		}
	}
	return nil
}

// Stats returns a snapshot of one priority queue's counters. Contention on
// the queue lock past a bounded wait yields ErrStatsUnavailable.
func (s *QueueSet) Stats(priority types.PriorityLevel) (QueueStats, error) {
	if !priority.IsValid() {
		return QueueStats{}, ErrInvalidPriority
	}
	return s.queues[priority].snapshot()
}

// AllStats returns a snapshot per priority level. Queues whose lock could not
// be taken within the bounded wait report a zero snapshot for their slot and
// the soft failure is logged.
func (s *QueueSet) AllStats() [types.NumPriorityLevels]QueueStats {
	var all [types.NumPriorityLevels]QueueStats
	for p := range s.queues {
		stats, err := s.queues[p].snapshot()
		if err != nil {
			s.logger.Warnw("queue stats snapshot unavailable",
				"priority", types.PriorityLevel(p).String(), "error", err)
			continue
		}
		all[p] = stats
	}
	return all
}

// Depth returns the current depth of one priority's queue.
func (s *QueueSet) Depth(priority types.PriorityLevel) int {
	if !priority.IsValid() {
		return 0
	}
	return s.queues[priority].depth()
}

// TotalDepth returns the number of contexts queued across all levels.
func (s *QueueSet) TotalDepth() int {
	total := 0
	for p := range s.queues {
		total += s.queues[p].depth()
	}
	return total
}

// TotalCapacity returns the summed configured capacity of all levels.
func (s *QueueSet) TotalCapacity() int {
	total := 0
	for _, c := range s.cfg.Capacities {
		total += c
	}
	return total
}

// HasPending reports whether any queue holds a context.
func (s *QueueSet) HasPending() bool {
	return s.TotalDepth() > 0
}

// IsFull reports whether one priority's queue is at capacity.
func (s *QueueSet) IsFull(priority types.PriorityLevel) bool {
	if !priority.IsValid() {
		return true
	}
	return s.queues[priority].isFull()
}

// IsEmpty reports whether one priority's queue is empty.
func (s *QueueSet) IsEmpty(priority types.PriorityLevel) bool {
	if !priority.IsValid() {
		return true
	}
	return s.queues[priority].isEmpty()
}

// CleanupExpired removes every context that has outlived its residency
// timeout, releases them and returns the count removed.
func (s *QueueSet) CleanupExpired() int {
	if s.closed.Load() {
		return 0
	}

	now := s.clock.Now()
	cleaned := 0
	for p := range s.queues {
		expired := s.queues[p].removeExpired(now)
		for _, ctx := range expired {
			s.logger.Warnw("expired request removed",
				"request", ctx.id, "priority", ctx.priority.String(), "timeout", ctx.timeout)
			ctx.Release()
		}
		cleaned += len(expired)
	}

	if cleaned > 0 {
		s.logger.Infow("expired request cleanup complete", "cleaned", cleaned)
	}
	return cleaned
}

// ResetStats zeroes every queue's counters; peak depths restart at current
// depths.
func (s *QueueSet) ResetStats() {
	for p := range s.queues {
		s.queues[p].resetStats()
	}
	s.logger.Debugw("queue statistics reset")
}

// SetMonitoringEnabled toggles statistics counting.
func (s *QueueSet) SetMonitoringEnabled(enabled bool) {
	s.monitoring.Store(enabled)
	s.logger.Debugw("queue monitoring toggled", "enabled", enabled)
}

// HealthCheck verifies structural invariants of every queue: slot storage
// sized to capacity and depth within bounds.
func (s *QueueSet) HealthCheck() bool {
	if s.closed.Load() {
		return false
	}

	healthy := true
	for p := range s.queues {
		q := s.queues[p]
		q.mu.Lock()
		if len(q.slots) != q.capacity {
			s.logger.Errorw("queue slot storage corrupted",
				"priority", types.PriorityLevel(p).String(),
				"slots", len(q.slots), "capacity", q.capacity)
			healthy = false
		}
		if q.count < 0 || q.count > q.capacity {
			s.logger.Errorw("queue count out of bounds",
				"priority", types.PriorityLevel(p).String(),
				"count", q.count, "capacity", q.capacity)
			healthy = false
		}
		q.mu.Unlock()
	}
	return healthy
}

// Close drains every queue and releases the remaining contexts. Subsequent
// operations fail with ErrClosed; Close is idempotent.
func (s *QueueSet) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	released := 0
	for p := range s.queues {
		for _, ctx := range s.queues[p].drain() {
			ctx.Release()
			released++
		}
	}

	s.logger.Infow("queue set closed", "released", released)
	return nil
}
