package priority

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ryswick/floodgate/logger"
	"github.com/ryswick/floodgate/queue"
	"github.com/ryswick/floodgate/types"
)

// workerLivenessWindow is how long a worker may go without completing a loop
// iteration before a health check reports it degraded. Generous enough to
// absorb one heavy execution.
const workerLivenessWindow = 5 * time.Second

// worker dispatches requests from a contiguous priority band. Binding each
// band to its own goroutine means a flood of background traffic can never
// starve emergency work: at most one in-flight item per worker delays urgent
// requests.
type worker struct {
	kind        types.WorkerKind
	minPriority types.PriorityLevel
	maxPriority types.PriorityLevel

	m      *Manager
	logger logger.Logger

	beatNanos atomic.Int64
}

func newWorker(kind types.WorkerKind, m *Manager) *worker {
	min, max := kind.PriorityRange()
	return &worker{
		kind:        kind,
		minPriority: min,
		maxPriority: max,
		m:           m,
		logger:      m.logger.WithWorker(kind),
	}
}

func (w *worker) beat(now time.Time) {
	w.beatNanos.Store(now.UnixNano())
}

func (w *worker) lastBeat() time.Time {
	n := w.beatNanos.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// live reports whether the worker completed an iteration recently. A worker
// that never ran is not live.
func (w *worker) live(now time.Time) bool {
	last := w.lastBeat()
	return !last.IsZero() && now.Sub(last) <= workerLivenessWindow
}

// run is the worker loop. Each iteration performs the periodic checks, then
// scans the priority band most-urgent-first; if nothing is ready it blocks
// briefly on the band's most urgent queue. The stop channel is the only
// normal exit path.
func (w *worker) run() {
	defer w.m.wg.Done()

	m := w.m
	w.logger.Infow("worker started",
		"range_min", w.minPriority.String(), "range_max", w.maxPriority.String())

	lastHealthCheck := m.clock.Now()
	lastStatsUpdate := m.clock.Now()

	for {
		select {
		case <-m.stopCh:
			w.logger.Infow("worker received stop signal")
			return
		default:
		}

		now := m.clock.Now()
		w.beat(now)

		if now.Sub(lastHealthCheck) > m.cfg.HealthCheckInterval {
			if !m.queues.HealthCheck() {
				w.logger.Warnw("queue health check failed")
			}
			// Expired-request cleanup rides the same cadence; only the
			// background worker runs it, so it happens once per interval.
			if w.kind == types.WorkerBackground {
				m.queues.CleanupExpired()
			}
			lastHealthCheck = now
		}

		if m.monitoring.Load() && now.Sub(lastStatsUpdate) > m.cfg.StatsInterval {
			m.refreshStatistics()
			lastStatsUpdate = now
		}

		if m.Mode() == types.ModeEmergency {
			m.checkEmergencyExpiry()
		}

		ctx := m.queues.DequeueRange(w.minPriority, w.maxPriority)
		if ctx == nil {
			// Nothing ready: block briefly on the band's most urgent queue
			// so a fresh enqueue wakes us without a full poll interval.
			ctx = m.queues.DequeuePriority(w.minPriority, m.cfg.DequeueWait)
		}
		if ctx == nil {
			m.clock.Sleep(m.cfg.IdleSleep)
			continue
		}

		w.process(ctx)
	}
}

// process executes one dequeued context, charges timing statistics and
// releases it. The worker yields after executions exceeding the heavy
// operation threshold.
func (w *worker) process(ctx *queue.RequestContext) {
	m := w.m
	start := m.clock.Now()
	ctx.MarkProcessingStarted(start)

	w.logger.Debugw("processing request",
		"request", ctx.ID(), "priority", ctx.Priority().String())

	if err := m.executor.Execute(m.execCtx, ctx); err != nil {
		w.logger.Warnw("request execution failed",
			"request", ctx.ID(), "error", err)
	}

	elapsed := m.clock.Now().Sub(start)
	priority := ctx.Priority()

	if m.monitoring.Load() {
		m.mu.Lock()
		m.stats.totalProcessed++
		counters := &m.stats.perPriority[priority]
		counters.Processed++
		if counters.AverageProcessing == 0 {
			counters.AverageProcessing = elapsed
		} else {
			counters.AverageProcessing = (counters.AverageProcessing + elapsed) / 2
		}
		m.mu.Unlock()
	}
	m.metrics.ObserveExecution(priority, elapsed)

	ctx.MarkProcessed()
	ctx.Release()

	w.logger.Debugw("completed request", "request", ctx.ID(), "elapsed", elapsed)

	if elapsed > m.cfg.HeavyOpThreshold {
		w.logger.Debugw("heavy operation detected, yielding", "elapsed", elapsed)
		runtime.Gosched()
	}
}
