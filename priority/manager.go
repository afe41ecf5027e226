package priority

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ryswick/floodgate/classify"
	"github.com/ryswick/floodgate/logger"
	"github.com/ryswick/floodgate/queue"
	"github.com/ryswick/floodgate/types"
)

// Manager orchestrates classification, admission, the system-mode state
// machine and the three dispatch workers. It owns its queue set and worker
// goroutines; construct one per subsystem instance, there is no package-level
// singleton.
type Manager struct {
	cfg Config

	queues     *queue.QueueSet
	classifier *classify.Classifier
	executor   Executor
	limiter    RateLimiter
	logger     logger.Logger
	metrics    Metrics
	clock      types.Clock

	// mu guards the system mode, emergency bookkeeping and counters. It is
	// held only for short, bounded sections, never across a blocking
	// dequeue.
	mu                 sync.Mutex
	mode               types.SystemMode
	emergencyEnteredAt time.Time
	emergencyTimeout   time.Duration
	stats              statsState
	startTime          time.Time

	workers [types.NumWorkerKinds]*worker

	running    atomic.Bool
	stopped    atomic.Bool
	monitoring atomic.Bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
	execCtx    context.Context
	execCancel context.CancelFunc
}

// NewManager builds a manager and its queue set. The manager starts in
// Normal mode with workers not yet running; call Start to begin dispatch.
func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	queues, err := queue.NewQueueSet(cfg.Queue)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:        cfg,
		queues:     queues,
		classifier: cfg.Classifier,
		executor:   cfg.Executor,
		limiter:    cfg.RateLimiter,
		logger:     cfg.Logger.WithComponent("priority"),
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
		mode:       types.ModeNormal,
		startTime:  cfg.Clock.Now(),
	}
	m.monitoring.Store(cfg.EnableStatistics)

	for k := types.WorkerKind(0); k < types.NumWorkerKinds; k++ {
		m.workers[k] = newWorker(k, m)
	}

	m.logger.Infow("priority manager initialized",
		"load_shedding_threshold", cfg.LoadSheddingThreshold,
		"load_balancing", cfg.EnableLoadBalancing,
		"statistics", cfg.EnableStatistics)
	return m, nil
}

// Start launches the three dispatch workers. Admission is accepted only
// while running. Managers are single-use: a stopped manager cannot be
// restarted.
func (m *Manager) Start() error {
	if m.stopped.Load() {
		return ErrStopped
	}
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	m.stopCh = make(chan struct{})
	m.execCtx, m.execCancel = context.WithCancel(context.Background())
	m.startTime = m.clock.Now()

	for _, w := range m.workers {
		m.wg.Add(1)
		go w.run()
	}

	m.logger.Infow("priority manager started", "workers", len(m.workers))
	return nil
}

// Stop signals the workers, waits for them to exit, then closes the queue
// set, releasing any still-queued contexts. Idempotent. Callers wanting a
// graceful drain should Flush first.
func (m *Manager) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	m.stopped.Store(true)

	close(m.stopCh)
	m.execCancel()
	m.wg.Wait()

	if err := m.queues.Close(); err != nil {
		return err
	}
	m.logger.Infow("priority manager stopped")
	return nil
}

// Running reports whether Start has been called and Stop has not.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// QueueSet exposes the underlying queues for diagnostics and tests.
func (m *Manager) QueueSet() *queue.QueueSet {
	return m.queues
}

// Flush drains every queue without dispatching to workers, marking each
// context processed and releasing it. It stops at the deadline (a
// non-positive timeout means no deadline) and returns the number drained.
// Intended for shutdown.
func (m *Manager) Flush(timeout time.Duration) int {
	start := m.clock.Now()
	drained := 0

	m.logger.Infow("flushing all queues", "timeout", timeout)
	for m.queues.HasPending() {
		if timeout > 0 && m.clock.Now().Sub(start) > timeout {
			m.logger.Warnw("queue flush timeout reached", "drained", drained)
			break
		}
		ctx := m.queues.Dequeue(0)
		if ctx == nil {
			break
		}
		ctx.MarkProcessed()
		ctx.Release()
		drained++
	}

	m.logger.Infow("queue flush complete", "drained", drained)
	return drained
}

// HealthCheck reports whether the queue invariants hold and every worker has
// made progress recently. Degraded health is surfaced, never self-healed.
func (m *Manager) HealthCheck() bool {
	if !m.running.Load() {
		return false
	}

	healthy := m.queues.HealthCheck()
	now := m.clock.Now()
	for _, w := range m.workers {
		if !w.live(now) {
			m.logger.Warnw("worker has not made progress recently",
				"worker", w.kind.String(), "last_beat", w.lastBeat())
			healthy = false
		}
	}
	return healthy
}

// WorkerInfo describes one dispatch worker.
type WorkerInfo struct {
	Kind        types.WorkerKind
	MinPriority types.PriorityLevel
	MaxPriority types.PriorityLevel
	LastBeat    time.Time
	Live        bool
}

// Workers returns a snapshot of the dispatch workers.
func (m *Manager) Workers() []WorkerInfo {
	now := m.clock.Now()
	infos := make([]WorkerInfo, 0, len(m.workers))
	for _, w := range m.workers {
		infos = append(infos, WorkerInfo{
			Kind:        w.kind,
			MinPriority: w.minPriority,
			MaxPriority: w.maxPriority,
			LastBeat:    w.lastBeat(),
			Live:        w.live(now),
		})
	}
	return infos
}
