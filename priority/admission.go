package priority

import (
	"errors"

	"github.com/ryswick/floodgate/classify"
	"github.com/ryswick/floodgate/queue"
	"github.com/ryswick/floodgate/types"
)

// ClassifyRequest maps a request handle to its classification result using
// the manager's classifier.
func (m *Manager) ClassifyRequest(handle types.RequestHandle) (classify.Result, error) {
	if handle == nil {
		return classify.Result{}, ErrNilHandle
	}
	return m.classifier.Classify(handle.URI(), handle.Method()), nil
}

// QueueRequest classifies the request and admits it at the classified
// priority.
func (m *Manager) QueueRequest(handle types.RequestHandle) error {
	result, err := m.ClassifyRequest(handle)
	if err != nil {
		return err
	}
	return m.QueueRequestWithPriority(handle, result.Priority)
}

// QueueRequestWithPriority runs the admission policy and, if the request
// passes, creates a context and enqueues it. Policy order: rate limit, then
// emergency filter, then load-shedding filter, then load demotion, then
// capacity. Rejections are policy outcomes, distinguishable via
// RejectionReason; ErrNoMemory is the only resource failure.
func (m *Manager) QueueRequestWithPriority(handle types.RequestHandle, priority types.PriorityLevel) error {
	if !m.running.Load() {
		return ErrNotRunning
	}
	if handle == nil {
		return ErrNilHandle
	}
	if !priority.IsValid() {
		return ErrInvalidPriority
	}

	if m.limiter != nil && !m.limiter.Allow() {
		m.noteRejection(&m.stats.rejectedRateLimited, ReasonRateLimited)
		return ErrRateLimited
	}

	mode := m.Mode()
	if mode == types.ModeEmergency && priority > types.PriorityIoCritical {
		m.logger.Warnw("dropping non-critical request in emergency mode",
			"uri", handle.URI(), "priority", priority.String())
		m.noteRejection(&m.stats.rejectedEmergency, ReasonEmergencyFiltered)
		return ErrEmergencyFiltered
	}
	if mode == types.ModeLoadShedding && priority >= types.PriorityBackground {
		m.logger.Warnw("dropping background request due to load shedding",
			"uri", handle.URI())
		m.noteRejection(&m.stats.rejectedLoadShedding, ReasonLoadSheddingFiltered)
		return ErrLoadSheddingFiltered
	}

	priority = m.AdjustForLoad(priority)

	ctx, err := m.queues.CreateContext(handle, priority, m.cfg.AdmissionBufferSize)
	if err != nil {
		m.logger.Errorw("failed to create request context", "error", err)
		if errors.Is(err, queue.ErrNoMemory) {
			return ErrNoMemory
		}
		return err
	}

	if err := m.queues.Enqueue(ctx); err != nil {
		ctx.Release()
		if errors.Is(err, queue.ErrQueueFull) {
			m.noteDrop(priority)
			return ErrQueueFull
		}
		return err
	}

	if m.monitoring.Load() {
		m.mu.Lock()
		m.stats.perPriority[priority].Requests++
		m.mu.Unlock()
	}
	m.metrics.ObserveAdmission(priority)

	m.logger.Debugw("queued request",
		"request", ctx.ID(), "priority", priority.String())
	return nil
}

// AdjustForLoad applies the load-demotion policy: under sustained high load,
// Normal drops to Background and UiCritical drops to Normal. Critical levels
// are never demoted.
func (m *Manager) AdjustForLoad(priority types.PriorityLevel) types.PriorityLevel {
	if !m.cfg.EnableLoadBalancing || !m.IsHighLoad() {
		return priority
	}

	var demoted types.PriorityLevel
	switch priority {
	case types.PriorityNormal:
		demoted = types.PriorityBackground
	case types.PriorityUiCritical:
		demoted = types.PriorityNormal
	default:
		return priority
	}

	m.logger.Debugw("demoting request due to high load",
		"from", priority.String(), "to", demoted.String(), "load_percent", m.SystemLoad())
	if m.monitoring.Load() {
		m.mu.Lock()
		m.stats.perPriority[priority].Demoted++
		m.mu.Unlock()
	}
	m.metrics.ObserveDemotion(priority, demoted)
	return demoted
}

func (m *Manager) noteRejection(counter *uint64, reason string) {
	if m.monitoring.Load() {
		m.mu.Lock()
		*counter++
		m.mu.Unlock()
	}
	m.metrics.ObserveRejection(reason)
}

func (m *Manager) noteDrop(priority types.PriorityLevel) {
	if m.monitoring.Load() {
		m.mu.Lock()
		m.stats.perPriority[priority].Dropped++
		m.mu.Unlock()
	}
	m.metrics.ObserveRejection(ReasonQueueFull)
}
