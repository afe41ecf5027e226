package priority

import (
	"time"

	"github.com/ryswick/floodgate/queue"
	"github.com/ryswick/floodgate/types"
)

// PriorityCounters aggregates per-priority activity.
type PriorityCounters struct {
	Requests          uint64        // admitted at this priority
	Dropped           uint64        // lost to a full queue
	Demoted           uint64        // demoted away from this priority by load
	Processed         uint64        // completed executions
	AverageProcessing time.Duration // moving average of execution time
}

// Stats is a consistent snapshot of the manager's aggregate state.
type Stats struct {
	Mode       types.SystemMode
	SystemLoad int
	Uptime     time.Duration
	LastUpdate time.Time

	TotalProcessed          uint64
	EmergencyActivations    uint64
	LoadSheddingActivations uint64

	RejectedEmergency    uint64
	RejectedLoadShedding uint64
	RejectedRateLimited  uint64

	PerPriority [types.NumPriorityLevels]PriorityCounters
	QueueDepths [types.NumPriorityLevels]int
	Queues      [types.NumPriorityLevels]queue.QueueStats
}

// statsState holds the counters guarded by the manager mutex.
type statsState struct {
	perPriority [types.NumPriorityLevels]PriorityCounters

	totalProcessed          uint64
	emergencyActivations    uint64
	loadSheddingActivations uint64

	rejectedEmergency    uint64
	rejectedLoadShedding uint64
	rejectedRateLimited  uint64

	lastUpdate time.Time
}

// Statistics returns a snapshot of the manager's counters, current queue
// depths and mode.
func (m *Manager) Statistics() Stats {
	m.mu.Lock()
	s := Stats{
		Mode:                    m.mode,
		TotalProcessed:          m.stats.totalProcessed,
		EmergencyActivations:    m.stats.emergencyActivations,
		LoadSheddingActivations: m.stats.loadSheddingActivations,
		RejectedEmergency:       m.stats.rejectedEmergency,
		RejectedLoadShedding:    m.stats.rejectedLoadShedding,
		RejectedRateLimited:     m.stats.rejectedRateLimited,
		PerPriority:             m.stats.perPriority,
		LastUpdate:              m.stats.lastUpdate,
		Uptime:                  m.clock.Now().Sub(m.startTime),
	}
	m.mu.Unlock()

	s.SystemLoad = m.SystemLoad()
	s.Queues = m.queues.AllStats()
	for p := range s.QueueDepths {
		s.QueueDepths[p] = s.Queues[p].CurrentDepth
	}
	return s
}

// ResetStatistics zeroes the manager's counters and the per-queue counters.
func (m *Manager) ResetStatistics() {
	m.mu.Lock()
	m.stats = statsState{lastUpdate: m.clock.Now()}
	m.mu.Unlock()

	m.queues.ResetStats()
	m.logger.Debugw("statistics reset")
}

// SetMonitoringEnabled toggles statistics counting at runtime.
func (m *Manager) SetMonitoringEnabled(enabled bool) {
	m.monitoring.Store(enabled)
	m.queues.SetMonitoringEnabled(enabled)
	m.logger.Debugw("monitoring toggled", "enabled", enabled)
}

// refreshStatistics is the periodic advisory refresh run by worker loops.
func (m *Manager) refreshStatistics() {
	load := m.SystemLoad()
	m.metrics.ObserveSystemLoad(load)

	m.mu.Lock()
	m.stats.lastUpdate = m.clock.Now()
	m.mu.Unlock()
}

// LogStatusReport emits a human-readable status dump.
func (m *Manager) LogStatusReport() {
	stats := m.Statistics()
	m.logger.Infow("status report",
		"mode", stats.Mode.String(),
		"load_percent", stats.SystemLoad,
		"total_queued", m.queues.TotalDepth(),
		"uptime", stats.Uptime,
		"workers", len(m.workers))
	for p, qs := range stats.Queues {
		m.logger.Infow("queue status",
			"priority", types.PriorityLevel(p).String(),
			"depth", qs.CurrentDepth,
			"capacity", qs.Capacity,
			"peak", qs.PeakDepth)
	}
	for _, info := range m.Workers() {
		m.logger.Infow("worker status",
			"worker", info.Kind.String(),
			"range_min", info.MinPriority.String(),
			"range_max", info.MaxPriority.String(),
			"live", info.Live)
	}
}

// LogStatistics emits a human-readable counters dump.
func (m *Manager) LogStatistics() {
	stats := m.Statistics()
	m.logger.Infow("statistics report",
		"total_processed", stats.TotalProcessed,
		"emergency_activations", stats.EmergencyActivations,
		"load_shedding_activations", stats.LoadSheddingActivations)
	for p, counters := range stats.PerPriority {
		m.logger.Infow("priority statistics",
			"priority", types.PriorityLevel(p).String(),
			"requests", counters.Requests,
			"processed", counters.Processed,
			"dropped", counters.Dropped,
			"demoted", counters.Demoted,
			"avg_processing", counters.AverageProcessing)
	}
}
