// Package metrics provides prometheus-backed implementations of the queue
// and priority instrumentation interfaces. Both constructors accept a
// Registerer so the owning application controls exposition; pass
// prometheus.DefaultRegisterer for the common case.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ryswick/floodgate/types"
)

const namespace = "floodgate"

// QueueMetrics implements queue.Metrics on prometheus collectors.
type QueueMetrics struct {
	enqueued  *prometheus.CounterVec
	dequeued  *prometheus.CounterVec
	timeouts  *prometheus.CounterVec
	expired   *prometheus.CounterVec
	fullDrops *prometheus.CounterVec
	depth     *prometheus.GaugeVec
	queueWait *prometheus.HistogramVec
}

// NewQueueMetrics builds and registers the queue collectors.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	m := &QueueMetrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "enqueued_total",
			Help:      "Requests enqueued, by priority.",
		}, []string{"priority"}),
		dequeued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "dequeued_total",
			Help:      "Requests dequeued, by priority.",
		}, []string{"priority"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "dequeue_timeouts_total",
			Help:      "Dequeue waits that expired empty-handed, by priority.",
		}, []string{"priority"}),
		expired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "expired_total",
			Help:      "Requests removed by residency-timeout cleanup, by priority.",
		}, []string{"priority"}),
		fullDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "full_rejections_total",
			Help:      "Enqueues rejected by a full ring, by priority.",
		}, []string{"priority"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current queue depth, by priority.",
		}, []string{"priority"}),
		queueWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "wait_seconds",
			Help:      "Time requests spent queued before dequeue, by priority.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"priority"}),
	}
	reg.MustRegister(m.enqueued, m.dequeued, m.timeouts, m.expired, m.fullDrops, m.depth, m.queueWait)
	return m
}

func (m *QueueMetrics) ObserveEnqueue(priority types.PriorityLevel, depth int) {
	p := priority.String()
	m.enqueued.WithLabelValues(p).Inc()
	m.depth.WithLabelValues(p).Set(float64(depth))
}

func (m *QueueMetrics) ObserveDequeue(priority types.PriorityLevel, wait time.Duration, depth int) {
	p := priority.String()
	m.dequeued.WithLabelValues(p).Inc()
	m.depth.WithLabelValues(p).Set(float64(depth))
	m.queueWait.WithLabelValues(p).Observe(wait.Seconds())
}

func (m *QueueMetrics) ObserveTimeout(priority types.PriorityLevel) {
	m.timeouts.WithLabelValues(priority.String()).Inc()
}

func (m *QueueMetrics) ObserveExpired(priority types.PriorityLevel, count int) {
	m.expired.WithLabelValues(priority.String()).Add(float64(count))
}

func (m *QueueMetrics) ObserveEnqueueFull(priority types.PriorityLevel) {
	m.fullDrops.WithLabelValues(priority.String()).Inc()
}

// ManagerMetrics implements priority.Metrics on prometheus collectors.
type ManagerMetrics struct {
	admissions  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	demotions   *prometheus.CounterVec
	executions  *prometheus.HistogramVec
	modeChanges *prometheus.CounterVec
	systemLoad  prometheus.Gauge
	currentMode *prometheus.GaugeVec
}

// NewManagerMetrics builds and registers the manager collectors.
func NewManagerMetrics(reg prometheus.Registerer) *ManagerMetrics {
	m := &ManagerMetrics{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "admissions_total",
			Help:      "Admitted requests, by final priority.",
		}, []string{"priority"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "rejections_total",
			Help:      "Rejected admissions, by reason.",
		}, []string{"reason"}),
		demotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "demotions_total",
			Help:      "Load demotions, by original and demoted priority.",
		}, []string{"from", "to"}),
		executions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "execution_seconds",
			Help:      "Request execution time, by priority.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"priority"}),
		modeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "mode_changes_total",
			Help:      "System mode transitions, by source and target mode.",
		}, []string{"from", "to"}),
		systemLoad: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "system_load_percent",
			Help:      "Aggregate queue occupancy percentage.",
		}),
		currentMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "manager",
			Name:      "mode",
			Help:      "Current system mode (1 for the active mode, 0 otherwise).",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.admissions, m.rejections, m.demotions, m.executions,
		m.modeChanges, m.systemLoad, m.currentMode)

	// Export an explicit zero for every mode so dashboards see the full set.
	for mode := types.ModeNormal; mode <= types.ModeMaintenance; mode++ {
		m.currentMode.WithLabelValues(mode.String()).Set(0)
	}
	m.currentMode.WithLabelValues(types.ModeNormal.String()).Set(1)
	return m
}

func (m *ManagerMetrics) ObserveAdmission(priority types.PriorityLevel) {
	m.admissions.WithLabelValues(priority.String()).Inc()
}

func (m *ManagerMetrics) ObserveRejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *ManagerMetrics) ObserveDemotion(from, to types.PriorityLevel) {
	m.demotions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *ManagerMetrics) ObserveExecution(priority types.PriorityLevel, d time.Duration) {
	m.executions.WithLabelValues(priority.String()).Observe(d.Seconds())
}

func (m *ManagerMetrics) ObserveModeChange(from, to types.SystemMode) {
	m.modeChanges.WithLabelValues(from.String(), to.String()).Inc()
	m.currentMode.WithLabelValues(from.String()).Set(0)
	m.currentMode.WithLabelValues(to.String()).Set(1)
}

func (m *ManagerMetrics) ObserveSystemLoad(percent int) {
	m.systemLoad.Set(float64(percent))
}
