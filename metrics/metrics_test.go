package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ryswick/floodgate/types"
)

func TestQueueMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)

	m.ObserveEnqueue(types.PriorityEmergency, 1)
	m.ObserveEnqueue(types.PriorityEmergency, 2)
	m.ObserveDequeue(types.PriorityEmergency, 5*time.Millisecond, 1)
	m.ObserveTimeout(types.PriorityNormal)
	m.ObserveExpired(types.PriorityBackground, 3)
	m.ObserveEnqueueFull(types.PriorityEmergency)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.enqueued.WithLabelValues("EMERGENCY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dequeued.WithLabelValues("EMERGENCY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.depth.WithLabelValues("EMERGENCY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.timeouts.WithLabelValues("NORMAL")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.expired.WithLabelValues("BACKGROUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fullDrops.WithLabelValues("EMERGENCY")))
}

func TestManagerMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManagerMetrics(reg)

	m.ObserveAdmission(types.PriorityUiCritical)
	m.ObserveRejection("queue-full")
	m.ObserveDemotion(types.PriorityNormal, types.PriorityBackground)
	m.ObserveExecution(types.PriorityNormal, 20*time.Millisecond)
	m.ObserveSystemLoad(85)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.admissions.WithLabelValues("UI_CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("queue-full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.demotions.WithLabelValues("NORMAL", "BACKGROUND")))
	assert.Equal(t, 85.0, testutil.ToFloat64(m.systemLoad))
}

func TestManagerMetrics_ModeGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManagerMetrics(reg)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.currentMode.WithLabelValues("NORMAL")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.currentMode.WithLabelValues("EMERGENCY")))

	m.ObserveModeChange(types.ModeNormal, types.ModeEmergency)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.currentMode.WithLabelValues("NORMAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.currentMode.WithLabelValues("EMERGENCY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modeChanges.WithLabelValues("NORMAL", "EMERGENCY")))
}
