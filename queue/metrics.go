package queue

import (
	"time"

	"github.com/ryswick/floodgate/types"
)

// Metrics receives queue instrumentation events. Implementations must be safe
// for concurrent use. The prometheus-backed implementation lives in the
// metrics package; NoOpMetrics is the default.
type Metrics interface {
	// ObserveEnqueue records a successful enqueue and the resulting depth.
	ObserveEnqueue(priority types.PriorityLevel, depth int)

	// ObserveDequeue records a successful dequeue, its queue wait time and
	// the resulting depth.
	ObserveDequeue(priority types.PriorityLevel, wait time.Duration, depth int)

	// ObserveTimeout records a dequeue wait that expired empty-handed.
	ObserveTimeout(priority types.PriorityLevel)

	// ObserveExpired records contexts removed by expiry cleanup.
	ObserveExpired(priority types.PriorityLevel, count int)

	// ObserveEnqueueFull records an enqueue rejected by a full ring.
	ObserveEnqueueFull(priority types.PriorityLevel)
}

// NoOpMetrics discards all instrumentation.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a Metrics implementation that does nothing.
func NewNoOpMetrics() Metrics { return NoOpMetrics{} }

func (NoOpMetrics) ObserveEnqueue(types.PriorityLevel, int)                {}
func (NoOpMetrics) ObserveDequeue(types.PriorityLevel, time.Duration, int) {}
func (NoOpMetrics) ObserveTimeout(types.PriorityLevel)                     {}
func (NoOpMetrics) ObserveExpired(types.PriorityLevel, int)                {}
func (NoOpMetrics) ObserveEnqueueFull(types.PriorityLevel)                 {}
