package priority

import (
	"time"

	"github.com/ryswick/floodgate/types"
)

// Metrics receives manager instrumentation events. Implementations must be
// safe for concurrent use. The prometheus-backed implementation lives in the
// metrics package; NoOpMetrics is the default.
type Metrics interface {
	// ObserveAdmission records an admitted request at its final (possibly
	// demoted) priority.
	ObserveAdmission(priority types.PriorityLevel)

	// ObserveRejection records a rejected admission by reason.
	ObserveRejection(reason string)

	// ObserveDemotion records a load demotion from one priority to another.
	ObserveDemotion(from, to types.PriorityLevel)

	// ObserveExecution records a completed execution and its duration.
	ObserveExecution(priority types.PriorityLevel, d time.Duration)

	// ObserveModeChange records a system mode transition.
	ObserveModeChange(from, to types.SystemMode)

	// ObserveSystemLoad records the current load percentage.
	ObserveSystemLoad(percent int)
}

// NoOpMetrics discards all instrumentation.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a Metrics implementation that does nothing.
func NewNoOpMetrics() Metrics { return NoOpMetrics{} }

func (NoOpMetrics) ObserveAdmission(types.PriorityLevel)                     {}
func (NoOpMetrics) ObserveRejection(string)                                  {}
func (NoOpMetrics) ObserveDemotion(types.PriorityLevel, types.PriorityLevel) {}
func (NoOpMetrics) ObserveExecution(types.PriorityLevel, time.Duration)      {}
func (NoOpMetrics) ObserveModeChange(types.SystemMode, types.SystemMode)     {}
func (NoOpMetrics) ObserveSystemLoad(int)                                    {}
