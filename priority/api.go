package priority

import (
	"context"

	"github.com/ryswick/floodgate/queue"
	"github.com/ryswick/floodgate/types"
)

// Executor runs one dequeued request. Workers call it with a context that is
// cancelled on shutdown; implementations should return promptly when it is.
// The real implementation dispatches to the application's controllers; the
// default SimulatedExecutor just charges a priority-dependent delay.
type Executor interface {
	Execute(ctx context.Context, rc *queue.RequestContext) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, rc *queue.RequestContext) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, rc *queue.RequestContext) error {
	return f(ctx, rc)
}

// SimulatedExecutor models request execution as a fixed delay per priority:
// fast for emergencies, slow for background work.
type SimulatedExecutor struct {
	clock types.Clock
}

// NewSimulatedExecutor returns the default executor.
func NewSimulatedExecutor(clock types.Clock) *SimulatedExecutor {
	if clock == nil {
		clock = types.NewStandardClock()
	}
	return &SimulatedExecutor{clock: clock}
}

// Execute sleeps for the simulated execution time of the request's priority.
func (e *SimulatedExecutor) Execute(ctx context.Context, rc *queue.RequestContext) error {
	d := simulatedBaseExec
	switch rc.Priority() {
	case types.PriorityEmergency:
		d = simulatedEmergencyExec
	case types.PriorityBackground:
		d = simulatedBackgroundExec
	}

	timer := e.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
