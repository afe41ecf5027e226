package priority

import (
	"errors"

	"github.com/ryswick/floodgate/queue"
)

var (
	// ErrEmergencyFiltered indicates the request was rejected because only
	// critical traffic is admitted during emergencies.
	ErrEmergencyFiltered = errors.New("priority: rejected by emergency mode filter")

	// ErrLoadSheddingFiltered indicates a background request was rejected
	// while load shedding is active.
	ErrLoadSheddingFiltered = errors.New("priority: rejected by load shedding filter")

	// ErrQueueFull indicates the target queue was at capacity; the request
	// was dropped.
	ErrQueueFull = errors.New("priority: target queue is full")

	// ErrRateLimited indicates the admission rate limiter rejected the
	// request.
	ErrRateLimited = errors.New("priority: admission rate limit exceeded")

	// ErrNoMemory indicates the request context could not be allocated.
	ErrNoMemory = errors.New("priority: out of memory for request")

	// ErrNotRunning indicates the manager has not been started or has been
	// stopped.
	ErrNotRunning = errors.New("priority: manager is not running")

	// ErrAlreadyRunning indicates Start was called twice.
	ErrAlreadyRunning = errors.New("priority: manager already running")

	// ErrStopped indicates the manager was stopped; managers are single-use.
	ErrStopped = errors.New("priority: manager has been stopped")

	// ErrInvalidMode indicates an unknown system mode.
	ErrInvalidMode = errors.New("priority: invalid system mode")

	// ErrInvalidTransition indicates a mode change the state machine does
	// not allow.
	ErrInvalidTransition = errors.New("priority: invalid system mode transition")

	// ErrNotInEmergency indicates an emergency exit without emergency mode
	// being active.
	ErrNotInEmergency = errors.New("priority: not in emergency mode")

	// ErrInvalidPriority indicates a priority outside the configured levels.
	ErrInvalidPriority = errors.New("priority: invalid priority level")

	// ErrNilHandle indicates a nil request handle.
	ErrNilHandle = errors.New("priority: nil request handle")
)

// RejectionReason maps an admission error to its transport-facing reason
// string. Returns "" for errors that are not admission rejections.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrEmergencyFiltered):
		return ReasonEmergencyFiltered
	case errors.Is(err, ErrLoadSheddingFiltered):
		return ReasonLoadSheddingFiltered
	case errors.Is(err, ErrQueueFull), errors.Is(err, queue.ErrQueueFull):
		return ReasonQueueFull
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	default:
		return ""
	}
}
