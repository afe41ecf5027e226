package queue

import "time"

const (
	// MaxRequestBufferSize caps the per-request buffer size. Larger requests
	// are clamped, not rejected.
	MaxRequestBufferSize = 16 * 1024

	// FallbackBufferSize is the reduced buffer size used when the preferred
	// allocation tier is exhausted.
	FallbackBufferSize = 4 * 1024

	// DefaultRequestTimeout is the queue-residency timeout applied to
	// non-emergency requests when the config leaves it unset.
	DefaultRequestTimeout = 30 * time.Second

	// EmergencyRequestTimeout is the fixed, shorter residency timeout for
	// emergency requests.
	EmergencyRequestTimeout = 5 * time.Second

	// DefaultQueueCapacity is applied to any priority level whose capacity is
	// left unset in the config.
	DefaultQueueCapacity = 100

	// statsLockTimeout bounds how long a statistics snapshot waits for a
	// queue lock before reporting a soft failure.
	statsLockTimeout = 100 * time.Millisecond

	// statsLockRetryInterval is the poll interval while waiting for a
	// contended queue lock during a snapshot.
	statsLockRetryInterval = time.Millisecond

	// RequestIDPrefix prefixes every generated request ID.
	RequestIDPrefix = "req_"
)
