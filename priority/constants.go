package priority

import "time"

const (
	// DefaultHealthCheckInterval is how often worker loops verify queue
	// invariants.
	DefaultHealthCheckInterval = 30 * time.Second

	// DefaultStatsInterval is how often worker loops refresh aggregate
	// statistics.
	DefaultStatsInterval = 5 * time.Second

	// DefaultDequeueWait bounds a worker's blocking wait for new work before
	// it re-runs its periodic checks.
	DefaultDequeueWait = 100 * time.Millisecond

	// DefaultIdleSleep is the pause between polls when a worker's range is
	// empty.
	DefaultIdleSleep = 10 * time.Millisecond

	// DefaultHeavyOpThreshold marks an execution as heavy; workers yield the
	// CPU after exceeding it.
	DefaultHeavyOpThreshold = 500 * time.Millisecond

	// DefaultLoadSheddingThreshold is the queue-occupancy percentage above
	// which load is considered high.
	DefaultLoadSheddingThreshold = 80

	// DefaultAdmissionBufferSize is the request/response buffer size given to
	// contexts created at admission.
	DefaultAdmissionBufferSize = 4096

	// Simulated execution charges when no real executor is configured.
	simulatedEmergencyExec  = 10 * time.Millisecond
	simulatedBackgroundExec = 200 * time.Millisecond
	simulatedBaseExec       = 50 * time.Millisecond
)

// Rejection reasons surfaced to the transport layer.
const (
	ReasonEmergencyFiltered    = "emergency-mode-filtered"
	ReasonLoadSheddingFiltered = "load-shedding-filtered"
	ReasonQueueFull            = "queue-full"
	ReasonRateLimited          = "rate-limited"
)
