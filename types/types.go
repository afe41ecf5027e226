package types

// PriorityLevel classifies a request by urgency. Lower values are more urgent.
// The levels form a closed, totally ordered set and are used both as queue
// selectors and as array indices.
type PriorityLevel int

const (
	// PriorityEmergency covers emergency stops and safety shutdowns.
	PriorityEmergency PriorityLevel = iota

	// PriorityIoCritical covers real-time IO operations.
	PriorityIoCritical

	// PriorityAuthentication covers login and logout operations.
	PriorityAuthentication

	// PriorityUiCritical covers dashboard updates and status checks.
	PriorityUiCritical

	// PriorityNormal covers standard web requests.
	PriorityNormal

	// PriorityBackground covers logging, statistics and file uploads.
	PriorityBackground

	// NumPriorityLevels is the number of priority levels. It is not itself a
	// valid level; arrays indexed by PriorityLevel are sized with it.
	NumPriorityLevels
)

// SystemMode is the global admission-policy state of the priority system.
type SystemMode int

const (
	// ModeNormal is the default operating mode; all priorities are admitted.
	ModeNormal SystemMode = iota

	// ModeEmergency admits only Emergency and IoCritical requests.
	ModeEmergency

	// ModeLoadShedding rejects Background admissions under sustained load.
	ModeLoadShedding

	// ModeMaintenance limits processing while the system is serviced.
	ModeMaintenance
)

// WorkerKind identifies one of the fixed dispatch workers. Each worker owns a
// contiguous range of priority levels.
type WorkerKind int

const (
	// WorkerCritical drains Emergency and IoCritical.
	WorkerCritical WorkerKind = iota

	// WorkerNormal drains Authentication and UiCritical.
	WorkerNormal

	// WorkerBackground drains Normal and Background.
	WorkerBackground

	// NumWorkerKinds is the number of dispatch workers.
	NumWorkerKinds
)

// RequestID uniquely identifies a request context for tracking and logging.
type RequestID string

// RequestHandle is the opaque handle to a request accepted from the transport
// layer. The priority subsystem never inspects the transport beyond the URI
// and method used for classification.
type RequestHandle interface {
	// URI returns the request target path, including any query string.
	URI() string

	// Method returns the request method (GET, POST, PUT, DELETE, ...).
	Method() string
}
