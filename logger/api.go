package logger

import "github.com/ryswick/floodgate/types"

// Logger is the structured key/value logging interface used across the
// priority subsystem. Implementations must be safe for concurrent use.
// Context helpers return derived loggers; the receiver is never mutated.
type Logger interface {
	// Debugw logs a message with optional key-value pairs at debug level.
	Debugw(msg string, keysAndValues ...any)

	// Infow logs a message with optional key-value pairs at info level.
	Infow(msg string, keysAndValues ...any)

	// Warnw logs a message with optional key-value pairs at warn level.
	Warnw(msg string, keysAndValues ...any)

	// Errorw logs a message with optional key-value pairs at error level.
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs a message with optional key-value pairs and terminates the
	// process.
	Fatalw(msg string, keysAndValues ...any)

	// With returns a logger with the given key-value pairs added to its
	// persistent context.
	With(keysAndValues ...any) Logger

	// WithComponent returns a logger with a component name added to the context.
	WithComponent(name string) Logger

	// WithWorker returns a logger with a dispatch worker kind added to the context.
	WithWorker(kind types.WorkerKind) Logger

	// WithPriority returns a logger with a priority level added to the context.
	WithPriority(priority types.PriorityLevel) Logger

	// WithRequest returns a logger with a request ID added to the context.
	WithRequest(id types.RequestID) Logger
}
