package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ryswick/floodgate/types"
)

// ZapLogger adapts a zap.SugaredLogger to the Logger interface. It is the
// implementation intended for production binaries; StdLogger remains available
// for environments where zap is not wanted.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a production zap logger filtered at the given minimum
// level string ("debug", "info", "warn", "error", "fatal").
func NewZapLogger(minLevelStr string) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(minLevelStr))
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: zl.Sugar()}, nil
}

// NewZapLoggerWith wraps an existing zap logger. Useful when the owning
// application already configures zap and wants the subsystem to share it.
func NewZapLoggerWith(zl *zap.Logger) Logger {
	return &ZapLogger{sugar: zl.Sugar()}
}

// zapLevel maps a level string to a zapcore.Level. Defaults to info.
func zapLevel(levelStr string) zapcore.Level {
	switch parseLogLevel(levelStr) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Debugw(msg string, kvs ...any) { l.sugar.Debugw(msg, kvs...) }
func (l *ZapLogger) Infow(msg string, kvs ...any)  { l.sugar.Infow(msg, kvs...) }
func (l *ZapLogger) Warnw(msg string, kvs ...any)  { l.sugar.Warnw(msg, kvs...) }
func (l *ZapLogger) Errorw(msg string, kvs ...any) { l.sugar.Errorw(msg, kvs...) }
func (l *ZapLogger) Fatalw(msg string, kvs ...any) { l.sugar.Fatalw(msg, kvs...) }

// With adds key-value pairs to the logger’s context.
func (l *ZapLogger) With(kvs ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(kvs...)}
}

// WithComponent returns a logger with a component name added to the context.
func (l *ZapLogger) WithComponent(name string) Logger {
	return &ZapLogger{sugar: l.sugar.With("component", name)}
}

// WithWorker returns a logger with a dispatch worker kind added to the context.
func (l *ZapLogger) WithWorker(kind types.WorkerKind) Logger {
	return &ZapLogger{sugar: l.sugar.With("worker", kind.String())}
}

// WithPriority returns a logger with a priority level added to the context.
func (l *ZapLogger) WithPriority(priority types.PriorityLevel) Logger {
	return &ZapLogger{sugar: l.sugar.With("priority", priority.String())}
}

// WithRequest returns a logger with a request ID added to the context.
func (l *ZapLogger) WithRequest(id types.RequestID) Logger {
	return &ZapLogger{sugar: l.sugar.With("request", string(id))}
}
