package priority

import (
	"fmt"
	"time"

	"github.com/ryswick/floodgate/classify"
	"github.com/ryswick/floodgate/logger"
	"github.com/ryswick/floodgate/queue"
	"github.com/ryswick/floodgate/types"
)

// Config holds the manager's construction parameters. The queue sub-config is
// consumed at init only; nothing here is mutable at runtime except through
// the manager's explicit toggles.
type Config struct {
	// Queue configures the underlying queue set. Queue.Allocator is
	// required.
	Queue queue.Config

	// Classifier maps requests to priorities. Nil means the built-in rules
	// with no overrides.
	Classifier *classify.Classifier

	// Executor runs dequeued requests. Nil means the simulated executor.
	Executor Executor

	// RateLimiter optionally gates admission ahead of the mode filters.
	// Nil disables rate limiting.
	RateLimiter RateLimiter

	// EnableEmergencyMode permits entering emergency mode. Default true.
	EnableEmergencyMode bool

	// EnableLoadBalancing permits load demotion at admission. Default true.
	EnableLoadBalancing bool

	// EnableLoadShedding permits the load-shedding mode toggle. Default
	// true.
	EnableLoadShedding bool

	// EnableStatistics turns statistics counting on. Default true.
	EnableStatistics bool

	// LoadSheddingThreshold is the load percentage above which demotion
	// kicks in. Zero means DefaultLoadSheddingThreshold.
	LoadSheddingThreshold int

	// HeavyOpThreshold marks executions after which the worker yields.
	// Zero means DefaultHeavyOpThreshold.
	HeavyOpThreshold time.Duration

	// AdmissionBufferSize is the buffer size for contexts created at
	// admission. Zero means DefaultAdmissionBufferSize.
	AdmissionBufferSize int

	// HealthCheckInterval, StatsInterval, DequeueWait and IdleSleep tune the
	// worker loops. Zero values take the package defaults.
	HealthCheckInterval time.Duration
	StatsInterval       time.Duration
	DequeueWait         time.Duration
	IdleSleep           time.Duration

	// Logger receives manager diagnostics. Defaults to a no-op logger.
	Logger logger.Logger

	// Metrics receives manager instrumentation. Defaults to no-op metrics.
	Metrics Metrics

	// Clock supplies time; swap for a mock in tests.
	Clock types.Clock
}

// DefaultConfig returns the default manager configuration. The caller must
// still supply Queue.Allocator.
func DefaultConfig() Config {
	return Config{
		Queue:                 queue.DefaultConfig(),
		EnableEmergencyMode:   true,
		EnableLoadBalancing:   true,
		EnableLoadShedding:    true,
		EnableStatistics:      true,
		LoadSheddingThreshold: DefaultLoadSheddingThreshold,
		HeavyOpThreshold:      DefaultHeavyOpThreshold,
		AdmissionBufferSize:   DefaultAdmissionBufferSize,
		HealthCheckInterval:   DefaultHealthCheckInterval,
		StatsInterval:         DefaultStatsInterval,
		DequeueWait:           DefaultDequeueWait,
		IdleSleep:             DefaultIdleSleep,
	}
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	if err := c.Queue.Validate(); err != nil {
		return err
	}
	if c.LoadSheddingThreshold < 0 || c.LoadSheddingThreshold > 100 {
		return fmt.Errorf("priority: load shedding threshold must be 0..100, got %d", c.LoadSheddingThreshold)
	}
	if c.HeavyOpThreshold < 0 || c.HealthCheckInterval < 0 || c.StatsInterval < 0 ||
		c.DequeueWait < 0 || c.IdleSleep < 0 {
		return fmt.Errorf("priority: intervals must be non-negative")
	}
	if c.AdmissionBufferSize < 0 {
		return fmt.Errorf("priority: admission buffer size must be non-negative")
	}
	return nil
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.LoadSheddingThreshold == 0 {
		c.LoadSheddingThreshold = DefaultLoadSheddingThreshold
	}
	if c.HeavyOpThreshold == 0 {
		c.HeavyOpThreshold = DefaultHeavyOpThreshold
	}
	if c.AdmissionBufferSize == 0 {
		c.AdmissionBufferSize = DefaultAdmissionBufferSize
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = DefaultStatsInterval
	}
	if c.DequeueWait == 0 {
		c.DequeueWait = DefaultDequeueWait
	}
	if c.IdleSleep == 0 {
		c.IdleSleep = DefaultIdleSleep
	}
	if c.Logger == nil {
		c.Logger = logger.NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = NewNoOpMetrics()
	}
	if c.Clock == nil {
		c.Clock = types.NewStandardClock()
	}
	if c.Classifier == nil {
		c.Classifier = classify.NewClassifier()
	}
	if c.Executor == nil {
		c.Executor = NewSimulatedExecutor(c.Clock)
	}
	if c.Queue.Logger == nil {
		c.Queue.Logger = c.Logger
	}
	if c.Queue.Clock == nil {
		c.Queue.Clock = c.Clock
	}
	c.Queue.Monitoring = c.EnableStatistics
	return c
}
