package queue

import (
	"fmt"
	"time"

	"github.com/ryswick/floodgate/logger"
	"github.com/ryswick/floodgate/mempool"
	"github.com/ryswick/floodgate/types"
)

// Config holds the queue set's construction parameters.
type Config struct {
	// Capacities sets the ring capacity per priority level. A zero entry
	// receives DefaultQueueCapacity.
	Capacities [types.NumPriorityLevels]int

	// DefaultTimeout is the queue-residency timeout for non-emergency
	// requests. Zero means DefaultRequestTimeout.
	DefaultTimeout time.Duration

	// EmergencyTimeout is the residency timeout for emergency requests.
	// Zero means EmergencyRequestTimeout.
	EmergencyTimeout time.Duration

	// MaxBufferSize caps per-request buffers. Zero means
	// MaxRequestBufferSize.
	MaxBufferSize int

	// Allocator provides request and response buffers. Required.
	Allocator mempool.Allocator

	// Logger receives queue diagnostics. Defaults to a no-op logger.
	Logger logger.Logger

	// Metrics receives queue instrumentation. Defaults to no-op metrics.
	Metrics Metrics

	// Clock supplies time; swap for a mock in tests. Defaults to the
	// standard clock.
	Clock types.Clock

	// Monitoring enables statistics counters. Enabled by default via
	// DefaultConfig; a false value here after DefaultConfig means the caller
	// turned it off.
	Monitoring bool
}

// DefaultConfig returns the default queue configuration: small rings for the
// low-traffic critical levels, a large ring for normal traffic.
func DefaultConfig() Config {
	return Config{
		Capacities: [types.NumPriorityLevels]int{
			types.PriorityEmergency:      50,
			types.PriorityIoCritical:     100,
			types.PriorityAuthentication: 50,
			types.PriorityUiCritical:     100,
			types.PriorityNormal:         200,
			types.PriorityBackground:     100,
		},
		DefaultTimeout:   DefaultRequestTimeout,
		EmergencyTimeout: EmergencyRequestTimeout,
		MaxBufferSize:    MaxRequestBufferSize,
		Monitoring:       true,
	}
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	if c.Allocator == nil {
		return fmt.Errorf("queue: allocator is required")
	}
	for p, capacity := range c.Capacities {
		if capacity < 0 {
			return fmt.Errorf("queue: negative capacity %d for %s", capacity, types.PriorityLevel(p))
		}
	}
	if c.DefaultTimeout < 0 || c.EmergencyTimeout < 0 {
		return fmt.Errorf("queue: timeouts must be non-negative")
	}
	if c.MaxBufferSize < 0 {
		return fmt.Errorf("queue: max buffer size must be non-negative")
	}
	return nil
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	for p := range c.Capacities {
		if c.Capacities[p] == 0 {
			c.Capacities[p] = DefaultQueueCapacity
		}
	}
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = DefaultRequestTimeout
	}
	if c.EmergencyTimeout == 0 {
		c.EmergencyTimeout = EmergencyRequestTimeout
	}
	if c.MaxBufferSize == 0 {
		c.MaxBufferSize = MaxRequestBufferSize
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
	return c
}
