package mempool

import (
	"fmt"

	"github.com/ryswick/floodgate/logger"
)

const (
	// DefaultReliableCapacity is the default byte budget of the reliable region.
	DefaultReliableCapacity = 256 * 1024

	// DefaultExpansionCapacity is the default byte budget of the expansion region.
	DefaultExpansionCapacity = 4 * 1024 * 1024
)

// Config holds the allocator's region budgets.
type Config struct {
	// ReliableCapacity is the byte budget of the reliable region.
	ReliableCapacity int

	// ExpansionCapacity is the byte budget of the expansion region. Zero
	// disables the expansion region entirely; tiers that prefer it fall back
	// to the reliable region.
	ExpansionCapacity int

	// Logger receives allocator diagnostics. Defaults to a no-op logger.
	Logger logger.Logger
}

// DefaultConfig returns a Config with default region budgets.
func DefaultConfig() Config {
	return Config{
		ReliableCapacity:  DefaultReliableCapacity,
		ExpansionCapacity: DefaultExpansionCapacity,
	}
}

// Validate checks the configuration for structural errors.
func (c Config) Validate() error {
	if c.ReliableCapacity <= 0 {
		return fmt.Errorf("mempool: reliable capacity must be positive, got %d", c.ReliableCapacity)
	}
	if c.ExpansionCapacity < 0 {
		return fmt.Errorf("mempool: expansion capacity must be non-negative, got %d", c.ExpansionCapacity)
	}
	return nil
}
