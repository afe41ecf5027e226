package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryswick/floodgate/mempool"
)

func TestDefaultBenchConfig_Valid(t *testing.T) {
	cfg := defaultBenchConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, mempool.DefaultReliableCapacity, cfg.ReliableCapacity)
	assert.Equal(t, mempool.DefaultExpansionCapacity, cfg.ExpansionCapacity)
}

// The capacity fields must carry the allocator config's type so the flag
// values flow into mempool.Config without conversion.
func TestConfig_CapacitiesFeedAllocatorConfig(t *testing.T) {
	cfg := defaultBenchConfig()
	mcfg := mempool.Config{
		ReliableCapacity:  cfg.ReliableCapacity,
		ExpansionCapacity: cfg.ExpansionCapacity,
	}
	require.NoError(t, mcfg.Validate())

	alloc, err := mempool.NewArenaAllocator(mcfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.ReliableCapacity, alloc.Stats().Reliable.Capacity)
	assert.Equal(t, cfg.ExpansionCapacity, alloc.Stats().Expansion.Capacity)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "zero duration",
			mutate:  func(c *Config) { c.Duration = 0 },
			wantErr: "duration must be positive",
		},
		{
			name:    "zero rate",
			mutate:  func(c *Config) { c.Rate = 0 },
			wantErr: "rate must be positive",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Workers = 0 },
			wantErr: "workers must be positive",
		},
		{
			name:    "zero reliable capacity",
			mutate:  func(c *Config) { c.ReliableCapacity = 0 },
			wantErr: "reliable capacity must be positive",
		},
		{
			name:    "negative reliable capacity",
			mutate:  func(c *Config) { c.ReliableCapacity = -1 },
			wantErr: "reliable capacity must be positive",
		},
		{
			name:    "negative expansion capacity",
			mutate:  func(c *Config) { c.ExpansionCapacity = -1 },
			wantErr: "expansion capacity must be non-negative",
		},
		{
			name:    "emergency after run end",
			mutate:  func(c *Config) { c.EmergencyAfter = time.Hour },
			wantErr: "emergency-after must fall inside the run duration",
		},
		{
			name:    "unknown output format",
			mutate:  func(c *Config) { c.OutputFormat = "xml" },
			wantErr: `unknown output format "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultBenchConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
