package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/ryswick/floodgate/mempool"
)

// Config holds the benchmark parameters.
type Config struct {
	// Duration is how long the load phase runs.
	Duration time.Duration `json:"duration"`

	// Rate is the target admission rate in requests per second across all
	// workers.
	Rate int `json:"rate"`

	// Burst is the rate limiter burst. Defaults to Rate/10 when zero.
	Burst int `json:"burst"`

	// Workers is the number of concurrent submitter goroutines.
	Workers int `json:"workers"`

	// ReliableCapacity and ExpansionCapacity size the memory regions backing
	// request buffers.
	ReliableCapacity  int `json:"reliable_capacity"`
	ExpansionCapacity int `json:"expansion_capacity"`

	// EmergencyAfter, when positive, switches the manager into emergency mode
	// that far into the run; EmergencyHold is how long it stays there. Both
	// zero means the mode state machine is left alone.
	EmergencyAfter time.Duration `json:"emergency_after"`
	EmergencyHold  time.Duration `json:"emergency_hold"`

	// ExecutionTime is the simulated per-request execution cost. Zero keeps
	// the executor's built-in per-priority costs.
	ExecutionTime time.Duration `json:"execution_time"`

	// OutputFormat is "text" or "json"; OutputFile defaults to stdout.
	OutputFormat string `json:"output_format"`
	OutputFile   string `json:"output_file"`

	// Seed fixes the traffic mix RNG for reproducible runs. Zero seeds from
	// the current time.
	Seed int64 `json:"seed"`

	// Verbose enables manager debug logging during the run.
	Verbose bool `json:"verbose"`
}

func defaultBenchConfig() *Config {
	return &Config{
		Duration:          30 * time.Second,
		Rate:              500,
		Workers:           8,
		ReliableCapacity:  mempool.DefaultReliableCapacity,
		ExpansionCapacity: mempool.DefaultExpansionCapacity,
		OutputFormat:      "text",
	}
}

func parseConfig() (*Config, error) {
	cfg := defaultBenchConfig()

	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "load phase duration")
	flag.IntVar(&cfg.Rate, "rate", cfg.Rate, "target admissions per second")
	flag.IntVar(&cfg.Burst, "burst", cfg.Burst, "pacing burst (default rate/10)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitter goroutines")
	flag.IntVar(&cfg.ReliableCapacity, "reliable-capacity", cfg.ReliableCapacity, "reliable region size in bytes")
	flag.IntVar(&cfg.ExpansionCapacity, "expansion-capacity", cfg.ExpansionCapacity, "expansion region size in bytes")
	flag.DurationVar(&cfg.EmergencyAfter, "emergency-after", cfg.EmergencyAfter, "enter emergency mode this far into the run (0 disables)")
	flag.DurationVar(&cfg.EmergencyHold, "emergency-hold", cfg.EmergencyHold, "how long to hold emergency mode")
	flag.DurationVar(&cfg.ExecutionTime, "execution-time", cfg.ExecutionTime, "fixed simulated execution cost (0 uses per-priority defaults)")
	flag.StringVar(&cfg.OutputFormat, "output", cfg.OutputFormat, "report format: text or json")
	flag.StringVar(&cfg.OutputFile, "output-file", cfg.OutputFile, "report file path (default stdout)")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "traffic mix RNG seed (0 seeds from time)")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable debug logging")
	flag.Parse()

	return cfg, nil
}

// Validate checks the parameters for logical consistency.
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if c.Duration > 30*time.Minute {
		return errors.New("duration should not exceed 30 minutes")
	}
	if c.Rate <= 0 {
		return errors.New("rate must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.Workers > 256 {
		return errors.New("workers should not exceed 256")
	}
	if c.ReliableCapacity <= 0 {
		return errors.New("reliable capacity must be positive")
	}
	if c.ExpansionCapacity < 0 {
		return errors.New("expansion capacity must be non-negative")
	}
	if c.EmergencyAfter < 0 || c.EmergencyHold < 0 {
		return errors.New("emergency timings must be non-negative")
	}
	if c.EmergencyAfter > 0 && c.EmergencyAfter >= c.Duration {
		return errors.New("emergency-after must fall inside the run duration")
	}
	switch c.OutputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q", c.OutputFormat)
	}
	return nil
}
