package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ryswick/floodgate/priority"
	"github.com/ryswick/floodgate/types"
)

// PriorityReport is the per-priority slice of the final report.
type PriorityReport struct {
	Priority          string `json:"priority"`
	Admitted          uint64 `json:"admitted"`
	Processed         uint64 `json:"processed"`
	Dropped           uint64 `json:"dropped"`
	Demoted           uint64 `json:"demoted"`
	AverageProcessing string `json:"average_processing"`
}

// Report is the benchmark outcome in both renderable forms.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Config      *Config          `json:"config"`
	Elapsed     string           `json:"elapsed"`
	Submitted   int64            `json:"submitted"`
	Admitted    int64            `json:"admitted"`
	Rejections  map[string]int64 `json:"rejections"`
	Failures    int64            `json:"failures"`
	Flushed     int              `json:"flushed"`
	Throughput  float64          `json:"throughput_per_sec"`
	Admission   LatencyStats     `json:"admission_latency"`
	FinalMode   string           `json:"final_mode"`
	SystemLoad  int              `json:"system_load"`
	Processed   uint64           `json:"total_processed"`
	PerPriority []PriorityReport `json:"per_priority"`
}

func buildReport(cfg *Config, elapsed time.Duration, res workerResult, flushed int, stats priority.Stats) *Report {
	r := &Report{
		GeneratedAt: time.Now(),
		Config:      cfg,
		Elapsed:     elapsed.String(),
		Submitted:   int64(len(res.latencies)),
		Admitted:    res.admitted,
		Rejections:  res.rejections,
		Failures:    res.failures,
		Flushed:     flushed,
		Admission:   calculateLatencyStats(res.latencies),
		FinalMode:   stats.Mode.String(),
		SystemLoad:  stats.SystemLoad,
		Processed:   stats.TotalProcessed,
	}
	if elapsed > 0 {
		r.Throughput = float64(res.admitted) / elapsed.Seconds()
	}

	for p := types.PriorityLevel(0); p < types.NumPriorityLevels; p++ {
		counters := stats.PerPriority[p]
		if counters.Requests == 0 && counters.Processed == 0 {
			continue
		}
		r.PerPriority = append(r.PerPriority, PriorityReport{
			Priority:          p.String(),
			Admitted:          counters.Requests,
			Processed:         counters.Processed,
			Dropped:           counters.Dropped,
			Demoted:           counters.Demoted,
			AverageProcessing: counters.AverageProcessing.String(),
		})
	}
	return r
}

// write renders the report to the configured destination.
func (r *Report) write(cfg *Config) error {
	var out io.Writer = os.Stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch cfg.OutputFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return r.writeText(out)
	}
}

func (r *Report) writeText(w io.Writer) error {
	fmt.Fprintf(w, "floodgate benchmark (%s)\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "elapsed:      %s\n", r.Elapsed)
	fmt.Fprintf(w, "submitted:    %d\n", r.Submitted)
	fmt.Fprintf(w, "admitted:     %d (%.1f/s)\n", r.Admitted, r.Throughput)
	fmt.Fprintf(w, "failures:     %d\n", r.Failures)
	fmt.Fprintf(w, "flushed:      %d\n", r.Flushed)
	fmt.Fprintf(w, "processed:    %d\n", r.Processed)
	fmt.Fprintf(w, "final mode:   %s (load %d%%)\n", r.FinalMode, r.SystemLoad)

	if len(r.Rejections) > 0 {
		fmt.Fprintln(w, "\nrejections:")
		for reason, n := range r.Rejections {
			fmt.Fprintf(w, "  %-28s %d\n", reason, n)
		}
	}

	fmt.Fprintln(w, "\nadmission latency:")
	fmt.Fprintf(w, "  mean %s  median %s  p90 %s  p99 %s  max %s\n",
		r.Admission.Mean, r.Admission.Median, r.Admission.P90, r.Admission.P99, r.Admission.Max)

	if len(r.PerPriority) > 0 {
		fmt.Fprintln(w, "\nper-priority:")
		fmt.Fprintf(w, "  %-16s %10s %10s %8s %8s %14s\n",
			"priority", "admitted", "processed", "dropped", "demoted", "avg exec")
		for _, p := range r.PerPriority {
			fmt.Fprintf(w, "  %-16s %10d %10d %8d %8d %14s\n",
				p.Priority, p.Admitted, p.Processed, p.Dropped, p.Demoted, p.AverageProcessing)
		}
	}
	return nil
}
