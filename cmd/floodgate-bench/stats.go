package main

import (
	"math"
	"sort"
	"time"
)

// LatencyStats summarizes a set of admission latencies.
type LatencyStats struct {
	Count  int64  `json:"count"`
	Mean   string `json:"mean"`
	Median string `json:"median"`
	P90    string `json:"p90"`
	P99    string `json:"p99"`
	Min    string `json:"min"`
	Max    string `json:"max"`
	StdDev string `json:"std_dev"`
}

// calculateLatencyStats computes summary statistics from raw samples.
func calculateLatencyStats(latencies []time.Duration) LatencyStats {
	if len(latencies) == 0 {
		return LatencyStats{}
	}

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, lat := range latencies {
		sum += lat
	}
	n := len(latencies)
	mean := sum / time.Duration(n)

	var variance float64
	for _, lat := range latencies {
		diff := float64(lat - mean)
		variance += diff * diff
	}
	variance /= float64(n)
	stdDev := time.Duration(math.Sqrt(variance))

	return LatencyStats{
		Count:  int64(n),
		Mean:   mean.String(),
		Median: percentile(latencies, 50).String(),
		P90:    percentile(latencies, 90).String(),
		P99:    percentile(latencies, 99).String(),
		Min:    latencies[0].String(),
		Max:    latencies[n-1].String(),
		StdDev: stdDev.String(),
	}
}

// percentile returns the specified percentile from a sorted duration slice,
// interpolating between adjacent samples.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := p / 100.0 * float64(len(sorted))
	if index == math.Floor(index) {
		idx := int(index) - 1
		if idx < 0 {
			idx = 0
		}
		return sorted[idx]
	}

	lower := int(math.Floor(index)) - 1
	upper := int(math.Ceil(index)) - 1
	if lower < 0 {
		lower = 0
	}
	if upper >= len(sorted) {
		upper = len(sorted) - 1
	}
	if lower == upper {
		return sorted[lower]
	}

	fraction := index - math.Floor(index)
	lowerVal := float64(sorted[lower])
	upperVal := float64(sorted[upper])
	return time.Duration(lowerVal + fraction*(upperVal-lowerVal))
}
