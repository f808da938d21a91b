// Package stats provides shared latency statistics helpers.
package stats

import (
	"math"
	"sort"
)

// Summary holds aggregate statistics over a set of latency samples.
type Summary struct {
	Count  int     `json:"count"`
	MeanMS float64 `json:"mean_ms"`
	MinMS  float64 `json:"min_ms"`
	MaxMS  float64 `json:"max_ms"`
	P50MS  float64 `json:"p50_ms"`
	P95MS  float64 `json:"p95_ms"`
	P99MS  float64 `json:"p99_ms"`
}

// Percentile returns the nearest-rank percentile of sorted (ascending):
// the value at rank ceil(p/100 * n), 1-indexed. Returns 0 for an empty sample.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// Summarize computes count, mean, min, max and p50/p95/p99 over samples.
// The input is not modified.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Count:  len(sorted),
		MeanMS: sum / float64(len(sorted)),
		MinMS:  sorted[0],
		MaxMS:  sorted[len(sorted)-1],
		P50MS:  Percentile(sorted, 50),
		P95MS:  Percentile(sorted, 95),
		P99MS:  Percentile(sorted, 99),
	}
}
