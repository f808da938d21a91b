// Package compare ranks run snapshots from different platforms against
// each other. A report is built fresh from a set of snapshots and never
// mutated in place.
package compare

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/report"
)

// Comparison is one metric family: per-platform values plus, with two
// or more platforms, the best/worst callouts. Analysis stays nil for a
// singleton, where ranking is undefined.
type Comparison struct {
	Metrics  map[string]map[string]float64 `json:"metrics"`
	Analysis map[string]string             `json:"analysis,omitempty"`
}

// Summary bundles every family with a timestamp.
type Summary struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Platforms   []string   `json:"platforms"`
	Latency     Comparison `json:"latency"`
	Throughput  Comparison `json:"throughput"`
	Reliability Comparison `json:"reliability"`
	Resources   Comparison `json:"resource_usage"`
	Insights    []string   `json:"insights"`
}

// Analyzer holds loaded snapshots keyed by platform.
type Analyzer struct {
	snapshots map[string]report.Snapshot
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{
		snapshots: make(map[string]report.Snapshot),
		logger:    logger,
		now:       time.Now,
	}
}

// Load reads snapshot files, keyed by their platform field. A later
// file for the same platform replaces the earlier one.
func (a *Analyzer) Load(paths []string) error {
	for _, path := range paths {
		snap, err := report.LoadSnapshot(path)
		if err != nil {
			return err
		}
		if _, dup := a.snapshots[snap.Platform]; dup {
			a.logger.Warn("replacing earlier snapshot for platform",
				zap.String("platform", snap.Platform), zap.String("path", path))
		}
		a.snapshots[snap.Platform] = snap
	}
	return nil
}

// Platforms lists loaded platform names, sorted.
func (a *Analyzer) Platforms() []string {
	names := make([]string, 0, len(a.snapshots))
	for name := range a.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CompareLatency ranks mean and tail latency. Lower is better.
func (a *Analyzer) CompareLatency() Comparison {
	c := a.collect(func(s report.Snapshot) map[string]float64 {
		return map[string]float64{
			"mean_latency_ms": s.Run.MeanLatencyMS,
			"p50_latency_ms":  s.Run.P50LatencyMS,
			"p95_latency_ms":  s.Run.P95LatencyMS,
			"p99_latency_ms":  s.Run.P99LatencyMS,
		}
	})
	if len(a.snapshots) >= 2 {
		c.Analysis = map[string]string{
			"best_mean_latency": a.argBest("mean_latency_ms", c.Metrics, false),
			"best_p95_latency":  a.argBest("p95_latency_ms", c.Metrics, false),
		}
	}
	return c
}

// CompareThroughput ranks request rate. Higher is better.
func (a *Analyzer) CompareThroughput() Comparison {
	c := a.collect(func(s report.Snapshot) map[string]float64 {
		return map[string]float64{
			"throughput_rps": s.Run.ThroughputRPS,
			"total_requests": float64(s.Run.TotalRequests),
		}
	})
	if len(a.snapshots) >= 2 {
		c.Analysis = map[string]string{
			"best_throughput": a.argBest("throughput_rps", c.Metrics, true),
		}
	}
	return c
}

// CompareReliability ranks success rate. Higher is better.
func (a *Analyzer) CompareReliability() Comparison {
	c := a.collect(func(s report.Snapshot) map[string]float64 {
		return map[string]float64{
			"success_rate": s.Run.SuccessRate,
			"error_rate":   s.Run.ErrorRate,
		}
	})
	if len(a.snapshots) >= 2 {
		c.Analysis = map[string]string{
			"best_success_rate": a.argBest("success_rate", c.Metrics, true),
		}
	}
	return c
}

// CompareResourceUsage ranks host utilization. Lower is better.
func (a *Analyzer) CompareResourceUsage() Comparison {
	c := a.collect(func(s report.Snapshot) map[string]float64 {
		return map[string]float64{
			"cpu_percent":    s.Resources.CPUPercent,
			"memory_percent": s.Resources.MemoryPercent,
		}
	})
	if len(a.snapshots) >= 2 {
		c.Analysis = map[string]string{
			"lowest_cpu":    a.argBest("cpu_percent", c.Metrics, false),
			"lowest_memory": a.argBest("memory_percent", c.Metrics, false),
		}
	}
	return c
}

// GenerateInsights renders the rankings as human-readable strings.
func (a *Analyzer) GenerateInsights() []string {
	if len(a.snapshots) < 2 {
		return nil
	}

	var insights []string
	latency := a.CompareLatency()
	if best := latency.Analysis["best_mean_latency"]; best != "" {
		insights = append(insights, fmt.Sprintf(
			"%s has the lowest mean latency (%.1fms)",
			best, latency.Metrics[best]["mean_latency_ms"]))
	}
	throughput := a.CompareThroughput()
	if best := throughput.Analysis["best_throughput"]; best != "" {
		insights = append(insights, fmt.Sprintf(
			"%s sustains the highest throughput (%.1f req/s)",
			best, throughput.Metrics[best]["throughput_rps"]))
	}
	reliability := a.CompareReliability()
	if best := reliability.Analysis["best_success_rate"]; best != "" {
		insights = append(insights, fmt.Sprintf(
			"%s is the most reliable (%.1f%% success)",
			best, reliability.Metrics[best]["success_rate"]*100))
	}
	resources := a.CompareResourceUsage()
	if best := resources.Analysis["lowest_cpu"]; best != "" {
		insights = append(insights, fmt.Sprintf(
			"%s uses the least CPU (%.1f%%)",
			best, resources.Metrics[best]["cpu_percent"]))
	}
	return insights
}

// GenerateSummary bundles every family plus insights.
func (a *Analyzer) GenerateSummary() Summary {
	return Summary{
		GeneratedAt: a.now(),
		Platforms:   a.Platforms(),
		Latency:     a.CompareLatency(),
		Throughput:  a.CompareThroughput(),
		Reliability: a.CompareReliability(),
		Resources:   a.CompareResourceUsage(),
		Insights:    a.GenerateInsights(),
	}
}

func (a *Analyzer) collect(extract func(report.Snapshot) map[string]float64) Comparison {
	metrics := make(map[string]map[string]float64, len(a.snapshots))
	for name, snap := range a.snapshots {
		metrics[name] = extract(snap)
	}
	return Comparison{Metrics: metrics}
}

// argBest returns the platform with the extreme value of metric,
// maximizing when higher is true. Ties resolve to the first platform
// in sorted order so output is deterministic.
func (a *Analyzer) argBest(metric string, metrics map[string]map[string]float64, higher bool) string {
	var best string
	var bestVal float64
	for _, name := range a.Platforms() {
		val := metrics[name][metric]
		if best == "" || (higher && val > bestVal) || (!higher && val < bestVal) {
			best, bestVal = name, val
		}
	}
	return best
}
