// Package analysis turns raw trace timings into latency breakdowns,
// bottleneck attributions and advisory recommendations.
package analysis

import (
	"fmt"
	"sort"

	"github.com/FairForge/geniebench/internal/stats"
	"github.com/FairForge/geniebench/internal/trace"
)

// Config holds bottleneck detection thresholds.
type Config struct {
	// A stage is a bottleneck only when both conditions hold, so that
	// inherently-slow-but-proportionally-small stages are not flagged.
	BottleneckSharePercent float64
	BottleneckFloorMS      float64

	// Recommendation thresholds.
	P95CeilingMS   float64
	MinSuccessRate float64
}

// DefaultConfig returns sensible defaults for analysis.
func DefaultConfig() *Config {
	return &Config{
		BottleneckSharePercent: 30,
		BottleneckFloorMS:      500,
		P95CeilingMS:           5000,
		MinSuccessRate:         0.95,
	}
}

// EventStats aggregates one event name across traces.
type EventStats struct {
	Count        int     `json:"count"`
	MeanMS       float64 `json:"mean_ms"`
	P95MS        float64 `json:"p95_ms"`
	P99MS        float64 `json:"p99_ms"`
	TotalMS      float64 `json:"total_ms"`
	ShareOfTotal float64 `json:"percentage_of_total"`
}

// Bottleneck is a stage exceeding both share and absolute thresholds.
type Bottleneck struct {
	Event        string  `json:"event"`
	MeanMS       float64 `json:"mean_latency_ms"`
	ShareOfTotal float64 `json:"percentage_of_total"`
}

// Breakdown is the full latency attribution over a set of traces.
type Breakdown struct {
	TotalTraces int                   `json:"total_traces"`
	MeanTotalMS float64               `json:"mean_total_latency_ms"`
	EventStats  map[string]EventStats `json:"event_breakdown"`
	Bottlenecks []Bottleneck          `json:"bottlenecks"`
}

// Signals feeds GenerateRecommendations.
type Signals struct {
	Bottlenecks     []Bottleneck
	P95LatencyMS    float64
	SuccessRate     float64
	TopFailingStage string
}

// Analyzer computes latency breakdowns and recommendations. It never
// retries or mutates anything; its output is advisory text.
type Analyzer struct {
	config *Config
}

// NewAnalyzer creates an analyzer with the given config.
func NewAnalyzer(config *Config) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Analyzer{config: config}
}

// AnalyzeLatencyBreakdown computes, for each event name across traces,
// its average contribution and its share of total trace duration, and
// flags bottlenecks per the configured thresholds.
func (a *Analyzer) AnalyzeLatencyBreakdown(traces []trace.Summary) Breakdown {
	b := Breakdown{EventStats: make(map[string]EventStats)}
	if len(traces) == 0 {
		return b
	}

	byEvent := make(map[string][]float64)
	var totalSum float64
	for _, t := range traces {
		totalSum += t.TotalDurationMS
		for _, ev := range t.Events {
			byEvent[ev.Name] = append(byEvent[ev.Name], ev.DurationMS)
		}
	}

	b.TotalTraces = len(traces)
	b.MeanTotalMS = totalSum / float64(len(traces))

	for name, samples := range byEvent {
		summary := stats.Summarize(samples)
		es := EventStats{
			Count:  summary.Count,
			MeanMS: summary.MeanMS,
			P95MS:  summary.P95MS,
			P99MS:  summary.P99MS,
		}
		var eventTotal float64
		for _, s := range samples {
			eventTotal += s
		}
		es.TotalMS = eventTotal
		if totalSum > 0 {
			es.ShareOfTotal = eventTotal / totalSum * 100
		}
		b.EventStats[name] = es

		if es.ShareOfTotal > a.config.BottleneckSharePercent && es.MeanMS > a.config.BottleneckFloorMS {
			b.Bottlenecks = append(b.Bottlenecks, Bottleneck{
				Event:        name,
				MeanMS:       es.MeanMS,
				ShareOfTotal: es.ShareOfTotal,
			})
		}
	}

	// Largest share first.
	sort.Slice(b.Bottlenecks, func(i, j int) bool {
		return b.Bottlenecks[i].ShareOfTotal > b.Bottlenecks[j].ShareOfTotal
	})

	return b
}

// GenerateRecommendations applies a deterministic rule set to the given
// signals and returns advisory strings.
func (a *Analyzer) GenerateRecommendations(s Signals) []string {
	var recs []string

	if len(s.Bottlenecks) > 0 {
		top := s.Bottlenecks[0]
		recs = append(recs, fmt.Sprintf(
			"Optimize %s - accounts for %.1f%% of total latency (mean %.0fms); consider caching or parallelizing this stage",
			top.Event, top.ShareOfTotal, top.MeanMS))
	}

	if s.P95LatencyMS > a.config.P95CeilingMS {
		recs = append(recs, fmt.Sprintf(
			"P95 latency (%.0fms) exceeds the %.0fms ceiling - consider optimization",
			s.P95LatencyMS, a.config.P95CeilingMS))
	}

	if s.SuccessRate < a.config.MinSuccessRate {
		msg := fmt.Sprintf("Success rate (%.1f%%) is below %.0f%% - investigate errors",
			s.SuccessRate*100, a.config.MinSuccessRate*100)
		if s.TopFailingStage != "" {
			msg += fmt.Sprintf("; most frequent failing stage: %s", s.TopFailingStage)
		}
		recs = append(recs, msg)
	}

	return recs
}
