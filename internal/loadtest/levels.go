package loadtest

import (
	"sort"
	"sync"
	"time"

	"github.com/FairForge/geniebench/internal/stats"
)

// levelCollector groups stress-test outcomes by the integer RPS level
// in effect at dispatch time.
type levelCollector struct {
	mu    sync.Mutex
	byRPS map[int]*levelBucket
}

type levelBucket struct {
	total     int64
	success   int64
	failure   int64
	latencies []float64
}

func newLevelCollector() *levelCollector {
	return &levelCollector{byRPS: make(map[int]*levelBucket)}
}

func (l *levelCollector) add(level int, res ScenarioResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.byRPS[level]
	if b == nil {
		b = &levelBucket{}
		l.byRPS[level] = b
	}
	b.total++
	if res.Success {
		b.success++
	} else {
		b.failure++
	}
	b.latencies = append(b.latencies, float64(res.Latency)/float64(time.Millisecond))
}

func (l *levelCollector) sortedLevels() []int {
	l.mu.Lock()
	defer l.mu.Unlock()

	levels := make([]int, 0, len(l.byRPS))
	for rps := range l.byRPS {
		levels = append(levels, rps)
	}
	sort.Ints(levels)
	return levels
}

// results renders one per-level RunResult slice of the final report.
func (l *levelCollector) results() map[int]RunResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[int]RunResult, len(l.byRPS))
	for rps, b := range l.byRPS {
		r := RunResult{
			Mode:               "stress_level",
			TotalRequests:      b.total,
			SuccessfulRequests: b.success,
			FailedRequests:     b.failure,
		}
		if b.total > 0 {
			r.SuccessRate = float64(b.success) / float64(b.total)
			r.ErrorRate = float64(b.failure) / float64(b.total)
		}
		summary := stats.Summarize(b.latencies)
		r.MeanLatencyMS = summary.MeanMS
		r.MinLatencyMS = summary.MinMS
		r.MaxLatencyMS = summary.MaxMS
		r.P50LatencyMS = summary.P50MS
		r.P95LatencyMS = summary.P95MS
		r.P99LatencyMS = summary.P99MS
		out[rps] = r
	}
	return out
}
