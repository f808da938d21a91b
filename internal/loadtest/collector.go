package loadtest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/FairForge/geniebench/internal/stats"
)

// collector is the single shared resource mutated by workers: lock-free
// counters plus a mutex-guarded latency sample list. One collector is
// scoped to one run and passed by reference to every worker.
type collector struct {
	total   atomic.Int64
	success atomic.Int64
	failure atomic.Int64
	skipped atomic.Int64

	mu             sync.Mutex
	latencies      []float64
	errors         map[string]int64
	firstDispatch  time.Time
	lastCompletion time.Time
}

func newCollector() *collector {
	return &collector{errors: make(map[string]int64)}
}

// markDispatch records the time of the first dispatched invocation.
func (c *collector) markDispatch(t time.Time) {
	c.mu.Lock()
	if c.firstDispatch.IsZero() || t.Before(c.firstDispatch) {
		c.firstDispatch = t
	}
	c.mu.Unlock()
}

// add appends one scenario outcome.
func (c *collector) add(res ScenarioResult, completed time.Time) {
	c.total.Add(1)
	if res.Success {
		c.success.Add(1)
	} else {
		c.failure.Add(1)
	}

	c.mu.Lock()
	c.latencies = append(c.latencies, float64(res.Latency)/float64(time.Millisecond))
	if res.Err != nil {
		key := res.Err.Error()
		if len(key) > 100 {
			key = key[:100]
		}
		c.errors[key]++
	}
	if completed.After(c.lastCompletion) {
		c.lastCompletion = completed
	}
	c.mu.Unlock()
}

// result builds the final RunResult. Throughput uses wall clock from
// first dispatch to last completion, not the nominal duration.
func (c *collector) result(mode string) RunResult {
	c.mu.Lock()
	latencies := make([]float64, len(c.latencies))
	copy(latencies, c.latencies)
	errs := make(map[string]int64, len(c.errors))
	for k, v := range c.errors {
		errs[k] = v
	}
	first, last := c.firstDispatch, c.lastCompletion
	c.mu.Unlock()

	total := c.total.Load()
	r := RunResult{
		Mode:               mode,
		TotalRequests:      total,
		SuccessfulRequests: c.success.Load(),
		FailedRequests:     c.failure.Load(),
		SkippedDispatches:  c.skipped.Load(),
		StartTime:          first,
		EndTime:            last,
		Errors:             errs,
	}

	if total > 0 {
		r.SuccessRate = float64(r.SuccessfulRequests) / float64(total)
		r.ErrorRate = float64(r.FailedRequests) / float64(total)
	}

	if !first.IsZero() && last.After(first) {
		elapsed := last.Sub(first).Seconds()
		r.ElapsedSeconds = elapsed
		if elapsed > 0 {
			r.ThroughputRPS = float64(total) / elapsed
		}
	}

	summary := stats.Summarize(latencies)
	r.MeanLatencyMS = summary.MeanMS
	r.MinLatencyMS = summary.MinMS
	r.MaxLatencyMS = summary.MaxMS
	r.P50LatencyMS = summary.P50MS
	r.P95LatencyMS = summary.P95MS
	r.P99LatencyMS = summary.P99MS

	return r
}

// snapshot returns live counters for in-run reporting.
func (c *collector) snapshot() (total, success, failure int64, rps float64) {
	total = c.total.Load()
	success = c.success.Load()
	failure = c.failure.Load()

	c.mu.Lock()
	first := c.firstDispatch
	c.mu.Unlock()

	if !first.IsZero() {
		if elapsed := time.Since(first).Seconds(); elapsed > 0 {
			rps = float64(total) / elapsed
		}
	}
	return
}
