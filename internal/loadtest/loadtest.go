// Package loadtest drives synthetic traffic against a scenario callable
// in concurrent-users, sustained-RPS and stress modes.
package loadtest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// minPacingRate is the floor for the sustained-load limiter during
// ramp-up. Below one request per second no work is dispatched, matching
// the integer-rate semantics of the pacing schedule.
const minPacingRate = 1.0

// ScenarioResult is the outcome of one unit of synthetic work.
type ScenarioResult struct {
	Success bool
	Latency time.Duration
	Err     error
}

// Scenario performs one unit of work. The harness makes no other
// assumptions about what it does.
type Scenario func(ctx context.Context) ScenarioResult

// Config defines load test parameters not specific to a single run.
type Config struct {
	// MaxInFlight bounds concurrently running scenario calls in
	// sustained and stress modes. Dispatches that would exceed the
	// bound are skipped and counted, never queued, so a slow scenario
	// cannot stall the pacing schedule.
	MaxInFlight int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{MaxInFlight: 100}
}

// RunResult aggregates one load-test invocation.
type RunResult struct {
	Mode               string           `json:"mode"`
	StartTime          time.Time        `json:"start_time"`
	EndTime            time.Time        `json:"end_time"`
	ElapsedSeconds     float64          `json:"elapsed_seconds"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	SkippedDispatches  int64            `json:"skipped_dispatches,omitempty"`
	SuccessRate        float64          `json:"success_rate"`
	ErrorRate          float64          `json:"error_rate"`
	ThroughputRPS      float64          `json:"throughput_rps"`
	MeanLatencyMS      float64          `json:"mean_latency_ms"`
	MinLatencyMS       float64          `json:"min_latency_ms"`
	MaxLatencyMS       float64          `json:"max_latency_ms"`
	P50LatencyMS       float64          `json:"p50_latency_ms"`
	P95LatencyMS       float64          `json:"p95_latency_ms"`
	P99LatencyMS       float64          `json:"p99_latency_ms"`
	Errors             map[string]int64 `json:"errors,omitempty"`
}

// StressResult is a RunResult grouped by RPS level.
type StressResult struct {
	Overall RunResult         `json:"overall"`
	Levels  []int             `json:"rps_levels"`
	ByLevel map[int]RunResult `json:"rps_analysis"`
}

// Tester executes load tests. One Tester may run many tests, but not
// concurrently with itself.
type Tester struct {
	config  *Config
	logger  *zap.Logger
	metrics *Metrics

	mu        sync.Mutex
	running   bool
	collector *collector
}

// New creates a load tester.
func New(config *Config, logger *zap.Logger) *Tester {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = DefaultConfig().MaxInFlight
	}
	return &Tester{config: config, logger: logger}
}

// AttachMetrics registers live run metrics updated during execution.
func (t *Tester) AttachMetrics(m *Metrics) {
	t.metrics = m
}

func (t *Tester) begin() (*collector, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return nil, fmt.Errorf("loadtest: test already running")
	}
	t.running = true
	t.collector = newCollector()
	return t.collector, nil
}

func (t *Tester) end() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

// IsRunning reports whether a test is currently executing.
func (t *Tester) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// CurrentStats returns live counters for the active (or last) run.
func (t *Tester) CurrentStats() (total, success, failure int64, rps float64) {
	t.mu.Lock()
	c := t.collector
	t.mu.Unlock()
	if c == nil {
		return 0, 0, 0, 0
	}
	return c.snapshot()
}

// invoke runs one scenario call, converting panics and errors into
// failure entries. A scenario failure never aborts the run.
func (t *Tester) invoke(ctx context.Context, scenario Scenario, c *collector) ScenarioResult {
	if t.metrics != nil {
		t.metrics.inFlight.Inc()
		defer t.metrics.inFlight.Dec()
	}

	started := time.Now()
	res := func() (res ScenarioResult) {
		defer func() {
			if r := recover(); r != nil {
				res = ScenarioResult{
					Latency: time.Since(started),
					Err:     fmt.Errorf("scenario panic: %v", r),
				}
			}
		}()
		return scenario(ctx)
	}()

	c.add(res, time.Now())
	if t.metrics != nil {
		t.metrics.observe(res)
	}
	return res
}

// RunConcurrentUsers starts num workers over the ramp-up window at a
// rate of num/rampUp per second, so that at time t the active worker
// count is round(num*t/rampUp). Each worker invokes the scenario
// back-to-back until duration elapses; an in-flight call is allowed to
// complete, never killed.
func (t *Tester) RunConcurrentUsers(ctx context.Context, num int, scenario Scenario, duration, rampUp time.Duration) (RunResult, error) {
	if num <= 0 {
		return RunResult{}, fmt.Errorf("loadtest: num_users must be positive, got %d", num)
	}

	c, err := t.begin()
	if err != nil {
		return RunResult{}, err
	}
	defer t.end()

	t.logger.Info("starting concurrent-users test",
		zap.Int("users", num),
		zap.Duration("duration", duration),
		zap.Duration("ramp_up", rampUp))

	start := time.Now()
	deadline := start.Add(duration)

	var wg sync.WaitGroup
	for i := 0; i < num; i++ {
		// Worker i comes online at rampUp*i/num, giving the linear ramp.
		var delay time.Duration
		if rampUp > 0 {
			delay = time.Duration(float64(rampUp) * float64(i) / float64(num))
		}

		wg.Add(1)
		go func(delay time.Duration) {
			defer wg.Done()

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}

			for {
				if time.Now().After(deadline) || ctx.Err() != nil {
					return
				}
				c.markDispatch(time.Now())
				t.invoke(ctx, scenario, c)
			}
		}(delay)
	}

	wg.Wait()
	result := c.result("concurrent_users")
	t.logger.Info("concurrent-users test complete",
		zap.Int64("total", result.TotalRequests),
		zap.Float64("throughput_rps", result.ThroughputRPS),
		zap.Float64("error_rate", result.ErrorRate))
	return result, nil
}

// RunSustained paces scenario dispatches at rps requests per second,
// ramping linearly from zero over rampUp. Dispatch times derive from
// the limiter's fixed token schedule, not from "now + interval", so
// scheduling jitter does not accumulate. Invocations run on a bounded
// pool of MaxInFlight workers; a slow call never stalls the schedule.
func (t *Tester) RunSustained(ctx context.Context, rps float64, scenario Scenario, duration, rampUp time.Duration) (RunResult, error) {
	if rps <= 0 {
		return RunResult{}, fmt.Errorf("loadtest: rps must be positive, got %f", rps)
	}

	c, err := t.begin()
	if err != nil {
		return RunResult{}, err
	}
	defer t.end()

	t.logger.Info("starting sustained-load test",
		zap.Float64("rps", rps),
		zap.Duration("duration", duration),
		zap.Duration("ramp_up", rampUp))

	rampFn := func(elapsed time.Duration) float64 {
		if rampUp <= 0 || elapsed >= rampUp {
			return rps
		}
		return rps * float64(elapsed) / float64(rampUp)
	}

	result := t.paceLoop(ctx, scenario, c, "sustained", duration, rampFn, nil)
	t.logger.Info("sustained-load test complete",
		zap.Int64("total", result.TotalRequests),
		zap.Float64("throughput_rps", result.ThroughputRPS),
		zap.Int64("skipped", result.SkippedDispatches))
	return result, nil
}

// RunStress ramps the rate linearly from startRPS to maxRPS over rampUp,
// holds maxRPS for hold, and reports results grouped by RPS level.
func (t *Tester) RunStress(ctx context.Context, startRPS, maxRPS float64, scenario Scenario, rampUp, hold time.Duration) (StressResult, error) {
	if maxRPS < startRPS {
		return StressResult{}, fmt.Errorf("loadtest: max_rps %f below start_rps %f", maxRPS, startRPS)
	}

	c, err := t.begin()
	if err != nil {
		return StressResult{}, err
	}
	defer t.end()

	t.logger.Info("starting stress test",
		zap.Float64("start_rps", startRPS),
		zap.Float64("max_rps", maxRPS),
		zap.Duration("ramp_up", rampUp),
		zap.Duration("hold", hold))

	rampFn := func(elapsed time.Duration) float64 {
		if rampUp <= 0 || elapsed >= rampUp {
			return maxRPS
		}
		return startRPS + (maxRPS-startRPS)*float64(elapsed)/float64(rampUp)
	}

	levels := newLevelCollector()
	overall := t.paceLoop(ctx, scenario, c, "stress", rampUp+hold, rampFn, levels)

	return StressResult{
		Overall: overall,
		Levels:  levels.sortedLevels(),
		ByLevel: levels.results(),
	}, nil
}

// paceLoop is the single pacing loop feeding the bounded worker pool.
// The limiter's token schedule fixes dispatch times, so scheduling
// jitter does not accumulate. levels may be nil.
func (t *Tester) paceLoop(ctx context.Context, scenario Scenario, c *collector, mode string, duration time.Duration, rampFn func(time.Duration) float64, levels *levelCollector) RunResult {
	start := time.Now()
	deadline := start.Add(duration)

	limiter := rate.NewLimiter(rate.Limit(math.Max(rampFn(0), minPacingRate)), 1)
	sem := make(chan struct{}, t.config.MaxInFlight)

	var wg sync.WaitGroup
	for {
		if time.Now().After(deadline) || ctx.Err() != nil {
			break
		}

		cur := math.Max(rampFn(time.Since(start)), minPacingRate)
		limiter.SetLimit(rate.Limit(cur))

		if err := limiter.Wait(ctx); err != nil {
			break
		}
		if time.Now().After(deadline) {
			break
		}

		select {
		case sem <- struct{}{}:
			c.markDispatch(time.Now())
			wg.Add(1)
			level := int(math.Round(cur))
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				res := t.invoke(ctx, scenario, c)
				if levels != nil {
					levels.add(level, res)
				}
			}()
		default:
			// Pool is at capacity: skip rather than stall the schedule.
			c.skipped.Add(1)
			if t.metrics != nil {
				t.metrics.skipped.Inc()
			}
		}
	}

	// Soft deadline: no new dispatches, in-flight calls complete.
	wg.Wait()
	return c.result(mode)
}
