package loadtest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fixedScenario(latency time.Duration) Scenario {
	return func(ctx context.Context) ScenarioResult {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
		}
		return ScenarioResult{Success: true, Latency: latency}
	}
}

func failingScenario(latency time.Duration) Scenario {
	return func(ctx context.Context) ScenarioResult {
		time.Sleep(latency)
		return ScenarioResult{Latency: latency, Err: errors.New("simulated backend failure")}
	}
}

func TestNew_NilConfig(t *testing.T) {
	lt := New(nil, zap.NewNop())
	if lt.config.MaxInFlight != 100 {
		t.Errorf("expected default MaxInFlight 100, got %d", lt.config.MaxInFlight)
	}
}

func TestRunConcurrentUsers_Success(t *testing.T) {
	lt := New(nil, zap.NewNop())

	result, err := lt.RunConcurrentUsers(context.Background(), 5, fixedScenario(20*time.Millisecond), 2*time.Second, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Mode != "concurrent_users" {
		t.Errorf("expected mode concurrent_users, got %q", result.Mode)
	}
	// 5 users running back-to-back 20ms calls for up to 2s.
	if result.TotalRequests < 5 {
		t.Errorf("expected at least 5 requests, got %d", result.TotalRequests)
	}
	if result.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %f", result.SuccessRate)
	}
	if result.ErrorRate != 0.0 {
		t.Errorf("expected error rate 0.0, got %f", result.ErrorRate)
	}
	if result.ThroughputRPS <= 0 {
		t.Error("expected positive throughput")
	}
	if result.MeanLatencyMS <= 0 {
		t.Error("expected positive mean latency")
	}
}

func TestRunConcurrentUsers_AllFailuresCompleteRun(t *testing.T) {
	lt := New(nil, zap.NewNop())

	result, err := lt.RunConcurrentUsers(context.Background(), 3, failingScenario(10*time.Millisecond), 500*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("scenario failures must not abort the run: %v", err)
	}

	if result.ErrorRate != 1.0 {
		t.Errorf("expected error rate 1.0, got %f", result.ErrorRate)
	}
	if result.SuccessfulRequests != 0 {
		t.Errorf("expected zero successes, got %d", result.SuccessfulRequests)
	}
	if len(result.Errors) == 0 {
		t.Error("expected error messages to be collected")
	}
	if n := result.Errors["simulated backend failure"]; n != result.FailedRequests {
		t.Errorf("expected all %d failures under one key, got %d", result.FailedRequests, n)
	}
}

func TestRunConcurrentUsers_InvalidUsers(t *testing.T) {
	lt := New(nil, zap.NewNop())
	if _, err := lt.RunConcurrentUsers(context.Background(), 0, fixedScenario(time.Millisecond), time.Second, 0); err == nil {
		t.Error("expected error for zero users")
	}
}

func TestRunConcurrentUsers_PanicBecomesFailure(t *testing.T) {
	lt := New(nil, zap.NewNop())

	var calls atomic.Int64
	scenario := func(ctx context.Context) ScenarioResult {
		if calls.Add(1)%2 == 0 {
			panic("boom")
		}
		time.Sleep(5 * time.Millisecond)
		return ScenarioResult{Success: true, Latency: 5 * time.Millisecond}
	}

	result, err := lt.RunConcurrentUsers(context.Background(), 2, scenario, 300*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("panics must be contained: %v", err)
	}
	if result.FailedRequests == 0 {
		t.Error("expected panics to be counted as failures")
	}
	if result.Errors["scenario panic: boom"] == 0 {
		t.Errorf("expected panic error key, got %v", result.Errors)
	}
}

func TestRunSustained_Pacing(t *testing.T) {
	lt := New(nil, zap.NewNop())

	result, err := lt.RunSustained(context.Background(), 20, fixedScenario(time.Millisecond), 2*time.Second, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Mode != "sustained" {
		t.Errorf("expected mode sustained, got %q", result.Mode)
	}
	// 20 RPS over 2s with no ramp: ~40 dispatches, generous bounds for CI.
	if result.TotalRequests < 20 || result.TotalRequests > 60 {
		t.Errorf("expected roughly 40 requests at 20 RPS over 2s, got %d", result.TotalRequests)
	}
	if result.SuccessRate != 1.0 {
		t.Errorf("expected success rate 1.0, got %f", result.SuccessRate)
	}
}

func TestRunSustained_RampProducesFewerRequests(t *testing.T) {
	lt := New(nil, zap.NewNop())

	ramped, err := lt.RunSustained(context.Background(), 30, fixedScenario(time.Millisecond), 2*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flat, err := lt.RunSustained(context.Background(), 30, fixedScenario(time.Millisecond), 2*time.Second, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A full-window linear ramp averages half the target rate.
	if ramped.TotalRequests >= flat.TotalRequests {
		t.Errorf("expected ramped run (%d) below flat run (%d)", ramped.TotalRequests, flat.TotalRequests)
	}
}

func TestRunSustained_SlowScenarioSkipsNotStalls(t *testing.T) {
	lt := New(&Config{MaxInFlight: 2}, zap.NewNop())

	start := time.Now()
	result, err := lt.RunSustained(context.Background(), 50, fixedScenario(500*time.Millisecond), time.Second, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The pool holds 2 slow calls; the schedule keeps ticking and skips.
	if result.SkippedDispatches == 0 {
		t.Error("expected skipped dispatches with a saturated pool")
	}
	// Soft deadline: in-flight 500ms calls complete, but the run must not
	// drag on queued work.
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("run took %v, pacing stalled on slow scenario", elapsed)
	}
}

func TestRunSustained_InvalidRPS(t *testing.T) {
	lt := New(nil, zap.NewNop())
	if _, err := lt.RunSustained(context.Background(), 0, fixedScenario(time.Millisecond), time.Second, 0); err == nil {
		t.Error("expected error for zero rps")
	}
}

func TestRunStress_GroupsByLevel(t *testing.T) {
	lt := New(nil, zap.NewNop())

	result, err := lt.RunStress(context.Background(), 5, 20, fixedScenario(time.Millisecond), time.Second, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Overall.Mode != "stress" {
		t.Errorf("expected mode stress, got %q", result.Overall.Mode)
	}
	if result.Overall.TotalRequests == 0 {
		t.Error("expected requests during stress run")
	}
	if len(result.Levels) == 0 {
		t.Fatal("expected at least one RPS level")
	}
	var total int64
	for _, level := range result.Levels {
		lr, ok := result.ByLevel[level]
		if !ok {
			t.Fatalf("level %d missing from ByLevel", level)
		}
		total += lr.TotalRequests
	}
	if total != result.Overall.TotalRequests {
		t.Errorf("per-level totals %d do not sum to overall %d", total, result.Overall.TotalRequests)
	}
}

func TestRunStress_InvalidRange(t *testing.T) {
	lt := New(nil, zap.NewNop())
	if _, err := lt.RunStress(context.Background(), 10, 5, fixedScenario(time.Millisecond), time.Second, time.Second); err == nil {
		t.Error("expected error when max_rps below start_rps")
	}
}

func TestTester_RejectsConcurrentRuns(t *testing.T) {
	lt := New(nil, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = lt.RunConcurrentUsers(context.Background(), 1, fixedScenario(50*time.Millisecond), time.Second, 0)
	}()

	time.Sleep(100 * time.Millisecond)
	if _, err := lt.RunSustained(context.Background(), 5, fixedScenario(time.Millisecond), time.Second, 0); err == nil {
		t.Error("expected error starting a second run while one is active")
	}
	<-done
}

func TestTester_CurrentStats(t *testing.T) {
	lt := New(nil, zap.NewNop())

	total, _, _, _ := lt.CurrentStats()
	if total != 0 {
		t.Errorf("expected zero stats before any run, got %d", total)
	}

	result, err := lt.RunConcurrentUsers(context.Background(), 2, fixedScenario(5*time.Millisecond), 300*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total, success, failure, _ := lt.CurrentStats()
	if total != result.TotalRequests {
		t.Errorf("expected stats total %d, got %d", result.TotalRequests, total)
	}
	if success != result.SuccessfulRequests || failure != result.FailedRequests {
		t.Error("success/failure stats disagree with run result")
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	lt := New(nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := lt.RunSustained(ctx, 10, fixedScenario(5*time.Millisecond), 30*time.Second, 0)
	if err != nil {
		t.Fatalf("cancellation should end the run cleanly: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run continued %v after cancellation", elapsed)
	}
}
