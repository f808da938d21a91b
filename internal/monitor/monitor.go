// Package monitor composes the latency tracker, network monitor and
// results analyzer into one per-run metrics façade. Scenario code feeds
// data only through this package, never into the tracker directly.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/FairForge/geniebench/internal/analysis"
	"github.com/FairForge/geniebench/internal/netmon"
	"github.com/FairForge/geniebench/internal/stats"
	"github.com/FairForge/geniebench/internal/trace"
)

// RequestMetrics is the run-level request accounting.
type RequestMetrics struct {
	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	SuccessRate        float64 `json:"success_rate"`
	RequestsPerSecond  float64 `json:"requests_per_second"`
}

// ModelMetrics accounts calls to the model endpoint.
type ModelMetrics struct {
	TotalCalls  int64 `json:"total_calls"`
	TotalTokens int64 `json:"total_tokens"`
}

// Metrics is the composed snapshot-shaped view of one run.
type Metrics struct {
	RequestMetrics RequestMetrics           `json:"request_metrics"`
	LatencyStats   map[string]stats.Summary `json:"latency_stats"`
	NetworkStats   netmon.Statistics        `json:"network_stats"`
	TraceSummary   stats.Summary            `json:"trace_summary"`
	ToolUsage      map[string]int64         `json:"tool_usage"`
	ModelMetrics   ModelMetrics             `json:"model_metrics"`
	ElapsedSeconds float64                  `json:"elapsed_time_seconds"`
}

// DetailedAnalysis is Metrics plus the analyzer's output.
type DetailedAnalysis struct {
	Metrics
	LatencyBreakdown analysis.Breakdown `json:"latency_breakdown"`
	Recommendations  []string           `json:"recommendations"`
}

// Monitor is the per-run façade. All methods are safe for concurrent use.
type Monitor struct {
	tracker  *trace.Tracker
	network  *netmon.Monitor
	analyzer *analysis.Analyzer

	mu            sync.Mutex
	total         int64
	successful    int64
	failed        int64
	modelCalls    int64
	totalTokens   int64
	toolCounts    map[string]int64
	failsByStage  map[string]int64
	startTime     time.Time

	now func() time.Time
}

// New creates a monitor with fresh sub-components.
func New() *Monitor {
	return &Monitor{
		tracker:      trace.NewTracker(),
		network:      netmon.NewMonitor(),
		analyzer:     analysis.NewAnalyzer(nil),
		toolCounts:   make(map[string]int64),
		failsByStage: make(map[string]int64),
		startTime:    time.Now(),
		now:          time.Now,
	}
}

// StartRequest opens a trace for one logical request and increments the
// run's request counter. Returns the tracker's misuse errors unchanged.
func (m *Monitor) StartRequest(id string) error {
	if err := m.tracker.StartTrace(id); err != nil {
		return err
	}
	m.mu.Lock()
	m.total++
	m.mu.Unlock()
	return nil
}

// RecordModelCall records one model endpoint call against the open trace.
func (m *Monitor) RecordModelCall(latencyMS float64, tokens int64, success bool) {
	m.tracker.RecordEvent("model_call", latencyMS)

	m.mu.Lock()
	m.modelCalls++
	m.totalTokens += tokens
	if success {
		m.successful++
	} else {
		m.failed++
		m.failsByStage["model_call"]++
	}
	m.mu.Unlock()
}

// RecordToolCall records one tool invocation against the open trace.
func (m *Monitor) RecordToolCall(name string, durationMS float64, success bool) {
	event := "tool_" + name
	m.tracker.RecordEvent(event, durationMS)

	m.mu.Lock()
	m.toolCounts[name]++
	if !success {
		m.failsByStage[event]++
	}
	m.mu.Unlock()
}

// RecordNetworkRequest forwards one HTTP call outcome to the network
// monitor.
func (m *Monitor) RecordNetworkRequest(url, method string, statusCode int, latencyMS, dnsTimeMS float64, errMsg string) {
	m.network.Record(netmon.CallRecord{
		URL:        url,
		Method:     method,
		StatusCode: statusCode,
		LatencyMS:  latencyMS,
		DNSTimeMS:  dnsTimeMS,
		Error:      errMsg,
	})
}

// Record implements llm.Recorder so the client can be wired directly.
func (m *Monitor) Record(r netmon.CallRecord) {
	m.network.Record(r)
}

// EndRequest closes the current trace and returns its summary.
func (m *Monitor) EndRequest() (trace.Summary, error) {
	return m.tracker.EndTrace()
}

// Traces returns all closed trace summaries for this run.
func (m *Monitor) Traces() []trace.Summary {
	return m.tracker.Traces()
}

// Metrics composes tracker, network and counter state into one view.
func (m *Monitor) Metrics() Metrics {
	m.mu.Lock()
	rm := RequestMetrics{
		TotalRequests:      m.total,
		SuccessfulRequests: m.successful,
		FailedRequests:     m.failed,
	}
	mm := ModelMetrics{TotalCalls: m.modelCalls, TotalTokens: m.totalTokens}
	tools := make(map[string]int64, len(m.toolCounts))
	for k, v := range m.toolCounts {
		tools[k] = v
	}
	elapsed := m.now().Sub(m.startTime).Seconds()
	m.mu.Unlock()

	if rm.TotalRequests > 0 {
		rm.SuccessRate = float64(rm.SuccessfulRequests) / float64(rm.TotalRequests)
	}
	if elapsed > 0 {
		rm.RequestsPerSecond = float64(rm.TotalRequests) / elapsed
	}

	return Metrics{
		RequestMetrics: rm,
		LatencyStats:   m.tracker.Statistics(),
		NetworkStats:   m.network.Statistics(),
		TraceSummary:   m.tracker.TraceSummary(),
		ToolUsage:      tools,
		ModelMetrics:   mm,
		ElapsedSeconds: elapsed,
	}
}

// DetailedAnalysis runs the analyzer over all retained traces on top of
// the composed metrics.
func (m *Monitor) DetailedAnalysis() DetailedAnalysis {
	metrics := m.Metrics()
	breakdown := m.analyzer.AnalyzeLatencyBreakdown(m.tracker.Traces())

	recommendations := m.analyzer.GenerateRecommendations(analysis.Signals{
		Bottlenecks:     breakdown.Bottlenecks,
		P95LatencyMS:    metrics.TraceSummary.P95MS,
		SuccessRate:     successRateOrPerfect(metrics.RequestMetrics),
		TopFailingStage: m.topFailingStage(),
	})

	return DetailedAnalysis{
		Metrics:          metrics,
		LatencyBreakdown: breakdown,
		Recommendations:  recommendations,
	}
}

func successRateOrPerfect(rm RequestMetrics) float64 {
	if rm.TotalRequests == 0 {
		return 1.0
	}
	return rm.SuccessRate
}

func (m *Monitor) topFailingStage() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var top string
	var max int64
	for stage, n := range m.failsByStage {
		if n > max {
			top, max = stage, n
		}
	}
	return top
}

// Clear resets all owned sub-components in one step. The monitor's lock
// is held across every reset so a partially-cleared state is never
// observable through this type.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracker.Clear()
	m.network.Clear()
	m.total = 0
	m.successful = 0
	m.failed = 0
	m.modelCalls = 0
	m.totalTokens = 0
	m.toolCounts = make(map[string]int64)
	m.failsByStage = make(map[string]int64)
	m.startTime = m.now()
}

// String implements fmt.Stringer for debug logging.
func (m *Monitor) String() string {
	met := m.Metrics()
	return fmt.Sprintf("monitor{requests=%d success=%.2f rps=%.2f}",
		met.RequestMetrics.TotalRequests, met.RequestMetrics.SuccessRate,
		met.RequestMetrics.RequestsPerSecond)
}
