// Package scenario builds the callables the load tester drives. A
// scenario owns its own instrumentation: it reports into the run's
// monitor so the harness sees per-stage latency, not just pass/fail.
package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/FairForge/geniebench/internal/llm"
	"github.com/FairForge/geniebench/internal/loadtest"
	"github.com/FairForge/geniebench/internal/monitor"
)

// DefaultQueries exercise the travel-planning endpoint with a spread of
// request shapes.
var DefaultQueries = []string{
	"Plan a 3-day trip to Tokyo in April",
	"Find me a beach destination under $1500 for next month",
	"What should I pack for a week in Reykjavik in winter?",
	"Compare flight options from NYC to Lisbon",
	"Suggest family-friendly activities in Barcelona",
}

// Chat builds a scenario that sends one chat completion per invocation,
// rotating through queries, and records the call against the monitor.
func Chat(client *llm.Client, mon *monitor.Monitor, queries []string) loadtest.Scenario {
	if len(queries) == 0 {
		queries = DefaultQueries
	}

	var next atomic.Int64
	return func(ctx context.Context) loadtest.ScenarioResult {
		query := queries[int(next.Add(1)-1)%len(queries)]

		requestID := uuid.NewString()
		tracked := mon.StartRequest(requestID) == nil

		start := time.Now()
		result := client.ChatCompletion(ctx, []llm.Message{
			{Role: "user", Content: query},
		}, llm.Options{})
		latency := time.Since(start)

		if tracked {
			mon.RecordModelCall(result.LatencyMS, 0, result.Success)
			for _, tool := range parseToolCalls(result.Response) {
				mon.RecordToolCall(tool.Name, tool.DurationMS, true)
			}
			_, _ = mon.EndRequest()
		}

		res := loadtest.ScenarioResult{Success: result.Success, Latency: latency}
		if !result.Success {
			res.Err = fmt.Errorf("chat completion: %s", result.Error)
		}
		return res
	}
}

type toolCall struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
}

// parseToolCalls extracts the endpoint's reported tool invocations.
// Responses without the field yield nothing.
func parseToolCalls(response json.RawMessage) []toolCall {
	if len(response) == 0 {
		return nil
	}
	var payload struct {
		ToolsUsed []toolCall `json:"tools_used"`
	}
	if err := json.Unmarshal(response, &payload); err != nil {
		return nil
	}
	return payload.ToolsUsed
}

// FixedLatency builds a scenario that sleeps for latency and succeeds.
// Useful for validating pacing and aggregation without a backend.
func FixedLatency(latency time.Duration) loadtest.Scenario {
	return func(ctx context.Context) loadtest.ScenarioResult {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
		}
		return loadtest.ScenarioResult{Success: true, Latency: latency}
	}
}

// AlwaysFail builds a scenario that fails every invocation.
func AlwaysFail(latency time.Duration) loadtest.Scenario {
	err := errors.New("synthetic failure")
	return func(ctx context.Context) loadtest.ScenarioResult {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
		}
		return loadtest.ScenarioResult{Success: false, Latency: latency, Err: err}
	}
}
