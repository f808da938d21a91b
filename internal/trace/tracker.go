// Package trace records per-request event timings and aggregates them
// into percentile statistics.
package trace

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FairForge/geniebench/internal/stats"
)

var (
	// ErrDuplicateTrace indicates StartTrace was called while a trace is
	// still open. This is a call-discipline defect, not a runtime condition.
	ErrDuplicateTrace = errors.New("trace: trace already open")

	// ErrNoOpenTrace indicates EndTrace was called with no trace open.
	ErrNoOpenTrace = errors.New("trace: no open trace")
)

// Event is one timed stage inside a request.
type Event struct {
	Name       string    `json:"event_name"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Summary is the immutable record of one closed trace.
type Summary struct {
	TraceID         string    `json:"trace_id"`
	StartTime       time.Time `json:"start_time"`
	Events          []Event   `json:"events"`
	TotalDurationMS float64   `json:"total_duration_ms"`
	EventCount      int       `json:"event_count"`
}

type openTrace struct {
	id     string
	start  time.Time
	events []Event
}

// Tracker owns all traces for one run. One trace may be open at a time;
// closed traces are retained as immutable summaries until Clear.
type Tracker struct {
	mu      sync.Mutex
	current *openTrace
	closed  []Summary
	byEvent map[string][]float64

	now func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byEvent: make(map[string][]float64),
		now:     time.Now,
	}
}

// StartTrace opens a new trace. It returns ErrDuplicateTrace if a trace
// is already open.
func (t *Tracker) StartTrace(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return fmt.Errorf("%w: %s (open: %s)", ErrDuplicateTrace, id, t.current.id)
	}
	t.current = &openTrace{id: id, start: t.now()}
	return nil
}

// RecordEvent appends a timed event to the open trace. Events recorded
// with no open trace are still counted in per-event statistics.
func (t *Tracker) RecordEvent(name string, durationMS float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ev := Event{Name: name, DurationMS: durationMS, Timestamp: t.now()}
	if t.current != nil {
		t.current.events = append(t.current.events, ev)
	}
	t.byEvent[name] = append(t.byEvent[name], durationMS)
}

// EndTrace closes the open trace and returns its summary. It returns
// ErrNoOpenTrace if no trace is open.
func (t *Tracker) EndTrace() (Summary, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return Summary{}, ErrNoOpenTrace
	}

	cur := t.current
	t.current = nil

	s := Summary{
		TraceID:         cur.id,
		StartTime:       cur.start,
		Events:          cur.events,
		TotalDurationMS: float64(t.now().Sub(cur.start)) / float64(time.Millisecond),
		EventCount:      len(cur.events),
	}
	t.closed = append(t.closed, s)
	return s, nil
}

// Statistics returns per-event-name latency summaries across all
// recorded events.
func (t *Tracker) Statistics() map[string]stats.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]stats.Summary, len(t.byEvent))
	for name, samples := range t.byEvent {
		out[name] = stats.Summarize(samples)
	}
	return out
}

// TraceSummary returns percentiles over per-trace total durations,
// distinct from the per-event statistics.
func (t *Tracker) TraceSummary() stats.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	totals := make([]float64, len(t.closed))
	for i, s := range t.closed {
		totals[i] = s.TotalDurationMS
	}
	return stats.Summarize(totals)
}

// Traces returns copies of all closed trace summaries.
func (t *Tracker) Traces() []Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Summary, len(t.closed))
	copy(out, t.closed)
	return out
}

// Clear discards all trace state, including any open trace.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = nil
	t.closed = nil
	t.byEvent = make(map[string][]float64)
}
