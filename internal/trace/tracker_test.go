package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_StartEndTrace(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.StartTrace("req-1"))
	tr.RecordEvent("model_call", 120)
	tr.RecordEvent("tool_geocode", 45)

	summary, err := tr.EndTrace()
	require.NoError(t, err)

	assert.Equal(t, "req-1", summary.TraceID)
	assert.Equal(t, 2, summary.EventCount)
	assert.Equal(t, "model_call", summary.Events[0].Name)
	assert.Equal(t, "tool_geocode", summary.Events[1].Name)
	assert.GreaterOrEqual(t, summary.TotalDurationMS, 0.0)
}

func TestTracker_DuplicateTrace(t *testing.T) {
	tr := NewTracker()

	require.NoError(t, tr.StartTrace("req-1"))
	err := tr.StartTrace("req-1")
	assert.ErrorIs(t, err, ErrDuplicateTrace)
}

func TestTracker_EndWithoutOpen(t *testing.T) {
	tr := NewTracker()

	_, err := tr.EndTrace()
	assert.ErrorIs(t, err, ErrNoOpenTrace)
}

func TestTracker_EventOrdering(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.StartTrace("req-1"))

	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		tr.RecordEvent(n, 1)
	}

	summary, err := tr.EndTrace()
	require.NoError(t, err)

	for i, ev := range summary.Events {
		assert.Equal(t, names[i], ev.Name)
		if i > 0 {
			assert.False(t, ev.Timestamp.Before(summary.Events[i-1].Timestamp))
		}
	}
}

func TestTracker_Statistics(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 3; i++ {
		require.NoError(t, tr.StartTrace("req"))
		tr.RecordEvent("model_call", float64(100+i*10))
		_, err := tr.EndTrace()
		require.NoError(t, err)
	}

	statsByEvent := tr.Statistics()
	require.Contains(t, statsByEvent, "model_call")
	assert.Equal(t, 3, statsByEvent["model_call"].Count)
	assert.Equal(t, 110.0, statsByEvent["model_call"].MeanMS)
	assert.Equal(t, 100.0, statsByEvent["model_call"].MinMS)
	assert.Equal(t, 120.0, statsByEvent["model_call"].MaxMS)
}

func TestTracker_TraceSummaryUsesTotals(t *testing.T) {
	tr := NewTracker()
	base := time.Unix(1000, 0)
	clock := base
	tr.now = func() time.Time { return clock }

	// Two traces: 100ms and 300ms total.
	require.NoError(t, tr.StartTrace("t1"))
	clock = base.Add(100 * time.Millisecond)
	_, err := tr.EndTrace()
	require.NoError(t, err)

	require.NoError(t, tr.StartTrace("t2"))
	clock = clock.Add(300 * time.Millisecond)
	_, err = tr.EndTrace()
	require.NoError(t, err)

	summary := tr.TraceSummary()
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 200.0, summary.MeanMS)
	assert.Equal(t, 100.0, summary.MinMS)
	assert.Equal(t, 300.0, summary.MaxMS)
}

func TestTracker_EmptyStatistics(t *testing.T) {
	tr := NewTracker()

	assert.Empty(t, tr.Statistics())
	assert.Equal(t, 0, tr.TraceSummary().Count)
	assert.Equal(t, 0.0, tr.TraceSummary().P95MS)
}

func TestTracker_Clear(t *testing.T) {
	tr := NewTracker()
	require.NoError(t, tr.StartTrace("req"))
	tr.RecordEvent("model_call", 50)
	_, err := tr.EndTrace()
	require.NoError(t, err)

	tr.Clear()

	assert.Empty(t, tr.Statistics())
	assert.Empty(t, tr.Traces())
	assert.Equal(t, 0, tr.TraceSummary().Count)

	// Tracker is reusable after Clear.
	require.NoError(t, tr.StartTrace("req-2"))
}
