package scenario

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/llm"
	"github.com/FairForge/geniebench/internal/monitor"
)

func newChatFixture(t *testing.T, handler http.HandlerFunc) (*llm.Client, *monitor.Monitor) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	mon := monitor.New()
	client, err := llm.NewClient(llm.Config{Endpoint: srv.URL, MaxRetries: 1}, zap.NewNop(), mon)
	require.NoError(t, err)
	return client, mon
}

func TestChat_Success(t *testing.T) {
	var bodies []string
	client, mon := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []llm.Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Messages, 1)
		bodies = append(bodies, payload.Messages[0].Content)
		w.Write([]byte(`{"choices":[]}`))
	})

	s := Chat(client, mon, []string{"query one", "query two"})

	res := s(context.Background())
	assert.True(t, res.Success)
	assert.Nil(t, res.Err)
	assert.Greater(t, res.Latency, time.Duration(0))

	// Queries rotate in order and wrap.
	s(context.Background())
	s(context.Background())
	assert.Equal(t, []string{"query one", "query two", "query one"}, bodies)

	metrics := mon.Metrics()
	assert.Equal(t, int64(3), metrics.RequestMetrics.TotalRequests)
	assert.Equal(t, int64(3), metrics.ModelMetrics.TotalCalls)
	assert.Equal(t, 3, metrics.NetworkStats.TotalRequests)
}

func TestChat_FailureCarriesError(t *testing.T) {
	client, mon := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	res := Chat(client, mon, nil)(context.Background())
	assert.False(t, res.Success)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "status 502")
}

func TestChat_DefaultQueries(t *testing.T) {
	client, mon := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	res := Chat(client, mon, nil)(context.Background())
	assert.True(t, res.Success)
}

func TestChat_RecordsReportedToolCalls(t *testing.T) {
	client, mon := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tools_used":[{"name":"geocode","duration_ms":12.5},{"name":"weather","duration_ms":8}]}`))
	})

	res := Chat(client, mon, nil)(context.Background())
	require.True(t, res.Success)

	metrics := mon.Metrics()
	assert.Equal(t, int64(1), metrics.ToolUsage["geocode"])
	assert.Equal(t, int64(1), metrics.ToolUsage["weather"])
	assert.Contains(t, metrics.LatencyStats, "tool_geocode")
}

func TestFixedLatency(t *testing.T) {
	s := FixedLatency(10 * time.Millisecond)

	start := time.Now()
	res := s(context.Background())
	assert.True(t, res.Success)
	assert.Equal(t, 10*time.Millisecond, res.Latency)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestAlwaysFail(t *testing.T) {
	res := AlwaysFail(time.Millisecond)(context.Background())
	assert.False(t, res.Success)
	assert.EqualError(t, res.Err, "synthetic failure")
}
