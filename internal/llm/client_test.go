package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/netmon"
)

func newTestClient(t *testing.T, endpoint string, maxRetries int, recorder Recorder) (*Client, *[]time.Duration) {
	t.Helper()

	c, err := NewClient(Config{
		Endpoint:   endpoint,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		RetryDelay: 100 * time.Millisecond,
	}, zap.NewNop(), recorder)
	require.NoError(t, err)

	// Capture backoff sleeps instead of waiting them out.
	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestChatCompletion_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	mon := netmon.NewMonitor()
	c, _ := newTestClient(t, srv.URL, 3, mon)

	result := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "plan a trip"}}, Options{})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.JSONEq(t, `{"choices":[]}`, string(result.Response))
	assert.Empty(t, result.Error)

	// One physical call recorded with the network monitor.
	assert.Equal(t, 1, mon.Statistics().TotalRequests)
}

func TestChatCompletion_RetriesTransportErrors(t *testing.T) {
	// Closed port: every attempt fails at the transport level.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c, sleeps := newTestClient(t, srv.URL, 3, nil)

	result := c.ChatCompletion(context.Background(), nil, Options{})

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.NotEmpty(t, result.Error)

	// Linear backoff between attempts: delay*1, delay*2 (none after the last).
	require.Len(t, *sleeps, 2)
	assert.Equal(t, 100*time.Millisecond, (*sleeps)[0])
	assert.Equal(t, 200*time.Millisecond, (*sleeps)[1])
}

func TestChatCompletion_StatusErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL, 3, nil)

	result := c.ChatCompletion(context.Background(), nil, Options{})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, http.StatusBadGateway, result.StatusCode)
	assert.Contains(t, result.Error, "502")
	assert.Equal(t, int64(1), calls.Load())
	assert.Empty(t, *sleeps)
}

func TestChatCompletion_NeverPanicsOrErrors(t *testing.T) {
	c, _ := newTestClient(t, "http://127.0.0.1:1", 2, nil)

	// Exhaustion yields a structured failure, not a panic or Go error.
	result := c.ChatCompletion(context.Background(), nil, Options{})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.GreaterOrEqual(t, result.LatencyMS, 0.0)
}

func TestClient_MetricsCounters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 3, nil)
	for i := 0; i < 3; i++ {
		c.ChatCompletion(context.Background(), nil, Options{})
	}

	bad, _ := newTestClient(t, "http://127.0.0.1:1", 1, nil)
	bad.ChatCompletion(context.Background(), nil, Options{})

	m := c.Metrics()
	assert.Equal(t, int64(3), m.TotalRequests)
	assert.Equal(t, int64(0), m.ErrorCount)
	assert.Equal(t, 0.0, m.ErrorRate)
	assert.Greater(t, m.MeanLatencyMS, 0.0)

	bm := bad.Metrics()
	assert.Equal(t, int64(1), bm.TotalRequests)
	assert.Equal(t, int64(1), bm.ErrorCount)
	assert.Equal(t, 1.0, bm.ErrorRate)
}

func TestClient_RollingHistoryBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, HistorySize: 5}, zap.NewNop(), nil)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		c.ChatCompletion(context.Background(), nil, Options{})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.history, 5)
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 1, nil)
	status := c.HealthCheck(context.Background())

	assert.True(t, status.Healthy)
	assert.Empty(t, status.Error)
}

func TestHealthCheck_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, 1, nil)
	status := c.HealthCheck(context.Background())

	assert.False(t, status.Healthy)
}

func TestHealthCheck_ErrorCapturedNotPropagated(t *testing.T) {
	c, _ := newTestClient(t, "http://127.0.0.1:1", 1, nil)
	status := c.HealthCheck(context.Background())

	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.Error)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())

	cfg.Endpoint = "http://localhost:8080/v1/chat"
	assert.NoError(t, cfg.Validate())

	cfg.ApplyDefaults()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 100, cfg.HistorySize)
}
