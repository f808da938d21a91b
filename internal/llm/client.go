// Package llm wraps the model endpoint with bounded retries, linear
// backoff and per-call network timing.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/netmon"
)

const healthCheckTimeout = 5 * time.Second

// Message is one chat message in the request payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion call.
type Options struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// CompletionResult is the structured outcome of one logical call.
// The client never raises past its own boundary: callers always get a
// result, failed calls carry the last error text.
type CompletionResult struct {
	Success    bool            `json:"success"`
	Response   json.RawMessage `json:"response,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	LatencyMS  float64         `json:"latency_ms"`
	DNSTimeMS  float64         `json:"dns_time_ms"`
	Attempts   int             `json:"attempts"`
	Error      string          `json:"error,omitempty"`
}

// HealthStatus is the outcome of a best-effort health probe.
type HealthStatus struct {
	Healthy   bool    `json:"healthy"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// Metrics summarizes the client's lifetime counters and recent history.
type Metrics struct {
	TotalRequests int64   `json:"total_requests"`
	ErrorCount    int64   `json:"error_count"`
	ErrorRate     float64 `json:"error_rate"`
	MeanLatencyMS float64 `json:"mean_latency_ms"`
	MinLatencyMS  float64 `json:"min_latency_ms"`
	MaxLatencyMS  float64 `json:"max_latency_ms"`
}

// Config configures the client.
type Config struct {
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	HistorySize int           `yaml:"history_size"`
}

// Validate checks configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("llm: endpoint is required")
	}
	return nil
}

// ApplyDefaults fills in default values.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.HistorySize == 0 {
		c.HistorySize = 100
	}
}

// Recorder receives one record per physical HTTP call.
type Recorder interface {
	Record(netmon.CallRecord)
}

// Client issues chat completions with bounded retries. Transport errors
// are retried with linear backoff; a response with non-2xx status is not.
type Client struct {
	config   Config
	policy   Policy
	http     *http.Client
	logger   *zap.Logger
	recorder Recorder

	totalRequests atomic.Int64
	errorCount    atomic.Int64

	mu      sync.Mutex
	history []float64 // most recent HistorySize latencies, ms

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient creates a client. logger must not be nil; recorder may be.
func NewClient(config Config, logger *zap.Logger, recorder Recorder) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	return &Client{
		config:   config,
		policy:   LinearBackoff(config.MaxRetries, config.RetryDelay),
		http:     &http.Client{Timeout: config.Timeout},
		logger:   logger,
		recorder: recorder,
		sleep:    sleepContext,
		now:      time.Now,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChatCompletion issues one logical call, retrying transport failures up
// to MaxRetries attempts. The returned result is always structured; the
// accumulated elapsed time includes backoff sleeps.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, opts Options) CompletionResult {
	start := c.now()
	result := CompletionResult{}

	payload, err := json.Marshal(struct {
		Messages []Message `json:"messages"`
		Options
	}{Messages: messages, Options: opts})
	if err != nil {
		result.Error = fmt.Sprintf("marshal request: %v", err)
		result.LatencyMS = c.elapsedMS(start)
		c.finish(result)
		return result
	}

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		resp, timing, err := c.doRequest(ctx, payload)
		result.Attempts = attempt + 1
		result.DNSTimeMS = timing.dnsMS

		if err != nil {
			// Transport-level failure: eligible for retry.
			lastErr = err
			c.record("POST", c.config.Endpoint, 0, timing, err.Error())
			c.logger.Debug("completion attempt failed",
				zap.Int("attempt", attempt+1), zap.Error(err))

			if attempt < c.policy.MaxAttempts-1 {
				if serr := c.sleep(ctx, c.policy.Backoff(attempt)); serr != nil {
					lastErr = serr
					break
				}
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		result.StatusCode = resp.StatusCode

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// HTTP status error: surfaces immediately, never retried.
			msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
			c.record("POST", c.config.Endpoint, resp.StatusCode, timing, msg)
			result.Error = msg
			result.LatencyMS = c.elapsedMS(start)
			c.finish(result)
			return result
		}

		if readErr != nil {
			lastErr = readErr
			c.record("POST", c.config.Endpoint, resp.StatusCode, timing, readErr.Error())
			continue
		}

		c.record("POST", c.config.Endpoint, resp.StatusCode, timing, "")
		result.Success = true
		result.Response = body
		result.LatencyMS = c.elapsedMS(start)
		c.finish(result)
		return result
	}

	if lastErr != nil {
		result.Error = lastErr.Error()
	}
	result.LatencyMS = c.elapsedMS(start)
	c.finish(result)
	return result
}

type callTiming struct {
	dnsMS     float64
	connectMS float64
	totalMS   float64
}

func (c *Client) doRequest(ctx context.Context, payload []byte) (*http.Response, callTiming, error) {
	var timing callTiming
	var dnsStart, connStart time.Time

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone: func(httptrace.DNSDoneInfo) {
			if !dnsStart.IsZero() {
				timing.dnsMS = float64(time.Since(dnsStart)) / float64(time.Millisecond)
			}
		},
		ConnectStart: func(string, string) { connStart = time.Now() },
		ConnectDone: func(string, string, error) {
			if !connStart.IsZero() {
				timing.connectMS = float64(time.Since(connStart)) / float64(time.Millisecond)
			}
		},
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace),
		http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, timing, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	timing.totalMS = float64(time.Since(start)) / float64(time.Millisecond)
	return resp, timing, err
}

func (c *Client) record(method, url string, status int, timing callTiming, errMsg string) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(netmon.CallRecord{
		URL:        url,
		Method:     method,
		StatusCode: status,
		LatencyMS:  timing.totalMS,
		DNSTimeMS:  timing.dnsMS,
		Error:      errMsg,
	})
}

// finish updates lifetime counters and the rolling latency history.
func (c *Client) finish(result CompletionResult) {
	c.totalRequests.Add(1)
	if !result.Success {
		c.errorCount.Add(1)
	}

	c.mu.Lock()
	c.history = append(c.history, result.LatencyMS)
	if len(c.history) > c.config.HistorySize {
		c.history = c.history[len(c.history)-c.config.HistorySize:]
	}
	c.mu.Unlock()
}

// HealthCheck performs a single best-effort GET with a short fixed
// timeout. Healthy iff status is exactly 200; errors are captured,
// never propagated.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := c.now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint, nil)
	if err != nil {
		return HealthStatus{Error: err.Error()}
	}

	resp, err := c.http.Do(req)
	latency := c.elapsedMS(start)
	if err != nil {
		return HealthStatus{LatencyMS: latency, Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	return HealthStatus{
		Healthy:   resp.StatusCode == http.StatusOK,
		LatencyMS: latency,
	}
}

// Metrics returns lifetime counters plus latency aggregates over the
// rolling history window.
func (c *Client) Metrics() Metrics {
	total := c.totalRequests.Load()
	errCount := c.errorCount.Load()

	m := Metrics{TotalRequests: total, ErrorCount: errCount}
	if total > 0 {
		m.ErrorRate = float64(errCount) / float64(total)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return m
	}

	m.MinLatencyMS = c.history[0]
	m.MaxLatencyMS = c.history[0]
	var sum float64
	for _, v := range c.history {
		sum += v
		if v < m.MinLatencyMS {
			m.MinLatencyMS = v
		}
		if v > m.MaxLatencyMS {
			m.MaxLatencyMS = v
		}
	}
	m.MeanLatencyMS = sum / float64(len(c.history))
	return m
}

func (c *Client) elapsedMS(start time.Time) float64 {
	return float64(c.now().Sub(start)) / float64(time.Millisecond)
}
