// Package netmon records per-HTTP-call outcomes and aggregates them.
package netmon

import (
	"sync"
	"time"

	"github.com/FairForge/geniebench/internal/stats"
)

// CallRecord is one recorded HTTP call. Immutable once recorded.
type CallRecord struct {
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	StatusCode int       `json:"status_code"`
	LatencyMS  float64   `json:"latency_ms"`
	DNSTimeMS  float64   `json:"dns_time_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EndpointKey groups statistics by method and URL.
type EndpointKey struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// EndpointStats aggregates calls to one (method, url) pair.
type EndpointStats struct {
	Requests   int           `json:"requests"`
	Errors     int           `json:"errors"`
	Latency    stats.Summary `json:"latency"`
	MeanDNSMS  float64       `json:"mean_dns_ms"`
	ErrorRate  float64       `json:"error_rate"`
}

// Statistics is the full aggregation over all recorded calls.
type Statistics struct {
	TotalRequests int                           `json:"total_requests"`
	Errors        int                           `json:"errors"`
	ErrorRate     float64                       `json:"error_rate"`
	Latency       stats.Summary                 `json:"latency"`
	MeanDNSMS     float64                       `json:"mean_dns_ms"`
	ByEndpoint    map[EndpointKey]EndpointStats `json:"-"`
}

// Monitor collects network call records. Recording always succeeds;
// URLs are not validated.
type Monitor struct {
	mu      sync.Mutex
	records []CallRecord
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Record appends one call record. The timestamp is set if zero.
func (m *Monitor) Record(r CallRecord) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.records = append(m.records, r)
	m.mu.Unlock()
}

// Records returns a copy of all recorded calls.
func (m *Monitor) Records() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]CallRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Statistics aggregates counts, error rate and latency percentiles,
// overall and per (method, url).
func (m *Monitor) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Statistics{ByEndpoint: make(map[EndpointKey]EndpointStats)}
	if len(m.records) == 0 {
		return out
	}

	var allLatencies []float64
	var dnsSum float64
	var dnsCount int
	grouped := make(map[EndpointKey][]CallRecord)

	for _, r := range m.records {
		out.TotalRequests++
		if r.Error != "" {
			out.Errors++
		}
		allLatencies = append(allLatencies, r.LatencyMS)
		if r.DNSTimeMS > 0 {
			dnsSum += r.DNSTimeMS
			dnsCount++
		}
		key := EndpointKey{Method: r.Method, URL: r.URL}
		grouped[key] = append(grouped[key], r)
	}

	out.ErrorRate = float64(out.Errors) / float64(out.TotalRequests)
	out.Latency = stats.Summarize(allLatencies)
	if dnsCount > 0 {
		out.MeanDNSMS = dnsSum / float64(dnsCount)
	}

	for key, records := range grouped {
		es := EndpointStats{Requests: len(records)}
		latencies := make([]float64, 0, len(records))
		var epDNSSum float64
		var epDNSCount int
		for _, r := range records {
			if r.Error != "" {
				es.Errors++
			}
			latencies = append(latencies, r.LatencyMS)
			if r.DNSTimeMS > 0 {
				epDNSSum += r.DNSTimeMS
				epDNSCount++
			}
		}
		es.Latency = stats.Summarize(latencies)
		es.ErrorRate = float64(es.Errors) / float64(es.Requests)
		if epDNSCount > 0 {
			es.MeanDNSMS = epDNSSum / float64(epDNSCount)
		}
		out.ByEndpoint[key] = es
	}

	return out
}

// Clear discards all records.
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}
