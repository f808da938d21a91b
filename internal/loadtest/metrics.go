package loadtest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes live run counters on a Prometheus registry so an
// operator can watch a long test through the status server.
type Metrics struct {
	requests *prometheus.CounterVec
	skipped  prometheus.Counter
	inFlight prometheus.Gauge
	latency  prometheus.Histogram
}

// NewMetrics registers load-test metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geniebench_requests_total",
			Help: "Scenario invocations by outcome.",
		}, []string{"outcome"}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "geniebench_skipped_dispatches_total",
			Help: "Dispatches skipped because the worker pool was full.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "geniebench_in_flight",
			Help: "Scenario invocations currently executing.",
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "geniebench_scenario_latency_seconds",
			Help:    "Scenario latency distribution.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
	}
}

func (m *Metrics) observe(res ScenarioResult) {
	outcome := "success"
	if !res.Success {
		outcome = "failure"
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.latency.Observe(float64(res.Latency) / float64(time.Second))
}
