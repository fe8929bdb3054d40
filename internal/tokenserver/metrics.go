package tokenserver

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the token server's Prometheus collectors.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_requests_total",
			Help: "Token requests by result",
		}, []string{"result"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "token_request_duration_seconds",
			Help:    "Time spent minting tokens",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *Metrics) observe(result string, seconds float64) {
	m.requests.WithLabelValues(result).Inc()
	m.latency.Observe(seconds)
}
