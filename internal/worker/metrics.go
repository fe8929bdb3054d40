package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the worker's Prometheus collectors.
type Metrics struct {
	jobs   *prometheus.CounterVec
	active prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_jobs_total",
			Help: "Jobs handled by final status",
		}, []string{"status"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_jobs_active",
			Help: "Jobs currently running",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.jobs, m.active)
	}
	return m
}

func (m *Metrics) jobStarted() {
	m.active.Inc()
}

func (m *Metrics) jobFinished(status string) {
	m.active.Dec()
	m.jobs.WithLabelValues(status).Inc()
}
