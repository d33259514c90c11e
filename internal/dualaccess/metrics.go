package dualaccess

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts operations per backend path.
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg (prometheus.DefaultRegisterer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "centrovision",
			Subsystem: "dualaccess",
			Name:      "operations_total",
			Help:      "Data operations by family, operation, backend path and outcome.",
		}, []string{"family", "op", "path", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "centrovision",
			Subsystem: "dualaccess",
			Name:      "operation_seconds",
			Help:      "Data operation latency by family and backend path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"family", "path"}),
	}
	reg.MustRegister(m.operations, m.latency)
	return m
}

func (m *Metrics) observe(family, op, path, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(family, op, path, outcome).Inc()
	if outcome != "unavailable" {
		m.latency.WithLabelValues(family, path).Observe(elapsed.Seconds())
	}
}
