package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the server's prometheus registry. It records lifecycle
// outcomes and store commit latency.
type Metrics struct {
	registry *prometheus.Registry
	ops      *prometheus.CounterVec
	commits  prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guild_lifecycle_operations_total",
			Help: "Borrow lifecycle operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		commits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "guild_store_commit_seconds",
			Help:    "Time spent committing record store transactions.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	m.registry.MustRegister(
		m.ops,
		m.commits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveOperation(op, outcome string) {
	m.ops.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveCommit(d time.Duration) {
	m.commits.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
