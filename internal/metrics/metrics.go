// Package metrics exposes prometheus instruments for the sync endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's instruments on a private registry so tests
// can build isolated instances without double-registration panics.
type Metrics struct {
	registry *prometheus.Registry
	syncOps  *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	syncOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statsync",
		Name:      "sync_operations_total",
		Help:      "Sync operations by operation and outcome.",
	}, []string{"op", "outcome"})
	registry.MustRegister(
		syncOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{registry: registry, syncOps: syncOps}
}

// Observe counts one sync operation with its outcome (accepted, conflict,
// or an error-taxonomy code).
func (m *Metrics) Observe(op, outcome string) {
	m.syncOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
