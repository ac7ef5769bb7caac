package enrich

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts enrichment outcomes per worker. A nil *Metrics is a no-op.
type Metrics struct {
	fetches *prometheus.CounterVec
	patches *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinephilia",
			Subsystem: "enrich",
			Name:      "fetches_total",
			Help:      "Detail page fetches by worker and outcome (ok, empty, error).",
		}, []string{"worker", "outcome"}),
		patches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinephilia",
			Subsystem: "enrich",
			Name:      "patches_total",
			Help:      "Patches produced by worker and origin (cache, fetch).",
		}, []string{"worker", "origin"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.patches)
	}
	return m
}

func (m *Metrics) fetch(worker, outcome string) {
	if m != nil {
		m.fetches.WithLabelValues(worker, outcome).Inc()
	}
}

func (m *Metrics) patch(worker, origin string) {
	if m != nil {
		m.patches.WithLabelValues(worker, origin).Inc()
	}
}
