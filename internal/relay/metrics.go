package relay

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts relay attempts by host and outcome. A nil *Metrics is a
// no-op.
type Metrics struct {
	attempts *prometheus.CounterVec
}

// NewMetrics registers the relay counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinephilia",
			Subsystem: "relay",
			Name:      "attempts_total",
			Help:      "Relay fetch attempts by relay host and outcome.",
		}, []string{"relay", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts)
	}
	return m
}

func (m *Metrics) observe(relay, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(relay, outcome).Inc()
}
