package gallery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics describes refresh cycles. A nil *Metrics is a no-op.
type Metrics struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	size     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinephilia",
			Subsystem: "gallery",
			Name:      "refresh_cycles_total",
			Help:      "Completed refresh cycles by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cinephilia",
			Subsystem: "gallery",
			Name:      "refresh_cycle_seconds",
			Help:      "Wall time of one refresh cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cinephilia",
			Subsystem: "gallery",
			Name:      "movies",
			Help:      "Records in the displayed set.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.cycles, m.duration, m.size)
	}
	return m
}

func (m *Metrics) cycle(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) movies(n int) {
	if m != nil {
		m.size.Set(float64(n))
	}
}
