package mutation

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts mutation outcomes by kind. A nil *Metrics counts nothing.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics creates and registers mutation counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_mutations_total",
			Help: "Optimistic mutations by kind and terminal outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *Metrics) count(kind, outcome string) {
	if m != nil {
		m.outcomes.WithLabelValues(kind, outcome).Inc()
	}
}
