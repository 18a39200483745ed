package realtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts bridge traffic. A nil *Metrics counts nothing.
type Metrics struct {
	receivedTotal  prometheus.Counter
	droppedTotal   prometheus.Counter
	publishedTotal prometheus.Counter
}

// NewMetrics creates and registers bridge counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		receivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardsync_notifications_received_total",
			Help: "Inbound change notifications accepted from other clients.",
		}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardsync_notifications_dropped_total",
			Help: "Inbound notifications dropped as malformed or unroutable.",
		}),
		publishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boardsync_notifications_published_total",
			Help: "Local change events published to other clients.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.receivedTotal, m.droppedTotal, m.publishedTotal)
	}
	return m
}

func (m *Metrics) received() {
	if m != nil {
		m.receivedTotal.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.droppedTotal.Inc()
	}
}

func (m *Metrics) published() {
	if m != nil {
		m.publishedTotal.Inc()
	}
}
