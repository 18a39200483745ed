package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache outcomes per collection key. A nil *Metrics is valid
// and counts nothing.
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	stales    *prometheus.CounterVec
	mutations *prometheus.CounterVec
}

// NewMetrics creates and registers cache counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_cache_hits_total",
			Help: "Fresh cache reads served without a refetch.",
		}, []string{"key"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_cache_misses_total",
			Help: "Cache reads that found no usable entry.",
		}, []string{"key"}),
		stales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_cache_stale_reads_total",
			Help: "Cache reads served past their TTL.",
		}, []string{"key"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardsync_cache_mutations_total",
			Help: "Copy-on-write mutations applied to cached collections.",
		}, []string{"key"}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.stales, m.mutations)
	}
	return m
}

func (m *Metrics) hit(key string) {
	if m != nil {
		m.hits.WithLabelValues(key).Inc()
	}
}

func (m *Metrics) miss(key string) {
	if m != nil {
		m.misses.WithLabelValues(key).Inc()
	}
}

func (m *Metrics) stale(key string) {
	if m != nil {
		m.stales.WithLabelValues(key).Inc()
	}
}

func (m *Metrics) mutation(key string) {
	if m != nil {
		m.mutations.WithLabelValues(key).Inc()
	}
}
