package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics tracks the entitlement tier cache. Layers are "memory" and
// "redis"; a miss on both means a Postgres load.
type CacheMetrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Invalidations prometheus.Counter
	SharedLoads   prometheus.Counter
	Evictions     prometheus.Counter
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tier_cache", Name: name, Help: help,
		})
	}
	byLayer := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tier_cache", Name: name, Help: help,
		}, []string{"layer"})
	}

	m := &CacheMetrics{
		Hits:          byLayer("hits_total", "Tier lookups answered by a cache layer."),
		Misses:        byLayer("misses_total", "Tier lookups that fell through a cache layer."),
		Invalidations: counter("invalidations_total", "Tier entries dropped after a subscription change."),
		SharedLoads:   counter("shared_loads_total", "Tier lookups that joined an in-flight load for the same user."),
		Evictions:     counter("evictions_total", "Expired in-memory tier entries removed by the eviction timer."),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Invalidations, m.SharedLoads, m.Evictions)
	return m
}

// Hit and the other recorders below accept a nil receiver so callers built
// without metrics need no guards.
func (m *CacheMetrics) Hit(layer string) {
	if m != nil {
		m.Hits.WithLabelValues(layer).Inc()
	}
}

func (m *CacheMetrics) Miss(layer string) {
	if m != nil {
		m.Misses.WithLabelValues(layer).Inc()
	}
}

func (m *CacheMetrics) Invalidated() {
	if m != nil {
		m.Invalidations.Inc()
	}
}

func (m *CacheMetrics) Shared() {
	if m != nil {
		m.SharedLoads.Inc()
	}
}

func (m *CacheMetrics) Evicted(n int) {
	if m != nil && n > 0 {
		m.Evictions.Add(float64(n))
	}
}
