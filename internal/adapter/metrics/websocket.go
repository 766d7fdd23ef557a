package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics holds Prometheus metrics for realtime websocket connections.
type RealtimeMetrics struct {
	ActiveConnections prometheus.Gauge
	EventsPublished   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	m := &RealtimeMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "active_connections",
			Help:      "Number of open realtime websocket connections.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Total number of realtime events queued to connections, by event type.",
		}, []string{"type"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Total number of realtime events dropped because a connection's buffer was full.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.EventsPublished, m.EventsDropped)
	return m
}
