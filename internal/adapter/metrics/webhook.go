package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics tracks payment-provider webhook handling.
type WebhookMetrics struct {
	EventsTotal        *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	SignatureFailures  prometheus.Counter
	GuardEntries       prometheus.Gauge
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total number of verified webhook events, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "processing_duration_seconds",
			Help:      "Duration of webhook event processing in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SignatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "signature_failures_total",
			Help:      "Total number of webhook requests rejected for a missing or invalid signature.",
		}),
		GuardEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "guard_entries",
			Help:      "Number of event IDs held by the in-process idempotency guard.",
		}),
	}

	reg.MustRegister(m.EventsTotal, m.ProcessingDuration, m.SignatureFailures, m.GuardEntries)
	return m
}
