// Package metrics defines the service's Prometheus collectors. Everything is
// registered on a private registry served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kingsocial"

// Set bundles every collector group the server wires into its adapters.
type Set struct {
	Registry *prometheus.Registry
	HTTP     *HTTPMetrics
	DB       *DBMetrics
	Redis    *RedisMetrics
	Cache    *CacheMetrics
	Realtime *RealtimeMetrics
	Webhook  *WebhookMetrics
}

// NewSet creates a registry with runtime collectors and registers all groups on it.
func NewSet() *Set {
	reg := NewRegistry()
	return &Set{
		Registry: reg,
		HTTP:     NewHTTPMetrics(reg),
		DB:       NewDBMetrics(reg),
		Redis:    NewRedisMetrics(reg),
		Cache:    NewCacheMetrics(reg),
		Realtime: NewRealtimeMetrics(reg),
		Webhook:  NewWebhookMetrics(reg),
	}
}

// Handler serves the set's registry.
func (s *Set) Handler() http.Handler {
	return Handler(s.Registry)
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
