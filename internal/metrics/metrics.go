// Package metrics aggregates the Prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the process registry and the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	SuppressionTotal prometheus.Counter
	ExportJobsTotal  *prometheus.CounterVec
	RecordsLoaded    prometheus.Gauge
}

// New constructs a registry with the default process collectors plus the
// service's own.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveyscope",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status class.",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surveyscope",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		SuppressionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surveyscope",
			Name:      "suppressed_results_total",
			Help:      "Result sets withheld by the privacy suppression policy.",
		}),
		ExportJobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surveyscope",
			Name:      "export_jobs_total",
			Help:      "Async export jobs by terminal status.",
		}, []string{"status"}),
		RecordsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "surveyscope",
			Name:      "records_loaded",
			Help:      "Number of survey records loaded at boot.",
		}),
	}
	registry.MustRegister(m.RequestsTotal, m.RequestDuration, m.SuppressionTotal, m.ExportJobsTotal, m.RecordsLoaded)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
