package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// Provider metrics
	SignedURLRequestsTotal  *prometheus.CounterVec
	AgentProvisionsTotal    *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	// Back-office metrics
	StoreSearchesTotal       *prometheus.CounterVec
	ProcurementRequestsTotal prometheus.Counter
	ReservationsTotal        prometheus.Counter
	RecordsPurgedTotal       prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		SignedURLRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signed_url_requests_total",
				Help: "Total number of signed URL requests by outcome",
			},
			[]string{"status"},
		),
		AgentProvisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_provisions_total",
				Help: "Total number of agent provisioning attempts by outcome",
			},
			[]string{"status"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Duration of calls to external providers in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		StoreSearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_searches_total",
				Help: "Total number of store searches by outcome",
			},
			[]string{"status"},
		),
		ProcurementRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "procurement_requests_total",
				Help: "Total number of procurement requests recorded",
			},
		),
		ReservationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "reservations_total",
				Help: "Total number of reservation outcomes recorded",
			},
		),
		RecordsPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "records_purged_total",
				Help: "Total number of records removed by the retention sweep",
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.SignedURLRequestsTotal)
	m.registry.MustRegister(m.AgentProvisionsTotal)
	m.registry.MustRegister(m.ProviderRequestDuration)

	m.registry.MustRegister(m.StoreSearchesTotal)
	m.registry.MustRegister(m.ProcurementRequestsTotal)
	m.registry.MustRegister(m.ReservationsTotal)
	m.registry.MustRegister(m.RecordsPurgedTotal)

	m.registry.MustRegister(m.HTTPRequestsTotal)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// ObserveProvider records the duration of a provider call started at start
func (m *Metrics) ObserveProvider(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.ProviderRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
