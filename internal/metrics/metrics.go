package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// RequestLatency tracks HTTP request latency by endpoint and method
	RequestLatency *prometheus.HistogramVec
	// HTTPRequestsTotal total HTTP requests
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTPRequestsInFlight current HTTP requests being processed
	HTTPRequestsInFlight prometheus.Gauge
	// ProviderCalls counts provider API calls by operation and outcome kind
	ProviderCalls *prometheus.CounterVec
	// RefreshesTotal counts credential refresh attempts
	RefreshesTotal *prometheus.CounterVec
	// SessionRejections counts rejected session tokens by failure kind
	SessionRejections *prometheus.CounterVec
	// AIGenerations counts text generation calls by outcome
	AIGenerations *prometheus.CounterVec
	// AuditDropsTotal counts audit events dropped on a full queue
	AuditDropsTotal prometheus.Counter
	// registry is the custom registry for this metrics instance
	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_latency_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of provider API calls",
			},
			[]string{"operation", "kind"},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credential_refreshes_total",
				Help:      "Total number of credential refresh attempts",
			},
			[]string{"outcome", "coalesced"},
		),
		SessionRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_rejections_total",
				Help:      "Total number of rejected session tokens",
			},
			[]string{"kind"},
		),
		AIGenerations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ai_generations_total",
				Help:      "Total number of text generation calls",
			},
			[]string{"outcome"},
		),
		AuditDropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_drops_total",
				Help:      "Total number of audit events dropped on a full queue",
			},
		),
	}

	// Register metrics with custom registry
	registry.MustRegister(
		m.RequestLatency,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.ProviderCalls,
		m.RefreshesTotal,
		m.SessionRejections,
		m.AIGenerations,
		m.AuditDropsTotal,
	)

	return m
}

// Handler returns a Prometheus handler for these metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequestLatency records the latency of an HTTP request
func (m *Metrics) RecordRequestLatency(endpoint, method, status string, durationSeconds float64) {
	m.RequestLatency.WithLabelValues(endpoint, method, status).Observe(durationSeconds)
}

// RecordHTTPRequest increments the HTTP requests counter
func (m *Metrics) RecordHTTPRequest(endpoint, method, status string) {
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// IncHTTPRequestsInFlight increments the in-flight requests gauge
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight requests gauge
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordProviderCall records one provider API call and its outcome kind
func (m *Metrics) RecordProviderCall(operation, kind string) {
	m.ProviderCalls.WithLabelValues(operation, kind).Inc()
}

// RecordRefresh records a credential refresh attempt
func (m *Metrics) RecordRefresh(outcome string, coalesced bool) {
	shared := "false"
	if coalesced {
		shared = "true"
	}
	m.RefreshesTotal.WithLabelValues(outcome, shared).Inc()
}

// RecordSessionRejection records a rejected session token
func (m *Metrics) RecordSessionRejection(kind string) {
	m.SessionRejections.WithLabelValues(kind).Inc()
}

// RecordAIGeneration records a text generation call
func (m *Metrics) RecordAIGeneration(outcome string) {
	m.AIGenerations.WithLabelValues(outcome).Inc()
}

// RecordAuditDrop counts one dropped audit event
func (m *Metrics) RecordAuditDrop() {
	m.AuditDropsTotal.Inc()
}
