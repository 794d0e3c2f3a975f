// Package observability provides optional Prometheus metrics and
// OpenTelemetry tracing for mcpwire clients. Both are opt-in: a nil
// *Metrics is a valid no-op receiver, so instrumented code never branches
// on whether monitoring is configured.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metric namespace and constant labels.
type MetricsConfig struct {
	// Namespace is the Prometheus namespace. Default "mcpwire".
	Namespace string

	// ConstLabels are attached to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the request latency histogram buckets in seconds.
	Buckets []float64

	// Registry overrides the backing registry (testing). Defaults to a
	// fresh private registry.
	Registry *prometheus.Registry
}

// Metrics instruments a client's request and connection activity.
type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	openTotal       *prometheus.CounterVec
	reconnectTotal  *prometheus.CounterVec
	pendingCalls    prometheus.Gauge
}

// NewMetrics builds and registers the client metric set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "mcpwire"
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: cfg.Registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "request_duration_seconds",
			Help:        "Latency of correlated calls by method and result.",
			Buckets:     cfg.Buckets,
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "result"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "requests_total",
			Help:        "Completed correlated calls by method and result.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "result"}),
		openTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "transport_opens_total",
			Help:        "Transport open attempts by transport and outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"transport", "outcome"}),
		reconnectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "reconnects_total",
			Help:        "Reconnection cycles triggered by unsolicited closes.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"transport"}),
		pendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "pending_calls",
			Help:        "Requests awaiting a correlated response.",
			ConstLabels: cfg.ConstLabels,
		}),
	}

	cfg.Registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.openTotal,
		m.reconnectTotal,
		m.pendingCalls,
	)
	return m
}

// ObserveRequest records one completed correlated call.
func (m *Metrics) ObserveRequest(method, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, result).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(method, result).Inc()
}

// RecordOpen records one transport open attempt.
func (m *Metrics) RecordOpen(transport, outcome string) {
	if m == nil {
		return
	}
	m.openTotal.WithLabelValues(transport, outcome).Inc()
}

// RecordReconnect records one reconnection cycle.
func (m *Metrics) RecordReconnect(transport string) {
	if m == nil {
		return
	}
	m.reconnectTotal.WithLabelValues(transport).Inc()
}

// SetPending tracks the pending-table size.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pendingCalls.Set(float64(n))
}

// Handler exposes the metric set for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the backing registry (testing and composition).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
