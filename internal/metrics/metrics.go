// Package metrics provides Prometheus metrics for the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Origin label values.
const (
	OriginStatic  = "static"
	OriginDynamic = "dynamic"
)

// Decision label values for RouteDecisions.
const (
	DecisionStatic         = "static"
	DecisionStaticFallback = "static_fallback"
	DecisionDynamic        = "dynamic"
	DecisionTunnel         = "tunnel"
)

// Metrics holds all Prometheus metric collectors for the router.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	RouteDecisions *prometheus.CounterVec

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec
	UpstreamErrors    *prometheus.CounterVec

	TunnelsActive prometheus.Gauge
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_router_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edge_router_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edge_router_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		RouteDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_router_route_decisions_total",
			Help: "Routing outcomes: static, static_fallback, dynamic or tunnel.",
		}, []string{"decision"}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edge_router_upstream_request_duration_seconds",
			Help:    "Origin call latency until response headers, in seconds.",
			Buckets: defaultBuckets,
		}, []string{"origin", "method"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_router_upstream_responses_total",
			Help: "Total origin responses by origin, method and status code.",
		}, []string{"origin", "method", "status_code"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_router_upstream_errors_total",
			Help: "Origin calls that failed before a response was received.",
		}, []string{"origin"}),

		TunnelsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edge_router_tunnels_active",
			Help: "Number of open WebSocket tunnels to the dynamic origin.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.RouteDecisions,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.UpstreamErrors,
		m.TunnelsActive,
	)

	return m
}

// ObserveDecision counts one routing outcome. Safe on a nil receiver.
func (m *Metrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.RouteDecisions.WithLabelValues(decision).Inc()
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}
