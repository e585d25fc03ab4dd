package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution results used as label values.
const (
	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
	ResultRejected  = "rejected"
)

// Lifecycle event statuses used as label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	acceptors         *prometheus.GaugeVec
	deployments       prometheus.Gauge
	resolutions       *prometheus.CounterVec
	lifecycleEvents   *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	activeConnections *prometheus.GaugeVec
	connectionsTotal  *prometheus.CounterVec
	buildInfo         *prometheus.GaugeVec
	registry          *prometheus.Registry
}

// NewMetrics creates a new Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gateway"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.acceptors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "acceptors",
			Help:      "Number of acceptors currently published, by kind",
		},
		[]string{"kind"},
	)

	m.deployments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "deployments",
			Help:      "Number of deployed reactables",
		},
	)

	m.resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total number of acceptor resolutions, by kind and result",
		},
		[]string{"kind", "result"},
	)

	m.lifecycleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "events_total",
			Help:      "Total number of lifecycle events handled, by type and status",
		},
		[]string{"type", "status"},
	)

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests received, by server and status",
		},
		[]string{"server", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds, by server",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"server"},
	)

	m.activeConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tcp_active_connections",
			Help:      "Number of open TCP connections, by server",
		},
		[]string{"server"},
	)

	m.connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tcp_connections_total",
			Help:      "Total number of TCP connections accepted, by server and result",
		},
		[]string{"server", "result"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit"},
	)

	m.registry.MustRegister(
		m.acceptors,
		m.deployments,
		m.resolutions,
		m.lifecycleEvents,
		m.requestsTotal,
		m.requestDuration,
		m.activeConnections,
		m.connectionsTotal,
		m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// SetAcceptors records the number of published acceptors of a kind.
func (m *Metrics) SetAcceptors(kind string, n int) {
	if m == nil {
		return
	}
	m.acceptors.WithLabelValues(kind).Set(float64(n))
}

// SetDeployments records the number of deployed reactables.
func (m *Metrics) SetDeployments(n int) {
	if m == nil {
		return
	}
	m.deployments.Set(float64(n))
}

// RecordResolution counts one resolution attempt.
func (m *Metrics) RecordResolution(kind string, matched bool) {
	if m == nil {
		return
	}
	result := ResultUnmatched
	if matched {
		result = ResultMatched
	}
	m.resolutions.WithLabelValues(kind, result).Inc()
}

// RecordLifecycleEvent counts one handled lifecycle event.
func (m *Metrics) RecordLifecycleEvent(eventType string, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.lifecycleEvents.WithLabelValues(eventType, status).Inc()
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(server string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(server, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(server).Observe(duration.Seconds())
}

// ConnectionOpened tracks a new TCP connection for a server.
func (m *Metrics) ConnectionOpened(server string) {
	if m == nil {
		return
	}
	m.activeConnections.WithLabelValues(server).Inc()
}

// ConnectionClosed tracks a closed TCP connection for a server.
func (m *Metrics) ConnectionClosed(server string) {
	if m == nil {
		return
	}
	m.activeConnections.WithLabelValues(server).Dec()
}

// RecordConnection counts an accepted TCP connection by routing result.
func (m *Metrics) RecordConnection(server, result string) {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues(server, result).Inc()
}

// SetBuildInfo publishes build information.
func (m *Metrics) SetBuildInfo(version, commit string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version, commit).Set(1)
}

// Handler returns an HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
