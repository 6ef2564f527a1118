package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the prometheus collectors the service exports. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	reqTotal      *prometheus.CounterVec
	reqLatency    *prometheus.HistogramVec
	errTotal      *prometheus.CounterVec
	subscriptions *prometheus.GaugeVec
	snapshots     *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		reqLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "Domain errors returned to clients, by code.",
		}, []string{"route", "method", "code"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "helpdesk_live_subscriptions",
			Help: "Open live query subscriptions.",
		}, []string{"kind"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_live_snapshots_total",
			Help: "Snapshots delivered to live query subscribers.",
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_events_published_total",
			Help: "Domain events published, by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(
		m.reqTotal, m.reqLatency, m.errTotal,
		m.subscriptions, m.snapshots, m.events,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.reqTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.reqLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errTotal.WithLabelValues(route, method, code).Inc()
}

// SubscriptionOpened tracks a new live query.
func (m *Metrics) SubscriptionOpened(kind string) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(kind).Inc()
}

// SubscriptionClosed tracks a released live query.
func (m *Metrics) SubscriptionClosed(kind string) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(kind).Dec()
}

// SnapshotDelivered counts one snapshot handed to a subscriber.
func (m *Metrics) SnapshotDelivered(kind string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(kind).Inc()
}

// EventPublished counts a domain event.
func (m *Metrics) EventPublished(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}
