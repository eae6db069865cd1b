package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeStreams   prometheus.Gauge
	streamEvents    *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gagent_http_requests_total",
			Help: "HTTP requests by route, method, and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gagent_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gagent_active_streams",
			Help: "Chat streams currently open.",
		}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gagent_stream_events_total",
			Help: "Stream events emitted, by wire type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeStreams,
		m.streamEvents,
	)
	return m
}

// Handler returns the /metrics scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(route, method string, code int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) streamOpened()                { m.activeStreams.Inc() }
func (m *Metrics) streamClosed()                { m.activeStreams.Dec() }
func (m *Metrics) observeEvent(wireType string) { m.streamEvents.WithLabelValues(wireType).Inc() }
