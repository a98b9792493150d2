package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EventsAcceptedTotal *prometheus.CounterVec
	EventsRejectedTotal *prometheus.CounterVec

	ReportsComputedTotal *prometheus.CounterVec
	ReportEventsCount    prometheus.Histogram
	ReportCacheHits      prometheus.Counter
	ReportCacheMisses    prometheus.Counter
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitestats_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitestats_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		EventsAcceptedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitestats_events_accepted_total",
				Help: "Events stored, by event type",
			},
			[]string{"event_type"},
		),
		EventsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitestats_events_rejected_total",
				Help: "Events not stored, by reason",
			},
			[]string{"reason"},
		),
		ReportsComputedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitestats_reports_computed_total",
				Help: "Metrics reports aggregated from the event store, by range",
			},
			[]string{"range"},
		),
		ReportEventsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sitestats_report_events",
				Help:    "Number of events aggregated per report",
				Buckets: prometheus.ExponentialBuckets(10, 4, 7),
			},
		),
		ReportCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitestats_report_cache_hits_total",
			Help: "Metrics reports served from cache",
		}),
		ReportCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitestats_report_cache_misses_total",
			Help: "Metrics reports not found in cache",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsAcceptedTotal,
		m.EventsRejectedTotal,
		m.ReportsComputedTotal,
		m.ReportEventsCount,
		m.ReportCacheHits,
		m.ReportCacheMisses,
	)

	return m
}

func (m *Metrics) EventAccepted(eventType string) {
	m.EventsAcceptedTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventRejected(reason string) {
	m.EventsRejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReportComputed(rangeName string, events int) {
	m.ReportsComputedTotal.WithLabelValues(rangeName).Inc()
	m.ReportEventsCount.Observe(float64(events))
}

func (m *Metrics) CacheHit()  { m.ReportCacheHits.Inc() }
func (m *Metrics) CacheMiss() { m.ReportCacheMisses.Inc() }

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
