// Package metrics collects and exposes Prometheus metrics for the HTTP
// surface and the upstream geo services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UpstreamRecorder is the slice of the collector the upstream clients use.
type UpstreamRecorder interface {
	RecordUpstreamCall(service, outcome string, elapsed time.Duration)
}

type Collector struct {
	registry *prometheus.Registry

	httpStatus      *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoauth_http_status_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoauth_upstream_calls_total",
			Help: "Upstream geo API calls by service and outcome.",
		}, []string{"service", "outcome"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoauth_upstream_latency_seconds",
			Help:    "Upstream geo API call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(c.httpStatus, c.upstreamCalls, c.upstreamLatency)
	return c
}

func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordUpstreamCall(service, outcome string, elapsed time.Duration) {
	c.upstreamCalls.WithLabelValues(service, outcome).Inc()
	c.upstreamLatency.Observe(elapsed.Seconds())
}

// Middleware records the response status of every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		c.RecordHTTPStatus(ww.Status())
	})
}

// Handler serves the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
