package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus collectors shared by every router.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates and registers the HTTP metrics on the default registry.
// Registration happens once per process; later calls return the same set.
func New() *Metrics {
	return defaultMetrics
}

var defaultMetrics = &Metrics{
	RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opencrvs_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"}),
	RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opencrvs_http_requests_total",
		Help: "HTTP requests by route, method and status class",
	}, []string{"route", "method", "status"}),
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
	m.RequestsTotal.WithLabelValues(route, method, status).Inc()
}
