package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the application registry.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	Downloads       *prometheus.CounterVec
	PersistFailures prometheus.Counter
	GatewayLatency  *prometheus.HistogramVec
}

var defaultMetrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opencrvs_application_transitions_total",
			Help: "Applied application status transitions by event",
		}, []string{"event"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opencrvs_application_submissions_total",
			Help: "Gateway submissions by outcome",
		}, []string{"outcome"}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opencrvs_application_downloads_total",
			Help: "Gateway downloads by outcome",
		}, []string{"outcome"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "opencrvs_application_persist_failures_total",
			Help: "Registry snapshot writes that failed",
		}),
		GatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opencrvs_application_gateway_duration_seconds",
			Help:    "Latency of gateway calls made for applications",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// New returns the process-wide application metrics.
func New() *Metrics {
	return defaultMetrics
}

// NewWithRegistry registers a separate set of collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func (m *Metrics) IncTransition(event string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(event).Inc()
}

func (m *Metrics) IncSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDownload(outcome string) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPersistFailure() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) ObserveGateway(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.GatewayLatency.WithLabelValues(operation).Observe(seconds)
}
