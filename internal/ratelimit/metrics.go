package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "opencrvs_ratelimit_checks_total",
	Help: "Rate limit checks by class and outcome (allowed, blocked, error)",
}, []string{"class", "outcome"})

func observe(class, outcome string) {
	checksTotal.WithLabelValues(class, outcome).Inc()
}
