// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"role", "status"},
	)

	RequestsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_requests_submitted_total",
			Help: "Total number of submitted change requests",
		},
		[]string{"kind"},
	)

	Adjudications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adjudications_total",
			Help: "Total number of adjudicated change requests",
		},
		[]string{"kind", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
