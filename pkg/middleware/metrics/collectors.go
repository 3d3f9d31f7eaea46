package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	requestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "steeze",
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "Command surface latency by route pattern.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"route"},
	)

	requestsByRoute = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "steeze", Subsystem: "http", Name: "requests_total", Help: "Command surface requests."},
		[]string{"code", "method", "route", "component"},
	)

	requestsByRole = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "steeze", Subsystem: "http", Name: "requests_by_role_total", Help: "Command surface requests by caller role."},
		[]string{"role"},
	)
)

func init() {
	prometheus.MustRegister(requestSeconds, requestsByRoute, requestsByRole)
}
