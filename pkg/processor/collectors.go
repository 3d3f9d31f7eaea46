package processor

import "github.com/prometheus/client_golang/prometheus"

var (
	cycleTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "processor_cycle_seconds",
			Help:    "time spent in one processor cycle.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"processor"},
	)

	executedActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "processor_actions_total", Help: "actions executed by processor"},
		[]string{"processor"},
	)

	rejectedActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "processor_rejected_total", Help: "submissions refused by processor"},
		[]string{"processor"},
	)

	panics = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "processor_panics_total", Help: "recovered panics by processor"},
		[]string{"processor"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "processor_queue_depth", Help: "actions waiting for the next cycle"},
		[]string{"processor"},
	)
)

func init() {
	prometheus.MustRegister(
		cycleTime,
		executedActions,
		rejectedActions,
		panics,
		queueDepth,
	)
}
