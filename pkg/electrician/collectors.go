package electrician

import "github.com/prometheus/client_golang/prometheus"

var (
	publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_invocations_published_total", Help: "invocations handed to the forward relay"},
		[]string{"result"},
	)
	received = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "relay_invocations_received_total", Help: "invocations arriving at the receiver"},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(publishes, received)
}
