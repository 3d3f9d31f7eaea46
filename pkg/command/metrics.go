package command

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var totalDispatches = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "command_dispatches_total", Help: "command submissions by command and result"},
	[]string{"command", "result"},
)

func init() {
	prometheus.MustRegister(totalDispatches)
}

func observeDispatch(name string, err error) {
	totalDispatches.WithLabelValues(name, dispatchResult(err)).Inc()
}

func dispatchResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrTargetExpired):
		return "target_expired"
	case errors.Is(err, ErrProcessorRejected):
		return "rejected"
	}
	return "error"
}
