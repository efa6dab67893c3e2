package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	idleEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worksheetd",
			Subsystem: "manager",
			Name:      "idle_evictions_total",
			Help:      "Interpreters stopped because their worksheet was idle",
		},
	)

	worksheetsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "worksheetd",
			Subsystem: "manager",
			Name:      "worksheets",
			Help:      "Open worksheets",
		},
	)
)

func init() {
	prometheus.MustRegister(idleEvictionsTotal, worksheetsGauge)
}
