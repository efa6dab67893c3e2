package compute

import "github.com/prometheus/client_golang/prometheus"

var (
	processesLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "worksheetd",
			Subsystem: "compute",
			Name:      "processes_live",
			Help:      "Compute processes currently started",
		},
	)

	processSpawnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worksheetd",
			Subsystem: "compute",
			Name:      "process_spawns_total",
			Help:      "Total compute processes started",
		},
		[]string{"variant"},
	)

	processQuitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worksheetd",
			Subsystem: "compute",
			Name:      "process_quits_total",
			Help:      "Total compute processes stopped, by reason",
		},
		[]string{"reason"},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worksheetd",
			Subsystem: "compute",
			Name:      "executions_total",
			Help:      "Total executions sent to compute processes",
		},
		[]string{"variant"},
	)
)

func init() {
	prometheus.MustRegister(processesLive, processSpawnsTotal, processQuitsTotal, executionsTotal)
}
