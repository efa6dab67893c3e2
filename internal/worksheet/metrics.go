package worksheet

import "github.com/prometheus/client_golang/prometheus"

var (
	computationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worksheetd",
			Subsystem: "worksheet",
			Name:      "computations_total",
			Help:      "Finished cell computations by outcome",
		},
		[]string{"outcome"},
	)

	outputTruncationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worksheetd",
			Subsystem: "worksheet",
			Name:      "output_truncations_total",
			Help:      "Cell outputs truncated at finalization",
		},
	)

	computationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "worksheetd",
			Subsystem: "worksheet",
			Name:      "computation_duration_seconds",
			Help:      "Wall time from execute to finalization",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(computationsTotal, outputTruncationsTotal, computationDuration)
}
