package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline and index metrics.
var (
	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_operations_total",
			Help:      "Vector index operations by kind and outcome",
		},
		[]string{"op", "status"},
	)

	IngestedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_records_total",
			Help:      "Index records written by ingestion",
		},
	)

	CandidatesPerCycle = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_cycle",
			Help:      "Number of candidates ranked per query cycle",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 25},
		},
		[]string{"mode"},
	)

	SessionCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cycles_total",
			Help:      "Query cycles by outcome",
		},
		[]string{"outcome"}, // "answered" / "empty" / "error"
	)
)
