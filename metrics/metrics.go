// Package metrics declares the Prometheus instruments exported by soundmotif.
// All instruments register on the default registry via promauto; expose them
// with promhttp.Handler (see cmd/soundmotif).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Alignment outcomes used as label values.
const (
	OutcomeOK         = "ok"
	OutcomeInfeasible = "infeasible"
	OutcomeCancelled  = "cancelled"
	OutcomeError      = "error"
)

var (
	// AlignmentsTotal counts pairwise alignments by outcome.
	AlignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmotif_alignments_total",
			Help: "Total number of pairwise DTW alignments by outcome",
		},
		[]string{"outcome"},
	)

	// AlignmentDuration observes the wall time of one alignment.
	AlignmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundmotif_alignment_duration_seconds",
			Help:    "Duration of a single pairwise alignment",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		},
	)

	// ClusterMergesTotal counts UPGMA merge events.
	ClusterMergesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundmotif_cluster_merges_total",
			Help: "Total number of UPGMA merge events",
		},
	)

	// Clusters reports the number of clusters of the last run.
	Clusters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "soundmotif_clusters",
			Help: "Number of clusters produced by the last clustering run",
		},
	)

	// ModelStates observes the number of states of each merged model.
	ModelStates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soundmotif_model_states",
			Help:    "Number of states per merged cluster model",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// DegenerateClustersTotal counts clusters whose model collapsed to zero states.
	DegenerateClustersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundmotif_degenerate_clusters_total",
			Help: "Total number of clusters whose merged model has no states",
		},
	)

	// LogEntriesTotal counts log entries by level.
	LogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundmotif_log_entries_total",
			Help: "Total number of log entries by level",
		},
		[]string{"level"},
	)
)
