// Package soundmotif discovers recurring patterns in collections of audio
// feature sequences without supervision.
//
// 🚀 What is soundmotif?
//
//	A small pipeline that turns a table of per-frame feature vectors into a
//	set of pattern models:
//		• Alignment: banded, weighted Dynamic Time Warping (dtw/)
//		• Distances: a parallel N×N alignment cost matrix (matrix/)
//		• Clustering: average-linkage UPGMA over a union-find forest (cluster/)
//		• Models: one left-to-right Gaussian HMM merged per cluster (hmm/)
//
// Under the hood the repository is organised as:
//
//	sequence/  : frames, segments, the in-memory store and Parquet I/O
//	dtw/       : Align, alignment paths, warping band
//	matrix/    : Distances and the errgroup-driven Build
//	unionfind/ : disjoint-set forest shared by clustering and merging
//	cluster/   : percentile threshold, merge events, terminal clusters
//	hmm/       : Merge, Model, Viterbi Decode and Classify
//	pipeline/  : end-to-end Run plus JSON and detections reports
//	config/    : YAML, .env and SOUNDMOTIF_* environment configuration
//	logging/   : zap logger construction
//	metrics/   : Prometheus collectors
//	cmd/soundmotif: the command-line entry point
//
// Quick start:
//
//	soundmotif discover --config soundmotif.yaml \
//	    --input frames.parquet --out result.json --detections detections.tsv
package soundmotif
