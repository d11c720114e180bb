// Package cluster defines options, merge events and sentinel errors for
// average-linkage clustering.
package cluster

import (
	"errors"
	"fmt"
)

// ErrBadPercentile indicates a clustering percentile outside [0,1].
var ErrBadPercentile = errors.New("cluster: percentile must be in [0,1]")

// ErrNilTable indicates Run was called without a distance table.
var ErrNilTable = errors.New("cluster: nil distance table")

// ErrOutOfRange indicates a Dense lookup outside the table.
var ErrOutOfRange = errors.New("cluster: index out of range")

// DefaultPercentile admits the closest 5% of pairs.
const DefaultPercentile = 0.05

// Table is the read-only pairwise view clustering consumes.
// Pair returns the unordered distance of a and b; +Inf marks a pair that
// must never merge. matrix.Distances satisfies Table.
type Table interface {
	Len() int
	Pair(a, b int) (float64, error)
}

// Dense adapts a square [][]float64 to Table. Pair averages both directions.
type Dense [][]float64

// Len returns the number of rows.
func (d Dense) Len() int { return len(d) }

// Pair returns (d[a][b] + d[b][a]) / 2.
func (d Dense) Pair(a, b int) (float64, error) {
	if a < 0 || b < 0 || a >= len(d) || b >= len(d) || b >= len(d[a]) || a >= len(d[b]) {
		return 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfRange, a, b)
	}

	return (d[a][b] + d[b][a]) / 2, nil
}

// Options configures Run. Use DefaultOptions and Option helpers.
//
// Fields:
//
//	Percentile float64: fraction of finite pair distances eligible to merge,
//	                     in [0,1]. The stopping threshold is the empirical
//	                     quantile of those distances, computed once.
type Options struct {
	Percentile float64
}

// Option mutates Options.
type Option func(*Options)

// WithPercentile sets the clustering percentile.
func WithPercentile(p float64) Option {
	return func(o *Options) {
		o.Percentile = p
	}
}

// DefaultOptions returns Options with Percentile = DefaultPercentile.
func DefaultOptions() Options {
	return Options{Percentile: DefaultPercentile}
}

// Validate checks the percentile range (NaN is rejected).
func (o Options) Validate() error {
	if !(o.Percentile >= 0 && o.Percentile <= 1) {
		return fmt.Errorf("%w: clustering_percentile=%v", ErrBadPercentile, o.Percentile)
	}

	return nil
}

// MergeKind classifies a merge by the size of its operands.
type MergeKind uint8

const (
	// SeqSeq joins two singletons.
	SeqSeq MergeKind = iota

	// SeqCluster joins a singleton (A) with a cluster (B).
	SeqCluster

	// ClusterSeq joins a cluster (A) with a singleton (B).
	ClusterSeq

	// ClusterCluster joins two clusters.
	ClusterCluster
)

func kindOf(sizeA, sizeB int) MergeKind {
	switch {
	case sizeA == 1 && sizeB == 1:
		return SeqSeq
	case sizeA == 1:
		return SeqCluster
	case sizeB == 1:
		return ClusterSeq
	default:
		return ClusterCluster
	}
}

// String returns a stable label for logs and JSON.
func (k MergeKind) String() string {
	switch k {
	case SeqSeq:
		return "seq-seq"
	case SeqCluster:
		return "seq-cluster"
	case ClusterSeq:
		return "cluster-seq"
	case ClusterCluster:
		return "cluster-cluster"
	default:
		return fmt.Sprintf("MergeKind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind as its label.
func (k MergeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// MergeEvent is one dendrogram step. A and B are the roots (table indices)
// of the two clusters, A < B; Into is the surviving root.
type MergeEvent struct {
	A        int       `json:"a"`
	B        int       `json:"b"`
	Into     int       `json:"into"`
	Distance float64   `json:"distance"`
	SizeA    int       `json:"size_a"`
	SizeB    int       `json:"size_b"`
	Kind     MergeKind `json:"kind"`
}

// Result is the terminal partition and its history.
//
// Clusters are ordered by their smallest member; members are ascending table
// indices. Assignment[i] is the index into Clusters of row i.
type Result struct {
	Threshold  float64      `json:"threshold"`
	Eligible   int          `json:"eligible_pairs"`
	Events     []MergeEvent `json:"events"`
	Assignment []int        `json:"assignment"`
	Clusters   [][]int      `json:"clusters"`
}
