package pipeline

import (
	"errors"

	"github.com/katalvlaran/soundmotif/hmm"
	"github.com/katalvlaran/soundmotif/sequence"
)

// ErrNilStore indicates Run was called without a sequence store.
var ErrNilStore = errors.New("pipeline: nil sequence store")

// Phase names reported to Progress.
const (
	PhaseAlign  = "align"
	PhasePaths  = "paths"
	PhaseMerge  = "merge"
	PhaseDecode = "decode"
)

// Progress receives coarse progress updates. Advance may be called from
// several goroutines at once.
type Progress interface {
	Phase(name string, total int)
	Advance()
}

type noProgress struct{}

func (noProgress) Phase(string, int) {}
func (noProgress) Advance()          {}

// SegmentRef identifies one input sequence in the snapshot.
type SegmentRef struct {
	ID      int64            `json:"id"`
	Frames  int              `json:"frames"`
	Segment sequence.Segment `json:"segment"`
}

// MergeEvent is a dendrogram step expressed in segment ids. A, B and Into
// are the representative segments of the clusters involved.
type MergeEvent struct {
	A        int64   `json:"a"`
	B        int64   `json:"b"`
	Into     int64   `json:"into"`
	Distance float64 `json:"distance"`
	SizeA    int     `json:"size_a"`
	SizeB    int     `json:"size_b"`
	Kind     string  `json:"kind"`
}

// Cluster is one terminal cluster with its merged model. Model is nil and
// Degenerate holds the reason when merging produced no states.
type Cluster struct {
	ID         int        `json:"id"`
	Members    []int64    `json:"members"`
	Paths      int        `json:"paths"`
	Model      *hmm.Model `json:"model,omitempty"`
	Degenerate string     `json:"degenerate,omitempty"`
}

// SkippedPair records an ordered pair the warping band could not align.
type SkippedPair struct {
	A      int64  `json:"a"`
	B      int64  `json:"b"`
	Reason string `json:"reason"`
}

// Decoding is the classification of one segment against every cluster model.
// Best is -1 and Reachable false when no model can emit the segment.
type Decoding struct {
	Segment       int64   `json:"segment"`
	Cluster       int     `json:"cluster"`
	Best          int     `json:"best"`
	LogLikelihood float64 `json:"log_likelihood"`
	Reachable     bool    `json:"reachable"`
}

// Result is the read-only, serialisable snapshot of one discovery run.
type Result struct {
	Segments            []SegmentRef  `json:"segments"`
	ClusteringThreshold float64       `json:"clustering_threshold"`
	MergeThreshold      float64       `json:"merge_threshold"`
	Dendrogram          []MergeEvent  `json:"dendrogram"`
	Clusters            []Cluster     `json:"clusters"`
	SkippedPairs        []SkippedPair `json:"skipped_pairs"`
	Decoding            []Decoding    `json:"decoding"`
	// Agreement is the fraction of segments whose best model is their own
	// cluster's.
	Agreement float64 `json:"agreement"`
}
