// Package hmm defines the merged chain model, merge options and sentinel
// errors.
package hmm

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/sequence"
)

var (
	// ErrDegenerateCluster indicates that cleanup removed every state. The
	// cluster is too small or the threshold too strict; callers decide
	// whether to drop it or lower the threshold.
	ErrDegenerateCluster = errors.New("hmm: merged model has no states")

	// ErrNoMembers indicates Merge was called with an empty cluster.
	ErrNoMembers = errors.New("hmm: cluster has no member sequences")

	// ErrBadOption indicates a negative or NaN threshold, a negative moving
	// window, or a negative variance floor.
	ErrBadOption = errors.New("hmm: option out of range")

	// ErrBadPath indicates a PairPath whose indices or steps do not fit the
	// member sequences.
	ErrBadPath = errors.New("hmm: alignment path does not fit its sequences")

	// ErrDimensionMismatch indicates frames whose dimension differs from the model's.
	ErrDimensionMismatch = errors.New("hmm: frame dimension mismatch")

	// ErrEmptySequence indicates decoding of a sequence without frames.
	ErrEmptySequence = errors.New("hmm: cannot decode an empty sequence")
)

// DefaultVarianceFloor keeps Gaussian emissions proper for states whose
// frames are identical.
const DefaultVarianceFloor = 1e-6

// PairPath is the alignment between two members of a cluster. X and Y index
// the members slice given to Merge; Path is oriented from X to Y.
type PairPath struct {
	X, Y int
	Path dtw.Path
}

// Options configures Merge.
//
// Fields:
//   - Threshold    : two frames are merged when their (smoothed) distance is
//     strictly below it. Must be ≥ 0.
//   - Distance     : base frame distance; nil means sequence.Euclidean.
//   - MovingWindow : MATCH distances are replaced by the mean of the last
//     MovingWindow step distances along the path; 0 or 1 keeps raw distances.
//   - VarianceFloor: lower bound on per-dimension emission variance used
//     when decoding.
type Options struct {
	Threshold     float64
	Distance      sequence.DistanceFunc
	MovingWindow  int
	VarianceFloor float64
}

// Option mutates Options.
type Option func(*Options)

// WithThreshold sets the frame-merge distance threshold.
func WithThreshold(th float64) Option {
	return func(o *Options) { o.Threshold = th }
}

// WithDistance sets the base frame distance.
func WithDistance(fn sequence.DistanceFunc) Option {
	return func(o *Options) { o.Distance = fn }
}

// WithMovingWindow enables moving-average smoothing of path distances.
func WithMovingWindow(k int) Option {
	return func(o *Options) { o.MovingWindow = k }
}

// WithVarianceFloor sets the emission variance floor.
func WithVarianceFloor(v float64) Option {
	return func(o *Options) { o.VarianceFloor = v }
}

// DefaultOptions returns Euclidean distance, raw distances, and
// DefaultVarianceFloor. Threshold is 0, which merges nothing; set it.
func DefaultOptions() Options {
	return Options{
		Distance:      sequence.Euclidean,
		VarianceFloor: DefaultVarianceFloor,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if !(o.Threshold >= 0) {
		return fmt.Errorf("%w: merge_threshold=%v", ErrBadOption, o.Threshold)
	}
	if o.MovingWindow < 0 {
		return fmt.Errorf("%w: merging_moving=%d", ErrBadOption, o.MovingWindow)
	}
	if !(o.VarianceFloor >= 0) || math.IsInf(o.VarianceFloor, 1) {
		return fmt.Errorf("%w: variance_floor=%v", ErrBadOption, o.VarianceFloor)
	}

	return nil
}

// State is one coalesced equivalence class of original frames.
type State struct {
	ID       int       `json:"id"`
	Mean     []float64 `json:"mean"`
	Variance []float64 `json:"variance"`
	// Frames is the number of original frames mapped into the state.
	Frames int `json:"frames"`
	// SelfLoop marks a sustained state: two consecutive frames of one
	// sequence share it, whichever union joined them. This is wider than
	// "formed by a consecutive-frame union": a class joined only through
	// MATCH chains across members also self-loops when it holds two
	// neighbouring frames. SelfCount counts those frame pairs.
	SelfLoop  bool `json:"self_loop"`
	SelfCount int  `json:"self_count"`
	// Start and Stop mark states that can open or close a sequence.
	Start bool `json:"start"`
	Stop  bool `json:"stop"`
}

// Transition is a directed chain edge between two distinct states. Count is
// the number of original frame successions it carries.
type Transition struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Count int `json:"count"`
}

// Model is the simplified HMM of one cluster: a read-only snapshot.
type Model struct {
	Dim           int          `json:"dim"`
	Members       int          `json:"members"`
	States        []State      `json:"states"`
	Transitions   []Transition `json:"transitions"`
	VarianceFloor float64      `json:"variance_floor"`
}

// Successors returns the outgoing transitions of state id, in To order.
func (m *Model) Successors(id int) []Transition {
	var out []Transition
	for _, tr := range m.Transitions {
		if tr.From == id {
			out = append(out, tr)
		}
	}

	return out
}
