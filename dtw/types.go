// Package dtw defines options, path steps and sentinel errors for the
// banded, weighted Dynamic Time Warping aligner.
package dtw

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/soundmotif/sequence"
)

var (
	// ErrEmptySequence indicates one or both inputs are empty.
	ErrEmptySequence = errors.New("dtw: input sequences must be non-empty")

	// ErrDimensionMismatch indicates the two inputs use frames of different dimension.
	ErrDimensionMismatch = errors.New("dtw: frame dimensions differ")

	// ErrBadOption indicates a band or penalty outside [0,1], or an unknown MemoryMode.
	ErrBadOption = errors.New("dtw: option out of range")

	// ErrAlignmentInfeasible indicates the Sakoe–Chiba band leaves the terminal
	// cell (m,n) unreachable. Callers widen the band or skip the pair; no
	// default cost is ever substituted.
	ErrAlignmentInfeasible = errors.New("dtw: alignment infeasible under warping band")

	// ErrInvalidPath is returned by Path.Validate for non-monotonic paths.
	ErrInvalidPath = errors.New("dtw: invalid alignment path")
)

// MemoryMode controls how Align stores its DP matrix.
//
//   - FullMatrix: keep the entire (m+1)x(n+1) cost and move tables.
//     Supports backtracking the alignment path. Memory: O(m·n).
//   - TwoRows   : keep only the previous and current rows.
//     Returns the same cost, no path. Memory: O(n).
type MemoryMode int

const (
	// FullMatrix stores all rows and returns the path.
	FullMatrix MemoryMode = iota

	// TwoRows keeps two rows and returns the cost only.
	TwoRows
)

// Op labels one step of an alignment path. The numeric order is the
// tie-break preference when several predecessors reach the same minimum.
type Op uint8

const (
	// Match consumes one frame of A and one frame of B.
	Match Op = iota

	// Deletion consumes one frame of A only (move from (i-1,j) to (i,j)).
	Deletion

	// Insertion consumes one frame of B only (move from (i,j-1) to (i,j)).
	Insertion
)

// String returns the upper-case label of the operation.
func (o Op) String() string {
	switch o {
	case Match:
		return "MATCH"
	case Deletion:
		return "DELETION"
	case Insertion:
		return "INSERTION"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Step is one correspondence of a path.
//
// I and J are the 0-based frame indices of A and B reached by the step. For a
// Deletion, J is the last B frame already consumed (-1 before the first); for
// an Insertion, I is the last A frame already consumed. Dist is the base frame
// distance the step was charged with (before penalty weighting).
type Step struct {
	Op   Op      `json:"op"`
	I    int     `json:"i"`
	J    int     `json:"j"`
	Dist float64 `json:"dist"`
}

// Options configures Align.
//
// Fields:
//   - BandPercentage  : Sakoe–Chiba half-width as a fraction of max(m,n), in [0,1].
//     1 means unrestricted DTW.
//   - InsertionPenalty: weight of a step consuming a frame of B only, in [0,1].
//   - DeletionPenalty : weight of a step consuming a frame of A only, in [0,1].
//   - MatchPenalty    : weight of a diagonal step, in [0,1].
//   - Distance        : base frame distance; nil means sequence.Euclidean.
//   - MemoryMode      : FullMatrix (path) or TwoRows (cost only).
type Options struct {
	BandPercentage   float64
	InsertionPenalty float64
	DeletionPenalty  float64
	MatchPenalty     float64
	Distance         sequence.DistanceFunc
	MemoryMode       MemoryMode
}

// DefaultOptions returns unrestricted DTW with unit penalties, Euclidean
// distance and path recovery.
func DefaultOptions() Options {
	return Options{
		BandPercentage:   1,
		InsertionPenalty: 1,
		DeletionPenalty:  1,
		MatchPenalty:     1,
		Distance:         sequence.Euclidean,
		MemoryMode:       FullMatrix,
	}
}

// Validate checks every numeric option lies in [0,1].
func (o Options) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"band_percentage", o.BandPercentage},
		{"insertion_penalty", o.InsertionPenalty},
		{"deletion_penalty", o.DeletionPenalty},
		{"match_penalty", o.MatchPenalty},
	}
	for _, c := range checks {
		// NaN fails both comparisons and is rejected here as well.
		if !(c.v >= 0 && c.v <= 1) {
			return fmt.Errorf("%w: %s=%v", ErrBadOption, c.name, c.v)
		}
	}
	if o.MemoryMode != FullMatrix && o.MemoryMode != TwoRows {
		return fmt.Errorf("%w: memory mode %d", ErrBadOption, o.MemoryMode)
	}

	return nil
}

// Result is the outcome of one alignment.
type Result struct {
	// Cost is D[m][n], the weighted cumulative distance.
	Cost float64

	// Path is the backtracked correspondence (nil in TwoRows mode).
	Path Path

	// LenA and LenB are the input lengths.
	LenA, LenB int
}

// Normalized returns the cost divided by lenA+lenB, which makes costs of
// segments of different duration comparable.
func (r Result) Normalized() float64 {
	if r.LenA+r.LenB == 0 {
		return 0
	}

	return r.Cost / float64(r.LenA+r.LenB)
}
