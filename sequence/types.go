package sequence

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmptySequence indicates a sequence without frames.
	ErrEmptySequence = errors.New("sequence: sequence must contain at least one frame")

	// ErrDuplicateID indicates that a sequence id is already present in the store.
	ErrDuplicateID = errors.New("sequence: duplicate sequence id")

	// ErrDimensionMismatch indicates frames of differing dimension.
	ErrDimensionMismatch = errors.New("sequence: frame dimension mismatch")

	// ErrUnknownID indicates a lookup of an id the store does not hold.
	ErrUnknownID = errors.New("sequence: unknown sequence id")

	// ErrFrameGap indicates that persisted frame indices of a segment are not 0..len-1.
	ErrFrameGap = errors.New("sequence: frame indices are not contiguous")
)

// Frame is the feature vector of one time step.
type Frame []float64

// Segment locates a sequence inside its source recording (seconds).
type Segment struct {
	Source string  `json:"source"`
	Start  float64 `json:"start"`
	Stop   float64 `json:"stop"`
}

// Sequence is an ordered list of frames identified by a stable id.
type Sequence struct {
	ID      int64   `json:"id"`
	Frames  []Frame `json:"-"`
	Segment Segment `json:"segment"`
}

// Len returns the number of frames.
func (s Sequence) Len() int { return len(s.Frames) }

// Dim returns the frame dimension, or 0 for an empty sequence.
func (s Sequence) Dim() int {
	if len(s.Frames) == 0 {
		return 0
	}

	return len(s.Frames[0])
}

// DistanceFunc is a base distance between two frames of equal dimension.
type DistanceFunc func(a, b Frame) float64

// Euclidean is the L2 distance between two frames.
// Panics (via gonum) if the dimensions differ; the Store prevents that.
func Euclidean(a, b Frame) float64 {
	return floats.Distance(a, b, 2)
}
