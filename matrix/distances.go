// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"

	"github.com/katalvlaran/soundmotif/dtw"
)

type cellState uint8

const (
	cellUnset cellState = iota
	cellSet
	cellInfeasible
)

// Distances is an N×N alignment-cost matrix with per-cell state and optional
// retained alignment paths. Cells are written by disjoint workers during Build
// and are read-only afterwards.
type Distances struct {
	n         int
	symmetric bool
	data      []float64   // flat backing storage, length == n*n
	state     []cellState // parallel to data
	paths     []dtw.Path  // only a<b, oriented a→b; nil when not retained
	steps     [][]float64 // per-row step distances; nil when not collected
}

// New allocates an n×n matrix with a zero diagonal.
// Complexity: O(n²) time and memory.
func New(n int, symmetric bool) (*Distances, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n=%d", ErrBadShape, n)
	}
	d := &Distances{
		n:         n,
		symmetric: symmetric,
		data:      make([]float64, n*n),
		state:     make([]cellState, n*n),
	}
	for i := 0; i < n; i++ {
		d.state[i*n+i] = cellSet
	}

	return d, nil
}

// Len returns the matrix order N.
func (d *Distances) Len() int { return d.n }

// Symmetric reports whether only a<b cells are computed and mirrored.
func (d *Distances) Symmetric() bool { return d.symmetric }

// indexOf computes the flat index for (a, b) or returns ErrOutOfRange.
func (d *Distances) indexOf(a, b int) (int, error) {
	if a < 0 || a >= d.n || b < 0 || b >= d.n {
		return 0, fmt.Errorf("matrix: cell (%d,%d): %w", a, b, ErrOutOfRange)
	}

	return a*d.n + b, nil
}

// Set stores the cost of aligning a to b (and b to a in symmetric mode).
func (d *Distances) Set(a, b int, v float64) error {
	return d.write(a, b, v, cellSet)
}

// SetInfeasible marks (a,b) as rejected by the warping band.
func (d *Distances) SetInfeasible(a, b int) error {
	return d.write(a, b, math.Inf(1), cellInfeasible)
}

func (d *Distances) write(a, b int, v float64, st cellState) error {
	idx, err := d.indexOf(a, b)
	if err != nil {
		return err
	}
	d.data[idx] = v
	d.state[idx] = st
	if d.symmetric {
		mirror := b*d.n + a
		d.data[mirror] = v
		d.state[mirror] = st
	}

	return nil
}

// SetPath retains the alignment path of (a,b), oriented from a to b. Paths
// are kept once per unordered pair.
func (d *Distances) SetPath(a, b int, p dtw.Path) error {
	if _, err := d.indexOf(a, b); err != nil {
		return err
	}
	if a == b {
		return nil
	}
	d.allocPaths()
	if a > b {
		a, b, p = b, a, p.Reverse()
	}
	d.paths[a*d.n+b] = p

	return nil
}

// allocPaths prepares path storage. Build calls it before any worker starts
// so that concurrent SetPath calls never race on the allocation.
func (d *Distances) allocPaths() {
	if d.paths == nil {
		d.paths = make([]dtw.Path, d.n*d.n)
	}
}

// allocSteps prepares one step-distance slice per row. Build calls it before
// any worker starts; afterwards each row slice has a single writer.
func (d *Distances) allocSteps() {
	if d.steps == nil {
		d.steps = make([][]float64, d.n)
	}
}

// recordSteps appends the base frame distance of every step of p to row a.
func (d *Distances) recordSteps(a int, p dtw.Path) {
	row := d.steps[a]
	for _, st := range p {
		row = append(row, st.Dist)
	}
	d.steps[a] = row
}

// StepDistances returns the base frame distance of every step on every
// aligned path, rows in order. It is empty unless Build ran with
// CollectSteps.
func (d *Distances) StepDistances() []float64 {
	total := 0
	for _, row := range d.steps {
		total += len(row)
	}
	out := make([]float64, 0, total)
	for _, row := range d.steps {
		out = append(out, row...)
	}

	return out
}

// Path returns the retained path oriented from a to b.
func (d *Distances) Path(a, b int) (dtw.Path, bool) {
	if d.paths == nil || a == b {
		return nil, false
	}
	if _, err := d.indexOf(a, b); err != nil {
		return nil, false
	}
	if a < b {
		p := d.paths[a*d.n+b]

		return p, p != nil
	}
	p := d.paths[b*d.n+a]
	if p == nil {
		return nil, false
	}

	return p.Reverse(), true
}

// At returns the directed cost a→b. Infeasible cells read as +Inf; unset
// cells yield ErrIncompleteMatrix.
func (d *Distances) At(a, b int) (float64, error) {
	idx, err := d.indexOf(a, b)
	if err != nil {
		return 0, err
	}
	if d.state[idx] == cellUnset {
		return 0, fmt.Errorf("%w: cell (%d,%d) unset", ErrIncompleteMatrix, a, b)
	}

	return d.data[idx], nil
}

// Infeasible reports whether (a,b) was rejected by the band.
func (d *Distances) Infeasible(a, b int) bool {
	idx, err := d.indexOf(a, b)
	if err != nil {
		return false
	}

	return d.state[idx] == cellInfeasible
}

// Pair returns the unordered distance between a and b: the directed cost in
// symmetric mode, otherwise the mean of both directions. Either direction
// being infeasible makes the pair +Inf.
func (d *Distances) Pair(a, b int) (float64, error) {
	ab, err := d.At(a, b)
	if err != nil {
		return 0, err
	}
	if d.symmetric {
		return ab, nil
	}
	ba, err := d.At(b, a)
	if err != nil {
		return 0, err
	}

	return (ab + ba) / 2, nil
}

// Complete verifies every off-diagonal cell has been written.
// Complexity: O(n²).
func (d *Distances) Complete() error {
	for a := 0; a < d.n; a++ {
		for b := 0; b < d.n; b++ {
			if d.state[a*d.n+b] == cellUnset {
				return fmt.Errorf("%w: first missing cell (%d,%d)", ErrIncompleteMatrix, a, b)
			}
		}
	}

	return nil
}

// InfeasiblePairs lists directed pairs rejected by the band (a<b only in
// symmetric mode), in row-major order.
func (d *Distances) InfeasiblePairs() [][2]int {
	var out [][2]int
	for a := 0; a < d.n; a++ {
		for b := 0; b < d.n; b++ {
			if d.symmetric && b < a {
				continue
			}
			if d.state[a*d.n+b] == cellInfeasible {
				out = append(out, [2]int{a, b})
			}
		}
	}

	return out
}

// String renders the matrix row by row for debugging.
func (d *Distances) String() string {
	var s string
	for a := 0; a < d.n; a++ {
		s += "["
		for b := 0; b < d.n; b++ {
			switch d.state[a*d.n+b] {
			case cellUnset:
				s += "?"
			default:
				s += fmt.Sprintf("%g", d.data[a*d.n+b])
			}
			if b < d.n-1 {
				s += ", "
			}
		}
		s += "]\n"
	}

	return s
}
