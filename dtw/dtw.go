package dtw

import (
	"fmt"
	"math"

	"github.com/katalvlaran/soundmotif/sequence"
)

// Align computes banded, weighted Dynamic Time Warping between frame sequences.
//
// Algorithm Outline (FullMatrix):
//  1. Let m = len(a), n = len(b). Allocate (m+1)x(n+1) cost table D and move table.
//  2. Initialize:
//     D[0][0] = 0
//     D[i][0] = D[i-1][0] + DeletionPenalty·dist(a[i-1], b[0])
//     D[0][j] = D[0][j-1] + InsertionPenalty·dist(a[0], b[j-1])
//  3. For every in-band cell (i,j), d = dist(a[i-1], b[j-1]):
//     match = D[i-1][j-1] + MatchPenalty·d
//     del   = D[i-1][j]   + DeletionPenalty·d
//     ins   = D[i][j-1]   + InsertionPenalty·d
//     D[i][j] = min(match, del, ins), ties resolved Match → Deletion → Insertion.
//  4. Cells outside |i·n/m − j| ≤ BandPercentage·max(m,n) stay +Inf.
//  5. D[m][n] = +Inf ⇒ ErrAlignmentInfeasible.
//  6. Backtrack (m,n) → (0,0) along the stored moves, then reverse.
//
// Complexity:
//
//	Time   = O(m·w) where w is the band width (O(m·n) when unrestricted)
//	Memory = O(m·n) (FullMatrix) or O(n) (TwoRows)
//
// Errors:
//   - ErrEmptySequence, ErrDimensionMismatch, ErrBadOption on bad input.
//   - ErrAlignmentInfeasible (wrapped with lengths and band) when the band
//     disconnects (0,0) from (m,n).
func Align(a, b []sequence.Frame, opts Options) (Result, error) {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return Result{}, ErrEmptySequence
	}
	if len(a[0]) != len(b[0]) {
		return Result{}, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a[0]), len(b[0]))
	}
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if opts.Distance == nil {
		opts.Distance = sequence.Euclidean
	}

	bd := newBand(m, n, opts.BandPercentage)
	res := Result{LenA: m, LenB: n}

	if opts.MemoryMode == TwoRows {
		res.Cost = alignTwoRows(a, b, opts, bd)
	} else {
		var cost []float64
		var moves []Op
		cost, moves = fillFull(a, b, opts, bd)
		res.Cost = cost[m*(n+1)+n]
		if !math.IsInf(res.Cost, 1) {
			res.Path = backtrack(a, b, moves, opts.Distance)
		}
	}

	if math.IsInf(res.Cost, 1) {
		return Result{}, fmt.Errorf("%w: len %d×%d, band %.3f", ErrAlignmentInfeasible, m, n, opts.BandPercentage)
	}

	return res, nil
}

// Distance is a convenience wrapper returning only the cost, computed in
// TwoRows mode.
func Distance(a, b []sequence.Frame, opts Options) (float64, error) {
	opts.MemoryMode = TwoRows
	res, err := Align(a, b, opts)
	if err != nil {
		return 0, err
	}

	return res.Cost, nil
}

// band is the Sakoe–Chiba corridor |i·n/m − j| ≤ pct·max(m,n), kept in
// integer-scaled form |i·n − j·m| ≤ pct·max(m,n)·m to avoid division.
type band struct {
	m, n  int
	limit float64
	width float64
}

func newBand(m, n int, pct float64) band {
	w := pct * float64(max(m, n))

	return band{m: m, n: n, width: w, limit: w * float64(m)}
}

// contains reports whether DP cell (i,j) lies inside the band.
func (bd band) contains(i, j int) bool {
	d := i*bd.n - j*bd.m
	if d < 0 {
		d = -d
	}

	return float64(d) <= bd.limit
}

// span returns the inclusive column range that may intersect the band on row i.
// One extra column on each side absorbs rounding; contains() decides exactly.
func (bd band) span(i int) (lo, hi int) {
	center := float64(i) * float64(bd.n) / float64(bd.m)
	lo = int(math.Floor(center-bd.width)) - 1
	hi = int(math.Ceil(center+bd.width)) + 1
	if lo < 0 {
		lo = 0
	}
	if hi > bd.n {
		hi = bd.n
	}

	return lo, hi
}

// relax picks the best predecessor with the fixed Match → Deletion → Insertion
// preference: a later candidate wins only when strictly smaller.
func relax(match, del, ins float64) (float64, Op) {
	best, op := match, Match
	if del < best {
		best, op = del, Deletion
	}
	if ins < best {
		best, op = ins, Insertion
	}

	return best, op
}

// fillFull computes the complete cost and move tables (row-major, n+1 columns).
func fillFull(a, b []sequence.Frame, opts Options, bd band) ([]float64, []Op) {
	m, n := len(a), len(b)
	cols := n + 1
	inf := math.Inf(1)

	cost := make([]float64, (m+1)*cols)
	moves := make([]Op, (m+1)*cols)
	for k := range cost {
		cost[k] = inf
	}
	cost[0] = 0

	// Boundary column j=0: deletions of A against the first B frame.
	for i := 1; i <= m; i++ {
		if !bd.contains(i, 0) {
			continue
		}
		cost[i*cols] = cost[(i-1)*cols] + opts.DeletionPenalty*opts.Distance(a[i-1], b[0])
		moves[i*cols] = Deletion
	}
	// Boundary row i=0: insertions of B against the first A frame.
	for j := 1; j <= n; j++ {
		if !bd.contains(0, j) {
			continue
		}
		cost[j] = cost[j-1] + opts.InsertionPenalty*opts.Distance(a[0], b[j-1])
		moves[j] = Insertion
	}

	for i := 1; i <= m; i++ {
		lo, hi := bd.span(i)
		if lo < 1 {
			lo = 1
		}
		for j := lo; j <= hi; j++ {
			if !bd.contains(i, j) {
				continue
			}
			d := opts.Distance(a[i-1], b[j-1])
			best, op := relax(
				cost[(i-1)*cols+j-1]+opts.MatchPenalty*d,
				cost[(i-1)*cols+j]+opts.DeletionPenalty*d,
				cost[i*cols+j-1]+opts.InsertionPenalty*d,
			)
			cost[i*cols+j] = best
			moves[i*cols+j] = op
		}
	}

	return cost, moves
}

// alignTwoRows replays fillFull's arithmetic with two rolling rows so that the
// returned cost is bit-identical to the FullMatrix cost. A recycled row is
// reset only over the columns it held two rows earlier, so a banded run stays
// O(m·w).
func alignTwoRows(a, b []sequence.Frame, opts Options, bd band) float64 {
	m, n := len(a), len(b)
	inf := math.Inf(1)
	prev := make([]float64, n+1)
	curr := make([]float64, n+1)
	for j := range prev {
		prev[j], curr[j] = inf, inf
	}
	prev[0] = 0
	for j := 1; j <= n; j++ {
		if bd.contains(0, j) {
			prev[j] = prev[j-1] + opts.InsertionPenalty*opts.Distance(a[0], b[j-1])
		}
	}

	// [prevLo,prevHi] is the column range written into prev, [staleLo,staleHi]
	// the range curr still carries from two rows back.
	prevLo, prevHi := 0, n
	staleLo, staleHi := 0, -1

	for i := 1; i <= m; i++ {
		for j := staleLo; j <= staleHi; j++ {
			curr[j] = inf
		}
		curr[0] = inf
		if bd.contains(i, 0) {
			curr[0] = prev[0] + opts.DeletionPenalty*opts.Distance(a[i-1], b[0])
		}
		lo, hi := bd.span(i)
		if lo < 1 {
			lo = 1
		}
		for j := lo; j <= hi; j++ {
			if !bd.contains(i, j) {
				continue
			}
			d := opts.Distance(a[i-1], b[j-1])
			curr[j], _ = relax(
				prev[j-1]+opts.MatchPenalty*d,
				prev[j]+opts.DeletionPenalty*d,
				curr[j-1]+opts.InsertionPenalty*d,
			)
		}
		staleLo, staleHi = prevLo, prevHi
		prevLo, prevHi = lo, hi
		prev, curr = curr, prev
	}

	return prev[n]
}

// backtrack walks the move table from (m,n) to (0,0) and returns the path in
// forward order.
func backtrack(a, b []sequence.Frame, moves []Op, dist sequence.DistanceFunc) Path {
	m, n := len(a), len(b)
	cols := n + 1
	path := make(Path, 0, m+n)

	i, j := m, n
	for i > 0 || j > 0 {
		op := moves[i*cols+j]
		d := dist(a[max(i-1, 0)], b[max(j-1, 0)])
		path = append(path, Step{Op: op, I: i - 1, J: j - 1, Dist: d})
		switch op {
		case Match:
			i--
			j--
		case Deletion:
			i--
		case Insertion:
			j--
		}
	}

	// reverse path in-place
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}

	return path
}
