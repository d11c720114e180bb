package hmm

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/sequence"
	"github.com/katalvlaran/soundmotif/unionfind"
)

// Merge builds the simplified HMM of one cluster.
//
// Algorithm Outline:
//
//	Stage 1: One chain per member: state (s,k) for frame k, edge (s,k)→(s,k+1).
//	Stage 2: For every PairPath, union (X,i) and (Y,j) on each MATCH step whose
//	         (optionally smoothed) distance is below Threshold.
//	Stage 3: Union (s,k) and (s,k+1) when consecutive frames are below
//	         Threshold. A class holding two consecutive frames of one
//	         sequence becomes a sustained state with a self-loop.
//	Stage 4: Materialise one State per class: emission mean/variance over its
//	         frames, Start/Stop flags, deduplicated transitions with counts.
//	Stage 5: Delete states with no self-loop that hold a single frame,
//	         re-wiring predecessors to successors, then re-index compactly.
//
// Errors: ErrNoMembers, ErrBadOption, ErrDimensionMismatch, ErrBadPath and,
// when Stage 5 leaves nothing, ErrDegenerateCluster.
//
// Complexity: O(F·α(F) + P·d) for F frames and P path steps of dimension d.
func Merge(members []sequence.Sequence, paths []PairPath, opts ...Option) (*Model, error) {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.Distance == nil {
		o.Distance = sequence.Euclidean
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	// Stage 1: state ids are frame offsets into the concatenated members.
	dim := members[0].Dim()
	offset := make([]int, len(members)+1)
	for s, seq := range members {
		if seq.Len() == 0 {
			return nil, fmt.Errorf("hmm: member %d (segment %d): %w", s, seq.ID, sequence.ErrEmptySequence)
		}
		if seq.Dim() != dim {
			return nil, fmt.Errorf("%w: segment %d has %d, want %d", ErrDimensionMismatch, seq.ID, seq.Dim(), dim)
		}
		offset[s+1] = offset[s] + seq.Len()
	}
	uf := unionfind.New(offset[len(members)])

	// Stage 2
	for _, pp := range paths {
		if err := unionMatches(uf, members, offset, pp, o); err != nil {
			return nil, err
		}
	}

	// Stage 3
	for s, seq := range members {
		for k := 0; k+1 < seq.Len(); k++ {
			if o.Distance(seq.Frames[k], seq.Frames[k+1]) < o.Threshold {
				uf.Union(offset[s]+k, offset[s]+k+1)
			}
		}
	}

	m := materialise(uf, members, offset, dim)
	m.VarianceFloor = o.VarianceFloor
	if err := cleanup(m); err != nil {
		return nil, fmt.Errorf("%w: %d members, %d frames", err, len(members), offset[len(members)])
	}

	return m, nil
}

// unionMatches walks one path and unions the states of sub-threshold MATCH steps.
func unionMatches(uf *unionfind.UnionFind, members []sequence.Sequence, offset []int, pp PairPath, o Options) error {
	if pp.X < 0 || pp.Y < 0 || pp.X >= len(members) || pp.Y >= len(members) || pp.X == pp.Y {
		return fmt.Errorf("%w: pair (%d,%d) of %d members", ErrBadPath, pp.X, pp.Y, len(members))
	}
	x, y := members[pp.X], members[pp.Y]
	if err := pp.Path.Validate(x.Len(), y.Len()); err != nil {
		return fmt.Errorf("%w: segments %d→%d: %w", ErrBadPath, x.ID, y.ID, err)
	}

	dist := make([]float64, len(pp.Path))
	for t, st := range pp.Path {
		dist[t] = o.Distance(x.Frames[max(st.I, 0)], y.Frames[max(st.J, 0)])
	}
	for t, st := range pp.Path {
		if st.Op != dtw.Match {
			continue
		}
		d := dist[t]
		if o.MovingWindow > 1 {
			lo := max(t-o.MovingWindow+1, 0)
			d = stat.Mean(dist[lo:t+1], nil)
		}
		if d < o.Threshold {
			uf.Union(offset[pp.X]+st.I, offset[pp.Y]+st.J)
		}
	}

	return nil
}

// materialise turns union-find classes into States and counted Transitions.
// Classes are numbered in order of their first frame.
func materialise(uf *unionfind.UnionFind, members []sequence.Sequence, offset []int, dim int) *Model {
	n := uf.Len()
	class := make([]int, n)
	index := make(map[int]int)
	var frames [][]sequence.Frame
	for id := 0; id < n; id++ {
		r := uf.Find(id)
		c, ok := index[r]
		if !ok {
			c = len(frames)
			index[r] = c
			frames = append(frames, nil)
		}
		class[id] = c
	}

	states := make([]State, len(frames))
	edges := make(map[[2]int]int)
	for s, seq := range members {
		last := seq.Len() - 1
		for k, f := range seq.Frames {
			c := class[offset[s]+k]
			frames[c] = append(frames[c], f)
			if k == 0 {
				states[c].Start = true
			}
			if k == last {
				states[c].Stop = true
				continue
			}
			next := class[offset[s]+k+1]
			if next == c {
				states[c].SelfLoop = true
				states[c].SelfCount++
			} else {
				edges[[2]int{c, next}]++
			}
		}
	}

	col := make([]float64, 0, len(members))
	for c := range states {
		st := &states[c]
		st.ID = c
		st.Frames = len(frames[c])
		st.Mean = make([]float64, dim)
		st.Variance = make([]float64, dim)
		for d := 0; d < dim; d++ {
			col = col[:0]
			for _, f := range frames[c] {
				col = append(col, f[d])
			}
			if len(col) == 1 {
				st.Mean[d] = col[0]
				continue
			}
			st.Mean[d], st.Variance[d] = stat.MeanVariance(col, nil)
		}
	}

	return &Model{
		Dim:         dim,
		Members:     len(members),
		States:      states,
		Transitions: sortedTransitions(edges),
	}
}

// cleanup removes transient states (single frame, no self-loop), re-wires
// around them and re-indexes the survivors.
func cleanup(m *Model) error {
	edges := make(map[[2]int]int, len(m.Transitions))
	for _, tr := range m.Transitions {
		edges[[2]int{tr.From, tr.To}] = tr.Count
	}

	removed := make([]bool, len(m.States))
	for c := range m.States {
		st := &m.States[c]
		if st.SelfLoop || st.Frames != 1 {
			continue
		}
		removed[c] = true

		var preds, succs [][2]int // {state, count}
		for e, cnt := range edges {
			switch {
			case e[1] == c:
				preds = append(preds, [2]int{e[0], cnt})
				delete(edges, e)
			case e[0] == c:
				succs = append(succs, [2]int{e[1], cnt})
				delete(edges, e)
			}
		}
		for _, p := range preds {
			if st.Stop {
				m.States[p[0]].Stop = true
			}
			for _, s := range succs {
				if p[0] == s[0] {
					continue
				}
				edges[[2]int{p[0], s[0]}] += min(p[1], s[1])
			}
		}
		if st.Start {
			for _, s := range succs {
				m.States[s[0]].Start = true
			}
		}
	}

	remap := make([]int, len(m.States))
	kept := m.States[:0]
	for c := range m.States {
		if removed[c] {
			remap[c] = -1
			continue
		}
		remap[c] = len(kept)
		st := m.States[c]
		st.ID = len(kept)
		kept = append(kept, st)
	}
	m.States = kept
	if len(kept) == 0 {
		m.Transitions = nil

		return ErrDegenerateCluster
	}

	compact := make(map[[2]int]int, len(edges))
	for e, cnt := range edges {
		compact[[2]int{remap[e[0]], remap[e[1]]}] += cnt
	}
	m.Transitions = sortedTransitions(compact)

	return nil
}

func sortedTransitions(edges map[[2]int]int) []Transition {
	out := make([]Transition, 0, len(edges))
	for e, cnt := range edges {
		out = append(out, Transition{From: e[0], To: e[1], Count: cnt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}

		return out[i].To < out[j].To
	})

	return out
}
