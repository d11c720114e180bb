package dtw

import "fmt"

// Path is an ordered list of correspondence steps between A and B.
type Path []Step

// Matches returns only the MATCH steps, in path order.
func (p Path) Matches() []Step {
	out := make([]Step, 0, len(p))
	for _, s := range p {
		if s.Op == Match {
			out = append(out, s)
		}
	}

	return out
}

// Reverse returns the same correspondence seen from B to A: indices are
// swapped and Deletion/Insertion exchange roles. The receiver is not modified.
func (p Path) Reverse() Path {
	out := make(Path, len(p))
	for k, s := range p {
		r := Step{Op: s.Op, I: s.J, J: s.I, Dist: s.Dist}
		switch s.Op {
		case Deletion:
			r.Op = Insertion
		case Insertion:
			r.Op = Deletion
		}
		out[k] = r
	}

	return out
}

// Validate checks the path is a monotone walk from before (0,0) to
// (m-1, n-1): MATCH advances both indices, DELETION only I, INSERTION only J.
//
// Complexity: O(len(p)).
func (p Path) Validate(m, n int) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	pi, pj := -1, -1
	for k, s := range p {
		wi, wj := pi, pj
		switch s.Op {
		case Match:
			wi, wj = pi+1, pj+1
		case Deletion:
			wi = pi + 1
		case Insertion:
			wj = pj + 1
		default:
			return fmt.Errorf("%w: step %d has unknown op %v", ErrInvalidPath, k, s.Op)
		}
		if s.I != wi || s.J != wj {
			return fmt.Errorf("%w: step %d %v at (%d,%d), want (%d,%d)", ErrInvalidPath, k, s.Op, s.I, s.J, wi, wj)
		}
		pi, pj = s.I, s.J
	}
	if pi != m-1 || pj != n-1 {
		return fmt.Errorf("%w: ends at (%d,%d), want (%d,%d)", ErrInvalidPath, pi, pj, m-1, n-1)
	}

	return nil
}
