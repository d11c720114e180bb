package hmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/soundmotif/sequence"
)

// arc is an incoming edge with its log transition probability.
type arc struct {
	from int
	logp float64
}

// topology derives log start probabilities, incoming arcs and stop flags
// from the model's counts. Outgoing probabilities of a state are its counts
// (self-loop included) over their sum. Start is uniform over Start states,
// or over all states when none is flagged.
func (m *Model) topology() (logStart []float64, in [][]arc, stop []bool) {
	n := len(m.States)
	out := make([]float64, n)
	for _, st := range m.States {
		out[st.ID] += float64(st.SelfCount)
	}
	for _, tr := range m.Transitions {
		out[tr.From] += float64(tr.Count)
	}

	in = make([][]arc, n)
	for _, st := range m.States {
		if st.SelfCount > 0 {
			in[st.ID] = append(in[st.ID], arc{st.ID, math.Log(float64(st.SelfCount) / out[st.ID])})
		}
	}
	for _, tr := range m.Transitions {
		in[tr.To] = append(in[tr.To], arc{tr.From, math.Log(float64(tr.Count) / out[tr.From])})
	}

	starts, stops := 0, 0
	stop = make([]bool, n)
	for _, st := range m.States {
		if st.Start {
			starts++
		}
		if st.Stop {
			stops++
			stop[st.ID] = true
		}
	}
	logStart = make([]float64, n)
	for _, st := range m.States {
		switch {
		case starts == 0:
			logStart[st.ID] = -math.Log(float64(n))
		case st.Start:
			logStart[st.ID] = -math.Log(float64(starts))
		default:
			logStart[st.ID] = math.Inf(-1)
		}
	}
	if stops == 0 {
		for i := range stop {
			stop[i] = true
		}
	}

	return logStart, in, stop
}

// emission returns the diagonal-Gaussian log density of f under state id.
func (m *Model) emission(id int, f sequence.Frame) float64 {
	st := m.States[id]
	var lp float64
	for d, x := range f {
		v := math.Max(st.Variance[d], m.VarianceFloor)
		if v == 0 {
			v = DefaultVarianceFloor
		}
		lp += distuv.Normal{Mu: st.Mean[d], Sigma: math.Sqrt(v)}.LogProb(x)
	}

	return lp
}

// Decode runs Viterbi over the chain topology and returns the most likely
// state sequence and its log-likelihood. When no state path can emit the
// frames (e.g. a chain without self-loops shorter than the input) it
// returns a nil path and -Inf.
//
// Algorithm Outline:
//
//	δ[0][j] = logStart[j] + e_j(x_0)
//	δ[t][j] = max_{i→j} δ[t-1][i] + log a_ij + e_j(x_t)
//	ll      = max over Stop states of δ[T-1][j]
//
// Complexity: O(T·(S+E)·d) for T frames, S states, E transitions.
func (m *Model) Decode(frames []sequence.Frame) ([]int, float64, error) {
	if len(frames) == 0 {
		return nil, 0, ErrEmptySequence
	}
	for t, f := range frames {
		if len(f) != m.Dim {
			return nil, 0, fmt.Errorf("%w: frame %d has %d, want %d", ErrDimensionMismatch, t, len(f), m.Dim)
		}
	}
	n := len(m.States)
	if n == 0 {
		return nil, 0, ErrDegenerateCluster
	}

	logStart, in, stop := m.topology()
	negInf := math.Inf(-1)
	T := len(frames)
	delta := make([]float64, n)
	next := make([]float64, n)
	back := make([]int, T*n)

	for j := 0; j < n; j++ {
		delta[j] = logStart[j]
		if !math.IsInf(delta[j], -1) {
			delta[j] += m.emission(j, frames[0])
		}
	}
	for t := 1; t < T; t++ {
		for j := 0; j < n; j++ {
			best, arg := negInf, -1
			for _, a := range in[j] {
				if v := delta[a.from] + a.logp; v > best {
					best, arg = v, a.from
				}
			}
			back[t*n+j] = arg
			if arg < 0 {
				next[j] = negInf
				continue
			}
			next[j] = best + m.emission(j, frames[t])
		}
		delta, next = next, delta
	}

	end, ll := -1, negInf
	for j := 0; j < n; j++ {
		if stop[j] && delta[j] > ll {
			end, ll = j, delta[j]
		}
	}
	if end < 0 {
		return nil, negInf, nil
	}

	path := make([]int, T)
	path[T-1] = end
	for t := T - 1; t > 0; t-- {
		path[t-1] = back[t*n+path[t]]
	}

	return path, ll, nil
}

// LogLikelihood returns the Viterbi log-likelihood of frames under m.
func (m *Model) LogLikelihood(frames []sequence.Frame) (float64, error) {
	_, ll, err := m.Decode(frames)

	return ll, err
}

// Classify scores frames against every model and returns the index of the
// best one with its log-likelihood. Nil models (degenerate clusters) are
// skipped. best is -1 when no model can emit the frames.
func Classify(models []*Model, frames []sequence.Frame) (best int, ll float64, err error) {
	best, ll = -1, math.Inf(-1)
	for i, m := range models {
		if m == nil || len(m.States) == 0 {
			continue
		}
		v, lerr := m.LogLikelihood(frames)
		if lerr != nil {
			return -1, 0, fmt.Errorf("hmm: model %d: %w", i, lerr)
		}
		if v > ll {
			best, ll = i, v
		}
	}

	return best, ll, nil
}
