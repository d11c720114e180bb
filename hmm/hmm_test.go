package hmm_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/hmm"
	"github.com/katalvlaran/soundmotif/sequence"
)

// seq builds a 1-D sequence from scalar values.
func seq(id int64, vals ...float64) sequence.Sequence {
	frames := make([]sequence.Frame, len(vals))
	for i, v := range vals {
		frames[i] = sequence.Frame{v}
	}

	return sequence.Sequence{ID: id, Frames: frames}
}

// diagonal is MATCH(0,0) … MATCH(n-1,n-1).
func diagonal(n int) dtw.Path {
	p := make(dtw.Path, n)
	for k := range p {
		p[k] = dtw.Step{Op: dtw.Match, I: k, J: k}
	}

	return p
}

// TestMerge_IdenticalConstantSequences collapses into one sustained state.
func TestMerge_IdenticalConstantSequences(t *testing.T) {
	members := []sequence.Sequence{seq(1, 5, 5, 5), seq(2, 5, 5, 5)}
	m, err := hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(3)}}, hmm.WithThreshold(0.5))
	require.NoError(t, err)

	require.Len(t, m.States, 1)
	st := m.States[0]
	assert.True(t, st.SelfLoop)
	assert.Equal(t, 4, st.SelfCount)
	assert.Equal(t, 6, st.Frames)
	assert.True(t, st.Start)
	assert.True(t, st.Stop)
	assert.Equal(t, []float64{5}, st.Mean)
	assert.Equal(t, []float64{0}, st.Variance)
	assert.Empty(t, m.Transitions)
}

// TestMerge_IdenticalDistinctFrames pairs frame k of both members.
func TestMerge_IdenticalDistinctFrames(t *testing.T) {
	members := []sequence.Sequence{seq(1, 0, 10, 20), seq(2, 0, 10, 20)}
	m, err := hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(3)}}, hmm.WithThreshold(1))
	require.NoError(t, err)

	require.Len(t, m.States, 3)
	for k, st := range m.States {
		assert.Equal(t, k, st.ID)
		assert.Equal(t, 2, st.Frames)
		assert.False(t, st.SelfLoop)
		assert.Equal(t, []float64{float64(10 * k)}, st.Mean)
	}
	assert.True(t, m.States[0].Start)
	assert.False(t, m.States[1].Start)
	assert.True(t, m.States[2].Stop)
	assert.Equal(t, []hmm.Transition{{From: 0, To: 1, Count: 2}, {From: 1, To: 2, Count: 2}}, m.Transitions)
}

// TestMerge_CleanupRewires drops a single-frame state and joins its neighbours.
func TestMerge_CleanupRewires(t *testing.T) {
	members := []sequence.Sequence{seq(1, 0, 10, 20), seq(2, 0, 20)}
	path := dtw.Path{
		{Op: dtw.Match, I: 0, J: 0},
		{Op: dtw.Deletion, I: 1, J: 0},
		{Op: dtw.Match, I: 2, J: 1},
	}
	m, err := hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: path}}, hmm.WithThreshold(1))
	require.NoError(t, err)

	require.Len(t, m.States, 2)
	assert.Equal(t, []float64{0}, m.States[0].Mean)
	assert.Equal(t, []float64{20}, m.States[1].Mean)
	assert.Equal(t, []hmm.Transition{{From: 0, To: 1, Count: 2}}, m.Transitions)
}

// TestMerge_CleanupPropagatesFlags moves Start/Stop off deleted states.
func TestMerge_CleanupPropagatesFlags(t *testing.T) {
	// Only the middle frames coalesce: first and last frames are transient.
	members := []sequence.Sequence{seq(1, -50, 10, 80), seq(2, 50, 10, -80)}
	m, err := hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(3)}}, hmm.WithThreshold(1))
	require.NoError(t, err)

	require.Len(t, m.States, 1)
	assert.Equal(t, 2, m.States[0].Frames)
	assert.True(t, m.States[0].Start)
	assert.True(t, m.States[0].Stop)
	assert.Empty(t, m.Transitions, "re-wiring never creates self edges")
}

// TestMerge_SelfLoopThroughMatchChain: a0 and a1 are too far apart to join
// directly, but MATCH links a0~b0~c1~a1 put them in one class, which then
// self-loops.
func TestMerge_SelfLoopThroughMatchChain(t *testing.T) {
	members := []sequence.Sequence{seq(1, 0, 1.2), seq(2, 0.6, 9), seq(3, 9, 0.6)}
	skew := dtw.Path{
		{Op: dtw.Insertion, I: -1, J: 0},
		{Op: dtw.Match, I: 0, J: 1},
		{Op: dtw.Deletion, I: 1, J: 1},
	}
	paths := []hmm.PairPath{
		{X: 0, Y: 1, Path: diagonal(2)},
		{X: 0, Y: 2, Path: diagonal(2)},
		{X: 1, Y: 2, Path: skew},
	}
	m, err := hmm.Merge(members, paths, hmm.WithThreshold(1))
	require.NoError(t, err)

	require.Len(t, m.States, 1)
	st := m.States[0]
	assert.Equal(t, 4, st.Frames)
	assert.True(t, st.SelfLoop)
	assert.Equal(t, 1, st.SelfCount)
}

// TestMerge_Degenerate reports a cluster whose every state is transient.
func TestMerge_Degenerate(t *testing.T) {
	members := []sequence.Sequence{seq(1, 0, 10), seq(2, 100, 110)}
	_, err := hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(2)}}, hmm.WithThreshold(1))
	assert.ErrorIs(t, err, hmm.ErrDegenerateCluster)

	_, err = hmm.Merge(members, nil, hmm.WithThreshold(0))
	assert.ErrorIs(t, err, hmm.ErrDegenerateCluster, "threshold 0 merges nothing")
}

// TestMerge_MovingWindow smooths MATCH distances along the path.
func TestMerge_MovingWindow(t *testing.T) {
	members := []sequence.Sequence{seq(1, 0, 3), seq(2, 3, 3)}
	paths := []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(2)}}

	raw, err := hmm.Merge(members, paths, hmm.WithThreshold(1))
	require.NoError(t, err)
	require.Len(t, raw.States, 1)
	assert.Equal(t, 3, raw.States[0].Frames, "A1 joins the sustained B state")

	smooth, err := hmm.Merge(members, paths, hmm.WithThreshold(1), hmm.WithMovingWindow(2))
	require.NoError(t, err)
	require.Len(t, smooth.States, 1)
	assert.Equal(t, 2, smooth.States[0].Frames, "(3+0)/2 is not below 1")
}

// TestMerge_Errors covers input validation.
func TestMerge_Errors(t *testing.T) {
	members := []sequence.Sequence{seq(1, 0, 1), seq(2, 0, 1)}

	_, err := hmm.Merge(nil, nil, hmm.WithThreshold(1))
	assert.ErrorIs(t, err, hmm.ErrNoMembers)

	_, err = hmm.Merge(members, nil, hmm.WithThreshold(-1))
	assert.ErrorIs(t, err, hmm.ErrBadOption)

	_, err = hmm.Merge(members, nil, hmm.WithThreshold(math.NaN()))
	assert.ErrorIs(t, err, hmm.ErrBadOption)

	_, err = hmm.Merge(members, nil, hmm.WithThreshold(1), hmm.WithMovingWindow(-2))
	assert.ErrorIs(t, err, hmm.ErrBadOption)

	_, err = hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 2, Path: diagonal(2)}}, hmm.WithThreshold(1))
	assert.ErrorIs(t, err, hmm.ErrBadPath)

	_, err = hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(1)}}, hmm.WithThreshold(1))
	assert.ErrorIs(t, err, hmm.ErrBadPath)
	assert.ErrorIs(t, err, dtw.ErrInvalidPath)

	mixed := []sequence.Sequence{seq(1, 0), {ID: 2, Frames: []sequence.Frame{{0, 1}}}}
	_, err = hmm.Merge(mixed, nil, hmm.WithThreshold(1))
	assert.ErrorIs(t, err, hmm.ErrDimensionMismatch)
}

// TestDecode_ChainModel checks Viterbi path and likelihood on a loop-free chain.
func TestDecode_ChainModel(t *testing.T) {
	members := []sequence.Sequence{seq(1, 0, 10, 20), seq(2, 0, 10, 20)}
	m, err := hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(3)}},
		hmm.WithThreshold(1), hmm.WithVarianceFloor(1))
	require.NoError(t, err)

	path, ll, err := m.Decode(seq(3, 0, 10, 20).Frames)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, path)
	assert.InDelta(t, -1.5*math.Log(2*math.Pi), ll, 1e-9)

	reversed, err := m.LogLikelihood(seq(4, 20, 10, 0).Frames)
	require.NoError(t, err)
	assert.Less(t, reversed, ll)

	path, ll, err = m.Decode(seq(5, 0, 10, 20, 30).Frames)
	require.NoError(t, err)
	assert.Nil(t, path)
	assert.True(t, math.IsInf(ll, -1), "no self-loop can absorb the extra frame")

	_, _, err = m.Decode(nil)
	assert.ErrorIs(t, err, hmm.ErrEmptySequence)
	_, _, err = m.Decode([]sequence.Frame{{0, 0}})
	assert.ErrorIs(t, err, hmm.ErrDimensionMismatch)
}

// TestDecode_SustainedState stretches a self-looping state over any length.
func TestDecode_SustainedState(t *testing.T) {
	members := []sequence.Sequence{seq(1, 5, 5, 5), seq(2, 5, 5, 5)}
	m, err := hmm.Merge(members, []hmm.PairPath{{X: 0, Y: 1, Path: diagonal(3)}},
		hmm.WithThreshold(0.5), hmm.WithVarianceFloor(1))
	require.NoError(t, err)

	path, ll, err := m.Decode(seq(3, 5, 5, 5, 5, 5).Frames)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, path)
	assert.InDelta(t, -2.5*math.Log(2*math.Pi), ll, 1e-9)
}

// TestClassify picks the model whose emissions fit and skips degenerate ones.
func TestClassify(t *testing.T) {
	low, err := hmm.Merge(
		[]sequence.Sequence{seq(1, 0, 10, 20), seq(2, 0, 10, 20)},
		[]hmm.PairPath{{X: 0, Y: 1, Path: diagonal(3)}},
		hmm.WithThreshold(1), hmm.WithVarianceFloor(1),
	)
	require.NoError(t, err)
	high, err := hmm.Merge(
		[]sequence.Sequence{seq(3, 100, 110, 120), seq(4, 100, 110, 120)},
		[]hmm.PairPath{{X: 0, Y: 1, Path: diagonal(3)}},
		hmm.WithThreshold(1), hmm.WithVarianceFloor(1),
	)
	require.NoError(t, err)

	best, ll, err := hmm.Classify([]*hmm.Model{nil, low, high}, seq(9, 1, 11, 21).Frames)
	require.NoError(t, err)
	assert.Equal(t, 1, best)
	assert.False(t, math.IsInf(ll, 0))

	best, _, err = hmm.Classify([]*hmm.Model{nil}, seq(9, 1).Frames)
	require.NoError(t, err)
	assert.Equal(t, -1, best)
}
