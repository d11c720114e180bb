// SPDX-License-Identifier: MIT

package matrix_test

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/matrix"
	"github.com/katalvlaran/soundmotif/metrics"
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

func corpus() []sequence.Sequence {
	return []sequence.Sequence{
		seq(10, 0, 1, 2),
		seq(11, 0, 1, 1, 2),
		seq(12, 5, 5, 6),
	}
}

// TestNew_ShapeAndDiagonal checks construction and the unset-cell contract.
func TestNew_ShapeAndDiagonal(t *testing.T) {
	_, err := matrix.New(-1, false)
	require.ErrorIs(t, err, matrix.ErrBadShape)

	d, err := matrix.New(3, false)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())

	for i := 0; i < 3; i++ {
		v, err := d.At(i, i)
		require.NoError(t, err)
		assert.Zero(t, v)
	}

	_, err = d.At(0, 1)
	assert.ErrorIs(t, err, matrix.ErrIncompleteMatrix)
	_, err = d.At(3, 0)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	assert.ErrorIs(t, d.Complete(), matrix.ErrIncompleteMatrix)
}

// TestDistances_PairAndMirror covers the near-symmetric view and mirroring.
func TestDistances_PairAndMirror(t *testing.T) {
	d, _ := matrix.New(2, false)
	require.NoError(t, d.Set(0, 1, 2))
	_, err := d.Pair(0, 1)
	assert.ErrorIs(t, err, matrix.ErrIncompleteMatrix, "reverse direction still unset")

	require.NoError(t, d.Set(1, 0, 4))
	v, err := d.Pair(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
	require.NoError(t, d.Complete())

	s, _ := matrix.New(2, true)
	require.NoError(t, s.Set(0, 1, 7))
	v, err = s.At(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	require.NoError(t, s.SetInfeasible(0, 1))
	assert.True(t, s.Infeasible(1, 0))
	v, err = s.Pair(0, 1)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))
	assert.Equal(t, [][2]int{{0, 1}}, s.InfeasiblePairs())
}

// TestDistances_PathOrientation verifies paths are stored once and reversed on demand.
func TestDistances_PathOrientation(t *testing.T) {
	d, _ := matrix.New(2, false)
	p := dtw.Path{
		{Op: dtw.Match, I: 0, J: 0},
		{Op: dtw.Insertion, I: 0, J: 1},
	}
	require.NoError(t, d.SetPath(1, 0, p))

	got, ok := d.Path(1, 0)
	require.True(t, ok)
	assert.Equal(t, p, got)

	fwd, ok := d.Path(0, 1)
	require.True(t, ok)
	assert.Equal(t, p.Reverse(), fwd)

	_, ok = d.Path(0, 0)
	assert.False(t, ok)
}

// TestBuild_MatchesPairwiseAlign compares every cell with a direct alignment.
func TestBuild_MatchesPairwiseAlign(t *testing.T) {
	seqs := corpus()
	opts := dtw.DefaultOptions()
	opts.InsertionPenalty = 0.5

	d, err := matrix.Build(context.Background(), seqs, matrix.BuildOptions{
		Align:       opts,
		Workers:     2,
		RetainPaths: true,
	})
	require.NoError(t, err)
	require.NoError(t, d.Complete())

	for a := range seqs {
		for b := range seqs {
			if a == b {
				continue
			}
			want, err := dtw.Align(seqs[a].Frames, seqs[b].Frames, opts)
			require.NoError(t, err)
			got, err := d.At(a, b)
			require.NoError(t, err)
			assert.InDelta(t, want.Cost, got, 1e-12, "cell (%d,%d)", a, b)
			if a < b {
				p, ok := d.Path(a, b)
				require.True(t, ok)
				assert.Equal(t, want.Path, p)
			}
		}
	}
}

// TestBuild_SymmetricAndNormalized checks mirroring and length normalisation.
func TestBuild_SymmetricAndNormalized(t *testing.T) {
	seqs := corpus()
	opts := dtw.DefaultOptions()

	d, err := matrix.Build(context.Background(), seqs, matrix.BuildOptions{
		Align:     opts,
		Symmetric: true,
		Normalize: true,
	})
	require.NoError(t, err)

	want, err := dtw.Align(seqs[0].Frames, seqs[2].Frames, opts)
	require.NoError(t, err)
	ab, _ := d.At(0, 2)
	ba, _ := d.At(2, 0)
	assert.Equal(t, ab, ba)
	assert.InDelta(t, want.Cost/6, ab, 1e-12)

	_, ok := d.Path(0, 2)
	assert.False(t, ok, "paths are not retained by default")
}

// TestBuild_InfeasiblePairsMarked uses a zero band with unequal lengths.
func TestBuild_InfeasiblePairsMarked(t *testing.T) {
	seqs := corpus()
	opts := dtw.DefaultOptions()
	opts.BandPercentage = 0

	before := testutil.ToFloat64(metrics.AlignmentsTotal.WithLabelValues(metrics.OutcomeInfeasible))

	var observed, failed atomic.Int64
	d, err := matrix.Build(context.Background(), seqs, matrix.BuildOptions{
		Align: opts,
		Observer: func(a, b int, err error) {
			observed.Add(1)
			if err != nil {
				failed.Add(1)
			}
		},
	})
	require.NoError(t, err, "infeasible pairs are not a build failure")

	assert.Equal(t, int64(matrix.Pairs(3, false)), observed.Load())
	assert.Equal(t, int64(4), failed.Load())
	assert.Equal(t, [][2]int{{0, 1}, {1, 0}, {1, 2}, {2, 1}}, d.InfeasiblePairs())
	assert.False(t, d.Infeasible(0, 2))

	after := testutil.ToFloat64(metrics.AlignmentsTotal.WithLabelValues(metrics.OutcomeInfeasible))
	assert.Equal(t, 4.0, after-before)
}

// TestBuild_Cancelled returns the partial matrix flagged incomplete.
func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := matrix.Build(ctx, corpus(), matrix.BuildOptions{Align: dtw.DefaultOptions()})
	require.Error(t, err)
	assert.ErrorIs(t, err, matrix.ErrIncompleteMatrix)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, d)
	assert.ErrorIs(t, d.Complete(), matrix.ErrIncompleteMatrix)
	assert.NotContains(t, err.Error(), "%!w")
}

// TestWithCause_LiveContext leaves the error untouched when ctx has no cause.
func TestWithCause_LiveContext(t *testing.T) {
	err := matrix.WithCause(context.Background(), matrix.ErrIncompleteMatrix)
	assert.Equal(t, matrix.ErrIncompleteMatrix, err)
	assert.NotContains(t, err.Error(), "%!w")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = matrix.WithCause(ctx, matrix.ErrIncompleteMatrix)
	assert.ErrorIs(t, err, matrix.ErrIncompleteMatrix)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestBuild_CollectSteps samples the step distances of every aligned path.
func TestBuild_CollectSteps(t *testing.T) {
	seqs := []sequence.Sequence{seq(1, 0, 5), seq(2, 0, 5), seq(3, 9, 9)}
	d, err := matrix.Build(context.Background(), seqs, matrix.BuildOptions{
		Align:        dtw.DefaultOptions(),
		Workers:      2,
		CollectSteps: true,
	})
	require.NoError(t, err)

	// Rows in order: 1→2, 1→3, 2→1, 2→3, 3→1, 3→2; every path is diagonal.
	assert.Equal(t, []float64{0, 0, 9, 4, 0, 0, 9, 4, 9, 4, 9, 4}, d.StepDistances())
	_, ok := d.Path(0, 1)
	assert.False(t, ok, "collecting steps does not retain paths")

	plain, err := matrix.Build(context.Background(), seqs, matrix.BuildOptions{Align: dtw.DefaultOptions()})
	require.NoError(t, err)
	assert.Empty(t, plain.StepDistances())
}

// TestBuild_BadOptions rejects invalid configuration before any work.
func TestBuild_BadOptions(t *testing.T) {
	_, err := matrix.Build(context.Background(), corpus(), matrix.BuildOptions{
		Align:   dtw.DefaultOptions(),
		Workers: -1,
	})
	assert.ErrorIs(t, err, matrix.ErrBadOption)

	bad := dtw.DefaultOptions()
	bad.BandPercentage = 2
	_, err = matrix.Build(context.Background(), corpus(), matrix.BuildOptions{Align: bad})
	assert.ErrorIs(t, err, dtw.ErrBadOption)
}

// TestBuild_Empty yields a 0×0 complete matrix.
func TestBuild_Empty(t *testing.T) {
	d, err := matrix.Build(context.Background(), nil, matrix.BuildOptions{Align: dtw.DefaultOptions()})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.NoError(t, d.Complete())
}
