// SPDX-License-Identifier: MIT

package matrix

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/metrics"
	"github.com/katalvlaran/soundmotif/sequence"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Align is passed to every pairwise alignment. MemoryMode is overridden:
	// FullMatrix when RetainPaths or CollectSteps is set, TwoRows otherwise.
	Align dtw.Options

	// Workers bounds concurrent row tasks. Zero means runtime.NumCPU().
	Workers int

	// Symmetric aligns only a<b and mirrors the cost.
	Symmetric bool

	// RetainPaths stores one alignment path per unordered pair.
	RetainPaths bool

	// Normalize stores Result.Normalized() instead of the raw cost.
	Normalize bool

	// CollectSteps records the base frame distance of every step on every
	// aligned path (see Distances.StepDistances). It forces FullMatrix.
	CollectSteps bool

	// Observer, if non-nil, is called once per computed cell from worker
	// goroutines. err is nil or wraps dtw.ErrAlignmentInfeasible.
	Observer func(a, b int, err error)

	// Logger receives per-pair debug records and the build summary.
	Logger *zap.Logger
}

// Build aligns every required pair of seqs and returns the filled matrix.
// Row and column indices follow the order of seqs.
//
// Algorithm Outline:
//
//	Stage 1: Allocate an N×N matrix with a zero diagonal.
//	Stage 2: Schedule one task per row on an errgroup bounded by Workers.
//	Stage 3: Each task aligns its row's pairs, checking ctx before every pair.
//	         Infeasible pairs are marked, never substituted.
//	Stage 4: Wait; a cancelled context leaves cells unset and is reported as
//	         ErrIncompleteMatrix together with the partial matrix.
//
// Each task writes a disjoint set of cells, so no locking is needed.
//
// Complexity: O(N²·m·n / Workers) time, O(N²) memory plus O(m·n) per worker
// when paths are retained.
func Build(ctx context.Context, seqs []sequence.Sequence, opts BuildOptions) (*Distances, error) {
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: workers=%d", ErrBadOption, opts.Workers)
	}
	if err := opts.Align.Validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	align := opts.Align
	if opts.RetainPaths || opts.CollectSteps {
		align.MemoryMode = dtw.FullMatrix
	} else {
		align.MemoryMode = dtw.TwoRows
	}

	n := len(seqs)
	d, err := New(n, opts.Symmetric)
	if err != nil {
		return nil, err
	}
	if opts.RetainPaths {
		d.allocPaths()
	}
	if opts.CollectSteps {
		d.allocSteps()
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for a := 0; a < n; a++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return buildRow(gctx, d, seqs, a, align, opts, logger)
		})
	}
	if err = g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("distance matrix build interrupted", zap.Int("sequences", n), zap.Error(err))

			return d, fmt.Errorf("%w: %w", ErrIncompleteMatrix, err)
		}

		return nil, err
	}
	if err = d.Complete(); err != nil {
		return d, withCause(ctx, err)
	}

	logger.Info("distance matrix built",
		zap.Int("sequences", n),
		zap.Int("workers", workers),
		zap.Bool("symmetric", opts.Symmetric),
		zap.Int("infeasible_pairs", len(d.InfeasiblePairs())),
		zap.Duration("elapsed", time.Since(start)),
	)

	return d, nil
}

// withCause attaches the cancellation cause of ctx to err, if there is one.
func withCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return fmt.Errorf("%w: %w", err, cause)
	}

	return err
}

// buildRow fills row a. In symmetric mode only columns b>a are aligned.
func buildRow(
	ctx context.Context,
	d *Distances,
	seqs []sequence.Sequence,
	a int,
	align dtw.Options,
	opts BuildOptions,
	logger *zap.Logger,
) error {
	for b := range seqs {
		if b == a || (opts.Symmetric && b < a) {
			continue
		}
		if err := ctx.Err(); err != nil {
			metrics.AlignmentsTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()

			return err
		}

		t0 := time.Now()
		res, err := dtw.Align(seqs[a].Frames, seqs[b].Frames, align)
		metrics.AlignmentDuration.Observe(time.Since(t0).Seconds())

		switch {
		case err == nil:
			v := res.Cost
			if opts.Normalize {
				v = res.Normalized()
			}
			if err = d.Set(a, b, v); err != nil {
				return err
			}
			if opts.RetainPaths && a < b {
				if err = d.SetPath(a, b, res.Path); err != nil {
					return err
				}
			}
			if opts.CollectSteps {
				d.recordSteps(a, res.Path)
			}
			metrics.AlignmentsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

		case errors.Is(err, dtw.ErrAlignmentInfeasible):
			if serr := d.SetInfeasible(a, b); serr != nil {
				return serr
			}
			metrics.AlignmentsTotal.WithLabelValues(metrics.OutcomeInfeasible).Inc()
			logger.Debug("pair infeasible under warping band",
				zap.Int64("a", seqs[a].ID),
				zap.Int64("b", seqs[b].ID),
				zap.Error(err),
			)

		default:
			metrics.AlignmentsTotal.WithLabelValues(metrics.OutcomeError).Inc()

			return fmt.Errorf("matrix: align %d→%d: %w", seqs[a].ID, seqs[b].ID, err)
		}

		if opts.Observer != nil {
			opts.Observer(a, b, err)
		}
	}

	return nil
}

// Pairs returns the number of alignments Build performs for n sequences.
func Pairs(n int, symmetric bool) int {
	if symmetric {
		return n * (n - 1) / 2
	}

	return n * (n - 1)
}
