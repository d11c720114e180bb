package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/soundmotif/cluster"
	"github.com/katalvlaran/soundmotif/config"
	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/hmm"
	"github.com/katalvlaran/soundmotif/matrix"
	"github.com/katalvlaran/soundmotif/metrics"
	"github.com/katalvlaran/soundmotif/sequence"
)

// Pipeline runs alignment, clustering, model merging and decoding over a
// sequence store. Phases are strictly sequenced; each one only reads what
// the previous one produced.
type Pipeline struct {
	cfg      config.Config
	log      *zap.Logger
	progress Progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress attaches a progress sink.
func WithProgress(p Progress) Option {
	return func(pl *Pipeline) {
		if p != nil {
			pl.progress = p
		}
	}
}

// New validates cfg and returns a ready pipeline. A nil logger is replaced
// with a no-op logger.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{cfg: cfg, log: logger, progress: noProgress{}}
	for _, fn := range opts {
		fn(p)
	}

	return p, nil
}

// workers resolves alignment_workers (0 = one per CPU).
func (p *Pipeline) workers() int {
	if p.cfg.AlignmentWorkers > 0 {
		return p.cfg.AlignmentWorkers
	}

	return runtime.NumCPU()
}

// clusterWork carries one cluster through the path, merge and decode phases.
type clusterWork struct {
	index   []int
	members []sequence.Sequence
	paths   []hmm.PairPath
}

// Run executes the discovery pipeline on store.
//
// Algorithm Outline:
//
//	Stage 1: Build the distance matrix in parallel; it must be complete.
//	Stage 2: Cluster with UPGMA at the clustering percentile.
//	Stage 3: Collect the alignment path of every within-cluster pair,
//	         realigning on demand when paths were not retained.
//	Stage 4: Resolve the merge threshold (configured, or the merging
//	         percentile of the step distances on every corpus path).
//	Stage 5: Merge every cluster into a model in parallel.
//	Stage 6: Decode every segment against every model.
//
// InvalidConfiguration and IncompleteMatrix abort the run. Infeasible pairs
// and degenerate clusters are recorded in the Result and the run continues.
func (p *Pipeline) Run(ctx context.Context, store *sequence.Store) (*Result, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	start := time.Now()
	seqs := store.Sequences()
	res := &Result{Segments: make([]SegmentRef, len(seqs))}
	for i, s := range seqs {
		res.Segments[i] = SegmentRef{ID: s.ID, Frames: s.Len(), Segment: s.Segment}
	}
	p.log.Info("discovery started", zap.Int("segments", len(seqs)), zap.Int("workers", p.workers()))

	// Stage 1
	dist, err := p.buildMatrix(ctx, seqs)
	if err != nil {
		return nil, err
	}
	for _, pair := range dist.InfeasiblePairs() {
		res.SkippedPairs = append(res.SkippedPairs, SkippedPair{
			A:      seqs[pair[0]].ID,
			B:      seqs[pair[1]].ID,
			Reason: dtw.ErrAlignmentInfeasible.Error(),
		})
	}

	// Stage 2
	cl, err := cluster.Run(dist, cluster.WithPercentile(p.cfg.ClusteringPercentile))
	if err != nil {
		return nil, fmt.Errorf("pipeline: clustering: %w", err)
	}
	res.ClusteringThreshold = cl.Threshold
	for _, ev := range cl.Events {
		res.Dendrogram = append(res.Dendrogram, MergeEvent{
			A:        seqs[ev.A].ID,
			B:        seqs[ev.B].ID,
			Into:     seqs[ev.Into].ID,
			Distance: ev.Distance,
			SizeA:    ev.SizeA,
			SizeB:    ev.SizeB,
			Kind:     ev.Kind.String(),
		})
	}
	metrics.ClusterMergesTotal.Add(float64(len(cl.Events)))
	metrics.Clusters.Set(float64(len(cl.Clusters)))
	p.log.Info("clustering done",
		zap.Float64("threshold", cl.Threshold),
		zap.Int("eligible_pairs", cl.Eligible),
		zap.Int("merges", len(cl.Events)),
		zap.Int("clusters", len(cl.Clusters)),
	)

	work := make([]*clusterWork, len(cl.Clusters))
	for c, idx := range cl.Clusters {
		w := &clusterWork{index: idx, members: make([]sequence.Sequence, len(idx))}
		for k, i := range idx {
			w.members[k] = seqs[i]
		}
		work[c] = w
	}

	// Stage 3
	if err = p.collectPaths(ctx, dist, work); err != nil {
		return nil, err
	}

	// Stage 4
	res.MergeThreshold = p.mergeThreshold(dist)

	// Stage 5
	res.Clusters, err = p.mergeAll(ctx, work, res.MergeThreshold)
	if err != nil {
		return nil, err
	}

	// Stage 6
	if err = p.decode(ctx, seqs, cl.Assignment, res); err != nil {
		return nil, err
	}

	p.log.Info("discovery finished",
		zap.Int("clusters", len(res.Clusters)),
		zap.Int("skipped_pairs", len(res.SkippedPairs)),
		zap.Float64("agreement", res.Agreement),
		zap.Duration("elapsed", time.Since(start)),
	)

	return res, nil
}

func (p *Pipeline) buildMatrix(ctx context.Context, seqs []sequence.Sequence) (*matrix.Distances, error) {
	opts := p.cfg.BuildOptions()
	opts.Workers = p.workers()
	opts.Logger = p.log
	opts.Observer = func(int, int, error) { p.progress.Advance() }
	p.progress.Phase(PhaseAlign, matrix.Pairs(len(seqs), opts.Symmetric))

	dist, err := matrix.Build(ctx, seqs, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: distance matrix: %w", err)
	}
	if err = dist.Complete(); err != nil {
		return nil, fmt.Errorf("pipeline: distance matrix: %w", err)
	}

	return dist, nil
}

// collectPaths gathers one path per within-cluster pair x<y, oriented from
// the lower to the higher matrix index. Infeasible pairs contribute no path.
func (p *Pipeline) collectPaths(ctx context.Context, dist *matrix.Distances, work []*clusterWork) error {
	total := 0
	for _, w := range work {
		total += len(w.index) * (len(w.index) - 1) / 2
	}
	p.progress.Phase(PhasePaths, total)

	align := p.cfg.AlignOptions()
	align.MemoryMode = dtw.FullMatrix

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for _, w := range work {
		g.Go(func() error {
			for x := 0; x < len(w.index); x++ {
				for y := x + 1; y < len(w.index); y++ {
					if err := gctx.Err(); err != nil {
						return err
					}
					a, b := w.index[x], w.index[y]
					path, err := pairPath(dist, a, b, w.members[x], w.members[y], align)
					p.progress.Advance()
					if errors.Is(err, dtw.ErrAlignmentInfeasible) {
						continue
					}
					if err != nil {
						return fmt.Errorf("pipeline: path %d→%d: %w", w.members[x].ID, w.members[y].ID, err)
					}
					w.paths = append(w.paths, hmm.PairPath{X: x, Y: y, Path: path})
				}
			}

			return nil
		})
	}

	return g.Wait()
}

// pairPath returns the retained path of (a,b) or realigns the pair.
func pairPath(dist *matrix.Distances, a, b int, sa, sb sequence.Sequence, align dtw.Options) (dtw.Path, error) {
	if dist.Infeasible(a, b) {
		return nil, dtw.ErrAlignmentInfeasible
	}
	if path, ok := dist.Path(a, b); ok {
		return path, nil
	}
	res, err := dtw.Align(sa.Frames, sb.Frames, align)
	if err != nil {
		return nil, err
	}

	return res.Path, nil
}

// mergeThreshold returns merge_threshold when set. Otherwise it is the
// merging_percentile of the step distances on every aligned corpus path, so
// cross-cluster steps keep it away from zero. A derived value of zero falls
// back to the smallest positive sample, and to the smallest positive float
// when every sample is zero, so that identical frames still merge.
func (p *Pipeline) mergeThreshold(dist *matrix.Distances) float64 {
	if p.cfg.MergeThreshold > 0 {
		return p.cfg.MergeThreshold
	}
	samples := dist.StepDistances()
	th := cluster.Percentile(samples, p.cfg.MergingPercentile)
	if math.IsNaN(th) {
		p.log.Warn("no aligned paths; merge threshold falls back to the smallest positive value")

		return math.SmallestNonzeroFloat64
	}
	fallback := th <= 0
	if fallback {
		th = smallestPositive(samples)
	}
	p.log.Info("merge threshold derived",
		zap.Float64("threshold", th),
		zap.Bool("zero_fallback", fallback),
		zap.Float64("merging_percentile", p.cfg.MergingPercentile),
		zap.Int("samples", len(samples)),
	)

	return th
}

// smallestPositive returns the least sample above zero, or the smallest
// positive float when there is none.
func smallestPositive(samples []float64) float64 {
	least := math.Inf(1)
	for _, v := range samples {
		if v > 0 && v < least {
			least = v
		}
	}
	if math.IsInf(least, 1) {
		return math.SmallestNonzeroFloat64
	}

	return least
}

// mergeAll merges every cluster on a bounded errgroup. Degenerate clusters
// are reported, not fatal.
func (p *Pipeline) mergeAll(ctx context.Context, work []*clusterWork, threshold float64) ([]Cluster, error) {
	p.progress.Phase(PhaseMerge, len(work))
	out := make([]Cluster, len(work))
	opts := p.cfg.MergeOptions(threshold)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for c, w := range work {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer p.progress.Advance()

			cl := Cluster{ID: c, Paths: len(w.paths), Members: make([]int64, len(w.members))}
			for k, s := range w.members {
				cl.Members[k] = s.ID
			}
			model, err := hmm.Merge(w.members, w.paths, opts...)
			switch {
			case err == nil:
				cl.Model = model
				metrics.ModelStates.Observe(float64(len(model.States)))
			case errors.Is(err, hmm.ErrDegenerateCluster):
				cl.Degenerate = err.Error()
				metrics.DegenerateClustersTotal.Inc()
				p.log.Warn("degenerate cluster",
					zap.Int("cluster", c),
					zap.Int64s("members", cl.Members),
					zap.Float64("merge_threshold", threshold),
				)
			default:
				return fmt.Errorf("pipeline: merge cluster %d %v: %w", c, cl.Members, err)
			}
			out[c] = cl

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// decode classifies every segment against every model and fills
// res.Decoding and res.Agreement.
func (p *Pipeline) decode(ctx context.Context, seqs []sequence.Sequence, assignment []int, res *Result) error {
	p.progress.Phase(PhaseDecode, len(seqs))
	models := make([]*hmm.Model, len(res.Clusters))
	for c := range res.Clusters {
		models[c] = res.Clusters[c].Model
	}
	res.Decoding = make([]Decoding, len(seqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, s := range seqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer p.progress.Advance()

			best, ll, err := hmm.Classify(models, s.Frames)
			if err != nil {
				return fmt.Errorf("pipeline: decode segment %d: %w", s.ID, err)
			}
			d := Decoding{Segment: s.ID, Cluster: assignment[i], Best: best}
			if best >= 0 {
				d.LogLikelihood, d.Reachable = ll, true
			}
			res.Decoding[i] = d

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	agree := 0
	for _, d := range res.Decoding {
		if d.Reachable && d.Best == d.Cluster {
			agree++
		}
	}
	if len(seqs) > 0 {
		res.Agreement = float64(agree) / float64(len(seqs))
	}

	return nil
}
