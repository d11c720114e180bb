// Package pipeline wires alignment, clustering, model merging and decoding
// into one discovery run over a sequence.Store.
//
// 🚀 Phases
//
//	align   N·(N−1) banded DTW alignments (N·(N−1)/2 when symmetric)
//	paths   one alignment path per within-cluster pair
//	merge   one hmm.Model per terminal cluster
//	decode  every segment against every model
//
// Each phase is bounded by alignment_workers and observes ctx. A Progress
// sink, if attached, sees Phase once per phase and Advance once per unit of
// work.
//
// ⚠️ Failure policy:
//   - an invalid configuration or an incomplete distance matrix aborts,
//   - pairs outside the warping band are recorded in Result.SkippedPairs,
//   - clusters whose merge yields no states are recorded with a nil Model.
//
// ⚙️ Usage:
//
//	p, err := pipeline.New(cfg, logger, pipeline.WithProgress(bar))
//	res, err := p.Run(ctx, store)
//	err = pipeline.WriteJSON(out, res)
//	err = pipeline.WriteDetections(tsv, res)
package pipeline
