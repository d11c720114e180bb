// SPDX-License-Identifier: MIT

// Package matrix holds the pairwise alignment-cost matrix of a corpus and the
// parallel builder that fills it.
//
// Distances is a dense, row-major N×N table stored in flat slices for cache
// friendliness. Each cell additionally carries a state so that "never
// computed" is distinguishable from "computed and infeasible":
//   - unset     : no value yet; reading it yields ErrIncompleteMatrix,
//   - set       : a finite alignment cost,
//   - infeasible: the warping band rejected the pair; reads as +Inf.
//
// The matrix is near-symmetric: with unequal insertion/deletion penalties,
// cost(a→b) ≠ cost(b→a). Pair(a,b) exposes the unordered view used by
// clustering (mean of both directions). In symmetric mode only a<b is
// aligned and mirrored.
//
// Build fills the matrix on a bounded errgroup, one task per row, and records
// per-pair outcomes in the soundmotif_alignments_total counter.
package matrix
