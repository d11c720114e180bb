// Package dtw aligns two sequences of feature frames with banded, weighted
// Dynamic Time Warping and returns both the cost and the backtracked path.
//
// 🚀 What is DTW?
//
//	DTW finds the cheapest monotone correspondence between two sequences by
//	letting time stretch locally. Here every frame is a feature vector, the
//	base cost of pairing two frames is a DistanceFunc (Euclidean by default),
//	and the three step kinds are weighted independently:
//	  • MATCH    : pair a[i] with b[j]           (MatchPenalty)
//	  • DELETION : consume a[i] without b         (DeletionPenalty)
//	  • INSERTION: consume b[j] without a         (InsertionPenalty)
//	Down-weighting insertions/deletions lets a corpus favour stretching over
//	substitution.
//
// ✨ Key features:
//   - Sakoe–Chiba band scaled to the length ratio: |i·n/m − j| ≤ band·max(m,n)
//   - deterministic tie-break: MATCH, then DELETION, then INSERTION
//   - full path with per-step frame distance (FullMatrix) or cost only (TwoRows)
//   - ErrAlignmentInfeasible instead of a silent default when the band
//     disconnects the corners
//
// ⚙️ Usage:
//
//	opts := dtw.DefaultOptions()
//	opts.BandPercentage = 0.2
//	opts.InsertionPenalty = 0.5
//	res, err := dtw.Align(a.Frames, b.Frames, opts)
//	if errors.Is(err, dtw.ErrAlignmentInfeasible) {
//		// widen the band or skip the pair
//	}
//	fmt.Println(res.Cost, len(res.Path.Matches()))
//
// Performance:
//
//   - Time:   O(m·n) unrestricted, O(m·band·max(m,n)) banded
//   - Memory: O(m·n) (FullMatrix) or O(n) (TwoRows)
package dtw
