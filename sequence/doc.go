// Package sequence holds the feature sequences that the rest of soundmotif
// aligns, clusters and merges.
//
// A Sequence is an ordered list of fixed-dimension Frames produced by feature
// extraction for one "interesting" segment of a recording. Frame order is
// load-bearing: alignment walks frames in index order.
//
// The Store is a leaf container with no algorithmic logic. It enforces the
// shape invariants the aligners rely on:
//   - every sequence is non-empty,
//   - ids are unique,
//   - every frame in the store has the same dimension.
//
// Sequences are read from / written to Parquet (one row per frame) so that a
// feature-extraction stage written in any language can hand its output over.
//
//	store, err := sequence.ReadParquet("features.parquet")
//	if err != nil { ... }
//	for _, s := range store.Sequences() {
//		fmt.Println(s.ID, s.Len(), s.Segment.Source)
//	}
package sequence
