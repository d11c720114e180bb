// Package cluster groups sequences by average-linkage (UPGMA) hierarchical
// clustering over a pairwise distance table.
//
// 🚀 How it works
//
//	Every sequence starts as its own cluster. A stopping threshold is fixed
//	once, as the empirical Percentile of all finite pair distances: with
//	Percentile = 0.05 only the closest 5% of pairs are ever eligible. The
//	closest pair of live clusters is then merged repeatedly through a
//	union-find forest until the closest remaining pair is above threshold.
//
//	After a merge of a and b, the distance to every other cluster k becomes
//	the size-weighted mean
//
//	    d(new,k) = (|a|·d(a,k) + |b|·d(b,k)) / (|a|+|b|)
//
// ✨ Properties:
//   - no MergeEvent ever exceeds Result.Threshold,
//   - ties break towards the lowest (a,b) pair, so runs are reproducible,
//   - clusters that never merge survive as singletons,
//   - +Inf pairs (infeasible alignments) never merge and are excluded from
//     the quantile.
//
// ⚙️ Usage:
//
//	res, err := cluster.Run(distances, cluster.WithPercentile(0.05))
//	for _, ev := range res.Events { ... } // dendrogram
//	for c, members := range res.Clusters { ... }
//
// The merge loop is sequential by nature: every decision depends on the
// previous union.
package cluster
