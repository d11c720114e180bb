// Package hmm merges the aligned members of one cluster into a simplified
// hidden Markov model and decodes sequences against such models.
//
// 🚀 Model merging
//
//	Every member frame starts as its own state, chained in frame order. Two
//	kinds of evidence coalesce states through a union-find forest:
//	  • a MATCH step of an alignment path whose frame distance is below the
//	    threshold joins frames of two different members,
//	  • two consecutive frames of one member below the threshold join into a
//	    sustained state, which gains a self-loop.
//	Each equivalence class becomes a State carrying the mean and variance of
//	its frames. States that hold a single frame and never loop are transient
//	alignment artifacts: they are removed and their predecessors are wired
//	straight to their successors.
//
// 🧭 Decoding
//
//	Model.Decode is Viterbi over the chain topology. Emissions are diagonal
//	Gaussians (variance floored), transition probabilities come from the
//	counts recorded while merging. Classify picks the best of several models.
//
// ⚙️ Usage:
//
//	m, err := hmm.Merge(members, paths, hmm.WithThreshold(th))
//	if errors.Is(err, hmm.ErrDegenerateCluster) {
//		// drop the cluster or lower the threshold
//	}
//	best, ll, err := hmm.Classify(models, seq.Frames)
//
// Merging is sequential within a cluster and independent across clusters.
package hmm
