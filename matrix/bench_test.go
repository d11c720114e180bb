// SPDX-License-Identifier: MIT

package matrix_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/matrix"
	"github.com/katalvlaran/soundmotif/sequence"
)

var sinkD *matrix.Distances

// randomCorpus returns n sequences of 40..80 frames of dimension 13.
func randomCorpus(n int, seed int64) []sequence.Sequence {
	rng := rand.New(rand.NewSource(seed))
	out := make([]sequence.Sequence, n)
	for i := range out {
		frames := make([]sequence.Frame, 40+rng.Intn(41))
		for f := range frames {
			fr := make(sequence.Frame, 13)
			for k := range fr {
				fr[k] = rng.NormFloat64()
			}
			frames[f] = fr
		}
		out[i] = sequence.Sequence{ID: int64(i), Frames: frames}
	}

	return out
}

func BenchmarkBuild(b *testing.B) {
	b.ReportAllocs()
	seqs := randomCorpus(24, 7)
	for _, sym := range []bool{false, true} {
		b.Run(fmt.Sprintf("symmetric=%t", sym), func(b *testing.B) {
			opts := matrix.BuildOptions{Align: dtw.DefaultOptions(), Symmetric: sym}
			opts.Align.BandPercentage = 0.2
			for i := 0; i < b.N; i++ {
				d, err := matrix.Build(context.Background(), seqs, opts)
				if err != nil {
					b.Fatal(err)
				}
				sinkD = d
			}
		})
	}
}
