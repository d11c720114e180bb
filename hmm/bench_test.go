package hmm_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/katalvlaran/soundmotif/dtw"
	"github.com/katalvlaran/soundmotif/hmm"
	"github.com/katalvlaran/soundmotif/sequence"
)

var (
	sinkModel *hmm.Model
	sinkLL    float64
)

// noisyMotif returns n renditions of a slowly rising 4-D motif.
func noisyMotif(n, length int, seed int64) []sequence.Sequence {
	rng := rand.New(rand.NewSource(seed))
	out := make([]sequence.Sequence, n)
	for i := range out {
		frames := make([]sequence.Frame, length+rng.Intn(length/4+1))
		for k := range frames {
			f := make(sequence.Frame, 4)
			for d := range f {
				f[d] = float64(k/4) + 0.1*rng.NormFloat64()
			}
			frames[k] = f
		}
		out[i] = sequence.Sequence{ID: int64(i), Frames: frames}
	}

	return out
}

func pairPaths(b *testing.B, members []sequence.Sequence) []hmm.PairPath {
	var paths []hmm.PairPath
	for x := range members {
		for y := x + 1; y < len(members); y++ {
			res, err := dtw.Align(members[x].Frames, members[y].Frames, dtw.DefaultOptions())
			if err != nil {
				b.Fatal(err)
			}
			paths = append(paths, hmm.PairPath{X: x, Y: y, Path: res.Path})
		}
	}

	return paths
}

func BenchmarkMerge(b *testing.B) {
	b.ReportAllocs()
	for _, n := range []int{4, 8} {
		b.Run(fmt.Sprintf("members=%d", n), func(b *testing.B) {
			members := noisyMotif(n, 64, int64(n))
			paths := pairPaths(b, members)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				m, err := hmm.Merge(members, paths, hmm.WithThreshold(0.5))
				if err != nil {
					b.Fatal(err)
				}
				sinkModel = m
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	b.ReportAllocs()
	members := noisyMotif(6, 64, 1)
	m, err := hmm.Merge(members, pairPaths(b, members), hmm.WithThreshold(0.5))
	if err != nil {
		b.Fatal(err)
	}
	probe := noisyMotif(1, 64, 99)[0].Frames
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ll, err := m.LogLikelihood(probe)
		if err != nil {
			b.Fatal(err)
		}
		sinkLL = ll
	}
}
