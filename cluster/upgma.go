package cluster

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/soundmotif/unionfind"
)

// Run clusters the rows of t with UPGMA (average linkage) driven by a
// union-find forest, stopping at a percentile-derived threshold.
//
// Algorithm Outline:
//
//	Stage 1: Copy every unordered pair distance into a working n×n table.
//	         Missing cells abort with the table's error.
//	Stage 2: threshold = empirical Percentile of the finite pair distances.
//	         It is fixed for the whole run.
//	Stage 3: Find the closest pair of live roots (ties → lowest (a,b)).
//	         Stop if it exceeds threshold or fewer than two roots remain.
//	Stage 4: Union by size, record the event, then for every live k:
//	           d(new,k) = (size_a·d(a,k) + size_b·d(b,k)) / (size_a+size_b)
//	         The absorbed root leaves the live set.
//	Stage 5: Read clusters off Find, ordered by smallest member.
//
// Infeasible pairs (+Inf) never merge and are excluded from the percentile.
//
// Complexity: O(n³) time, O(n²) memory.
func Run(t Table, opts ...Option) (*Result, error) {
	if t == nil {
		return nil, ErrNilTable
	}
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	n := t.Len()
	w := make([]float64, n*n)
	finite := make([]float64, 0, n*(n-1)/2)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			v, err := t.Pair(a, b)
			if err != nil {
				return nil, fmt.Errorf("cluster: pair (%d,%d): %w", a, b, err)
			}
			w[a*n+b], w[b*n+a] = v, v
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				finite = append(finite, v)
			}
		}
	}

	res := &Result{Eligible: len(finite)}
	uf := unionfind.New(n)
	if len(finite) > 0 {
		res.Threshold = Percentile(finite, o.Percentile)
		res.Events = merge(uf, w, n, res.Threshold)
	}

	res.Assignment, res.Clusters = partition(uf, n)

	return res, nil
}

// merge runs Stages 3–4 and returns the events in merge order.
func merge(uf *unionfind.UnionFind, w []float64, n int, threshold float64) []MergeEvent {
	live := make([]bool, n)
	for i := range live {
		live[i] = true
	}

	var events []MergeEvent
	for uf.Sets() >= 2 {
		bestA, bestB, best := -1, -1, math.Inf(1)
		for a := 0; a < n; a++ {
			if !live[a] {
				continue
			}
			for b := a + 1; b < n; b++ {
				if live[b] && w[a*n+b] < best {
					bestA, bestB, best = a, b, w[a*n+b]
				}
			}
		}
		if bestA < 0 || best > threshold {
			break
		}

		sizeA, sizeB := uf.Size(bestA), uf.Size(bestB)
		root, _ := uf.Union(bestA, bestB)
		gone := bestB
		if root == bestB {
			gone = bestA
		}

		total := float64(sizeA + sizeB)
		for k := 0; k < n; k++ {
			if !live[k] || k == bestA || k == bestB {
				continue
			}
			d := (float64(sizeA)*w[bestA*n+k] + float64(sizeB)*w[bestB*n+k]) / total
			w[root*n+k], w[k*n+root] = d, d
		}
		live[gone] = false

		events = append(events, MergeEvent{
			A:        bestA,
			B:        bestB,
			Into:     root,
			Distance: best,
			SizeA:    sizeA,
			SizeB:    sizeB,
			Kind:     kindOf(sizeA, sizeB),
		})
	}

	return events
}

// partition converts the forest into ordered clusters and an assignment.
func partition(uf *unionfind.UnionFind, n int) ([]int, [][]int) {
	groups := uf.Groups()
	clusters := make([][]int, 0, len(groups))
	for _, members := range groups {
		clusters = append(clusters, members)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })

	assignment := make([]int, n)
	for c, members := range clusters {
		for _, m := range members {
			assignment[m] = c
		}
	}

	return assignment, clusters
}

// Percentile returns the empirical p-quantile of values (gonum stat.Empirical:
// the smallest value whose cumulative fraction reaches p). values is not
// modified. Returns NaN for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
