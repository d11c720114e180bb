// Package unionfind provides an arena-backed disjoint-set forest over dense
// integer ids.
//
// Two independent instances drive soundmotif: one over cluster ids (one per
// sequence) during UPGMA, one over state ids (one per frame of every member
// sequence) during model merging. Elements are plain indices into parent and
// size slices, so there are no pointers between nodes.
//
// Policies:
//   - Find uses path halving (every visited node jumps to its grandparent).
//   - Union is by size; on equal sizes the lower id becomes the root, which
//     keeps results independent of argument order.
package unionfind

// UnionFind is a disjoint-set forest. The zero value is an empty forest;
// grow it with Add. Not safe for concurrent mutation.
type UnionFind struct {
	parent []int
	size   []int
	sets   int
}

// New returns a forest of n singleton sets {0}, {1}, ..., {n-1}.
//
// Complexity: O(n).
func New(n int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, n),
		size:   make([]int, n),
		sets:   n,
	}
	for i := 0; i < n; i++ {
		uf.parent[i] = i
		uf.size[i] = 1
	}

	return uf
}

// Add appends a new singleton and returns its id.
func (uf *UnionFind) Add() int {
	id := len(uf.parent)
	uf.parent = append(uf.parent, id)
	uf.size = append(uf.size, 1)
	uf.sets++

	return id
}

// Len returns the number of elements.
func (uf *UnionFind) Len() int { return len(uf.parent) }

// Sets returns the number of disjoint sets.
func (uf *UnionFind) Sets() int { return uf.sets }

// Find returns the root of x. Panics if x is out of range (programmer error).
//
// Complexity: amortised O(α(n)).
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		// Path halving: make x point to its grandparent.
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}

	return x
}

// Union merges the sets of a and b and returns the surviving root.
// merged is false when a and b already shared a root.
//
// Complexity: amortised O(α(n)).
func (uf *UnionFind) Union(a, b int) (root int, merged bool) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return ra, false
	}
	// Attach the smaller tree under the larger; lower id wins ties.
	if uf.size[ra] < uf.size[rb] || (uf.size[ra] == uf.size[rb] && rb < ra) {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	uf.sets--

	return ra, true
}

// Connected reports whether a and b belong to the same set.
func (uf *UnionFind) Connected(a, b int) bool {
	return uf.Find(a) == uf.Find(b)
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x int) int {
	return uf.size[uf.Find(x)]
}

// Roots returns every root in ascending order.
//
// Complexity: O(n).
func (uf *UnionFind) Roots() []int {
	roots := make([]int, 0, uf.sets)
	for i := range uf.parent {
		if uf.parent[i] == i {
			roots = append(roots, i)
		}
	}

	return roots
}

// Groups returns the members of every set, keyed by root. Members are in
// ascending order.
//
// Complexity: O(n·α(n)).
func (uf *UnionFind) Groups() map[int][]int {
	groups := make(map[int][]int, uf.sets)
	for i := range uf.parent {
		r := uf.Find(i)
		groups[r] = append(groups[r], i)
	}

	return groups
}
