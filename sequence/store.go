package sequence

import (
	"fmt"
	"sort"
	"sync"
)

// Store owns the corpus of sequences. It is safe for concurrent use; once the
// pipeline starts, the store is only read.
type Store struct {
	mu   sync.RWMutex
	dim  int
	seqs map[int64]Sequence
}

// NewStore returns an empty store. The frame dimension is fixed by the first
// sequence added.
func NewStore() *Store {
	return &Store{seqs: make(map[int64]Sequence)}
}

// Add inserts s after checking it is non-empty, has a fresh id, and that all
// of its frames match the store dimension.
//
// Complexity: O(len(s)).
func (st *Store) Add(s Sequence) error {
	if len(s.Frames) == 0 {
		return fmt.Errorf("%w: id=%d", ErrEmptySequence, s.ID)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.seqs[s.ID]; ok {
		return fmt.Errorf("%w: id=%d", ErrDuplicateID, s.ID)
	}
	dim := st.dim
	if len(st.seqs) == 0 {
		dim = len(s.Frames[0])
	}
	if dim == 0 {
		return fmt.Errorf("%w: id=%d has zero-length frames", ErrDimensionMismatch, s.ID)
	}
	for k, f := range s.Frames {
		if len(f) != dim {
			return fmt.Errorf("%w: id=%d frame=%d has %d values, want %d",
				ErrDimensionMismatch, s.ID, k, len(f), dim)
		}
	}

	st.dim = dim
	st.seqs[s.ID] = s

	return nil
}

// Get returns the sequence with the given id.
func (st *Store) Get(id int64) (Sequence, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.seqs[id]
	if !ok {
		return Sequence{}, fmt.Errorf("%w: id=%d", ErrUnknownID, id)
	}

	return s, nil
}

// Len returns the number of sequences.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return len(st.seqs)
}

// Dim returns the frame dimension (0 while the store is empty).
func (st *Store) Dim() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.dim
}

// IDs returns all ids in ascending order.
func (st *Store) IDs() []int64 {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]int64, 0, len(st.seqs))
	for id := range st.seqs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Sequences returns the sequences in ascending id order. The position of a
// sequence in this slice is its index in the distance matrix.
func (st *Store) Sequences() []Sequence {
	ids := st.IDs()

	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make([]Sequence, len(ids))
	for i, id := range ids {
		out[i] = st.seqs[id]
	}

	return out
}
