package sequence

import (
	"fmt"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// FrameRow is the on-disk layout: one row per frame.
type FrameRow struct {
	SegmentID  int64     `parquet:"segment_id"`
	Source     string    `parquet:"source"`
	StartSec   float64   `parquet:"start_sec"`
	StopSec    float64   `parquet:"stop_sec"`
	FrameIndex int32     `parquet:"frame_index"`
	Values     []float64 `parquet:"values"`
}

// ReadParquet loads a store from a parquet file of FrameRow records.
// Rows may appear in any order; frames of each segment are ordered by
// FrameIndex, which must cover 0..len-1 exactly.
func ReadParquet(path string) (*Store, error) {
	rows, err := parquet.ReadFile[FrameRow](path)
	if err != nil {
		return nil, fmt.Errorf("sequence: read %s: %w", path, err)
	}

	return FromRows(rows)
}

// FromRows groups frame rows into sequences and fills a new store.
func FromRows(rows []FrameRow) (*Store, error) {
	grouped := make(map[int64][]FrameRow)
	for _, r := range rows {
		grouped[r.SegmentID] = append(grouped[r.SegmentID], r)
	}

	ids := make([]int64, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	st := NewStore()
	for _, id := range ids {
		group := grouped[id]
		sort.Slice(group, func(i, j int) bool { return group[i].FrameIndex < group[j].FrameIndex })

		frames := make([]Frame, len(group))
		for k, r := range group {
			if int(r.FrameIndex) != k {
				return nil, fmt.Errorf("%w: segment=%d expected frame %d, got %d",
					ErrFrameGap, id, k, r.FrameIndex)
			}
			frames[k] = Frame(r.Values)
		}
		first := group[0]
		err := st.Add(Sequence{
			ID:      id,
			Frames:  frames,
			Segment: Segment{Source: first.Source, Start: first.StartSec, Stop: first.StopSec},
		})
		if err != nil {
			return nil, err
		}
	}

	return st, nil
}

// Rows flattens the store into frame rows in (segment, frame) order.
func (st *Store) Rows() []FrameRow {
	var rows []FrameRow
	for _, s := range st.Sequences() {
		for k, f := range s.Frames {
			rows = append(rows, FrameRow{
				SegmentID:  s.ID,
				Source:     s.Segment.Source,
				StartSec:   s.Segment.Start,
				StopSec:    s.Segment.Stop,
				FrameIndex: int32(k),
				Values:     f,
			})
		}
	}

	return rows
}

// WriteParquet persists the store to path.
func WriteParquet(path string, st *Store) error {
	if err := parquet.WriteFile(path, st.Rows()); err != nil {
		return fmt.Errorf("sequence: write %s: %w", path, err)
	}

	return nil
}
