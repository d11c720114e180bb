package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("pipeline: encode result: %w", err)
	}

	return nil
}

// WriteDetections writes one tab-separated row per segment:
//
//	source  start  stop  cluster
//
// ordered by cluster, then source, then start time. Audio re-assembly
// consumes this table.
func WriteDetections(w io.Writer, res *Result) error {
	type row struct {
		ref     SegmentRef
		cluster int
	}
	byID := make(map[int64]int, len(res.Clusters))
	for _, c := range res.Clusters {
		for _, id := range c.Members {
			byID[id] = c.ID
		}
	}
	rows := make([]row, 0, len(res.Segments))
	for _, s := range res.Segments {
		c, ok := byID[s.ID]
		if !ok {
			return fmt.Errorf("pipeline: segment %d has no cluster", s.ID)
		}
		rows = append(rows, row{ref: s, cluster: c})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.cluster != b.cluster {
			return a.cluster < b.cluster
		}
		if a.ref.Segment.Source != b.ref.Segment.Source {
			return a.ref.Segment.Source < b.ref.Segment.Source
		}

		return a.ref.Segment.Start < b.ref.Segment.Start
	})

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"source", "start", "stop", "cluster"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ref.Segment.Source,
			strconv.FormatFloat(r.ref.Segment.Start, 'f', 3, 64),
			strconv.FormatFloat(r.ref.Segment.Stop, 'f', 3, 64),
			strconv.Itoa(r.cluster),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()

	return cw.Error()
}
