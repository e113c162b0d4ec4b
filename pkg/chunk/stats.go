// Package chunk manages one column's pages: the writer batches shredded
// entries into data pages, runs the dictionary lifecycle and accumulates
// statistics; the reader turns a page sequence back into an entry stream.
package chunk

import "github.com/datalith/strata/pkg/schema"

// Statistics are the running aggregates of one column chunk. Min and Max
// cover non-null values only, ordered by the physical type (byte arrays
// lexicographically). DistinctCount is -1 when the chunk never had a
// complete dictionary.
type Statistics struct {
	Min           *schema.Datum
	Max           *schema.Datum
	NullCount     int64
	DistinctCount int64
	TotalValues   int64
	NumRecords    int64
}

func (s *Statistics) observe(d *schema.Datum, repLevel int) {
	s.TotalValues++
	if repLevel == 0 {
		s.NumRecords++
	}
	if d == nil {
		s.NullCount++
		return
	}
	if s.Min == nil || d.Less(*s.Min) {
		v := *d
		s.Min = &v
	}
	if s.Max == nil || s.Max.Less(*d) {
		v := *d
		s.Max = &v
	}
}
