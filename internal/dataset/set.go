package dataset

import (
	"maps"
	"slices"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// Set is the id keyed collection of reports a run works on.
// A Set is not safe for concurrent use.
type Set struct {
	records map[int]*model.Report
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{records: make(map[int]*model.Report)}
}

// Put inserts r, replacing any report with the same id.
func (s *Set) Put(r *model.Report) {
	s.records[r.ID] = r
}

// Get returns the report with the given id.
func (s *Set) Get(id int) (*model.Report, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Len returns the number of reports.
func (s *Set) Len() int {
	return len(s.records)
}

// IDs returns every id in ascending order.
func (s *Set) IDs() []int {
	return slices.Sorted(maps.Keys(s.records))
}

// Sorted returns every report in ascending id order.
func (s *Set) Sorted() []*model.Report {
	ids := s.IDs()
	out := make([]*model.Report, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}
	return out
}
