package dataset

import (
	"log/slog"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// Rederiver re-derives a persisted report.
type Rederiver interface {
	Rederive(r *model.Report) (*model.Report, error)
}

// MergeResult describes what a merge did to each record.
type MergeResult struct {
	// Skipped holds the ids whose re-derivation failed. Their persisted
	// version stays in the set and their detail file must not be rewritten.
	Skipped map[int]bool

	// Outcomes has one entry per persisted record that was re-derived or
	// skipped.
	Outcomes []model.Outcome
}

// Merger combines processed reports with a persisted set.
type Merger struct {
	rederiver Rederiver
	logger    *slog.Logger
}

// NewMerger creates a Merger. A nil logger uses slog.Default.
func NewMerger(rederiver Rederiver, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{rederiver: rederiver, logger: logger}
}

// Merge overwrites or inserts processed into set by id, then re-derives
// every other record in set in place.
func (m *Merger) Merge(set *Set, processed []*model.Report) MergeResult {
	result := MergeResult{Skipped: make(map[int]bool)}

	fresh := make(map[int]bool, len(processed))
	for _, r := range processed {
		set.Put(r)
		fresh[r.ID] = true
	}

	for _, id := range set.IDs() {
		if fresh[id] {
			continue
		}
		persisted, _ := set.Get(id)
		updated, err := m.rederiver.Rederive(persisted)
		if err != nil {
			m.logger.Warn("keeping persisted record", "id", id, "error", err)
			result.Skipped[id] = true
			result.Outcomes = append(result.Outcomes, model.Outcome{
				ID:     id,
				Stage:  model.StageMerge,
				Status: model.OutcomeSkipped,
				Reason: err.Error(),
			})
			continue
		}
		set.Put(updated)
		result.Outcomes = append(result.Outcomes, model.Outcome{
			ID:     id,
			Stage:  model.StageMerge,
			Status: model.OutcomeProcessed,
		})
	}

	m.logger.Debug("merged dataset", "fresh", len(fresh), "total", set.Len(), "skipped", len(result.Skipped))
	return result
}
