package pipeline

import (
	"time"

	"github.com/openblacklist/blacklist-etl/internal/dataset"
	"github.com/openblacklist/blacklist-etl/internal/model"
)

// State is the data shared by the steps of one run.
type State struct {
	// Report accumulates counts, outcomes and artifacts.
	Report *model.RunReport

	// Meta is the persisted meta read at the start of the run.
	Meta model.DatasetMeta

	// Issues are the issues fetched since the watermark, pull requests
	// excluded.
	Issues []model.Issue

	// Qualified carry both moderation labels; Appeals carry the appeal label.
	Qualified []model.Issue
	Appeals   []model.Issue

	// Processed are the reports built from Qualified this run.
	Processed []*model.Report

	// Set is the merged record set.
	Set *dataset.Set

	// Skipped holds ids whose persisted detail file must not be rewritten.
	Skipped map[int]bool

	// Published is the meta written by the publish step.
	Published model.DatasetMeta
}

// NewState creates the state of a run.
func NewState(runID string, startedAt time.Time) *State {
	return &State{
		Report:  model.NewRunReport(runID, startedAt),
		Skipped: make(map[int]bool),
	}
}

func (s *State) fail(err error) {
	if s.Report.Error == nil {
		s.Report.Error = err
		s.Report.ErrorMessage = err.Error()
	}
}
