package model

import "time"

// Stage names the pipeline stage that produced an outcome.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageSpamGuard Stage = "spam_guard"
	StageProcess   Stage = "process"
	StageMerge     Stage = "merge"
	StagePublish   Stage = "publish"
)

// OutcomeStatus is the tag of a per-record outcome.
type OutcomeStatus string

const (
	// OutcomeProcessed means the record was derived and published.
	OutcomeProcessed OutcomeStatus = "processed"

	// OutcomeSkipped means the record was left untouched for this run.
	OutcomeSkipped OutcomeStatus = "skipped"

	// OutcomeSpamClosed means a duplicate appeal was closed.
	OutcomeSpamClosed OutcomeStatus = "spam_closed"

	// OutcomeSpamCloseFailed means a duplicate appeal was detected but
	// closing it through the tracker failed.
	OutcomeSpamCloseFailed OutcomeStatus = "spam_close_failed"
)

// Outcome is the tagged result of handling one record in one stage.
type Outcome struct {
	ID     int           `json:"id"`
	Stage  Stage         `json:"stage"`
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// ArtifactResult records the write of one output file.
type ArtifactResult struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the artifact was written.
func (a ArtifactResult) OK() bool {
	return a.Error == ""
}

// RunReport is the result of one pipeline run.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Since      time.Time        `json:"since"`
	Fetched    int              `json:"fetched"`
	Qualified  int              `json:"qualified"`
	Appeals    int              `json:"appeals"`
	TotalCount int              `json:"total_count"`
	Outcomes   []Outcome        `json:"outcomes"`
	Artifacts  []ArtifactResult `json:"artifacts"`
	Error      error            `json:"-"`

	// ErrorMessage is Error rendered as text for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRunReport creates an empty report for the given run.
func NewRunReport(runID string, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:     runID,
		StartedAt: startedAt,
		Outcomes:  make([]Outcome, 0),
		Artifacts: make([]ArtifactResult, 0),
	}
}

// AddOutcome appends an outcome to the report.
func (r *RunReport) AddOutcome(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// AddArtifact appends an artifact result to the report.
func (r *RunReport) AddArtifact(a ArtifactResult) {
	r.Artifacts = append(r.Artifacts, a)
}

// CountOutcomes returns how many outcomes carry the given status.
func (r *RunReport) CountOutcomes(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// OutcomesFor returns the outcomes recorded for the given record id.
func (r *RunReport) OutcomesFor(id int) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.ID == id {
			out = append(out, o)
		}
	}
	return out
}

// FailedArtifacts returns the artifacts whose write failed.
func (r *RunReport) FailedArtifacts() []ArtifactResult {
	var out []ArtifactResult
	for _, a := range r.Artifacts {
		if !a.OK() {
			out = append(out, a)
		}
	}
	return out
}

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	// RunComplete means every record and artifact was handled.
	RunComplete RunStatus = "complete"

	// RunPartial means the run finished but some records were skipped or
	// some artifacts failed to write.
	RunPartial RunStatus = "partial"

	// RunFailed means the run stopped on a fatal error.
	RunFailed RunStatus = "failed"
)

// Status returns the summary status of the run.
func (r *RunReport) Status() RunStatus {
	switch {
	case r.Error != nil || r.ErrorMessage != "":
		return RunFailed
	case len(r.FailedArtifacts()) > 0,
		r.CountOutcomes(OutcomeSkipped) > 0,
		r.CountOutcomes(OutcomeSpamCloseFailed) > 0:
		return RunPartial
	default:
		return RunComplete
	}
}

// Duration returns how long the run took, or zero when it has not finished.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
