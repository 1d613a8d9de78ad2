package model

import "time"

// Moderation labels attached to tracker issues.
const (
	// LabelVerified marks an issue that passed first review.
	LabelVerified = "audit:verified"

	// LabelApproved marks an issue that passed final review.
	LabelApproved = "admin:approved"

	// LabelAppeal marks an appeal against a published report.
	LabelAppeal = "type:appeal"
)

// Issue states as reported by the tracker.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"
)

// EventLabeled is the timeline event kind emitted when a label is attached.
const EventLabeled = "labeled"

// Issue is the tracker's view of a single submission.
type Issue struct {
	Number      int
	Title       string
	Body        string
	State       string
	Labels      []string
	Author      string
	HTMLURL     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PullRequest bool
}

// HasLabel reports whether the issue carries the named label.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// IsQualified reports whether the issue carries both moderation labels
// required for publication.
func (i Issue) IsQualified() bool {
	return i.HasLabel(LabelVerified) && i.HasLabel(LabelApproved)
}

// IsAppeal reports whether the issue is an appeal.
func (i Issue) IsAppeal() bool {
	return i.HasLabel(LabelAppeal)
}

// IsOpen reports whether the issue is still open.
func (i Issue) IsOpen() bool {
	return i.State == StateOpen
}

// Event is a single timeline entry of an issue.
// Label is empty for events that do not concern a label.
type Event struct {
	Kind      string
	Label     string
	Actor     string
	CreatedAt time.Time
}
