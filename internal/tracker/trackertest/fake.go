// Package trackertest provides an in-memory tracker.Client for tests.
package trackertest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/tracker"
)

// Update records a call to UpdateIssue.
type Update struct {
	Number      int
	State       string
	StateReason string
}

// Comment records a call to CreateComment.
type Comment struct {
	Number int
	Body   string
}

// Fake is an in-memory tracker. Its exported fields may be set before use
// and read after; access while calls are in flight goes through the mutex.
type Fake struct {
	mu sync.Mutex

	Issues    []model.Issue
	Timelines map[int][]model.Event

	// ListErrPage makes ListIssues fail for that page when non-zero.
	ListErrPage int
	// TimelineErr makes ListTimeline fail for the listed issue numbers.
	TimelineErr map[int]error
	// UpdateErr is returned by every UpdateIssue call when set.
	UpdateErr error
	// CommentErr is returned by every CreateComment call when set.
	CommentErr error

	Updates  []Update
	Comments []Comment
	Calls    int
}

var _ tracker.Client = (*Fake)(nil)

// ErrInjected is returned by ListIssues for ListErrPage.
var ErrInjected = errors.New("trackertest: injected failure")

// New returns a Fake serving issues.
func New(issues ...model.Issue) *Fake {
	return &Fake{Issues: issues, Timelines: make(map[int][]model.Event)}
}

// ListIssues filters and pages the stored issues.
func (f *Fake) ListIssues(_ context.Context, opts tracker.ListOptions) ([]model.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if f.ListErrPage != 0 && opts.Page == f.ListErrPage {
		return nil, ErrInjected
	}

	var matched []model.Issue
	for _, issue := range f.Issues {
		if !opts.Since.IsZero() && issue.UpdatedAt.Before(opts.Since) {
			continue
		}
		if opts.State != "" && opts.State != model.StateAll && issue.State != opts.State {
			continue
		}
		if !hasAll(issue.Labels, opts.Labels) {
			continue
		}
		matched = append(matched, issue)
	}
	return page(matched, opts.Page, opts.PerPage), nil
}

// ListTimeline pages the stored timeline of number.
func (f *Fake) ListTimeline(_ context.Context, number, p, perPage int) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if err := f.TimelineErr[number]; err != nil {
		return nil, err
	}
	return page(f.Timelines[number], p, perPage), nil
}

// UpdateIssue records the update and applies the state to the stored issue.
func (f *Fake) UpdateIssue(_ context.Context, number int, state, stateReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.Updates = append(f.Updates, Update{Number: number, State: state, StateReason: stateReason})
	for i := range f.Issues {
		if f.Issues[i].Number == number {
			f.Issues[i].State = state
		}
	}
	return nil
}

// CreateComment records the comment.
func (f *Fake) CreateComment(_ context.Context, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if f.CommentErr != nil {
		return f.CommentErr
	}
	f.Comments = append(f.Comments, Comment{Number: number, Body: body})
	return nil
}

// UpdatedNumbers returns the issue numbers passed to UpdateIssue in order.
func (f *Fake) UpdatedNumbers() []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]int, 0, len(f.Updates))
	for _, u := range f.Updates {
		out = append(out, u.Number)
	}
	return out
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

func page[T any](items []T, p, perPage int) []T {
	if perPage <= 0 {
		return slices.Clone(items)
	}
	if p < 1 {
		p = 1
	}
	start := (p - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return slices.Clone(items[start:end])
}
