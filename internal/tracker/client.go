package tracker

import (
	"context"
	"time"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// DefaultPerPage is the page size used by the paginators.
const DefaultPerPage = 100

// ListOptions filters an issue listing.
type ListOptions struct {
	// Since limits results to issues updated at or after this time.
	// The zero time disables the filter.
	Since time.Time

	// State is one of model.StateOpen, model.StateClosed or model.StateAll.
	State string

	// Labels limits results to issues carrying every listed label.
	Labels []string

	Page    int
	PerPage int
}

// Client is the set of tracker operations used by the pipeline.
type Client interface {
	// ListIssues returns one page of issues.
	ListIssues(ctx context.Context, opts ListOptions) ([]model.Issue, error)

	// ListTimeline returns one page of the timeline of an issue.
	ListTimeline(ctx context.Context, number, page, perPage int) ([]model.Event, error)

	// UpdateIssue changes the state of an issue.
	UpdateIssue(ctx context.Context, number int, state, stateReason string) error

	// CreateComment posts a comment on an issue.
	CreateComment(ctx context.Context, number int, body string) error
}
