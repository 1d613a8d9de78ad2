package tracker

import (
	"context"
	"fmt"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// FetchIssues pages through ListIssues until a short page is returned.
// On failure it returns the issues gathered so far together with the error.
func FetchIssues(ctx context.Context, c Client, opts ListOptions) ([]model.Issue, error) {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}

	var all []model.Issue
	for page := 1; ; page++ {
		opts.Page = page
		issues, err := c.ListIssues(ctx, opts)
		if err != nil {
			return all, fmt.Errorf("failed to list issues page %d: %w", page, err)
		}
		all = append(all, issues...)
		if len(issues) < opts.PerPage {
			return all, nil
		}
	}
}

// FetchTimeline pages through the timeline of issue number until a short
// page is returned. On failure it returns the events gathered so far
// together with the error.
func FetchTimeline(ctx context.Context, c Client, number int) ([]model.Event, error) {
	var all []model.Event
	for page := 1; ; page++ {
		events, err := c.ListTimeline(ctx, number, page, DefaultPerPage)
		if err != nil {
			return all, fmt.Errorf("failed to list timeline of #%d page %d: %w", number, page, err)
		}
		all = append(all, events...)
		if len(events) < DefaultPerPage {
			return all, nil
		}
	}
}
