// Package audit reconstructs the moderation trail of a report from its
// issue timeline.
package audit

import (
	"github.com/openblacklist/blacklist-etl/internal/model"
)

// Extract walks events in order and returns who first verified the issue,
// who first approved it and when.
//
// Only the first labeled event of each moderation label counts. Removing and
// re-adding a label does not change the result.
func Extract(events []model.Event) model.AuditInfo {
	var info model.AuditInfo
	for _, ev := range events {
		if ev.Kind != model.EventLabeled {
			continue
		}
		switch ev.Label {
		case model.LabelVerified:
			if info.FirstReviewer == nil {
				actor := ev.Actor
				info.FirstReviewer = &actor
			}
		case model.LabelApproved:
			if info.FinalReviewer == nil {
				actor := ev.Actor
				at := ev.CreatedAt
				info.FinalReviewer = &actor
				info.ApprovedAt = &at
			}
		}
	}
	return info
}

// Reviewers returns the reviewer logins recorded in info, first reviewer
// first. A login appears once per role it filled.
func Reviewers(info model.AuditInfo) []string {
	var out []string
	if info.FirstReviewer != nil && *info.FirstReviewer != "" {
		out = append(out, *info.FirstReviewer)
	}
	if info.FinalReviewer != nil && *info.FinalReviewer != "" {
		out = append(out, *info.FinalReviewer)
	}
	return out
}
