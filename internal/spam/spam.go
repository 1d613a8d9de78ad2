// Package spam detects and closes abusive duplicate appeals.
//
// Duplicates are found by comparing case-folded titles. This is a title
// heuristic, not a company identity check: appeals that spell the same
// company differently are not grouped.
package spam

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/text/cases"

	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/tracker"
)

// MinDuplicates is how many other appeals must share a title before an
// appeal counts as a duplicate.
const MinDuplicates = 2

// CloseReason is the state reason sent when closing a duplicate.
// GitHub accepts only completed, not_planned and reopened.
const CloseReason = "not_planned"

// commentFormat is the notice posted on a closed duplicate.
const commentFormat = "⚠️ 此申诉（#%d %s）已被系统自动关闭，原因：恶意重复申诉。\n\n若您认为这是误判，请联系项目管理员。"

// Detect returns the open appeals that should be closed, ordered by number.
//
// Appeals are grouped by case-folded title. A group of at least
// MinDuplicates+1 appeals, open or closed, is a duplicate group. The
// earliest appeal of a group is kept and every later open one is returned.
func Detect(appeals []model.Issue) []model.Issue {
	fold := cases.Fold()
	groups := make(map[string][]model.Issue)
	for _, a := range appeals {
		key := fold.String(a.Title)
		groups[key] = append(groups[key], a)
	}

	var flagged []model.Issue
	for _, group := range groups {
		if len(group)-1 < MinDuplicates {
			continue
		}
		first := slices.MinFunc(group, func(a, b model.Issue) int { return a.Number - b.Number })
		for _, a := range group {
			if a.Number != first.Number && a.IsOpen() {
				flagged = append(flagged, a)
			}
		}
	}

	slices.SortFunc(flagged, func(a, b model.Issue) int { return a.Number - b.Number })
	return flagged
}

// Comment returns the notice posted on a closed duplicate appeal.
func Comment(appeal model.Issue) string {
	return fmt.Sprintf(commentFormat, appeal.Number, appeal.Title)
}

// Guard closes duplicate appeals through the tracker.
type Guard struct {
	client tracker.Client
	logger *slog.Logger
}

// NewGuard creates a Guard. A nil logger uses slog.Default.
func NewGuard(client tracker.Client, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{client: client, logger: logger}
}

// Close closes appeal and posts the explanatory comment.
func (g *Guard) Close(ctx context.Context, appeal model.Issue) error {
	if err := g.client.UpdateIssue(ctx, appeal.Number, model.StateClosed, CloseReason); err != nil {
		return fmt.Errorf("failed to close appeal #%d: %w", appeal.Number, err)
	}
	if err := g.client.CreateComment(ctx, appeal.Number, Comment(appeal)); err != nil {
		return fmt.Errorf("failed to comment on appeal #%d: %w", appeal.Number, err)
	}
	return nil
}

// Run detects duplicates among appeals and closes each one. Failures are
// logged and reported as outcomes; they never stop the loop.
func (g *Guard) Run(ctx context.Context, appeals []model.Issue) []model.Outcome {
	flagged := Detect(appeals)
	outcomes := make([]model.Outcome, 0, len(flagged))
	for _, appeal := range flagged {
		if err := g.Close(ctx, appeal); err != nil {
			g.logger.Error("spam appeal close failed", "number", appeal.Number, "error", err)
			outcomes = append(outcomes, model.Outcome{
				ID:     appeal.Number,
				Stage:  model.StageSpamGuard,
				Status: model.OutcomeSpamCloseFailed,
				Reason: err.Error(),
			})
			continue
		}
		g.logger.Info("closed spam appeal", "number", appeal.Number)
		outcomes = append(outcomes, model.Outcome{
			ID:     appeal.Number,
			Stage:  model.StageSpamGuard,
			Status: model.OutcomeSpamClosed,
		})
	}
	return outcomes
}
