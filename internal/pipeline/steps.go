package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/openblacklist/blacklist-etl/internal/dataset"
	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/publish"
	"github.com/openblacklist/blacklist-etl/internal/spam"
	"github.com/openblacklist/blacklist-etl/internal/tracker"
)

// LayoutStep creates the dataset directories and reads the watermark.
type LayoutStep struct {
	store  *dataset.Store
	logger *slog.Logger
}

// NewLayoutStep creates a LayoutStep.
func NewLayoutStep(store *dataset.Store, logger *slog.Logger) *LayoutStep {
	return &LayoutStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *LayoutStep) Name() string {
	return "layout"
}

// Do creates the layout. Failing to create it aborts the run; a corrupt
// meta.json only falls back to the default watermark.
func (s *LayoutStep) Do(_ context.Context, state *State) error {
	if err := s.store.EnsureLayout(); err != nil {
		return fmt.Errorf("failed to initialize dataset: %w", err)
	}

	meta, err := s.store.ReadMeta(state.Report.RunID)
	if err != nil {
		s.logger.Warn("using default meta", "error", err)
	}
	state.Meta = meta
	state.Report.Since = meta.LastUpdated
	s.logger.Info("loaded watermark", "last_updated", meta.LastUpdated, "total_count", meta.TotalCount)
	return nil
}

// FetchStep lists every issue updated since the watermark.
type FetchStep struct {
	client tracker.Client
	logger *slog.Logger
}

// NewFetchStep creates a FetchStep.
func NewFetchStep(client tracker.Client, logger *slog.Logger) *FetchStep {
	return &FetchStep{client: client, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches issues. A failing page ends the listing but keeps the issues
// already fetched. Pull requests are dropped.
func (s *FetchStep) Do(ctx context.Context, state *State) error {
	issues, err := tracker.FetchIssues(ctx, s.client, tracker.ListOptions{
		Since: state.Meta.LastUpdated,
		State: model.StateAll,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("issue listing ended early", "fetched", len(issues), "error", err)
	}

	state.Issues = make([]model.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.PullRequest {
			continue
		}
		state.Issues = append(state.Issues, issue)
	}
	state.Report.Fetched = len(state.Issues)
	s.logger.Info("fetched issues", "count", len(state.Issues))
	return nil
}

// FilterStep splits fetched issues by moderation state.
type FilterStep struct {
	logger *slog.Logger
}

// NewFilterStep creates a FilterStep.
func NewFilterStep(logger *slog.Logger) *FilterStep {
	return &FilterStep{logger: logger}
}

// Name returns the step name.
func (s *FilterStep) Name() string {
	return "filter"
}

// Do selects qualified issues and appeals. An issue may be both.
func (s *FilterStep) Do(_ context.Context, state *State) error {
	state.Qualified = state.Qualified[:0]
	state.Appeals = state.Appeals[:0]
	for _, issue := range state.Issues {
		if issue.IsQualified() {
			state.Qualified = append(state.Qualified, issue)
		}
		if issue.IsAppeal() {
			state.Appeals = append(state.Appeals, issue)
		}
	}
	state.Report.Qualified = len(state.Qualified)
	state.Report.Appeals = len(state.Appeals)
	s.logger.Info("filtered issues", "qualified", len(state.Qualified), "appeals", len(state.Appeals))
	return nil
}

// SpamGuardStep closes duplicate appeals.
type SpamGuardStep struct {
	guard *spam.Guard
}

// NewSpamGuardStep creates a SpamGuardStep.
func NewSpamGuardStep(guard *spam.Guard) *SpamGuardStep {
	return &SpamGuardStep{guard: guard}
}

// Name returns the step name.
func (s *SpamGuardStep) Name() string {
	return "spam_guard"
}

// Do runs the guard over this run's appeals.
func (s *SpamGuardStep) Do(ctx context.Context, state *State) error {
	for _, o := range s.guard.Run(ctx, state.Appeals) {
		state.Report.AddOutcome(o)
	}
	return ctx.Err()
}

// Builder builds a report from an issue and its timeline.
type Builder interface {
	Build(issue model.Issue, events []model.Event) (*model.Report, error)
}

// ProcessStep fetches the timeline of every qualified issue and builds its
// report.
type ProcessStep struct {
	client      tracker.Client
	builder     Builder
	concurrency int
	logger      *slog.Logger
}

// NewProcessStep creates a ProcessStep. concurrency bounds how many issues
// are processed at once; tracker calls are still paced by the client.
func NewProcessStep(client tracker.Client, builder Builder, concurrency int, logger *slog.Logger) *ProcessStep {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ProcessStep{client: client, builder: builder, concurrency: concurrency, logger: logger}
}

// Name returns the step name.
func (s *ProcessStep) Name() string {
	return "process"
}

// Do processes every qualified issue. An issue that fails is skipped for
// this run and its persisted state is left alone.
func (s *ProcessStep) Do(ctx context.Context, state *State) error {
	type result struct {
		report *model.Report
		err    error
	}
	results := make([]result, len(state.Qualified))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, issue := range state.Qualified {
		g.Go(func() error {
			events, err := tracker.FetchTimeline(ctx, s.client, issue.Number)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].report, results[i].err = s.builder.Build(issue, events)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers record failures in results

	if err := ctx.Err(); err != nil {
		return err
	}

	state.Processed = state.Processed[:0]
	for i, res := range results {
		number := state.Qualified[i].Number
		if res.err != nil {
			s.logger.Error("skipping issue", "number", number, "error", res.err)
			state.Report.AddOutcome(model.Outcome{
				ID:     number,
				Stage:  model.StageProcess,
				Status: model.OutcomeSkipped,
				Reason: res.err.Error(),
			})
			continue
		}
		s.logger.Info("processed issue", "number", number, "name", res.report.Name)
		state.Processed = append(state.Processed, res.report)
		state.Report.AddOutcome(model.Outcome{
			ID:     number,
			Stage:  model.StageProcess,
			Status: model.OutcomeProcessed,
		})
	}
	return nil
}

// MergeStep loads the persisted set and merges processed reports into it.
type MergeStep struct {
	store  *dataset.Store
	merger *dataset.Merger
	logger *slog.Logger
}

// NewMergeStep creates a MergeStep.
func NewMergeStep(store *dataset.Store, merger *dataset.Merger, logger *slog.Logger) *MergeStep {
	return &MergeStep{store: store, merger: merger, logger: logger}
}

// Name returns the step name.
func (s *MergeStep) Name() string {
	return "merge"
}

// Do loads and merges. A failure to list the items directory leaves the
// set with whatever could be read.
func (s *MergeStep) Do(_ context.Context, state *State) error {
	set, err := s.store.Load()
	if err != nil {
		s.logger.Error("failed to load persisted records", "error", err)
	}
	s.logger.Info("loaded persisted records", "count", set.Len())

	result := s.merger.Merge(set, state.Processed)
	state.Set = set
	for id := range result.Skipped {
		state.Skipped[id] = true
	}
	for _, o := range result.Outcomes {
		state.Report.AddOutcome(o)
	}
	state.Report.TotalCount = set.Len()
	return nil
}

// ErrNoSet is returned by PublishStep when no merged set is available.
var ErrNoSet = errors.New("no merged record set")

// PublishStep writes every artifact.
type PublishStep struct {
	publisher *publish.Publisher
	logger    *slog.Logger
}

// NewPublishStep creates a PublishStep.
func NewPublishStep(publisher *publish.Publisher, logger *slog.Logger) *PublishStep {
	return &PublishStep{publisher: publisher, logger: logger}
}

// Name returns the step name.
func (s *PublishStep) Name() string {
	return "publish"
}

// Do publishes the merged set.
func (s *PublishStep) Do(_ context.Context, state *State) error {
	if state.Set == nil {
		return ErrNoSet
	}
	meta, artifacts := s.publisher.Publish(state.Set, state.Skipped)
	state.Published = meta
	for _, a := range artifacts {
		state.Report.AddArtifact(a)
	}
	s.logger.Info("published dataset", "total_count", meta.TotalCount, "artifacts", len(artifacts), "failed", len(state.Report.FailedArtifacts()))
	return nil
}
