package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/openblacklist/blacklist-etl/internal/config"
	"github.com/openblacklist/blacklist-etl/internal/dataset"
	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/parser"
	"github.com/openblacklist/blacklist-etl/internal/publish"
	"github.com/openblacklist/blacklist-etl/internal/sanitize"
	"github.com/openblacklist/blacklist-etl/internal/spam"
	"github.com/openblacklist/blacklist-etl/internal/tracker"
)

// Runner runs the default pipeline for a configuration.
type Runner struct {
	cfg    *config.Config
	client tracker.Client
	logger *slog.Logger
	now    func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger passed to every component.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRunnerClock sets the clock used for run timestamps and the watermark.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner. Calls to client are paced by a scheduler
// built from cfg.
func NewRunner(cfg *config.Config, client tracker.Client, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		client: client,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pipeline assembles the default pipeline.
func (r *Runner) Pipeline() *Pipeline {
	cfg := r.cfg
	logger := r.logger

	client := tracker.NewScheduledClient(r.client, tracker.NewScheduler(cfg.MaxConcurrent, cfg.MinTime))
	store := dataset.NewStore(cfg.BasePath, dataset.WithStoreLogger(logger))

	p := parser.New(
		parser.WithLabels(parser.Labels{Name: cfg.NameLabel, City: cfg.CityLabel, Tags: cfg.TagsLabel}),
		parser.WithTitlePrefix(cfg.TitlePrefix),
	)
	labels := p.Labels()
	logger.Debug("parser sections", "name", labels.Name, "city", labels.City, "tags", labels.Tags)
	deriver := dataset.NewDeriver(cfg.Owner, cfg.Repo,
		dataset.WithParser(p),
		dataset.WithSanitizer(sanitize.New(sanitize.WithLogger(logger))),
		dataset.WithWebURL(cfg.WebURL),
	)
	publisher := publish.New(store,
		publish.WithHotListSize(cfg.HotListSize),
		publish.WithBuildID(cfg.RunID),
		publish.WithClock(r.now),
		publish.WithLogger(logger),
	)

	pl := New(WithLogger(logger))
	pl.AddSteps(
		NewLayoutStep(store, logger),
		NewFetchStep(client, logger),
		NewFilterStep(logger),
		NewSpamGuardStep(spam.NewGuard(client, logger)),
		NewProcessStep(client, deriver, cfg.MaxConcurrent, logger),
		NewMergeStep(store, dataset.NewMerger(deriver, logger), logger),
		NewPublishStep(publisher, logger),
	)
	return pl
}

// Run executes one cycle and returns its report. The report is returned
// even when the run fails; its Error field holds the failure.
func (r *Runner) Run(ctx context.Context) (*model.RunReport, error) {
	state := NewState(r.cfg.RunID, r.now().UTC())
	err := r.Pipeline().Execute(ctx, state)
	state.Report.FinishedAt = r.now().UTC()
	return state.Report, err
}
