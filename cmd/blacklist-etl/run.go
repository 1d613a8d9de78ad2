package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openblacklist/blacklist-etl/internal/config"
	"github.com/openblacklist/blacklist-etl/internal/database"
	"github.com/openblacklist/blacklist-etl/internal/log"
	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/pipeline"
	"github.com/openblacklist/blacklist-etl/internal/report"
	"github.com/openblacklist/blacklist-etl/internal/tracker"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one incremental ETL cycle",
		Long: `Run fetches the issues updated since the last run, closes duplicate
appeals, and rewrites the dataset under the base path.

Settings are resolved in this order, later sources winning:
built-in defaults, the configuration file, environment variables, flags.

Environment variables:
  GITHUB_TOKEN               API token (required for closing appeals)
  GITHUB_OWNER, GITHUB_REPO  tracker repository
  GITHUB_API_URL             REST API root
  GITHUB_SERVER_URL          web root used in appeal links
  GITHUB_RUN_ID              build id stamped into meta.json
  API_BASE_PATH              dataset root directory
  HOT_LIST_SIZE              number of entries in hot.json
  RATE_LIMIT_MAX_CONCURRENT  tracker calls in flight
  RATE_LIMIT_MIN_TIME        milliseconds between tracker call starts
  HTTP_TIMEOUT               timeout of one tracker request (e.g. 30s)
  ETL_HISTORY_DIR            run history directory
  DEBUG                      "true" enables debug logging

Examples:
  # Run with defaults and print a text summary
  blacklist-etl run

  # Write the dataset elsewhere and a Markdown summary to a file
  blacklist-etl run --base-path public/v1 --markdown -o summary.md

  # JSON run report without recording history
  blacklist-etl run --json --no-history`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .blacklist-etl.yaml in current or home directory)")

	cmd.Flags().String("owner", config.DefaultOwner, "Tracker repository owner")
	cmd.Flags().String("repo", config.DefaultRepo, "Tracker repository name")
	cmd.Flags().String("api-url", config.DefaultAPIURL, "Tracker REST API root")
	cmd.Flags().StringP("base-path", "b", config.DefaultBasePath, "Dataset root directory")
	cmd.Flags().Int("hot-list-size", config.DefaultHotListSize, "Number of entries in hot.json")
	cmd.Flags().Int("max-concurrent", config.DefaultMaxConcurrent, "Tracker calls in flight")
	cmd.Flags().Duration("min-time", config.DefaultMinTime, "Minimum spacing between tracker call starts")
	cmd.Flags().Duration("http-timeout", config.DefaultHTTPTimeout, "Timeout of one tracker request")
	cmd.Flags().String("run-id", config.DefaultRunID, "Build id stamped into meta.json")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write run report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")
	cmd.Flags().Bool("log-json", false, "Write logs as JSON")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, os.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, logJSON)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runETL(ctx, cfg, newTrackerClient(cfg), logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig resolves defaults, the configuration file and the environment.
// An explicitly given configPath must exist; otherwise a missing file is
// not an error.
func loadConfig(configPath string, getenv func(string) string) (*config.Config, error) {
	cfg := config.NewConfig()

	path := config.FindConfigFile(configPath)
	switch {
	case path != "":
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
		cfg.ConfigFilePath = path
	case configPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildConfig creates a Config for the run command. Flags override the
// file and environment only when set explicitly.
func buildConfig(cmd *cobra.Command, getenv func(string) string) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(configPath, getenv)
	if err != nil {
		return nil, err
	}

	stringFlags := map[string]*string{
		"owner":     &cfg.Owner,
		"repo":      &cfg.Repo,
		"api-url":   &cfg.APIURL,
		"base-path": &cfg.BasePath,
		"run-id":    &cfg.RunID,
		"output":    &cfg.ReportFile,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}

	intFlags := map[string]*int{
		"hot-list-size":  &cfg.HotListSize,
		"max-concurrent": &cfg.MaxConcurrent,
	}
	for name, dst := range intFlags {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetInt(name); err != nil {
			return nil, err
		}
	}

	if flags.Changed("min-time") {
		if cfg.MinTime, err = flags.GetDuration("min-time"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("http-timeout") {
		if cfg.HTTPTimeout, err = flags.GetDuration("http-timeout"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	cfg.Verbose = cfg.Verbose || getVerboseFlag(cmd)

	return cfg, nil
}

// setupLogger creates the secure logger used by every component.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}

func newTrackerClient(cfg *config.Config) *tracker.GitHubClient {
	return tracker.NewGitHubClient(cfg.Owner, cfg.Repo,
		tracker.WithBaseURL(cfg.APIURL),
		tracker.WithToken(cfg.Token),
		tracker.WithTimeout(cfg.HTTPTimeout),
	)
}

// runETL runs one cycle, writes the run report and records it in the
// history database. Only a fatal pipeline error is returned; report output
// and history failures are logged.
func runETL(ctx context.Context, cfg *config.Config, client tracker.Client, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting run",
		"owner", cfg.Owner,
		"repo", cfg.Repo,
		"base_path", cfg.BasePath,
		"run_id", cfg.RunID,
		"anonymous", cfg.Token == "",
	)
	if cfg.Token == "" {
		logger.Warn("no GITHUB_TOKEN set; requests are unauthenticated and duplicate appeals cannot be closed")
	}

	runner := pipeline.NewRunner(cfg, client, pipeline.WithRunnerLogger(logger))
	runReport, runErr := runner.Run(ctx)

	if err := outputReport(cfg, runReport, stdout); err != nil {
		logger.Error("failed to write run report", "error", err)
	}

	if cfg.SaveHistory {
		if err := saveRunReport(context.WithoutCancel(ctx), cfg.HistoryDir, runReport, logger); err != nil {
			logger.Error("failed to record run history", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	logger.Info("run finished",
		"status", runReport.Status(),
		"total_count", runReport.TotalCount,
		"duration", runReport.Duration(),
	)
	return nil
}

// reportFormat returns the run report format selected by cfg.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// outputReport writes the run report to cfg.ReportFile or stdout.
func outputReport(cfg *config.Config, runReport *model.RunReport, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	w, err := report.New(reportFormat(cfg), output, cfg.Verbose)
	if err != nil {
		return err
	}
	_, err = w.Write(runReport)
	return err
}

// saveRunReport records the run in the history database under dir.
func saveRunReport(ctx context.Context, dir string, runReport *model.RunReport, logger *slog.Logger) error {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, runReport)
	if err != nil {
		return err
	}
	logger.Info("run recorded", "history_id", id, "db", db.Path())
	return nil
}
