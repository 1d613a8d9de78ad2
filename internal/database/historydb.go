package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// FileName is the database file created inside the history directory.
const FileName = "history.db"

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// HistoryDB stores run reports in SQLite.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when
	// missing. When false, opening a missing database fails.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		since TEXT,
		status TEXT NOT NULL,
		fetched INTEGER NOT NULL DEFAULT 0,
		qualified INTEGER NOT NULL DEFAULT 0,
		appeals INTEGER NOT NULL DEFAULT 0,
		processed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		spam_closed INTEGER NOT NULL DEFAULT 0,
		total_count INTEGER NOT NULL DEFAULT 0,
		failed_artifacts INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		issue INTEGER NOT NULL,
		stage TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_issue ON run_outcomes(issue);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	// ID is the database identifier of the run.
	ID              int64           `json:"id"`
	RunID           string          `json:"run_id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	Since           time.Time       `json:"since"`
	Status          model.RunStatus `json:"status"`
	Fetched         int             `json:"fetched"`
	Qualified       int             `json:"qualified"`
	Appeals         int             `json:"appeals"`
	Processed       int             `json:"processed"`
	Skipped         int             `json:"skipped"`
	SpamClosed      int             `json:"spam_closed"`
	TotalCount      int             `json:"total_count"`
	FailedArtifacts int             `json:"failed_artifacts"`
	Error           string          `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SaveRun records report and its outcomes in one transaction and returns
// the database id of the new run.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) (int64, error) {
	errMsg := report.ErrorMessage
	if errMsg == "" && report.Error != nil {
		errMsg = report.Error.Error()
	}

	stored := *report
	stored.ErrorMessage = errMsg
	reportJSON, err := json.Marshal(&stored)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run report: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (run_id, started_at, finished_at, since, status, fetched, qualified,
		appeals, processed, skipped, spam_closed, total_count, failed_artifacts, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		formatTimestamp(report.Since),
		string(report.Status()),
		report.Fetched,
		report.Qualified,
		report.Appeals,
		report.CountOutcomes(model.OutcomeProcessed),
		report.CountOutcomes(model.OutcomeSkipped),
		report.CountOutcomes(model.OutcomeSpamClosed),
		report.TotalCount,
		len(report.FailedArtifacts()),
		errMsg,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_outcomes (run, issue, stage, status, reason) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range report.Outcomes {
		if _, err := stmt.ExecContext(ctx, id, o.ID, string(o.Stage), string(o.Status), o.Reason); err != nil {
			return 0, fmt.Errorf("failed to save outcome for #%d: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 returns
// every run.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, run_id, started_at, finished_at, since, status, fetched, qualified, appeals,
		processed, skipped, spam_closed, total_count, failed_artifacts, error
	FROM runs
	ORDER BY started_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var started string
		var finished, since, status, errMsg sql.NullString
		if err := rows.Scan(&s.ID, &s.RunID, &started, &finished, &since, &status,
			&s.Fetched, &s.Qualified, &s.Appeals, &s.Processed, &s.Skipped,
			&s.SpamClosed, &s.TotalCount, &s.FailedArtifacts, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished.String)
		s.Since = parseTimestamp(since.String)
		s.Status = model.RunStatus(status.String)
		s.Error = errMsg.String
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// GetRun returns the full report stored for the run with database id id.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &report, nil
}

// IssueOutcome is a recorded outcome of one issue in one run.
type IssueOutcome struct {
	RunID     string              `json:"run_id"`
	StartedAt time.Time           `json:"started_at"`
	Stage     model.Stage         `json:"stage"`
	Status    model.OutcomeStatus `json:"status"`
	Reason    string              `json:"reason,omitempty"`
}

// IssueHistory returns every recorded outcome of issue, newest run first.
func (h *HistoryDB) IssueHistory(ctx context.Context, issue int) ([]IssueOutcome, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT r.run_id, r.started_at, o.stage, o.status, o.reason
	FROM run_outcomes o
	JOIN runs r ON r.id = o.run
	WHERE o.issue = ?
	ORDER BY r.started_at DESC, o.id ASC
	`, issue)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue history: %w", err)
	}
	defer rows.Close()

	var out []IssueOutcome
	for rows.Next() {
		var o IssueOutcome
		var started string
		var stage, status string
		var reason sql.NullString
		if err := rows.Scan(&o.RunID, &started, &stage, &status, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.StartedAt = parseTimestamp(started)
		o.Stage = model.Stage(stage)
		o.Status = model.OutcomeStatus(status)
		o.Reason = reason.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// formatTimestamp stores times in UTC so that text ordering matches time
// ordering. The zero time is stored as an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampLayout has a fixed width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// timestampFormats contains the timestamp formats accepted on read.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
