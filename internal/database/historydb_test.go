package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRun(runID string, started time.Time) *model.RunReport {
	r := model.NewRunReport(runID, started)
	r.FinishedAt = started.Add(3 * time.Second)
	r.Since = started.Add(-time.Hour)
	r.Fetched = 10
	r.Qualified = 4
	r.Appeals = 3
	r.TotalCount = 120
	r.AddOutcome(model.Outcome{ID: 1, Stage: model.StageProcess, Status: model.OutcomeProcessed})
	r.AddOutcome(model.Outcome{ID: 2, Stage: model.StageProcess, Status: model.OutcomeSkipped, Reason: "timeline unavailable"})
	r.AddOutcome(model.Outcome{ID: 12, Stage: model.StageSpamGuard, Status: model.OutcomeSpamClosed})
	r.AddArtifact(model.ArtifactResult{Name: "meta", Path: "v1/meta.json"})
	return r
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestSaveAndListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"100", "101", "102"} {
		if _, err := db.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	runs, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns(2) returned %d runs", len(runs))
	}
	if runs[0].RunID != "102" || runs[1].RunID != "101" {
		t.Errorf("runs not ordered newest first: %s, %s", runs[0].RunID, runs[1].RunID)
	}

	got := runs[0]
	if !got.StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("StartedAt = %v", got.StartedAt)
	}
	if got.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", got.Duration())
	}
	if got.Status != model.RunPartial {
		t.Errorf("Status = %q, want partial", got.Status)
	}
	if got.Fetched != 10 || got.Processed != 1 || got.Skipped != 1 || got.SpamClosed != 1 || got.TotalCount != 120 {
		t.Errorf("unexpected counts %+v", got)
	}

	all, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("ListRuns(0) returned %d runs, want 3", len(all))
	}
}

func TestSaveRunError(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	r := model.NewRunReport("bad", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	r.Error = errors.New("failed to initialize dataset")

	id, err := db.SaveRun(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	if r.ErrorMessage != "" {
		t.Error("SaveRun must not modify the report")
	}

	runs, err := db.ListRuns(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Status != model.RunFailed || runs[0].Error != "failed to initialize dataset" {
		t.Errorf("unexpected run %+v", runs[0])
	}
	if !runs[0].FinishedAt.IsZero() || runs[0].Duration() != 0 {
		t.Errorf("unfinished run has FinishedAt %v", runs[0].FinishedAt)
	}

	stored, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status() != model.RunFailed {
		t.Errorf("stored Status() = %q, want failed", stored.Status())
	}
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	want := sampleRun("7", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	id, err := db.SaveRun(ctx, want)
	if err != nil {
		t.Fatal(err)
	}

	got, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.RunID != "7" || len(got.Outcomes) != 3 || len(got.Artifacts) != 1 {
		t.Errorf("unexpected report %+v", got)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}

	if _, err := db.GetRun(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrNotFound", err)
	}
}

func TestIssueHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	first := model.NewRunReport("1", base)
	first.AddOutcome(model.Outcome{ID: 5, Stage: model.StageProcess, Status: model.OutcomeSkipped, Reason: "timeline unavailable"})
	second := model.NewRunReport("2", base.Add(time.Hour))
	second.AddOutcome(model.Outcome{ID: 5, Stage: model.StageProcess, Status: model.OutcomeProcessed})
	second.AddOutcome(model.Outcome{ID: 6, Stage: model.StageProcess, Status: model.OutcomeProcessed})

	for _, r := range []*model.RunReport{first, second} {
		if _, err := db.SaveRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	history, err := db.IssueHistory(ctx, 5)
	if err != nil {
		t.Fatalf("IssueHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("IssueHistory(5) returned %d outcomes, want 2", len(history))
	}
	if history[0].RunID != "2" || history[0].Status != model.OutcomeProcessed {
		t.Errorf("newest outcome = %+v", history[0])
	}
	if history[1].Reason != "timeline unavailable" || history[1].Stage != model.StageProcess {
		t.Errorf("oldest outcome = %+v", history[1])
	}

	none, err := db.IssueHistory(ctx, 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("IssueHistory(99) = %v, want empty", none)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{in: formatTimestamp(want), want: want},
		{in: "2024-01-02 03:04:05", want: want},
		{in: "2024-01-02T03:04:05Z", want: want},
		{in: "", want: time.Time{}},
		{in: "garbage", want: time.Time{}},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if formatTimestamp(time.Time{}) != "" {
		t.Error("zero time must format as empty string")
	}
}
