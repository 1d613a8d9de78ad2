package model

import (
	"testing"
	"time"
)

func TestIssueLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		labels    []string
		qualified bool
		appeal    bool
	}{
		{name: "no labels", labels: nil},
		{name: "verified only", labels: []string{LabelVerified}},
		{name: "approved only", labels: []string{LabelApproved}},
		{name: "both moderation labels", labels: []string{LabelApproved, LabelVerified}, qualified: true},
		{name: "appeal", labels: []string{LabelAppeal}, appeal: true},
		{name: "qualified appeal", labels: []string{LabelVerified, LabelApproved, LabelAppeal}, qualified: true, appeal: true},
		{name: "similar label", labels: []string{"audit:verified ", "Admin:approved"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			issue := Issue{Labels: tt.labels}
			if got := issue.IsQualified(); got != tt.qualified {
				t.Errorf("IsQualified() = %v, want %v", got, tt.qualified)
			}
			if got := issue.IsAppeal(); got != tt.appeal {
				t.Errorf("IsAppeal() = %v, want %v", got, tt.appeal)
			}
		})
	}
}

func TestIssueIsOpen(t *testing.T) {
	t.Parallel()

	if !(Issue{State: StateOpen}).IsOpen() {
		t.Error("expected open issue to report open")
	}
	if (Issue{State: StateClosed}).IsOpen() {
		t.Error("expected closed issue to report closed")
	}
}

func TestNewSearchEntry(t *testing.T) {
	t.Parallel()

	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Report{ID: 7, Name: "Acme", City: "Shanghai", Title: "Acme - Shanghai", UpdatedAt: updated}

	e := NewSearchEntry(r)
	if e.ID != 7 || e.Name != "Acme" || e.City != "Shanghai" || e.Title != "Acme - Shanghai" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Updated != updated.Unix() {
		t.Errorf("Updated = %d, want %d", e.Updated, updated.Unix())
	}
	if e.Tags == nil {
		t.Error("expected nil tags to be projected as an empty slice")
	}
}

func TestNewDatasetMeta(t *testing.T) {
	t.Parallel()

	m := NewDatasetMeta("local")
	if !m.LastUpdated.Equal(time.Unix(0, 0)) {
		t.Errorf("LastUpdated = %v, want epoch", m.LastUpdated)
	}
	if m.Version != DatasetVersion {
		t.Errorf("Version = %q, want %q", m.Version, DatasetVersion)
	}
	if m.BuildID != "local" {
		t.Errorf("BuildID = %q, want local", m.BuildID)
	}
}
