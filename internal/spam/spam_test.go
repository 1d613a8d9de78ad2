package spam

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/tracker/trackertest"
)

func appeal(number int, title, state string) model.Issue {
	return model.Issue{Number: number, Title: title, State: state, Labels: []string{model.LabelAppeal}}
}

func numbers(issues []model.Issue) []int {
	out := make([]int, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Number)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		appeals []model.Issue
		want    []int
	}{
		{
			name: "three identical and one distinct",
			appeals: []model.Issue{
				appeal(1, "[申诉] Acme - X", model.StateOpen),
				appeal(2, "[申诉] ACME - x", model.StateOpen),
				appeal(3, "[申诉] acme - X", model.StateOpen),
				appeal(4, "[申诉] Other - Y", model.StateOpen),
			},
			want: []int{2, 3},
		},
		{
			name: "only two identical",
			appeals: []model.Issue{
				appeal(1, "same", model.StateOpen),
				appeal(2, "same", model.StateOpen),
			},
			want: []int{},
		},
		{
			name: "closed appeals count but are not flagged",
			appeals: []model.Issue{
				appeal(10, "same", model.StateClosed),
				appeal(11, "same", model.StateClosed),
				appeal(12, "Same", model.StateOpen),
			},
			want: []int{12},
		},
		{
			name: "earliest kept even when listed last",
			appeals: []model.Issue{
				appeal(30, "dup", model.StateOpen),
				appeal(20, "dup", model.StateOpen),
				appeal(5, "dup", model.StateOpen),
			},
			want: []int{20, 30},
		},
		{
			name: "unicode case folding",
			appeals: []model.Issue{
				appeal(1, "ÄRGER GmbH", model.StateOpen),
				appeal(2, "ärger gmbh", model.StateOpen),
				appeal(3, "Ärger GmbH", model.StateOpen),
			},
			want: []int{2, 3},
		},
		{
			name: "surrounding whitespace keeps titles apart",
			appeals: []model.Issue{
				appeal(1, "Acme", model.StateOpen),
				appeal(2, "Acme ", model.StateOpen),
				appeal(3, " acme", model.StateOpen),
			},
			want: []int{},
		},
		{
			name:    "no appeals",
			appeals: nil,
			want:    []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := numbers(Detect(tt.appeals))
			if !equalInts(got, tt.want) {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuardRun(t *testing.T) {
	t.Parallel()

	appeals := []model.Issue{
		appeal(1, "dup", model.StateOpen),
		appeal(2, "dup", model.StateOpen),
		appeal(3, "dup", model.StateOpen),
		appeal(4, "unique", model.StateOpen),
	}
	fake := trackertest.New(appeals...)
	g := NewGuard(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))

	outcomes := g.Run(context.Background(), appeals)
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != model.OutcomeSpamClosed || o.Stage != model.StageSpamGuard {
			t.Errorf("unexpected outcome %+v", o)
		}
	}

	if !equalInts(fake.UpdatedNumbers(), []int{2, 3}) {
		t.Errorf("updated %v, want [2 3]", fake.UpdatedNumbers())
	}
	for _, u := range fake.Updates {
		if u.State != model.StateClosed || u.StateReason != CloseReason {
			t.Errorf("unexpected update %+v", u)
		}
	}
	if len(fake.Comments) != 2 || !strings.Contains(fake.Comments[0].Body, "#2") {
		t.Errorf("unexpected comments %+v", fake.Comments)
	}
}

func TestGuardRunCloseFailure(t *testing.T) {
	t.Parallel()

	appeals := []model.Issue{
		appeal(1, "dup", model.StateOpen),
		appeal(2, "dup", model.StateOpen),
		appeal(3, "dup", model.StateOpen),
	}
	fake := trackertest.New(appeals...)
	fake.CommentErr = errors.New("comment refused")
	g := NewGuard(fake, slog.New(slog.NewTextHandler(io.Discard, nil)))

	outcomes := g.Run(context.Background(), appeals)
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != model.OutcomeSpamCloseFailed {
			t.Errorf("Status = %q, want spam_close_failed", o.Status)
		}
		if !strings.Contains(o.Reason, "comment refused") {
			t.Errorf("Reason = %q", o.Reason)
		}
	}
}

func TestComment(t *testing.T) {
	t.Parallel()

	got := Comment(appeal(42, "[申诉] Acme - X", model.StateOpen))
	if !strings.Contains(got, "#42") || !strings.Contains(got, "[申诉] Acme - X") {
		t.Errorf("Comment() = %q", got)
	}
}
