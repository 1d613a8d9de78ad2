package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GitHubClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGitHubClient("owner", "repo", WithBaseURL(srv.URL+"/"), WithToken("ghp_test"))
}

func TestGitHubClientListIssues(t *testing.T) {
	t.Parallel()

	since := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/issues" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("since") != "2024-01-02T03:04:05Z" {
			t.Errorf("since = %q", q.Get("since"))
		}
		if q.Get("state") != "all" || q.Get("page") != "2" || q.Get("per_page") != "100" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ghp_test" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`[
			{"number": 7, "title": "[爆料] Acme - X", "body": "### 公司全称\nAcme", "state": "open",
			 "html_url": "https://github.com/owner/repo/issues/7",
			 "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-03T00:00:00Z",
			 "labels": [{"name": "audit:verified"}, {"name": "admin:approved"}],
			 "user": {"login": "reporter"}},
			{"number": 8, "title": "pr", "body": null, "state": "open", "user": null,
			 "created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-03T00:00:00Z",
			 "pull_request": {"url": "x"}}
		]`))
	})

	issues, err := c.ListIssues(context.Background(), ListOptions{Since: since, Page: 2, PerPage: 100})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(issues))
	}

	first := issues[0]
	if first.Number != 7 || first.Author != "reporter" || !first.IsQualified() || first.PullRequest {
		t.Errorf("unexpected first issue %+v", first)
	}
	if first.Body != "### 公司全称\nAcme" {
		t.Errorf("Body = %q", first.Body)
	}

	second := issues[1]
	if !second.PullRequest || second.Body != "" || second.Author != "" {
		t.Errorf("unexpected second issue %+v", second)
	}
}

func TestGitHubClientListTimeline(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/issues/7/timeline" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"event": "labeled", "label": {"name": "audit:verified"}, "actor": {"login": "alice"}, "created_at": "2024-01-01T00:00:00Z"},
			{"event": "commented", "actor": {"login": "bob"}}
		]`))
	})

	events, err := c.ListTimeline(context.Background(), 7, 1, 100)
	if err != nil {
		t.Fatalf("ListTimeline() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != model.EventLabeled || events[0].Label != model.LabelVerified || events[0].Actor != "alice" {
		t.Errorf("unexpected event %+v", events[0])
	}
	if events[1].Label != "" || !events[1].CreatedAt.IsZero() {
		t.Errorf("unexpected event %+v", events[1])
	}
}

func TestGitHubClientUpdateAndComment(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		bodies []map[string]string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		switch {
		case r.Method == http.MethodPatch && r.URL.Path == "/repos/owner/repo/issues/9":
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPost && r.URL.Path == "/repos/owner/repo/issues/9/comments":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()
	if err := c.UpdateIssue(ctx, 9, model.StateClosed, "not_planned"); err != nil {
		t.Fatalf("UpdateIssue() error = %v", err)
	}
	if err := c.CreateComment(ctx, 9, "closed"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("got %d requests, want 2", len(bodies))
	}
	if bodies[0]["state"] != "closed" || bodies[0]["state_reason"] != "not_planned" {
		t.Errorf("update body = %v", bodies[0])
	}
	if bodies[1]["body"] != "closed" {
		t.Errorf("comment body = %v", bodies[1])
	}
}

func TestGitHubClientErrorStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	})

	_, err := c.ListIssues(context.Background(), ListOptions{})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("error = %v, want ErrUnexpectedStatus", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected APIError with status 403, got %v", err)
	}
}
