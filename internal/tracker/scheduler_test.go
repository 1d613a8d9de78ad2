package tracker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/tracker"
	"github.com/openblacklist/blacklist-etl/internal/tracker/trackertest"
)

func TestSchedulerSpacing(t *testing.T) {
	t.Parallel()

	s := tracker.NewScheduler(1, 20*time.Millisecond)
	var starts []time.Time
	for range 3 {
		err := s.Do(context.Background(), func(context.Context) error {
			starts = append(starts, time.Now())
			return nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
	}

	for i := 1; i < len(starts); i++ {
		// Allow a little slack for timer granularity.
		if gap := starts[i].Sub(starts[i-1]); gap < 15*time.Millisecond {
			t.Errorf("gap %d = %v, want at least ~20ms", i, gap)
		}
	}
}

func TestSchedulerConcurrency(t *testing.T) {
	t.Parallel()

	s := tracker.NewScheduler(2, 0)
	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
}

func TestSchedulerCanceled(t *testing.T) {
	t.Parallel()

	s := tracker.NewScheduler(1, time.Hour)
	if err := s.Do(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("first Do() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if called {
		t.Error("fn ran despite canceled context")
	}
}

func TestFetchIssuesPaginates(t *testing.T) {
	t.Parallel()

	var issues []model.Issue
	for i := 1; i <= 250; i++ {
		issues = append(issues, model.Issue{Number: i, State: model.StateOpen})
	}
	fake := trackertest.New(issues...)

	got, err := tracker.FetchIssues(context.Background(), fake, tracker.ListOptions{State: model.StateAll})
	if err != nil {
		t.Fatalf("FetchIssues() error = %v", err)
	}
	if len(got) != 250 {
		t.Errorf("got %d issues, want 250", len(got))
	}
	if fake.Calls != 3 {
		t.Errorf("made %d calls, want 3", fake.Calls)
	}
}

func TestFetchIssuesKeepsPartialResults(t *testing.T) {
	t.Parallel()

	var issues []model.Issue
	for i := 1; i <= 150; i++ {
		issues = append(issues, model.Issue{Number: i})
	}
	fake := trackertest.New(issues...)
	fake.ListErrPage = 2

	got, err := tracker.FetchIssues(context.Background(), fake, tracker.ListOptions{})
	if !errors.Is(err, trackertest.ErrInjected) {
		t.Fatalf("error = %v, want injected failure", err)
	}
	if len(got) != 100 {
		t.Errorf("got %d issues, want the 100 from the first page", len(got))
	}
}

func TestFetchTimeline(t *testing.T) {
	t.Parallel()

	fake := trackertest.New()
	for i := range 100 {
		fake.Timelines[5] = append(fake.Timelines[5], model.Event{Kind: model.EventLabeled, Actor: string(rune('a' + i%26))})
	}

	got, err := tracker.FetchTimeline(context.Background(), fake, 5)
	if err != nil {
		t.Fatalf("FetchTimeline() error = %v", err)
	}
	if len(got) != 100 {
		t.Errorf("got %d events, want 100", len(got))
	}
	// A full first page forces a second, empty request.
	if fake.Calls != 2 {
		t.Errorf("made %d calls, want 2", fake.Calls)
	}
}

func TestScheduledClientRoutesCalls(t *testing.T) {
	t.Parallel()

	fake := trackertest.New(model.Issue{Number: 1, State: model.StateOpen})
	c := tracker.NewScheduledClient(fake, tracker.NewScheduler(1, 0))
	ctx := context.Background()

	if _, err := c.ListIssues(ctx, tracker.ListOptions{}); err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if _, err := c.ListTimeline(ctx, 1, 1, 100); err != nil {
		t.Fatalf("ListTimeline() error = %v", err)
	}
	if err := c.UpdateIssue(ctx, 1, model.StateClosed, ""); err != nil {
		t.Fatalf("UpdateIssue() error = %v", err)
	}
	if err := c.CreateComment(ctx, 1, "x"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if fake.Calls != 4 {
		t.Errorf("inner client saw %d calls, want 4", fake.Calls)
	}
	if fake.Issues[0].State != model.StateClosed {
		t.Errorf("State = %q, want closed", fake.Issues[0].State)
	}
}
