package tracker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// Scheduler admits tracker calls. At most maxConcurrent calls run at once
// and consecutive call starts are at least minTime apart.
type Scheduler struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewScheduler creates a Scheduler. A maxConcurrent below 1 is treated as 1
// and a non-positive minTime disables spacing.
func NewScheduler(maxConcurrent int, minTime time.Duration) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	limit := rate.Inf
	if minTime > 0 {
		limit = rate.Every(minTime)
	}
	return &Scheduler{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Do runs fn once it is admitted. It returns ctx.Err() if ctx ends while
// waiting.
func (s *Scheduler) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire tracker slot: %w", err)
	}
	defer s.sem.Release(1)

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed waiting for tracker rate limit: %w", err)
	}
	return fn(ctx)
}

// scheduledClient routes every call of an inner Client through a Scheduler.
type scheduledClient struct {
	inner     Client
	scheduler *Scheduler
}

// NewScheduledClient wraps c so that each call is admitted by s.
func NewScheduledClient(c Client, s *Scheduler) Client {
	return &scheduledClient{inner: c, scheduler: s}
}

func (c *scheduledClient) ListIssues(ctx context.Context, opts ListOptions) ([]model.Issue, error) {
	var out []model.Issue
	err := c.scheduler.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.inner.ListIssues(ctx, opts)
		return err
	})
	return out, err
}

func (c *scheduledClient) ListTimeline(ctx context.Context, number, page, perPage int) ([]model.Event, error) {
	var out []model.Event
	err := c.scheduler.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.inner.ListTimeline(ctx, number, page, perPage)
		return err
	})
	return out, err
}

func (c *scheduledClient) UpdateIssue(ctx context.Context, number int, state, stateReason string) error {
	return c.scheduler.Do(ctx, func(ctx context.Context) error {
		return c.inner.UpdateIssue(ctx, number, state, stateReason)
	})
}

func (c *scheduledClient) CreateComment(ctx context.Context, number int, body string) error {
	return c.scheduler.Do(ctx, func(ctx context.Context) error {
		return c.inner.CreateComment(ctx, number, body)
	})
}
