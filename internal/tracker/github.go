package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// apiVersion pins the REST API version sent with every request.
const apiVersion = "2022-11-28"

// userAgent identifies the client to the API.
const userAgent = "blacklist-etl"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// ErrUnexpectedStatus is wrapped by APIError.
var ErrUnexpectedStatus = errors.New("unexpected status from tracker")

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// Unwrap returns ErrUnexpectedStatus.
func (e *APIError) Unwrap() error {
	return ErrUnexpectedStatus
}

// GitHubClient implements Client over the GitHub REST API.
type GitHubClient struct {
	baseURL    string
	owner      string
	repo       string
	token      string
	httpClient *http.Client
}

// GitHubOption configures a GitHubClient.
type GitHubOption func(*GitHubClient)

// WithBaseURL sets the API root, for GitHub Enterprise or tests.
func WithBaseURL(u string) GitHubOption {
	return func(c *GitHubClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithToken sets the bearer token. An empty token sends no credentials.
func WithToken(token string) GitHubOption {
	return func(c *GitHubClient) {
		c.token = token
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) GitHubOption {
	return func(c *GitHubClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) GitHubOption {
	return func(c *GitHubClient) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// NewGitHubClient creates a client for the owner/repo repository.
func NewGitHubClient(owner, repo string, opts ...GitHubOption) *GitHubClient {
	c := &GitHubClient{
		baseURL:    DefaultAPIURL,
		owner:      owner,
		repo:       repo,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ghIssue is the wire form of an issue.
type ghIssue struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        *string   `json:"body"`
	State       string    `json:"state"`
	HTMLURL     string    `json:"html_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Labels      []ghLabel `json:"labels"`
	User        *ghUser   `json:"user"`
	PullRequest *struct{} `json:"pull_request"`
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghUser struct {
	Login string `json:"login"`
}

// ghEvent is the wire form of a timeline entry. Fields missing from a
// given event kind decode to their zero value.
type ghEvent struct {
	Event     string     `json:"event"`
	Label     *ghLabel   `json:"label"`
	Actor     *ghUser    `json:"actor"`
	CreatedAt *time.Time `json:"created_at"`
}

func (i ghIssue) toModel() model.Issue {
	issue := model.Issue{
		Number:      i.Number,
		Title:       i.Title,
		State:       i.State,
		HTMLURL:     i.HTMLURL,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		Labels:      make([]string, 0, len(i.Labels)),
		PullRequest: i.PullRequest != nil,
	}
	if i.Body != nil {
		issue.Body = *i.Body
	}
	if i.User != nil {
		issue.Author = i.User.Login
	}
	for _, l := range i.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	return issue
}

func (e ghEvent) toModel() model.Event {
	ev := model.Event{Kind: e.Event}
	if e.Label != nil {
		ev.Label = e.Label.Name
	}
	if e.Actor != nil {
		ev.Actor = e.Actor.Login
	}
	if e.CreatedAt != nil {
		ev.CreatedAt = *e.CreatedAt
	}
	return ev
}

// ListIssues returns one page of repository issues.
func (c *GitHubClient) ListIssues(ctx context.Context, opts ListOptions) ([]model.Issue, error) {
	q := url.Values{}
	state := opts.State
	if state == "" {
		state = model.StateAll
	}
	q.Set("state", state)
	// Ascending update order keeps pages stable while issues are edited.
	q.Set("sort", "updated")
	q.Set("direction", "asc")
	if !opts.Since.IsZero() {
		q.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}
	if len(opts.Labels) > 0 {
		q.Set("labels", strings.Join(opts.Labels, ","))
	}
	setPage(q, opts.Page, opts.PerPage)

	var raw []ghIssue
	if err := c.do(ctx, http.MethodGet, c.repoPath("issues"), q, nil, &raw); err != nil {
		return nil, err
	}

	issues := make([]model.Issue, 0, len(raw))
	for _, i := range raw {
		issues = append(issues, i.toModel())
	}
	return issues, nil
}

// ListTimeline returns one page of the timeline of an issue.
func (c *GitHubClient) ListTimeline(ctx context.Context, number, page, perPage int) ([]model.Event, error) {
	q := url.Values{}
	setPage(q, page, perPage)

	var raw []ghEvent
	path := c.repoPath("issues", strconv.Itoa(number), "timeline")
	if err := c.do(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(raw))
	for _, e := range raw {
		events = append(events, e.toModel())
	}
	return events, nil
}

// UpdateIssue changes the state of an issue. An empty stateReason is omitted.
func (c *GitHubClient) UpdateIssue(ctx context.Context, number int, state, stateReason string) error {
	body := map[string]string{"state": state}
	if stateReason != "" {
		body["state_reason"] = stateReason
	}
	return c.do(ctx, http.MethodPatch, c.repoPath("issues", strconv.Itoa(number)), nil, body, nil)
}

// CreateComment posts a comment on an issue.
func (c *GitHubClient) CreateComment(ctx context.Context, number int, body string) error {
	path := c.repoPath("issues", strconv.Itoa(number), "comments")
	return c.do(ctx, http.MethodPost, path, nil, map[string]string{"body": body}, nil)
}

func (c *GitHubClient) repoPath(parts ...string) string {
	elems := append([]string{"repos", url.PathEscape(c.owner), url.PathEscape(c.repo)}, parts...)
	return "/" + strings.Join(elems, "/")
}

func setPage(q url.Values, page, perPage int) {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
}

// do sends one request and decodes a JSON response into out when out is
// non-nil.
func (c *GitHubClient) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			URL:        path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
