package dataset

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/openblacklist/blacklist-etl/internal/audit"
	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/parser"
	"github.com/openblacklist/blacklist-etl/internal/sanitize"
)

// DefaultWebURL is the public GitHub web root.
const DefaultWebURL = "https://github.com"

// appealTemplate is the issue form used for appeals.
const appealTemplate = "appeal.yml"

// Deriver builds reports from tracker issues.
type Deriver struct {
	parser    *parser.Parser
	sanitizer *sanitize.Sanitizer
	webURL    string
	owner     string
	repo      string
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithParser sets the issue parser.
func WithParser(p *parser.Parser) DeriverOption {
	return func(d *Deriver) {
		d.parser = p
	}
}

// WithSanitizer sets the content sanitizer.
func WithSanitizer(s *sanitize.Sanitizer) DeriverOption {
	return func(d *Deriver) {
		d.sanitizer = s
	}
}

// WithWebURL sets the tracker web root used in appeal links.
func WithWebURL(u string) DeriverOption {
	return func(d *Deriver) {
		d.webURL = strings.TrimRight(u, "/")
	}
}

// NewDeriver creates a Deriver for reports of the owner/repo repository.
func NewDeriver(owner, repo string, opts ...DeriverOption) *Deriver {
	d := &Deriver{
		webURL: DefaultWebURL,
		owner:  owner,
		repo:   repo,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.parser == nil {
		d.parser = parser.New()
	}
	if d.sanitizer == nil {
		d.sanitizer = sanitize.New()
	}
	return d
}

// Build creates the report for a qualifying issue and its timeline.
func (d *Deriver) Build(issue model.Issue, events []model.Event) (r *model.Report, err error) {
	if issue.Number <= 0 {
		return nil, fmt.Errorf("%w: issue number %d", ErrInvalidRecord, issue.Number)
	}
	defer recoverDerive(issue.Number, &err)

	info := audit.Extract(events)
	info.Publisher = issue.Author
	if info.Publisher == "" {
		info.Publisher = model.UnknownPublisher
	}

	r = &model.Report{
		ID:        issue.Number,
		RawBody:   issue.Body,
		AuditInfo: info,
		SourceURL: issue.HTMLURL,
		CreatedAt: issue.CreatedAt,
		UpdatedAt: issue.UpdatedAt,
	}
	d.apply(r, issue.Title)
	return r, nil
}

// Rederive returns a copy of r with every content field re-derived from its
// title and raw body. Identity, raw body, audit trail, source link and
// timestamps are carried over unchanged.
func (d *Deriver) Rederive(r *model.Report) (out *model.Report, err error) {
	if r == nil || r.ID <= 0 {
		return nil, ErrInvalidRecord
	}
	defer recoverDerive(r.ID, &err)

	cp := *r
	d.apply(&cp, r.Title)
	return &cp, nil
}

// apply fills the derived fields of r from title and r.RawBody.
func (d *Deriver) apply(r *model.Report, title string) {
	fields := d.parser.Parse(model.Issue{Title: title, Body: r.RawBody})
	content := d.sanitizer.Process(r.RawBody)

	r.Name = fields.Name
	r.City = fields.City
	r.Tags = fields.Tags
	r.Title = fields.Title
	r.BodyHTML = content.BodyHTML
	r.Images = content.Images
	r.ReportURL = d.ReportURL(r.ID, fields.Name, fields.City)
}

// ReportURL returns the link that opens a pre-filled appeal against the
// report with the given id.
func (d *Deriver) ReportURL(id int, name, city string) string {
	title := "[申诉] " + name + " - " + city
	body := "公司ID: " + strconv.Itoa(id)
	return fmt.Sprintf("%s/%s/%s/issues/new?template=%s&title=%s&body=%s",
		d.webURL,
		url.PathEscape(d.owner),
		url.PathEscape(d.repo),
		url.QueryEscape(appealTemplate),
		url.QueryEscape(title),
		url.QueryEscape(body),
	)
}

func recoverDerive(id int, err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("%w #%d: %v", ErrDerive, id, p)
	}
}
