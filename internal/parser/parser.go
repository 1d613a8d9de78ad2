package parser

import (
	"regexp"
	"strings"

	"github.com/openblacklist/blacklist-etl/internal/model"
)

// Default section labels of the report issue form.
const (
	DefaultNameLabel = "公司全称"
	DefaultCityLabel = "所在城市"
	DefaultTagsLabel = "问题标签"
)

// DefaultTitlePrefix is the tag the report form puts in front of titles.
const DefaultTitlePrefix = "[爆料]"

// noResponse is the placeholder the tracker puts in an empty form field.
// Markdown carries it as "_No response_", rendered HTML as <em>No response</em>.
const noResponse = "No response"

var (
	// titlePairRegex splits a cleaned "name - city" title.
	titlePairRegex = regexp.MustCompile(`^(.+?)\s*-\s*(.+?)$`)

	// trailingHyphenRegex matches a dangling hyphen at the end of a title.
	trailingHyphenRegex = regexp.MustCompile(`\s*-\s*$`)
)

// Labels are the section headings fields are read from.
type Labels struct {
	Name string `yaml:"name"`
	City string `yaml:"city"`
	Tags string `yaml:"tags"`
}

// DefaultLabels returns the labels of the stock issue form.
func DefaultLabels() Labels {
	return Labels{
		Name: DefaultNameLabel,
		City: DefaultCityLabel,
		Tags: DefaultTagsLabel,
	}
}

// Fields are the company fields extracted from an issue.
type Fields struct {
	Name  string
	City  string
	Tags  []string
	Title string
}

// extractor copies a value from a matched section into fields.
type extractor func(sec Section, f *Fields)

// rule binds a section label to the extractor that reads it.
type rule struct {
	label   string
	extract extractor
}

// Parser extracts Fields from issues.
type Parser struct {
	labels      Labels
	titlePrefix string
	rules       []rule
}

// Option configures a Parser.
type Option func(*Parser)

// WithLabels sets the section labels. Empty labels keep their default.
func WithLabels(labels Labels) Option {
	return func(p *Parser) {
		if labels.Name != "" {
			p.labels.Name = labels.Name
		}
		if labels.City != "" {
			p.labels.City = labels.City
		}
		if labels.Tags != "" {
			p.labels.Tags = labels.Tags
		}
	}
}

// WithTitlePrefix sets the tag stripped from the front of titles.
func WithTitlePrefix(prefix string) Option {
	return func(p *Parser) {
		p.titlePrefix = prefix
	}
}

// New creates a Parser for the stock issue form.
func New(opts ...Option) *Parser {
	p := &Parser{
		labels:      DefaultLabels(),
		titlePrefix: DefaultTitlePrefix,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.rules = []rule{
		{label: p.labels.Name, extract: func(sec Section, f *Fields) { f.Name = firstValue(sec) }},
		{label: p.labels.City, extract: func(sec Section, f *Fields) { f.City = firstValue(sec) }},
		{label: p.labels.Tags, extract: func(sec Section, f *Fields) { f.Tags = items(sec) }},
	}
	return p
}

// Labels returns the section labels in use.
func (p *Parser) Labels() Labels {
	return p.labels
}

// Parse extracts the company fields of issue.
//
// Name and city come from the body. When the body lacks them they fall back
// to the "name - city" form of the cleaned title, and the name finally falls
// back to the cleaned title itself. Tags are only ever read from the body.
func (p *Parser) Parse(issue model.Issue) Fields {
	f := Fields{Tags: []string{}}
	sections := Tokenize(issue.Body)
	for _, r := range p.rules {
		if sec, ok := findSection(sections, r.label); ok {
			r.extract(sec, &f)
		}
	}

	f.Title = p.CleanTitle(issue.Title)
	nameFromTitle, cityFromTitle := SplitTitle(f.Title)

	if f.Name == "" {
		f.Name = nameFromTitle
	}
	if f.Name == "" {
		f.Name = f.Title
	}
	if f.City == "" {
		f.City = cityFromTitle
	}
	return f
}

// findSection returns the first section headed by label.
func findSection(sections []Section, label string) (Section, bool) {
	for _, sec := range sections {
		if strings.EqualFold(strings.TrimSpace(sec.Heading), label) {
			return sec, true
		}
	}
	return Section{}, false
}

// CleanTitle strips the title prefix and any dangling trailing hyphen.
func (p *Parser) CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if p.titlePrefix != "" && strings.HasPrefix(title, p.titlePrefix) {
		title = strings.TrimLeft(title[len(p.titlePrefix):], " \t\r\n")
	}
	return trailingHyphenRegex.ReplaceAllString(strings.TrimSpace(title), "")
}

// SplitTitle splits a cleaned "name - city" title. It returns empty strings
// when the title has no such form.
func SplitTitle(title string) (name, city string) {
	m := titlePairRegex.FindStringSubmatch(title)
	if m == nil {
		return "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// firstValue returns the first line of the first text entry of sec.
func firstValue(sec Section) string {
	if len(sec.Text) == 0 {
		return ""
	}
	line, _, _ := strings.Cut(sec.Text[0], "\n")
	line = strings.TrimSpace(line)
	if isNoResponse(line) {
		return ""
	}
	return line
}

// isNoResponse reports whether line is the empty field placeholder in
// either dialect.
func isNoResponse(line string) bool {
	return strings.Trim(line, "_*") == noResponse
}

// items returns the non-empty items of sec.
func items(sec Section) []string {
	out := make([]string, 0, len(sec.Items))
	for _, item := range sec.Items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
