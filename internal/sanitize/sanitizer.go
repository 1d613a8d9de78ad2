package sanitize

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	// uncheckedItemRegex matches a whole "- [ ] option" line.
	uncheckedItemRegex = regexp.MustCompile(`(?m)^[ \t]*-[ \t]*\[\s\][ \t]*.+$`)

	// blankRunRegex matches three or more consecutive newlines.
	blankRunRegex = regexp.MustCompile(`\n{3,}`)
)

// allowedTags is the set of elements that survive sanitizing.
var allowedTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "ul", "ol", "li", "strong", "em", "a", "img", "blockquote",
}

// Result is the publishable form of an issue body.
type Result struct {
	BodyHTML string
	Images   []string
}

// Sanitizer renders and cleans issue bodies.
// A Sanitizer is safe for concurrent use.
type Sanitizer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	logger *slog.Logger
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithLogger sets the logger used to report render failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sanitizer) {
		s.logger = logger
	}
}

// WithMarkdown replaces the markdown renderer.
func WithMarkdown(md goldmark.Markdown) Option {
	return func(s *Sanitizer) {
		s.md = md
	}
}

// New creates a Sanitizer with the default renderer and allow-list policy.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			// Raw HTML is passed through so the policy decides what survives.
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		policy: NewPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewPolicy returns the allow-list policy applied to rendered bodies.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowURLSchemes("http", "https")
	p.RequireParseableURLs(true)
	return p
}

// StripUncheckedItems removes unselected checklist lines from body and
// collapses the blank runs they leave behind.
func StripUncheckedItems(body string) string {
	body = uncheckedItemRegex.ReplaceAllString(body, "")
	return blankRunRegex.ReplaceAllString(body, "\n\n")
}

// Process converts a raw markdown body into sanitized, redacted HTML and
// collects its image URLs.
func (s *Sanitizer) Process(raw string) Result {
	body, err := s.render(StripUncheckedItems(raw))
	if err != nil {
		s.logger.Warn("falling back to redacted raw body", "error", err)
		return Result{BodyHTML: Redact(raw), Images: []string{}}
	}

	body = Redact(body)
	return Result{
		BodyHTML: body,
		Images:   dedup(MarkdownImages(raw), HTMLImages(body)),
	}
}

// render converts markdown to sanitized HTML. A panic inside the renderer
// or the policy is returned as an error.
func (s *Sanitizer) render(markdown string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
	}()

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return s.policy.Sanitize(buf.String()), nil
}
