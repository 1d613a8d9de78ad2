package parser

import (
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/openblacklist/blacklist-etl/internal/model"
	"github.com/openblacklist/blacklist-etl/internal/sanitize"
)

const markdownBody = `### 公司全称

深圳某某科技有限公司
第二行不会被读取

### 所在城市

深圳

### 问题标签

- [x] 拖欠工资
- [ ] 强制加班
- [X] 违法裁员

### 详细描述

入职三个月未发工资。
`

func TestDetectDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want Dialect
	}{
		{name: "markdown", body: "### 公司全称\n\nAcme", want: DialectMarkdown},
		{name: "html", body: "<h3>公司全称</h3><p>Acme</p>", want: DialectHTML},
		{name: "html with leading space", body: "\n  <h3 id=\"x\">公司全称</h3>", want: DialectHTML},
		{name: "other html is markdown", body: "<p>hello</p>", want: DialectMarkdown},
		{name: "empty", body: "", want: DialectMarkdown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectDialect(tt.body); got != tt.want {
				t.Errorf("DetectDialect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenizeMarkdown(t *testing.T) {
	t.Parallel()

	sections := TokenizeMarkdown("preamble\n### A\n\nline one\n  line two  \n## B\n- [x] one\n- [ ] two\n- [X]  three \n")
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Heading != "A" {
		t.Errorf("Heading = %q, want A", sections[0].Heading)
	}
	if !slices.Equal(sections[0].Text, []string{"line one", "line two"}) {
		t.Errorf("Text = %q", sections[0].Text)
	}
	if !slices.Equal(sections[1].Items, []string{"one", "three"}) {
		t.Errorf("Items = %q", sections[1].Items)
	}
	if len(sections[1].Text) != 0 {
		t.Errorf("expected checklist lines to stay out of Text, got %q", sections[1].Text)
	}
}

func TestTokenizeHTML(t *testing.T) {
	t.Parallel()

	body := `<h3>A</h3><p>Acme &amp; Co<br>second</p>` +
		`<h3>B</h3><ul><li><input type="checkbox" checked disabled> <strong>one</strong></li>` +
		`<li><input type="checkbox" disabled> two</li><li>three</li></ul>`

	sections := TokenizeHTML(body)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if !slices.Equal(sections[0].Text, []string{"Acme & Co\nsecond"}) {
		t.Errorf("Text = %q", sections[0].Text)
	}
	if !slices.Equal(sections[1].Items, []string{"one", "three"}) {
		t.Errorf("Items = %q", sections[1].Items)
	}
}

func TestParserParse(t *testing.T) {
	t.Parallel()

	p := New()

	tests := []struct {
		name  string
		issue model.Issue
		want  Fields
	}{
		{
			name:  "markdown body",
			issue: model.Issue{Title: "[爆料] 深圳某某科技有限公司 - 深圳", Body: markdownBody},
			want: Fields{
				Name:  "深圳某某科技有限公司",
				City:  "深圳",
				Tags:  []string{"拖欠工资", "违法裁员"},
				Title: "深圳某某科技有限公司 - 深圳",
			},
		},
		{
			name:  "title fallback",
			issue: model.Issue{Title: "[爆料]  Acme Ltd - Hangzhou", Body: "no sections"},
			want:  Fields{Name: "Acme Ltd", City: "Hangzhou", Tags: []string{}, Title: "Acme Ltd - Hangzhou"},
		},
		{
			name:  "title without city",
			issue: model.Issue{Title: "[爆料] Acme Ltd -", Body: ""},
			want:  Fields{Name: "Acme Ltd", City: "", Tags: []string{}, Title: "Acme Ltd"},
		},
		{
			name:  "title without prefix",
			issue: model.Issue{Title: "Acme Ltd - Hangzhou", Body: ""},
			want:  Fields{Name: "Acme Ltd", City: "Hangzhou", Tags: []string{}, Title: "Acme Ltd - Hangzhou"},
		},
		{
			name: "no response placeholder",
			issue: model.Issue{
				Title: "[爆料] Acme - Beijing",
				Body:  "### 公司全称\n\n_No response_\n\n### 所在城市\n\n_No response_\n",
			},
			want: Fields{Name: "Acme", City: "Beijing", Tags: []string{}, Title: "Acme - Beijing"},
		},
		{
			name: "body wins over title",
			issue: model.Issue{
				Title: "[爆料] Short - X",
				Body:  "### 公司全称\nLong Name Inc\n### 所在城市\nY\n",
			},
			want: Fields{Name: "Long Name Inc", City: "Y", Tags: []string{}, Title: "Short - X"},
		},
		{
			name: "html body",
			issue: model.Issue{
				Title: "[爆料] whatever",
				Body:  "<h3>公司全称</h3><p>Acme</p><h3>所在城市</h3><p>Wuhan</p><h3>问题标签</h3><ul><li>欠薪</li></ul>",
			},
			want: Fields{Name: "Acme", City: "Wuhan", Tags: []string{"欠薪"}, Title: "whatever"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.Parse(tt.issue)
			if got.Name != tt.want.Name {
				t.Errorf("Name = %q, want %q", got.Name, tt.want.Name)
			}
			if got.City != tt.want.City {
				t.Errorf("City = %q, want %q", got.City, tt.want.City)
			}
			if !slices.Equal(got.Tags, tt.want.Tags) {
				t.Errorf("Tags = %q, want %q", got.Tags, tt.want.Tags)
			}
			if got.Title != tt.want.Title {
				t.Errorf("Title = %q, want %q", got.Title, tt.want.Title)
			}
		})
	}
}

func TestParserDialectEquivalence(t *testing.T) {
	t.Parallel()

	const emptyCityBody = `### 公司全称

上海某某贸易有限公司

### 所在城市

_No response_

### 问题标签

- [x] 拖欠工资
`

	tests := []struct {
		name  string
		title string
		body  string
		want  Fields
	}{
		{
			name:  "all fields answered",
			title: "[爆料] 深圳某某科技有限公司 - 深圳",
			body:  markdownBody,
			want:  Fields{Name: "深圳某某科技有限公司", City: "深圳"},
		},
		{
			name:  "empty city falls back to title",
			title: "[爆料] 上海某某贸易有限公司 - 上海",
			body:  emptyCityBody,
			want:  Fields{Name: "上海某某贸易有限公司", City: "上海"},
		},
	}

	s := sanitize.New(sanitize.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rendered := s.Process(tt.body).BodyHTML
			if DetectDialect(rendered) != DialectHTML {
				t.Fatalf("expected rendered body to be html, got %q", rendered)
			}

			fromMarkdown := p.Parse(model.Issue{Title: tt.title, Body: tt.body})
			fromHTML := p.Parse(model.Issue{Title: tt.title, Body: rendered})

			if fromMarkdown.Name != tt.want.Name || fromMarkdown.City != tt.want.City {
				t.Errorf("markdown = %+v, want name %q city %q", fromMarkdown, tt.want.Name, tt.want.City)
			}
			if fromMarkdown.Name != fromHTML.Name || fromMarkdown.City != fromHTML.City {
				t.Errorf("markdown = %+v, html = %+v", fromMarkdown, fromHTML)
			}
			if !slices.Equal(fromMarkdown.Tags, fromHTML.Tags) {
				t.Errorf("markdown tags = %q, html tags = %q", fromMarkdown.Tags, fromHTML.Tags)
			}
		})
	}
}

func TestParserCustomLabels(t *testing.T) {
	t.Parallel()

	body := "### Company\n\nAcme\n\n### Tags\n\n- [x] unpaid\n"
	p := New(WithLabels(Labels{Name: "company", Tags: "TAGS"}))

	got := p.Parse(model.Issue{Title: "[爆料] X - Y", Body: body})
	if got.Name != "Acme" {
		t.Errorf("Name = %q, want Acme", got.Name)
	}
	if !slices.Equal(got.Tags, []string{"unpaid"}) {
		t.Errorf("Tags = %q, want [unpaid]", got.Tags)
	}
	if got.City != "Y" {
		t.Errorf("City = %q, want title fallback Y", got.City)
	}
	if p.Labels().City != DefaultCityLabel {
		t.Errorf("City label = %q, want default", p.Labels().City)
	}
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	p := New()
	tests := []struct {
		in   string
		want string
	}{
		{in: "[爆料] Acme - Shanghai", want: "Acme - Shanghai"},
		{in: "[爆料]Acme -", want: "Acme"},
		{in: "  Acme  - ", want: "Acme"},
		{in: "[爆料]", want: ""},
		{in: "Acme [爆料]", want: "Acme [爆料]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := p.CleanTitle(tt.in); got != tt.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if got := New(WithTitlePrefix("[Report]")).CleanTitle("[Report] Acme"); got != "Acme" {
		t.Errorf("custom prefix: got %q", got)
	}
}
