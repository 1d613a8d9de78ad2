package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Dialect identifies the markup an issue body is written in.
type Dialect int

const (
	// DialectMarkdown is the raw issue-form markdown.
	DialectMarkdown Dialect = iota

	// DialectHTML is the tracker-rendered HTML form.
	DialectHTML
)

// String returns the dialect name.
func (d Dialect) String() string {
	if d == DialectHTML {
		return "html"
	}
	return "markdown"
}

// DetectDialect reports which dialect body is written in.
func DetectDialect(body string) Dialect {
	if strings.HasPrefix(strings.TrimSpace(body), "<h3") {
		return DialectHTML
	}
	return DialectMarkdown
}

// Section is one headed block of an issue body.
type Section struct {
	// Heading is the trimmed heading text.
	Heading string

	// Text holds the free-text entries of the section in order.
	Text []string

	// Items holds the labels of selected list entries in order.
	Items []string
}

// Tokenize splits body into sections using the tokenizer of its dialect.
func Tokenize(body string) []Section {
	if DetectDialect(body) == DialectHTML {
		return TokenizeHTML(body)
	}
	return TokenizeMarkdown(body)
}

var (
	headingLineRegex   = regexp.MustCompile(`^\s{0,3}#{1,6}\s*(.*?)\s*#*\s*$`)
	checkedItemRegex   = regexp.MustCompile(`^[-*+]\s*\[[xX]\]\s*(.+)$`)
	uncheckedItemRegex = regexp.MustCompile(`^[-*+]\s*\[\s\]`)
)

// TokenizeMarkdown splits a markdown body into sections at heading lines.
// Content before the first heading is ignored.
func TokenizeMarkdown(body string) []Section {
	var sections []Section
	var cur *Section

	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		if m := headingLineRegex.FindStringSubmatch(line); m != nil {
			sections = append(sections, Section{Heading: m[1]})
			cur = &sections[len(sections)-1]
			continue
		}
		if cur == nil {
			continue
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case uncheckedItemRegex.MatchString(line):
		case checkedItemRegex.MatchString(line):
			item := strings.TrimSpace(checkedItemRegex.FindStringSubmatch(line)[1])
			cur.Items = append(cur.Items, item)
		default:
			cur.Text = append(cur.Text, line)
		}
	}
	return sections
}

// TokenizeHTML splits an HTML body into sections at h1-h6 elements.
// Paragraph text becomes section text and list items become section items;
// a list item holding an unchecked checkbox is dropped.
func TokenizeHTML(body string) []Section {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(body), context)
	if err != nil {
		return nil
	}

	var sections []Section
	current := func() *Section {
		if len(sections) == 0 {
			return nil
		}
		return &sections[len(sections)-1]
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				sections = append(sections, Section{Heading: strings.TrimSpace(textOf(n))})
				return
			case atom.P:
				if cur := current(); cur != nil {
					if text := strings.TrimSpace(textOf(n)); text != "" {
						cur.Text = append(cur.Text, text)
					}
				}
				return
			case atom.Li:
				if cur := current(); cur != nil && !hasUncheckedBox(n) {
					if text := strings.TrimSpace(textOf(n)); text != "" {
						cur.Items = append(cur.Items, text)
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range nodes {
		walk(n)
	}
	return sections
}

// textOf returns the concatenated text beneath n with markup removed.
// Line breaks become newlines.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// hasUncheckedBox reports whether n directly holds a checkbox input
// without the checked attribute.
func hasUncheckedBox(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Input {
			continue
		}
		if getAttr(c, "type") != "checkbox" {
			continue
		}
		if !hasAttr(c, "checked") {
			return true
		}
	}
	return false
}

// getAttr returns the value of the named attribute.
func getAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// hasAttr reports whether n carries the named attribute.
func hasAttr(n *html.Node, name string) bool {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return true
		}
	}
	return false
}
