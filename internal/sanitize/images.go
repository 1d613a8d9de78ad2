package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// markdownImageRegex matches ![alt](url) image syntax.
var markdownImageRegex = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)

// MarkdownImages returns the URL of every markdown image in body, trimmed,
// in source order. Empty URLs are dropped.
func MarkdownImages(body string) []string {
	matches := markdownImageRegex.FindAllStringSubmatch(body, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if u := strings.TrimSpace(m[1]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// HTMLImages returns the src attribute of every img element in fragment,
// in document order.
func HTMLImages(fragment string) []string {
	var urls []string
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return urls
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "img" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "src" && attr.Val != "" {
					urls = append(urls, attr.Val)
				}
			}
		}
	}
}

// dedup returns the values in first-seen order with repeats removed.
func dedup(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, list := range lists {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
