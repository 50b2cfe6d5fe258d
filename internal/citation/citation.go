// Package citation rewrites inline source URLs as numbered references with a
// trailing sources section.
package citation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// urlRe matches http(s) URLs, stopping at whitespace, quotes and bracket delimiters.
var urlRe = regexp.MustCompile(`https?://[^\s\]\)\>\<\"']+`)

const trailingPunct = ".,;:!?"

type match struct {
	start, end int
	url        string
}

func findURLs(text string) []match {
	idx := urlRe.FindAllStringIndex(text, -1)
	matches := make([]match, 0, len(idx))
	for _, m := range idx {
		u := strings.TrimRight(text[m[0]:m[1]], trailingPunct)
		if strings.HasSuffix(u, "://") {
			continue
		}
		matches = append(matches, match{start: m[0], end: m[0] + len(u), url: u})
	}
	return matches
}

// Sources returns the unique URLs in text in first-seen order.
func Sources(text string) []string {
	var sources []string
	seen := map[string]bool{}
	for _, m := range findURLs(text) {
		if !seen[m.url] {
			seen[m.url] = true
			sources = append(sources, m.url)
		}
	}
	return sources
}

// Format replaces every URL occurrence with its number marker and appends a
// "## Sources" section. URLs wrapped in [], () or <> lose their wrapper, and
// a markdown link [text](url) becomes [text][n]. Text without URLs is
// returned unchanged.
func Format(text string) string {
	matches := findURLs(text)
	if len(matches) == 0 {
		return text
	}

	numbers := map[string]int{}
	var sources []string
	var b strings.Builder
	cursor := 0
	for _, m := range matches {
		n, ok := numbers[m.url]
		if !ok {
			sources = append(sources, m.url)
			n = len(sources)
			numbers[m.url] = n
		}
		marker := fmt.Sprintf("[%d]", n)

		from, to := m.start, m.end
		if wrapped(text, m) {
			from, to = m.start-1, m.end+1
		}
		b.WriteString(text[cursor:from])
		b.WriteString(marker)
		cursor = to
	}
	b.WriteString(text[cursor:])

	b.WriteString("\n\n## Sources\n\n")
	for i, u := range sources {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, u)
	}
	return b.String()
}

// wrapped reports whether the URL is directly enclosed by a bracket pair.
func wrapped(text string, m match) bool {
	if m.start == 0 || m.end >= len(text) {
		return false
	}
	open, close := text[m.start-1], text[m.end]
	return open == '[' && close == ']' || open == '(' && close == ')' || open == '<' && close == '>'
}

// Formatter is a deterministic Citer.
type Formatter struct{}

// Cite implements research.Citer.
func (Formatter) Cite(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Format(text), nil
}
