package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	defaultFetchMaxBytes = 50000
	fetchReadLimit       = 2 << 20
	truncationMarker     = "\n\n[...truncated...]"
)

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
)

// FetchResult is the outcome of fetching one URL.
type FetchResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // success or error
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FetchConfig configures WebFetch.
type FetchConfig struct {
	MaxBytes int
	Timeout  time.Duration
	MaxURLs  int
}

// WebFetch implements the web_fetch tool.
type WebFetch struct {
	cfg    FetchConfig
	client *http.Client
}

// NewWebFetch creates a web_fetch tool.
func NewWebFetch(cfg FetchConfig) *WebFetch {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultFetchMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = 5
	}
	return &WebFetch{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (t *WebFetch) Name() string { return "web_fetch" }

func (t *WebFetch) Description() string {
	return "Fetch and extract the content of web pages as markdown given a list of URLs. Use it for the most promising URLs from the search results."
}

func (t *WebFetch) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"urls": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "A list of URLs to fetch and extract content from",
			},
		},
		"required": []string{"urls"},
	}
}

func (t *WebFetch) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var urls []string
	switch v := args["urls"].(type) {
	case []interface{}:
		for _, u := range v {
			if s, ok := u.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
	case []string:
		urls = v
	case string:
		urls = []string{v}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("urls is required")
	}
	if len(urls) > t.cfg.MaxURLs {
		urls = urls[:t.cfg.MaxURLs]
	}
	return t.FetchAll(ctx, urls), nil
}

// FetchAll fetches each URL in order. Individual failures are reported per result.
func (t *WebFetch) FetchAll(ctx context.Context, urls []string) []FetchResult {
	results := make([]FetchResult, 0, len(urls))
	for _, u := range urls {
		content, err := t.Fetch(ctx, u)
		if err != nil {
			results = append(results, FetchResult{URL: u, Status: "error", Error: err.Error()})
			continue
		}
		results = append(results, FetchResult{URL: u, Status: "success", Content: content})
	}
	return results
}

// Fetch retrieves one URL and returns its text content, truncated to MaxBytes.
func (t *WebFetch) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", fmt.Errorf("unsupported url scheme: %s", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; researcher/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchReadLimit))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	text := string(body)
	if ct := resp.Header.Get("Content-Type"); ct == "" || strings.Contains(ct, "html") {
		text, err = ExtractText(text)
		if err != nil {
			return "", fmt.Errorf("failed to extract text: %w", err)
		}
	}
	return truncate(text, t.cfg.MaxBytes), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary so the result stays valid UTF-8.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + truncationMarker
}

// ExtractText converts an HTML document to compact markdown-flavoured text.
// Links keep their href so sources survive into findings.
func ExtractText(doc string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	walk(root, &sb, 0)
	return clean(sb.String()), nil
}

func walk(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 64 {
		return
	}
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer":
			return
		case "title":
			sb.WriteString("# ")
		case "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n" + strings.Repeat("#", int(n.Data[1]-'0')) + " ")
		case "p", "div", "section", "article":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "a":
			if href := attr(n, "href"); strings.HasPrefix(href, "http") {
				sb.WriteString("[")
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "title", "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
		case "a":
			if href := attr(n, "href"); strings.HasPrefix(href, "http") {
				sb.WriteString("](" + href + ") ")
			}
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func clean(s string) string {
	s = multiSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
