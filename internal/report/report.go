// Package report saves research reports as markdown files with YAML front matter.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/researcher/internal/citation"
)

const (
	agentName = "Multi-Agent System"
	slugLen   = 50
)

// Meta is the front matter of a saved report.
type Meta struct {
	Query      string    `yaml:"query"`
	Generated  time.Time `yaml:"generated"`
	Agent      string    `yaml:"agent"`
	Session    string    `yaml:"session,omitempty"`
	Iterations int       `yaml:"iterations,omitempty"`
	Sources    []string  `yaml:"sources,omitempty"`
}

// Report is a saved report.
type Report struct {
	Meta
	Body string `yaml:"-"`
	Path string `yaml:"-"`
}

// Writer saves reports under a directory.
type Writer struct {
	Dir string
	now func() time.Time
}

// NewWriter creates a writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, now: time.Now}
}

// Save writes content for query to <dir>/research-<timestamp>-<slug>.md and
// returns the file path.
func (w *Writer) Save(query, content string, opts ...Option) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	now := w.now()
	meta := Meta{
		Query:     query,
		Generated: now.Truncate(time.Second),
		Agent:     agentName,
		Sources:   citation.Sources(content),
	}
	for _, opt := range opts {
		opt(&meta)
	}

	fm, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n# Research Report\n\n")
	fmt.Fprintf(&b, "**Query:** %s  \n", query)
	fmt.Fprintf(&b, "**Generated:** %s  \n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Agent:** %s\n\n---\n\n", agentName)
	b.WriteString(content)
	b.WriteString("\n")

	path := filepath.Join(w.Dir, Filename(query, now))
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Option adjusts report metadata.
type Option func(*Meta)

// WithSession records the session that produced the report.
func WithSession(id string) Option {
	return func(m *Meta) { m.Session = id }
}

// WithIterations records how many planning iterations ran.
func WithIterations(n int) Option {
	return func(m *Meta) { m.Iterations = n }
}

var (
	nonSlug    = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Slug lowercases query, drops anything but letters, digits and whitespace,
// joins words with "-", and caps the result at 50 characters.
func Slug(query string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(query), "")
	s = whitespace.ReplaceAllString(s, "-")
	if len(s) > slugLen {
		s = s[:slugLen]
	}
	return s
}

// Filename builds the report file name for query at t.
func Filename(query string, t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("research-%s-%s.md", ts, Slug(query))
}

// Load reads a saved report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fm, body, err := splitFrontMatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r := &Report{Body: body, Path: path}
	if err := yaml.Unmarshal([]byte(fm), &r.Meta); err != nil {
		return nil, fmt.Errorf("%s: invalid front matter: %w", path, err)
	}
	return r, nil
}

// List returns saved reports in dir, newest first. Files that fail to parse
// are skipped.
func List(dir string) ([]*Report, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "research-*.md"))
	if err != nil {
		return nil, err
	}
	var reports []*Report
	for _, m := range matches {
		r, err := Load(m)
		if err != nil {
			continue
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Generated.After(reports[j].Generated)
	})
	return reports, nil
}

func splitFrontMatter(content string) (frontMatter, body string, err error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", "", fmt.Errorf("missing front matter delimiter")
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", "", fmt.Errorf("unclosed front matter")
}
