// Package replay renders recorded research sessions as a readable timeline.
package replay

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/vinayprograms/researcher/internal/session"
)

var (
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // Gray - timestamps, metadata
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	leadStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")) // Yellow - planning
	subagentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))            // Magenta - sub-tasks
	toolStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // Blue - tool calls
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	seqStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(5).Align(lipgloss.Right)

	divider = dimStyle.Render(strings.Repeat("━", 60))
)

// wrapWidth is the column at which block content wraps.
const wrapWidth = 100

// Replayer formats session events.
type Replayer struct {
	output         io.Writer
	verbosity      int // 0=normal, 1=verbose (-v), 2=very verbose (-vv)
	maxContentSize int // Maximum size for Content fields (0 = unlimited)
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithMaxContentSize limits how much of each event's content is printed.
func WithMaxContentSize(size int) ReplayerOption {
	return func(r *Replayer) {
		r.maxContentSize = size
	}
}

// New creates a new Replayer.
// verbosity: 0=normal, 1=verbose (-v), 2=very verbose (-vv)
func New(output io.Writer, verbosity int, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		output:         output,
		verbosity:      verbosity,
		maxContentSize: 2000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile loads and replays a session from a JSONL file.
func (r *Replayer) ReplayFile(path string) error {
	sess, err := session.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	return r.Replay(sess)
}

// Replay writes the session header, its event timeline and summary statistics.
func (r *Replayer) Replay(sess *session.Session) error {
	r.header(sess)
	for _, e := range sess.Events {
		r.event(e)
	}
	fmt.Fprintln(r.output, divider)
	return ComputeStats(sess).Render(r.output)
}

func (r *Replayer) header(sess *session.Session) {
	fmt.Fprintln(r.output, divider)
	fmt.Fprintln(r.output, titleStyle.Render("Session "+sess.ID))
	fmt.Fprintf(r.output, "%s %s\n", dimStyle.Render("Query:  "), sess.Query)
	fmt.Fprintf(r.output, "%s %s\n", dimStyle.Render("Status: "), statusText(sess.Status))
	if !sess.CreatedAt.IsZero() {
		fmt.Fprintf(r.output, "%s %s\n", dimStyle.Render("Started:"), sess.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if sess.Error != "" {
		fmt.Fprintf(r.output, "%s %s\n", dimStyle.Render("Error:  "), errorStyle.Render(sess.Error))
	}
	fmt.Fprintln(r.output, divider)
}

func statusText(status string) string {
	switch status {
	case session.StatusComplete:
		return successStyle.Render(status)
	case session.StatusFailed:
		return errorStyle.Render(status)
	default:
		return warnStyle.Render(status)
	}
}

func (r *Replayer) event(e session.Event) {
	seq := seqStyle.Render(fmt.Sprintf("%d", e.SeqID))
	ts := dimStyle.Render(e.Timestamp.Format("15:04:05"))
	fmt.Fprintf(r.output, "%s %s %s\n", seq, ts, r.describe(e))

	if r.verbosity == 0 {
		return
	}
	switch e.Type {
	case session.EventPlan:
		for i, step := range e.Steps {
			r.detail(fmt.Sprintf("%d. %s", i+1, step))
		}
		if r.verbosity > 1 && e.Content != "" {
			r.block("synthesis", e.Content)
		}
	case session.EventSubTaskEnd:
		if e.Content != "" {
			r.block("findings", e.Content)
		}
	case session.EventToolCall:
		if r.verbosity > 1 && len(e.Args) > 0 {
			r.detail(fmt.Sprintf("args: %v", e.Args))
		}
	}
}

func (r *Replayer) describe(e session.Event) string {
	switch e.Type {
	case session.EventResearchStart:
		return titleStyle.Render("▶ research started")
	case session.EventPlan:
		verdict := fmt.Sprintf("%d next steps", len(e.Steps))
		if e.Success != nil && *e.Success {
			verdict = "complete"
		}
		return leadStyle.Render(fmt.Sprintf("◆ plan (iteration %d): %s", e.Iteration, verdict))
	case session.EventSubTaskStart:
		return subagentStyle.Render(fmt.Sprintf("→ sub-task: %s", e.Task))
	case session.EventSubTaskEnd:
		if e.Success != nil && !*e.Success {
			return errorStyle.Render(fmt.Sprintf("✗ sub-task failed: %s (%s)", e.Task, e.Error))
		}
		return successStyle.Render(fmt.Sprintf("✓ sub-task done: %s", e.Task)) + dimStyle.Render(duration(e.DurationMs))
	case session.EventToolCall:
		text := toolStyle.Render(fmt.Sprintf("  ⚙ %s.%s", e.Agent, e.Tool))
		if e.Error != "" {
			text += " " + errorStyle.Render(e.Error)
		}
		return text
	case session.EventLimitReached:
		return warnStyle.Render(fmt.Sprintf("⚠ iteration limit reached (%d)", e.Iteration))
	case session.EventFinalize:
		if e.Success != nil && *e.Success {
			return successStyle.Render("◆ report cited")
		}
		return warnStyle.Render("◆ no synthesis, returned research log")
	case session.EventResearchEnd:
		if e.Success != nil && !*e.Success {
			return errorStyle.Render("■ research failed: "+e.Error) + dimStyle.Render(duration(e.DurationMs))
		}
		return successStyle.Render("■ research finished") + dimStyle.Render(duration(e.DurationMs))
	}
	return session.Summary(e)
}

func duration(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%dms)", ms)
}

func (r *Replayer) detail(text string) {
	fmt.Fprintf(r.output, "%s %s\n", strings.Repeat(" ", 15), dimStyle.Render(text))
}

func (r *Replayer) block(label, content string) {
	if r.maxContentSize > 0 && len(content) > r.maxContentSize {
		content = content[:r.maxContentSize] + fmt.Sprintf("\n... [truncated, %d bytes total]", len(content))
	}
	r.detail("┌─ " + label)
	for _, line := range strings.Split(wordwrap.String(content, wrapWidth), "\n") {
		r.detail("│ " + line)
	}
	r.detail("└─")
}
