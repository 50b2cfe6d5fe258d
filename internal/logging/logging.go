// Package logging provides levelled, structured logging.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a config string into a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	levelStyles = map[Level]lipgloss.Style{
		LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
	componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	fieldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	dividerStyle   = lipgloss.NewStyle().Faint(true)
)

// shared is the state common to a logger and its derived loggers.
type shared struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
	console  bool
	now      func() time.Time
}

// Logger provides structured logging.
type Logger struct {
	*shared
	component string
	traceID   string
}

// New creates a new Logger writing to stderr at info level.
func New() *Logger {
	return &Logger{shared: &shared{
		output:   os.Stderr,
		minLevel: LevelInfo,
		now:      time.Now,
	}}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l := New()
	l.SetOutput(io.Discard)
	return l
}

// WithComponent returns a derived logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{shared: l.shared, component: component, traceID: l.traceID}
}

// WithTraceID returns a derived logger tagged with the given trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{shared: l.shared, component: l.component, traceID: traceID}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetConsole switches to coloured, human-oriented output.
func (l *Logger) SetConsole(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = on
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats fields as key=value pairs sorted by key.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes one entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	merged := map[string]interface{}{}
	if len(fields) > 0 && fields[0] != nil {
		for k, v := range fields[0] {
			merged[k] = v
		}
	}
	if l.traceID != "" {
		merged["trace_id"] = l.traceID
	}
	fieldStr := formatFields(merged)

	var line string
	if l.console {
		lvl := levelStyles[level].Render(fmt.Sprintf("%-5s", level))
		comp := ""
		if l.component != "" {
			comp = componentStyle.Render("["+l.component+"]") + " "
		}
		line = fmt.Sprintf("%s %s%s%s\n", lvl, comp, msg, fieldStyle.Render(fieldStr))
	} else {
		timestamp := l.now().UTC().Format("2006-01-02T15:04:05.000Z")
		if l.component != "" {
			line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
		} else {
			line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
		}
	}
	l.output.Write([]byte(line))
}

// Section prints a banner in console mode and an info entry otherwise.
func (l *Logger) Section(title string) {
	l.mu.Lock()
	if l.console {
		fmt.Fprintf(l.output, "\n%s\n", sectionStyle.Render("== "+strings.ToUpper(title)+" =="))
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	l.Info("section", map[string]interface{}{"title": title})
}

// Divider prints a horizontal rule in console mode.
func (l *Logger) Divider() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.console {
		fmt.Fprintln(l.output, dividerStyle.Render(strings.Repeat("─", 50)))
	}
}

// --- Research lifecycle ---

// ResearchStart logs the start of a research run.
func (l *Logger) ResearchStart(query string, maxIterations int) {
	l.Info("research_start", map[string]interface{}{
		"query":          query,
		"max_iterations": maxIterations,
	})
}

// IterationStart logs the start of an iteration (1-based).
func (l *Logger) IterationStart(n, max int) {
	l.Info("iteration_start", map[string]interface{}{
		"iteration": fmt.Sprintf("%d/%d", n, max),
	})
}

// PlanReceived logs a planner decision.
func (l *Logger) PlanReceived(hasSynthesis, complete bool, steps int) {
	l.Info("plan_received", map[string]interface{}{
		"synthesis":  hasSynthesis,
		"complete":   complete,
		"next_steps": steps,
	})
}

// Delegation logs the sub-tasks handed to sub-agents.
func (l *Logger) Delegation(tasks []string) {
	l.Info("delegating", map[string]interface{}{
		"count": len(tasks),
	})
	for i, t := range tasks {
		l.Debug("sub_task", map[string]interface{}{
			"index": i + 1,
			"task":  t,
		})
	}
}

// SubAgentResult logs the outcome of one sub-task.
func (l *Logger) SubAgentResult(task string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"task":     task,
		"duration": duration.Round(time.Millisecond).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Warn("sub_task_failed", fields)
		return
	}
	l.Info("sub_task_complete", fields)
}

// LimitReached logs that the iteration cap ended the loop.
func (l *Logger) LimitReached(max int) {
	l.Warn("iteration_limit_reached", map[string]interface{}{
		"max_iterations": max,
	})
}

// ResearchComplete logs the end of a research run.
func (l *Logger) ResearchComplete(iterations int, limitReached bool, duration time.Duration) {
	l.Info("research_complete", map[string]interface{}{
		"iterations":    iterations,
		"limit_reached": limitReached,
		"duration":      duration.Round(time.Millisecond).String(),
	})
}

// ToolCall logs a tool invocation without its arguments.
func (l *Logger) ToolCall(role, tool string, err error) {
	fields := map[string]interface{}{
		"role": role,
		"tool": tool,
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Warn("tool_error", fields)
		return
	}
	l.Debug("tool_call", fields)
}
