package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	l := New()
	l.SetOutput(buf)
	l.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetLevel(LevelInfo)

	logger.Debug("debug message")
	if buf.Len() > 0 {
		t.Error("debug message should be filtered at INFO level")
	}

	logger.Info("info message")
	want := "INFO  2025-01-02T03:04:05.000Z info message\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogger_WithComponentAndTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).WithComponent("research").WithTraceID("req-123")

	logger.Warn("careful")
	line := buf.String()
	if !strings.HasPrefix(line, "WARN  ") {
		t.Errorf("expected WARN prefix, got %q", line)
	}
	if !strings.Contains(line, "[research] careful") {
		t.Errorf("expected component tag, got %q", line)
	}
	if !strings.Contains(line, "trace_id=req-123") {
		t.Errorf("expected trace id field, got %q", line)
	}
}

func TestLogger_FieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("x", map[string]interface{}{"b": 2, "a": 1, "c": "three"})
	if !strings.HasSuffix(buf.String(), "x a=1 b=2 c=three\n") {
		t.Errorf("fields not sorted: %q", buf.String())
	}
}

func TestLogger_DerivedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := newTestLogger(&buf)
	child := root.WithComponent("child")

	root.SetLevel(LevelError)
	child.Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("derived logger should honour parent level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"loud":    LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLogger_ResearchHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetLevel(LevelDebug)

	logger.ResearchStart("what is go", 3)
	logger.IterationStart(1, 3)
	logger.Delegation([]string{"a", "b"})
	logger.SubAgentResult("a", 1500*time.Millisecond, nil)
	logger.SubAgentResult("b", time.Second, errors.New("timeout"))
	logger.LimitReached(3)
	logger.ResearchComplete(3, true, 2*time.Second)

	out := buf.String()
	for _, want := range []string{
		"research_start max_iterations=3 query=what is go",
		"iteration_start iteration=1/3",
		"delegating count=2",
		"sub_task index=2 task=b",
		"sub_task_complete duration=1.5s task=a",
		"WARN  2025-01-02T03:04:05.000Z sub_task_failed duration=1s error=timeout task=b",
		"WARN  2025-01-02T03:04:05.000Z iteration_limit_reached max_iterations=3",
		"research_complete duration=2s iterations=3 limit_reached=true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLogger_ConsoleMode(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetConsole(true)

	logger.Section("final processing")
	logger.Info("hello", map[string]interface{}{"k": "v"})
	logger.Divider()

	out := buf.String()
	if !strings.Contains(out, "== FINAL PROCESSING ==") {
		t.Errorf("missing section banner: %q", out)
	}
	if strings.Contains(out, "2025-01-02") {
		t.Errorf("console mode should omit timestamps: %q", out)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "k=v") {
		t.Errorf("missing message: %q", out)
	}
}

func TestLogger_SectionPlain(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.Section("delegating")
	logger.Divider()
	if buf.String() != "INFO  2025-01-02T03:04:05.000Z section title=delegating\n" {
		t.Errorf("unexpected plain section output: %q", buf.String())
	}
}
