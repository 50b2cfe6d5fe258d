package replay

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vinayprograms/researcher/internal/session"
)

// Stats holds aggregate statistics for a session.
type Stats struct {
	TotalDurationMs int64

	Iterations   int
	LimitReached bool

	SubTasks       int
	SubTaskFailed  int
	SubTaskTotalMs int64
	SubTaskAvgMs   int64

	ToolCalls  map[string]int
	ToolErrors int
}

// ComputeStats calculates aggregate statistics from session events.
func ComputeStats(sess *session.Session) *Stats {
	stats := &Stats{ToolCalls: make(map[string]int)}

	var firstEvent, lastEvent time.Time
	for _, e := range sess.Events {
		if firstEvent.IsZero() || e.Timestamp.Before(firstEvent) {
			firstEvent = e.Timestamp
		}
		if lastEvent.IsZero() || e.Timestamp.After(lastEvent) {
			lastEvent = e.Timestamp
		}

		switch e.Type {
		case session.EventPlan:
			if e.Iteration > stats.Iterations {
				stats.Iterations = e.Iteration
			}
		case session.EventSubTaskEnd:
			stats.SubTasks++
			stats.SubTaskTotalMs += e.DurationMs
			if e.Success != nil && !*e.Success {
				stats.SubTaskFailed++
			}
		case session.EventToolCall:
			stats.ToolCalls[e.Tool]++
			if e.Error != "" {
				stats.ToolErrors++
			}
		case session.EventLimitReached:
			stats.LimitReached = true
		case session.EventResearchEnd:
			if e.DurationMs > 0 {
				stats.TotalDurationMs = e.DurationMs
			}
		}
	}

	if stats.TotalDurationMs == 0 && !firstEvent.IsZero() {
		stats.TotalDurationMs = lastEvent.Sub(firstEvent).Milliseconds()
	}
	if stats.SubTasks > 0 {
		stats.SubTaskAvgMs = stats.SubTaskTotalMs / int64(stats.SubTasks)
	}
	return stats
}

// Render writes the statistics block.
func (s *Stats) Render(w io.Writer) error {
	fmt.Fprintln(w, titleStyle.Render("Summary"))
	fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("Duration:  "), time.Duration(s.TotalDurationMs)*time.Millisecond)

	iter := fmt.Sprintf("%d", s.Iterations)
	if s.LimitReached {
		iter += " " + warnStyle.Render("(limit reached)")
	}
	fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("Iterations:"), iter)

	tasks := fmt.Sprintf("%d", s.SubTasks)
	if s.SubTaskFailed > 0 {
		tasks += " " + errorStyle.Render(fmt.Sprintf("(%d failed)", s.SubTaskFailed))
	}
	if s.SubTasks > 0 {
		tasks += dimStyle.Render(fmt.Sprintf(" avg %dms", s.SubTaskAvgMs))
	}
	fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("Sub-tasks: "), tasks)

	if len(s.ToolCalls) > 0 {
		names := make([]string, 0, len(s.ToolCalls))
		for name := range s.ToolCalls {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s %s × %d\n", dimStyle.Render("Tool:      "), toolStyle.Render(name), s.ToolCalls[name])
		}
		if s.ToolErrors > 0 {
			fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("Tool errs: "), errorStyle.Render(fmt.Sprintf("%d", s.ToolErrors)))
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}
