package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/researcher/internal/research"
)

var (
	planStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// progressCallbacks prints a one-line feed of run events to w. Sub-agent
// callbacks arrive from concurrent goroutines, so writes are serialized.
func progressCallbacks(w io.Writer) research.Callbacks {
	var mu sync.Mutex
	printf := func(format string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}
	return research.Callbacks{
		OnPlan: func(i int, d research.Decision) {
			if d.Done() {
				printf("%s\n", planStyle.Render(fmt.Sprintf("▶ Iteration %d: research complete", i)))
				return
			}
			printf("%s\n", planStyle.Render(fmt.Sprintf("▶ Iteration %d: %d sub-tasks", i, len(d.NextSteps))))
		},
		OnSubAgentStart: func(_ int, task string) {
			printf("  ⊕ %s\n", task)
		},
		OnSubAgentComplete: func(_ int, task, _ string, d time.Duration) {
			printf("  %s %s%s\n", okStyle.Render("✓"), task, dimStyle.Render(fmt.Sprintf(" (%s)", d.Round(time.Millisecond))))
		},
		OnSubAgentError: func(_ int, task string, err error, _ time.Duration) {
			printf("  %s %s: %v\n", failStyle.Render("✗"), task, err)
		},
		OnLimitReached: func(limit int) {
			printf("%s\n", failStyle.Render(fmt.Sprintf("⚠ Iteration limit (%d) reached", limit)))
		},
		OnFinalize: func(cited bool) {
			if cited {
				printf("%s\n", okStyle.Render("✓ Report cited"))
				return
			}
			printf("%s\n", dimStyle.Render("No synthesis; returning the research log"))
		},
	}
}
