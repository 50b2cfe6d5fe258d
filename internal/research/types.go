// Package research implements the lead-researcher loop: plan, delegate
// sub-tasks in parallel, integrate findings, and finalize a cited report.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMaxIterations bounds the planning loop when no limit is configured.
const DefaultMaxIterations = 3

const taskPrefix = "Your task is: "

var (
	// ErrPlanning wraps any planner failure. The run is aborted.
	ErrPlanning = errors.New("planning failed")
	// ErrCitation wraps any citation failure. Uncited text is never returned in its place.
	ErrCitation = errors.New("citation failed")
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("empty query")
)

// Planner decides the next step from the query and the research log.
type Planner interface {
	Plan(ctx context.Context, input string) (Decision, error)
}

// SubAgent carries out one delegated research task and returns its findings.
type SubAgent interface {
	Research(ctx context.Context, input string) (string, error)
}

// Citer turns inline source URLs into numbered citations.
type Citer interface {
	Cite(ctx context.Context, text string) (string, error)
}

// Decision is the planner's output for one iteration.
type Decision struct {
	// Synthesis is the cumulative report so far; nil or empty leaves the previous one in place.
	Synthesis  *string
	IsComplete bool
	// NextSteps lists parallelizable sub-tasks; nil means absent.
	NextSteps []string
}

// Done reports whether the loop stops after this decision. Any one of
// completion, absent steps or an empty step list is enough; pending steps
// on a complete decision are discarded.
func (d Decision) Done() bool {
	return d.IsComplete || d.NextSteps == nil || len(d.NextSteps) == 0
}

func (d Decision) synthesis() string {
	if d.Synthesis == nil {
		return ""
	}
	return *d.Synthesis
}

// Outcome is the settled result of one delegated task.
type Outcome struct {
	Task    string
	Finding string
	Err     error
}

// OK reports whether the task succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Entry renders the outcome as a research log entry.
func (o Outcome) Entry() string {
	if o.OK() {
		return fmt.Sprintf("Sub-task: %s\nResult: %s\n", o.Task, o.Finding)
	}
	return fmt.Sprintf("Sub-task: %s\nResult: FAILED\nError: %v", o.Task, o.Err)
}

// TaskInput is the input handed to a sub-agent for a task.
func TaskInput(task string) string {
	return taskPrefix + task
}

// Result is what a research run produces.
type Result struct {
	Report       string
	Log          []string
	Iterations   int
	LimitReached bool
	// Cited is false when the report is the raw log fallback.
	Cited    bool
	Duration time.Duration
}

// State is the per-run research state. It is a value: every transition
// returns a new State and never mutates the receiver's log.
type State struct {
	Query     string
	Report    string
	Iteration int
	log       []string
}

// NewState seeds a state for query.
func NewState(query string) State {
	return State{
		Query: query,
		log:   []string{`Initial Query: "` + query + `"`},
	}
}

// Log returns a copy of the research log.
func (s State) Log() []string {
	return append([]string(nil), s.log...)
}

// PlannerInput renders the planner prompt for the current state.
func (s State) PlannerInput() string {
	return `Original Query: "` + s.Query + `"` +
		"\n\nCurrent Research Log (all findings so far):\n" + strings.Join(s.log, "\n\n")
}

// WithDecision applies a planner decision. A non-empty synthesis replaces the report.
func (s State) WithDecision(d Decision) State {
	if syn := d.synthesis(); syn != "" {
		s.Report = syn
	}
	return s
}

// WithFindings appends the iteration header and one entry per outcome, in task order.
func (s State) WithFindings(iteration int, outcomes []Outcome) State {
	next := make([]string, len(s.log), len(s.log)+1+len(outcomes))
	copy(next, s.log)
	next = append(next, fmt.Sprintf("--- Findings from Iteration %d ---", iteration))
	for _, o := range outcomes {
		next = append(next, o.Entry())
	}
	s.log = next
	s.Iteration = iteration
	return s
}
