package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/vinayprograms/researcher/internal/research"
)

// Recorder turns research callbacks into session events.
type Recorder struct {
	manager *Manager
	sess    *Session
	start   time.Time
}

// Start creates a session for query and records research_start.
func (m *Manager) Start(query string) (*Recorder, error) {
	sess, err := m.Create(query)
	if err != nil {
		return nil, err
	}
	sess.AddEvent(Event{Type: EventResearchStart, Content: query})
	return &Recorder{manager: m, sess: sess, start: time.Now()}, nil
}

// Session returns the session being recorded.
func (r *Recorder) Session() *Session {
	return r.sess
}

// Callbacks returns research callbacks that record into the session.
func (r *Recorder) Callbacks() research.Callbacks {
	return research.Callbacks{
		OnPlan: func(iteration int, d research.Decision) {
			e := Event{Type: EventPlan, Iteration: iteration, Agent: "lead", Steps: d.NextSteps}
			if d.Synthesis != nil {
				e.Content = *d.Synthesis
			}
			ok := d.IsComplete
			e.Success = &ok
			r.sess.AddEvent(e)
		},
		OnSubAgentStart: func(iteration int, task string) {
			r.sess.AddEvent(Event{Type: EventSubTaskStart, Iteration: iteration, Agent: "subagent", Task: task})
		},
		OnSubAgentComplete: func(iteration int, task, finding string, d time.Duration) {
			ok := true
			r.sess.AddEvent(Event{
				Type: EventSubTaskEnd, Iteration: iteration, Agent: "subagent", Task: task,
				Content: finding, Success: &ok, DurationMs: d.Milliseconds(),
			})
		},
		OnSubAgentError: func(iteration int, task string, err error, d time.Duration) {
			ok := false
			r.sess.AddEvent(Event{
				Type: EventSubTaskEnd, Iteration: iteration, Agent: "subagent", Task: task,
				Error: err.Error(), Success: &ok, DurationMs: d.Milliseconds(),
			})
		},
		OnLimitReached: func(limit int) {
			r.sess.AddEvent(Event{Type: EventLimitReached, Iteration: limit})
		},
		OnFinalize: func(cited bool) {
			r.sess.AddEvent(Event{Type: EventFinalize, Success: &cited})
		},
	}
}

// ToolCall records a tool invocation made by an agent role.
func (r *Recorder) ToolCall(agent, tool string, args map[string]interface{}, err error) {
	e := Event{Type: EventToolCall, Agent: agent, Tool: tool, Args: args}
	ok := err == nil
	e.Success = &ok
	if err != nil {
		e.Error = err.Error()
	}
	r.sess.AddEvent(e)
}

// Finish records research_end with the run's outcome and saves the session.
func (r *Recorder) Finish(res research.Result, runErr error) error {
	ok := runErr == nil
	e := Event{Type: EventResearchEnd, Success: &ok, DurationMs: time.Since(r.start).Milliseconds()}

	r.sess.mu.Lock()
	r.sess.Iterations = res.Iterations
	r.sess.LimitReached = res.LimitReached
	r.sess.Report = res.Report
	if runErr != nil {
		r.sess.Status = StatusFailed
		r.sess.Error = runErr.Error()
		e.Error = runErr.Error()
	} else {
		r.sess.Status = StatusComplete
	}
	r.sess.mu.Unlock()

	r.sess.AddEvent(e)
	return r.manager.Update(r.sess)
}

// Summary renders a one-line description of an event for replay output.
func Summary(e Event) string {
	var b strings.Builder
	b.WriteString(e.Type)
	if e.Iteration > 0 {
		b.WriteString(" iteration=")
		b.WriteString(strconv.Itoa(e.Iteration))
	}
	if e.Agent != "" {
		b.WriteString(" agent=" + e.Agent)
	}
	if e.Tool != "" {
		b.WriteString(" tool=" + e.Tool)
	}
	if e.Task != "" {
		b.WriteString(" task=" + strconv.Quote(e.Task))
	}
	if len(e.Steps) > 0 {
		b.WriteString(" steps=" + strconv.Itoa(len(e.Steps)))
	}
	if e.Success != nil {
		if *e.Success {
			b.WriteString(" ok")
		} else {
			b.WriteString(" failed")
		}
	}
	if e.Error != "" {
		b.WriteString(" error=" + strconv.Quote(e.Error))
	}
	if e.DurationMs > 0 {
		b.WriteString(" duration=" + (time.Duration(e.DurationMs) * time.Millisecond).String())
	}
	return b.String()
}
