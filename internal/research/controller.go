package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/researcher/internal/logging"
)

const tracerName = "github.com/vinayprograms/researcher/internal/research"

// Callbacks observe a run. Sub-agent callbacks are invoked from delegation
// goroutines and must be safe for concurrent use.
type Callbacks struct {
	OnPlan             func(iteration int, d Decision)
	OnSubAgentStart    func(iteration int, task string)
	OnSubAgentComplete func(iteration int, task, finding string, duration time.Duration)
	OnSubAgentError    func(iteration int, task string, err error, duration time.Duration)
	OnLimitReached     func(limit int)
	OnFinalize         func(cited bool)
}

// Chain combines callback sets so each observer sees every event.
func Chain(sets ...Callbacks) Callbacks {
	var out Callbacks
	for _, cb := range sets {
		if cb.OnPlan != nil {
			prev := out.OnPlan
			out.OnPlan = func(i int, d Decision) {
				if prev != nil {
					prev(i, d)
				}
				cb.OnPlan(i, d)
			}
		}
		if cb.OnSubAgentStart != nil {
			prev := out.OnSubAgentStart
			out.OnSubAgentStart = func(i int, task string) {
				if prev != nil {
					prev(i, task)
				}
				cb.OnSubAgentStart(i, task)
			}
		}
		if cb.OnSubAgentComplete != nil {
			prev := out.OnSubAgentComplete
			out.OnSubAgentComplete = func(i int, task, finding string, d time.Duration) {
				if prev != nil {
					prev(i, task, finding, d)
				}
				cb.OnSubAgentComplete(i, task, finding, d)
			}
		}
		if cb.OnSubAgentError != nil {
			prev := out.OnSubAgentError
			out.OnSubAgentError = func(i int, task string, err error, d time.Duration) {
				if prev != nil {
					prev(i, task, err, d)
				}
				cb.OnSubAgentError(i, task, err, d)
			}
		}
		if cb.OnLimitReached != nil {
			prev := out.OnLimitReached
			out.OnLimitReached = func(limit int) {
				if prev != nil {
					prev(limit)
				}
				cb.OnLimitReached(limit)
			}
		}
		if cb.OnFinalize != nil {
			prev := out.OnFinalize
			out.OnFinalize = func(cited bool) {
				if prev != nil {
					prev(cited)
				}
				cb.OnFinalize(cited)
			}
		}
	}
	return out
}

// Controller drives the Planning, Delegating and Integrating loop for one
// query at a time. A Controller holds no per-run state and may be reused.
type Controller struct {
	Planner  Planner
	SubAgent SubAgent
	Citer    Citer

	// MaxIterations caps planner calls; 0 uses DefaultMaxIterations.
	MaxIterations int
	// MaxParallel bounds concurrent sub-tasks; 0 is unbounded.
	MaxParallel int

	Logger    *logging.Logger
	Callbacks Callbacks
}

func (c *Controller) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c *Controller) logger() *logging.Logger {
	if c.Logger == nil {
		return logging.Discard()
	}
	return c.Logger
}

func (c *Controller) validate() error {
	switch {
	case c.Planner == nil:
		return fmt.Errorf("research controller: no planner")
	case c.SubAgent == nil:
		return fmt.Errorf("research controller: no sub-agent")
	case c.Citer == nil:
		return fmt.Errorf("research controller: no citer")
	}
	return nil
}

// Run researches query and returns the final report. Planner and citation
// failures abort the run; sub-task failures are recorded in the log.
func (c *Controller) Run(ctx context.Context, query string) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, ErrEmptyQuery
	}
	if err := c.validate(); err != nil {
		return Result{}, err
	}

	limit := c.maxIterations()
	log := c.logger()
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "research.run", trace.WithAttributes(
		attribute.String("research.query", query),
		attribute.Int("research.max_iterations", limit),
	))
	defer span.End()

	log.Section("research process started")
	log.ResearchStart(query, limit)

	var res Result
	state := NewState(query)
	for i := 1; i <= limit; i++ {
		log.Section(fmt.Sprintf("iteration %d/%d", i, limit))
		log.IterationStart(i, limit)
		res.Iterations = i

		var done bool
		var err error
		state, done, err = c.iterate(ctx, i, state)
		if err != nil {
			span.RecordError(err)
			return Result{}, err
		}
		if done {
			log.Info("research_marked_complete")
			break
		}
		if i == limit {
			res.LimitReached = true
			log.LimitReached(limit)
			if c.Callbacks.OnLimitReached != nil {
				c.Callbacks.OnLimitReached(limit)
			}
		}
		log.Divider()
	}

	log.Section("final processing")
	report, cited, err := c.finalize(ctx, state)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	res.Report = report
	res.Cited = cited
	res.Log = state.Log()
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("research.iterations", res.Iterations),
		attribute.Bool("research.limit_reached", res.LimitReached),
		attribute.Bool("research.cited", res.Cited),
	)
	log.ResearchComplete(res.Iterations, res.LimitReached, res.Duration)
	return res, nil
}

// iterate runs one plan step and, unless the plan is done, one delegation step.
func (c *Controller) iterate(ctx context.Context, i int, state State) (State, bool, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "research.iteration",
		trace.WithAttributes(attribute.Int("research.iteration", i)))
	defer span.End()

	decision, err := c.plan(ctx, i, state)
	if err != nil {
		span.RecordError(err)
		return state, false, err
	}
	state = state.WithDecision(decision)
	if decision.Done() {
		return state, true, nil
	}

	c.logger().Delegation(decision.NextSteps)
	span.SetAttributes(attribute.Int("research.tasks", len(decision.NextSteps)))
	agent := &observedAgent{inner: c.SubAgent, iteration: i, log: c.logger(), cb: c.Callbacks}
	outcomes := Delegate(ctx, agent, decision.NextSteps, c.MaxParallel)
	return state.WithFindings(i, outcomes), false, nil
}

func (c *Controller) plan(ctx context.Context, i int, state State) (Decision, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "research.plan")
	defer span.End()

	log := c.logger()
	input := state.PlannerInput()
	log.Debug("planner_input", map[string]interface{}{"bytes": len(input)})

	d, err := c.Planner.Plan(ctx, input)
	if err != nil {
		span.RecordError(err)
		return Decision{}, fmt.Errorf("%w: iteration %d: %w", ErrPlanning, i, err)
	}
	log.PlanReceived(d.synthesis() != "", d.IsComplete, len(d.NextSteps))
	span.SetAttributes(
		attribute.Bool("plan.complete", d.IsComplete),
		attribute.Int("plan.next_steps", len(d.NextSteps)),
	)
	if c.Callbacks.OnPlan != nil {
		c.Callbacks.OnPlan(i, d)
	}
	return d, nil
}

// finalize returns the cited report, or the joined log when nothing was synthesized.
func (c *Controller) finalize(ctx context.Context, state State) (string, bool, error) {
	log := c.logger()
	if state.Report == "" {
		log.Warn("no_synthesis", map[string]interface{}{"fallback": "research_log"})
		if c.Callbacks.OnFinalize != nil {
			c.Callbacks.OnFinalize(false)
		}
		return strings.Join(state.Log(), "\n\n"), false, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "research.cite")
	defer span.End()

	log.Info("formatting_citations")
	cited, err := c.Citer.Cite(ctx, state.Report)
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("%w: %w", ErrCitation, err)
	}
	if c.Callbacks.OnFinalize != nil {
		c.Callbacks.OnFinalize(true)
	}
	return cited, true, nil
}

// observedAgent wraps a SubAgent with a span, logging and callbacks per task.
type observedAgent struct {
	inner     SubAgent
	iteration int
	log       *logging.Logger
	cb        Callbacks
}

func (a *observedAgent) Research(ctx context.Context, input string) (string, error) {
	task := strings.TrimPrefix(input, taskPrefix)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "research.subtask",
		trace.WithAttributes(attribute.String("research.task", task)))
	defer span.End()

	if a.cb.OnSubAgentStart != nil {
		a.cb.OnSubAgentStart(a.iteration, task)
	}
	start := time.Now()
	finding, err := a.call(ctx, input)
	elapsed := time.Since(start)

	a.log.SubAgentResult(task, elapsed, err)
	if err != nil {
		span.RecordError(err)
		if a.cb.OnSubAgentError != nil {
			a.cb.OnSubAgentError(a.iteration, task, err, elapsed)
		}
		return "", err
	}
	if a.cb.OnSubAgentComplete != nil {
		a.cb.OnSubAgentComplete(a.iteration, task, finding, elapsed)
	}
	return finding, nil
}

// call converts a panic in the wrapped agent into an error so observers see it.
func (a *observedAgent) call(ctx context.Context, input string) (finding string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sub-task panicked: %v", p)
		}
	}()
	return a.inner.Research(ctx, input)
}
