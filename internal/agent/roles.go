package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/researcher/internal/llm"
	"github.com/vinayprograms/researcher/internal/research"
	"github.com/vinayprograms/researcher/internal/tools"
)

// Role names, also used as provider profile names.
const (
	RoleMain     = "main"
	RoleLead     = "lead"
	RoleSubAgent = "subagent"
	RoleCitation = "citation"
)

// LeadOutput is the lead researcher's structured output.
type LeadOutput struct {
	Synthesis  *string  `json:"synthesis" jsonschema:"description=A cumulative synthesis of all research findings so far. Be comprehensive. Null if there is nothing to synthesize yet."`
	IsComplete *bool    `json:"is_complete" jsonschema:"required,description=True ONLY when the synthesis is a comprehensive final answer and no more research is needed."`
	NextSteps  []string `json:"next_steps" jsonschema:"description=Specific parallelizable and distinct research tasks for sub-agents. Empty or null when research is complete."`
}

// Decision validates the output and converts it for the research loop.
func (o LeadOutput) Decision() (research.Decision, error) {
	if o.IsComplete == nil {
		return research.Decision{}, fmt.Errorf("missing is_complete")
	}
	return research.Decision{
		Synthesis:  o.Synthesis,
		IsComplete: *o.IsComplete,
		NextSteps:  o.NextSteps,
	}, nil
}

// MainOutput is the conversational front desk's structured output.
type MainOutput struct {
	DirectResponse         *string `json:"direct_response" jsonschema:"description=A direct answer when research is not needed."`
	ClarificationQuestions *string `json:"clarification_questions" jsonschema:"description=Numbered clarification questions to improve the research task."`
	NeedsResearch          bool    `json:"needs_research" jsonschema:"required,description=Whether this request needs the research team."`
	ResearchTask           *string `json:"research_task" jsonschema:"description=A clear and complete research task for the lead researcher."`
}

func mustSchema[T any]() map[string]interface{} {
	s, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// LeadRole returns the planner role.
func LeadRole(now time.Time) Role[research.Decision] {
	return Role[research.Decision]{
		Name:         RoleLead,
		Instructions: leadPrompt(now),
		Schema:       mustSchema[LeadOutput](),
		Parse: func(raw string) (research.Decision, error) {
			out, err := DecodeJSON[LeadOutput](raw)
			if err != nil {
				return research.Decision{}, err
			}
			return out.Decision()
		},
	}
}

// SubAgentRole returns the tool-using research role.
func SubAgentRole(now time.Time, reg *tools.Registry, maxTurns int) Role[string] {
	return Role[string]{
		Name:         RoleSubAgent,
		Instructions: subAgentPrompt(now),
		Tools:        reg,
		MaxTurns:     maxTurns,
		Parse: func(raw string) (string, error) {
			if strings.TrimSpace(raw) == "" {
				return "", fmt.Errorf("empty findings")
			}
			return raw, nil
		},
	}
}

// CitationRole returns the LLM citation role.
func CitationRole() Role[string] {
	return Role[string]{
		Name:         RoleCitation,
		Instructions: citationPrompt,
		Parse: func(raw string) (string, error) {
			raw = strings.TrimPrefix(raw, "<synthesized_text>\n")
			raw = strings.TrimSuffix(raw, "\n</synthesized_text>")
			if strings.TrimSpace(raw) == "" {
				return "", fmt.Errorf("empty report")
			}
			return raw, nil
		},
	}
}

// MainRole returns the conversational role.
func MainRole() Role[MainOutput] {
	return Role[MainOutput]{
		Name:         RoleMain,
		Instructions: mainPrompt,
		Schema:       mustSchema[MainOutput](),
		Parse:        DecodeJSON[MainOutput],
	}
}

// Planner adapts the lead role to research.Planner.
type Planner struct {
	provider llm.Provider
	now      func() time.Time
}

// NewPlanner creates a planner backed by p.
func NewPlanner(p llm.Provider) *Planner {
	return &Planner{provider: p, now: time.Now}
}

// Plan implements research.Planner.
func (p *Planner) Plan(ctx context.Context, input string) (research.Decision, error) {
	return Invoke(ctx, p.provider, LeadRole(p.now()), input)
}

// SubAgent adapts the sub-agent role to research.SubAgent. Each call runs
// its own conversation, so one SubAgent serves concurrent tasks.
type SubAgent struct {
	provider llm.Provider
	tools    *tools.Registry
	maxTurns int
	now      func() time.Time
}

// NewSubAgent creates a sub-agent backed by p with the given tools.
func NewSubAgent(p llm.Provider, reg *tools.Registry, maxTurns int) *SubAgent {
	return &SubAgent{provider: p, tools: reg, maxTurns: maxTurns, now: time.Now}
}

// Research implements research.SubAgent.
func (s *SubAgent) Research(ctx context.Context, input string) (string, error) {
	return Invoke(ctx, s.provider, SubAgentRole(s.now(), s.tools, s.maxTurns), input)
}

// Citer adapts the citation role to research.Citer.
type Citer struct {
	provider llm.Provider
}

// NewCiter creates an LLM-backed citer.
func NewCiter(p llm.Provider) *Citer {
	return &Citer{provider: p}
}

// Cite implements research.Citer.
func (c *Citer) Cite(ctx context.Context, text string) (string, error) {
	return Invoke(ctx, c.provider, CitationRole(), "<synthesized_text>\n"+text+"\n</synthesized_text>")
}
