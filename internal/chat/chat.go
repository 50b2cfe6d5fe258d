// Package chat implements the conversational front desk: each user turn is
// answered directly, with clarification questions, or by delegating a
// research task.
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vinayprograms/researcher/internal/agent"
	"github.com/vinayprograms/researcher/internal/llm"
	"github.com/vinayprograms/researcher/internal/logging"
)

// ErrNoAction is returned when the model picks none of the three actions.
var ErrNoAction = errors.New("assistant produced no valid response")

// Researcher runs a research task to a final report.
type Researcher interface {
	Research(ctx context.Context, task string) (string, error)
}

// ResearchFunc adapts a function to Researcher.
type ResearchFunc func(ctx context.Context, task string) (string, error)

// Research implements Researcher.
func (f ResearchFunc) Research(ctx context.Context, task string) (string, error) {
	return f(ctx, task)
}

// Kind identifies how a turn was answered.
type Kind string

const (
	KindDirect        Kind = "direct"
	KindClarification Kind = "clarification"
	KindResearch      Kind = "research"
)

// Reply is the outcome of one turn.
type Reply struct {
	Kind Kind
	Text string
	// Task is the delegated research task for KindResearch.
	Task string
}

// Conversation holds the history of one chat.
type Conversation struct {
	provider   llm.Provider
	researcher Researcher
	logger     *logging.Logger
	history    []llm.Message
}

// New creates a conversation. A nil logger discards output.
func New(p llm.Provider, r Researcher, logger *logging.Logger) *Conversation {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Conversation{provider: p, researcher: r, logger: logger.WithComponent("chat")}
}

// History returns a copy of the conversation so far.
func (c *Conversation) History() []llm.Message {
	return append([]llm.Message(nil), c.history...)
}

// Turn answers one user message. On any failure the history is rolled back
// to its state before the turn, so the user can retry.
func (c *Conversation) Turn(ctx context.Context, input string) (Reply, error) {
	mark := len(c.history)
	rollback := func() { c.history = c.history[:mark] }

	c.history = append(c.history, llm.Message{Role: "user", Content: input})
	out, err := agent.Converse(ctx, c.provider, agent.MainRole(), c.history)
	if err != nil {
		rollback()
		return Reply{}, err
	}

	switch {
	case out.NeedsResearch && nonEmpty(out.ResearchTask):
		task := *out.ResearchTask
		c.appendDecision(out)
		c.logger.Info("delegating research", map[string]interface{}{"task": task})
		report, err := c.researcher.Research(ctx, task)
		if err != nil {
			rollback()
			return Reply{}, fmt.Errorf("research failed: %w", err)
		}
		c.history = append(c.history, llm.Message{Role: "assistant", Content: report})
		return Reply{Kind: KindResearch, Text: report, Task: task}, nil

	case nonEmpty(out.ClarificationQuestions):
		c.appendDecision(out)
		return Reply{Kind: KindClarification, Text: *out.ClarificationQuestions}, nil

	case nonEmpty(out.DirectResponse):
		c.appendDecision(out)
		return Reply{Kind: KindDirect, Text: *out.DirectResponse}, nil
	}

	rollback()
	return Reply{}, ErrNoAction
}

// appendDecision keeps the structured answer in the history so later turns
// see what was asked or delegated.
func (c *Conversation) appendDecision(out agent.MainOutput) {
	b, err := json.Marshal(out)
	if err != nil {
		return
	}
	c.history = append(c.history, llm.Message{Role: "assistant", Content: string(b)})
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// REPL reads user lines from in until EOF or "exit" and writes replies to
// out. Turn errors are logged and the loop continues.
func (c *Conversation) REPL(ctx context.Context, in io.Reader, out io.Writer) error {
	c.logger.Info("starting chat, type 'exit' to quit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			c.logger.Info("goodbye")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		reply, err := c.Turn(ctx, line)
		if err != nil {
			c.logger.Error("turn failed", map[string]interface{}{"error": err.Error()})
			c.logger.Divider()
			continue
		}
		if reply.Kind == KindResearch {
			fmt.Fprintf(out, "Assistant: Here is the final research report:\n\n%s\n", reply.Text)
		} else {
			fmt.Fprintf(out, "Assistant: %s\n", reply.Text)
		}
		c.logger.Divider()
	}
}
