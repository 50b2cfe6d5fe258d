// Package agent invokes LLM-backed roles: instructions, optional tools, and a
// typed output parser behind one generic entry point.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vinayprograms/researcher/internal/llm"
	"github.com/vinayprograms/researcher/internal/tools"
)

// ErrMaxTurns is returned when a tool loop does not produce a final answer in time.
var ErrMaxTurns = errors.New("agent exceeded max tool turns")

const defaultMaxTurns = 8

// Role describes one agent: its instructions, optional tools, and how to
// parse its final message into T.
type Role[T any] struct {
	Name         string
	Instructions string
	Tools        *tools.Registry
	MaxTurns     int
	// Schema, when set, is appended to the instructions as the required output shape.
	Schema map[string]interface{}
	Parse  func(raw string) (T, error)
}

// ToolEvent reports a tool call made during a role invocation.
type ToolEvent struct {
	Role string
	Tool string
	Args map[string]interface{}
	Err  error
}

type toolHookKey struct{}

// WithToolHook attaches a callback observing tool calls made under ctx.
func WithToolHook(ctx context.Context, fn func(ToolEvent)) context.Context {
	return context.WithValue(ctx, toolHookKey{}, fn)
}

func toolHook(ctx context.Context) func(ToolEvent) {
	fn, _ := ctx.Value(toolHookKey{}).(func(ToolEvent))
	return fn
}

// Invoke runs role against a single user input.
func Invoke[T any](ctx context.Context, p llm.Provider, role Role[T], input string) (T, error) {
	return Converse(ctx, p, role, []llm.Message{{Role: "user", Content: input}})
}

// Converse runs role against a conversation history.
func Converse[T any](ctx context.Context, p llm.Provider, role Role[T], history []llm.Message) (T, error) {
	var zero T
	if role.Parse == nil {
		return zero, fmt.Errorf("%s: role has no output parser", role.Name)
	}

	system := role.Instructions
	if role.Schema != nil {
		system += schemaInstructions(role.Schema)
	}
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	messages = append(messages, history...)

	raw, err := runLoop(ctx, p, role.Name, role.Tools, role.MaxTurns, messages)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", role.Name, err)
	}
	out, err := role.Parse(raw)
	if err != nil {
		return zero, fmt.Errorf("%s: invalid output: %w", role.Name, err)
	}
	return out, nil
}

// runLoop drives the chat/tool loop until the model answers without tool calls.
func runLoop(ctx context.Context, p llm.Provider, name string, reg *tools.Registry, maxTurns int, messages []llm.Message) (string, error) {
	var toolDefs []llm.ToolDef
	if reg != nil {
		toolDefs = reg.Definitions()
	}
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	hook := toolHook(ctx)

	for turn := 0; turn <= maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		req := llm.ChatRequest{Messages: messages, Tools: toolDefs}
		// Last turn: withhold tools so the model has to answer.
		if turn == maxTurns {
			req.Tools = nil
		}
		resp, err := p.Chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("LLM error: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}
		if turn == maxTurns {
			break
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result, err := executeTool(ctx, reg, tc)
			if hook != nil {
				hook(ToolEvent{Role: name, Tool: tc.Name, Args: tc.Args, Err: err})
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: tc.ID,
				Content:    formatToolResult(result, err),
			})
		}
	}
	return "", ErrMaxTurns
}

func executeTool(ctx context.Context, reg *tools.Registry, tc llm.ToolCallResponse) (interface{}, error) {
	if reg == nil {
		return nil, fmt.Errorf("no tool registry")
	}
	tool := reg.Get(tc.Name)
	if tool == nil {
		return nil, fmt.Errorf("tool not found: %s", tc.Name)
	}
	return tool.Execute(ctx, tc.Args)
}

func formatToolResult(result interface{}, err error) string {
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if s, ok := result.(string); ok {
		return s
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}
