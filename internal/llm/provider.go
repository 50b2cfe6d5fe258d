// Package llm provides the model-provider abstraction used by every agent role.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Message is a single conversation turn.
type Message struct {
	Role       string             `json:"role"` // system, user, assistant, tool
	Content    string             `json:"content"`
	ToolCalls  []ToolCallResponse `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
}

// ToolDef describes a tool the model may call.
type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCallResponse is a tool invocation requested by the model.
type ToolCallResponse struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ChatRequest is a provider-agnostic completion request.
type ChatRequest struct {
	Messages  []Message
	Tools     []ToolDef
	MaxTokens int
}

// ChatResponse is a provider-agnostic completion result.
type ChatResponse struct {
	Content      string
	Thinking     string
	ToolCalls    []ToolCallResponse
	StopReason   string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Provider is implemented by every model backend.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ThinkingLevel controls extended reasoning.
type ThinkingLevel string

const (
	ThinkingOff    ThinkingLevel = "off"
	ThinkingAuto   ThinkingLevel = "auto"
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
)

// ThinkingConfig configures reasoning for providers that support it.
type ThinkingConfig struct {
	Level        ThinkingLevel
	BudgetTokens int64
}

// ParseThinkingLevel converts a config string into a level. Unknown values map to auto.
func ParseThinkingLevel(s string) ThinkingLevel {
	switch ThinkingLevel(strings.ToLower(strings.TrimSpace(s))) {
	case ThinkingOff, "none", "false":
		return ThinkingOff
	case ThinkingLow:
		return ThinkingLow
	case ThinkingMedium:
		return ThinkingMedium
	case ThinkingHigh:
		return ThinkingHigh
	default:
		return ThinkingAuto
	}
}

// ResolveThinkingLevel picks the effective level for a request.
// Auto keeps reasoning off for tool-driven turns and scales with prompt size otherwise.
func ResolveThinkingLevel(cfg ThinkingConfig, messages []Message, tools []ToolDef) ThinkingLevel {
	if cfg.Level != ThinkingAuto && cfg.Level != "" {
		return cfg.Level
	}
	if len(tools) > 0 {
		return ThinkingOff
	}
	size := 0
	for _, m := range messages {
		size += len(m.Content)
	}
	switch {
	case size > 20000:
		return ThinkingHigh
	case size > 4000:
		return ThinkingMedium
	default:
		return ThinkingOff
	}
}

// ThinkingLevelToAnthropicBudget maps a level to an Anthropic thinking budget.
// An explicit budget wins over the level defaults.
func ThinkingLevelToAnthropicBudget(level ThinkingLevel, explicit int64) int64 {
	if explicit > 0 {
		return explicit
	}
	switch level {
	case ThinkingHigh:
		return 16000
	case ThinkingMedium:
		return 8000
	case ThinkingLow:
		return 2048
	default:
		return 0
	}
}

// RetryConfig tunes transient-error retries.
type RetryConfig struct {
	MaxRetries  int
	InitBackoff time.Duration
	MaxBackoff  time.Duration
}

// ProviderConfig configures NewProvider.
type ProviderConfig struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	BaseURL     string
	Thinking    ThinkingConfig
	RetryConfig RetryConfig
}

// Validate checks required fields.
func (c ProviderConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.APIKey == "" && !keylessProvider(c.Provider) {
		return fmt.Errorf("api key is required for provider %s", c.Provider)
	}
	return nil
}

// ApplyDefaults fills unset optional fields.
func (c *ProviderConfig) ApplyDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Thinking.Level == "" {
		c.Thinking.Level = ThinkingAuto
	}
}

func keylessProvider(name string) bool {
	switch name {
	case "ollama", "lmstudio", "litellm", "openai-compat":
		return true
	}
	return false
}

// ProviderFactory returns the provider configured for a named profile.
type ProviderFactory interface {
	ForProfile(name string) (Provider, error)
}

// SingleProviderFactory serves one provider for every profile.
type SingleProviderFactory struct {
	provider Provider
}

// NewSingleProviderFactory wraps a provider as a factory.
func NewSingleProviderFactory(p Provider) *SingleProviderFactory {
	return &SingleProviderFactory{provider: p}
}

// ForProfile implements ProviderFactory.
func (f *SingleProviderFactory) ForProfile(string) (Provider, error) {
	if f.provider == nil {
		return nil, fmt.Errorf("no provider configured")
	}
	return f.provider, nil
}

// ProfileFactory builds one provider per profile config, falling back to a default.
type ProfileFactory struct {
	fallback ProviderConfig
	profiles map[string]ProviderConfig
	build    func(ProviderConfig) (Provider, error)
	cache    map[string]Provider
}

// NewProfileFactory creates a factory. Profiles absent from the map use fallback.
func NewProfileFactory(fallback ProviderConfig, profiles map[string]ProviderConfig) *ProfileFactory {
	return &ProfileFactory{
		fallback: fallback,
		profiles: profiles,
		build:    NewProvider,
		cache:    make(map[string]Provider),
	}
}

// ForProfile implements ProviderFactory. Not safe for concurrent first use;
// callers resolve every profile during setup.
func (f *ProfileFactory) ForProfile(name string) (Provider, error) {
	if p, ok := f.cache[name]; ok {
		return p, nil
	}
	cfg, ok := f.profiles[name]
	if !ok {
		cfg = f.fallback
	}
	p, err := f.build(cfg)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	f.cache[name] = p
	return p, nil
}
