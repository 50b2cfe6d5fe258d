package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"
	"charm.land/fantasy/providers/google"
	"charm.land/fantasy/providers/openai"
	"charm.land/fantasy/providers/openaicompat"
)

// Retry configuration defaults
const (
	defaultMaxRetries  = 5
	defaultInitBackoff = 1 * time.Second
	defaultMaxBackoff  = 60 * time.Second
	backoffFactor      = 2.0
)

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// isRateLimitError checks if the error is a rate limit error.
func isRateLimitError(err error) bool {
	return containsAny(err, "rate limit", "too many requests", "429", "overloaded", "capacity")
}

// isServerError checks if the error is a transient server error (5xx).
func isServerError(err error) bool {
	return containsAny(err, "500", "502", "503", "504",
		"internal server error", "bad gateway", "service unavailable",
		"gateway timeout", "temporarily unavailable")
}

func isRetryableError(err error) bool {
	return isRateLimitError(err) || isServerError(err)
}

// isBillingError checks if the error is a billing/quota error (fatal, no retry).
func isBillingError(err error) bool {
	return containsAny(err, "billing", "payment", "credits", "quota exceeded",
		"insufficient", "402", "subscription")
}

// FantasyAdapter wraps a fantasy.LanguageModel to implement Provider.
type FantasyAdapter struct {
	model        fantasy.LanguageModel
	maxTokens    int
	providerName string
	thinking     ThinkingConfig
	retry        RetryConfig
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewFantasyAdapter creates an adapter with full configuration.
func NewFantasyAdapter(model fantasy.LanguageModel, maxTokens int, providerName string, thinking ThinkingConfig, retry RetryConfig) *FantasyAdapter {
	return &FantasyAdapter{
		model:        model,
		maxTokens:    maxTokens,
		providerName: providerName,
		thinking:     thinking,
		retry:        retry,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (a *FantasyAdapter) retrySettings() (maxRetries int, initBackoff, maxBackoff time.Duration) {
	maxRetries = a.retry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	initBackoff = a.retry.InitBackoff
	if initBackoff <= 0 {
		initBackoff = defaultInitBackoff
	}
	maxBackoff = a.retry.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	return
}

// toPrompt converts our messages into a fantasy prompt.
func toPrompt(messages []Message) fantasy.Prompt {
	var prompt fantasy.Prompt
	for _, m := range messages {
		switch m.Role {
		case "system":
			prompt = append(prompt, fantasy.NewSystemMessage(m.Content))
		case "user":
			prompt = append(prompt, fantasy.NewUserMessage(m.Content))
		case "assistant":
			var parts []fantasy.MessagePart
			if m.Content != "" {
				parts = append(parts, fantasy.TextPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Args)
				parts = append(parts, fantasy.ToolCallPart{
					ToolCallID: tc.ID,
					ToolName:   tc.Name,
					Input:      string(argsJSON),
				})
			}
			prompt = append(prompt, fantasy.Message{
				Role:    fantasy.MessageRoleAssistant,
				Content: parts,
			})
		case "tool":
			prompt = append(prompt, fantasy.Message{
				Role: fantasy.MessageRoleTool,
				Content: []fantasy.MessagePart{
					fantasy.ToolResultPart{
						ToolCallID: m.ToolCallID,
						Output:     fantasy.ToolResultOutputContentText{Text: m.Content},
					},
				},
			})
		}
	}
	return prompt
}

// Chat implements Provider using fantasy's Generate method.
func (a *FantasyAdapter) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var tools []fantasy.Tool
	for _, t := range req.Tools {
		tools = append(tools, fantasy.FunctionTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	maxTokens := int64(a.maxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	call := fantasy.Call{
		Prompt:          toPrompt(req.Messages),
		Tools:           tools,
		MaxOutputTokens: &maxTokens,
	}
	if level := ResolveThinkingLevel(a.thinking, req.Messages, req.Tools); level != ThinkingOff {
		call.ProviderOptions = a.buildThinkingOptions(level)
	}

	maxRetries, backoff, maxBackoff := a.retrySettings()
	var resp *fantasy.Response
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err = a.model.Generate(ctx, call)
		if err == nil {
			break
		}
		if isBillingError(err) {
			return nil, fmt.Errorf("billing/payment error (fatal): %w", err)
		}
		if !isRetryableError(err) {
			return nil, fmt.Errorf("fantasy generate failed: %w", err)
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("fantasy generate failed after %d retries: %w", maxRetries, err)
		}
		if err := a.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	result := &ChatResponse{
		StopReason:   string(resp.FinishReason),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		Model:        a.model.Model(),
	}
	for _, content := range resp.Content {
		switch c := content.(type) {
		case *fantasy.TextContent:
			result.Content += c.Text
		case fantasy.TextContent:
			result.Content += c.Text
		case *fantasy.ReasoningContent:
			result.Thinking += c.Text
		case fantasy.ReasoningContent:
			result.Thinking += c.Text
		case *fantasy.ToolCallContent:
			result.ToolCalls = append(result.ToolCalls, toolCall(c.ToolCallID, c.ToolName, c.Input))
		case fantasy.ToolCallContent:
			result.ToolCalls = append(result.ToolCalls, toolCall(c.ToolCallID, c.ToolName, c.Input))
		}
	}
	return result, nil
}

func toolCall(id, name, input string) ToolCallResponse {
	var args map[string]interface{}
	_ = json.Unmarshal([]byte(input), &args)
	return ToolCallResponse{ID: id, Name: name, Args: args}
}

// buildThinkingOptions creates provider-specific thinking options.
func (a *FantasyAdapter) buildThinkingOptions(level ThinkingLevel) fantasy.ProviderOptions {
	switch a.providerName {
	case "anthropic":
		budget := ThinkingLevelToAnthropicBudget(level, a.thinking.BudgetTokens)
		if budget > 0 {
			return anthropic.NewProviderOptions(&anthropic.ProviderOptions{
				Thinking: &anthropic.ThinkingProviderOption{
					BudgetTokens: budget,
				},
			})
		}
	case "openai":
		var effort openai.ReasoningEffort
		switch level {
		case ThinkingHigh:
			effort = openai.ReasoningEffortHigh
		case ThinkingMedium:
			effort = openai.ReasoningEffortMedium
		case ThinkingLow:
			effort = openai.ReasoningEffortLow
		default:
			effort = openai.ReasoningEffortMinimal
		}
		return openai.NewProviderOptions(&openai.ProviderOptions{
			ReasoningEffort: &effort,
		})
	}
	return nil
}

// InferProviderFromModel returns the provider name based on model name patterns.
func InferProviderFromModel(model string) string {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "claude"):
		return "anthropic"
	case strings.HasPrefix(model, "gpt-"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"),
		strings.HasPrefix(model, "chatgpt"):
		return "openai"
	case strings.HasPrefix(model, "gemini"), strings.HasPrefix(model, "gemma"):
		return "google"
	case strings.HasPrefix(model, "mistral"),
		strings.HasPrefix(model, "mixtral"),
		strings.HasPrefix(model, "codestral"):
		return "mistral"
	case strings.HasPrefix(model, "llama"):
		return "groq"
	}
	return ""
}

// createFantasyProvider creates a fantasy provider for the given name, key and optional base URL.
func createFantasyProvider(providerName, apiKey, baseURL string) (fantasy.Provider, error) {
	compat := func(url string) (fantasy.Provider, error) {
		return openaicompat.New(
			openaicompat.WithBaseURL(url),
			openaicompat.WithAPIKey(apiKey),
			openaicompat.WithName(providerName),
		)
	}
	switch providerName {
	case "anthropic":
		if baseURL != "" {
			return compat(baseURL)
		}
		return anthropic.New(anthropic.WithAPIKey(apiKey))
	case "openai":
		if baseURL != "" {
			return compat(baseURL)
		}
		return openai.New(openai.WithAPIKey(apiKey))
	case "google":
		return google.New(google.WithGeminiAPIKey(apiKey))
	case "groq":
		if baseURL == "" {
			baseURL = "https://api.groq.com/openai/v1"
		}
		return compat(baseURL)
	case "mistral":
		if baseURL == "" {
			baseURL = "https://api.mistral.ai/v1"
		}
		return compat(baseURL)
	case "openai-compat", "openrouter", "litellm", "ollama", "lmstudio":
		if baseURL == "" {
			return nil, fmt.Errorf("base_url is required for provider %s", providerName)
		}
		return compat(baseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// NewProvider creates a fantasy-backed provider. An empty Provider is inferred from the model.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" && cfg.Model != "" {
		cfg.Provider = InferProviderFromModel(cfg.Model)
		if cfg.Provider == "" {
			return nil, fmt.Errorf("cannot determine provider for model %q; set provider explicitly", cfg.Model)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	fp, err := createFantasyProvider(cfg.Provider, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Provider, err)
	}
	model, err := fp.LanguageModel(context.Background(), cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", cfg.Model, err)
	}
	return NewFantasyAdapter(model, cfg.MaxTokens, cfg.Provider, cfg.Thinking, cfg.RetryConfig), nil
}
