// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/researcher/internal/llm"
)

// Config represents the researcher configuration.
type Config struct {
	Agent     AgentConfig        `toml:"agent"`
	LLM       LLMConfig          `toml:"llm"`      // Default LLM settings
	Profiles  map[string]Profile `toml:"profiles"` // Per-role overrides: main, lead, subagent, citation
	Research  ResearchConfig     `toml:"research"`
	Web       WebConfig          `toml:"web"`
	Timeouts  TimeoutsConfig     `toml:"timeouts"` // Network operation timeouts
	Storage   StorageConfig      `toml:"storage"`  // Reports and session logs
	Telemetry TelemetryConfig    `toml:"telemetry"`
}

// AgentConfig contains agent identification settings.
type AgentConfig struct {
	ID        string `toml:"id"`
	Workspace string `toml:"workspace"`
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider     string `toml:"provider"`
	Model        string `toml:"model"`
	APIKeyEnv    string `toml:"api_key_env"`
	MaxTokens    int    `toml:"max_tokens"`
	BaseURL      string `toml:"base_url"`      // Custom API endpoint (OpenRouter, LiteLLM, Ollama, LMStudio)
	Thinking     string `toml:"thinking"`      // Thinking level: auto|off|low|medium|high
	MaxRetries   int    `toml:"max_retries"`   // Max retry attempts (default 5)
	RetryBackoff string `toml:"retry_backoff"` // Max backoff duration (default "60s")
}

// Profile overrides the default LLM for one role.
type Profile struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"`
	Thinking  string `toml:"thinking"`
}

// ResearchConfig tunes the research loop.
type ResearchConfig struct {
	MaxIterations int    `toml:"max_iterations"`
	MaxParallel   int    `toml:"max_parallel"`  // 0 = unbounded
	CitationMode  string `toml:"citation_mode"` // agent|local
	MaxToolTurns  int    `toml:"max_tool_turns"`
}

// WebConfig configures the search and fetch tools.
type WebConfig struct {
	SearchProvider    string  `toml:"search_provider"` // tavily|brave
	SearchAPIKeyEnv   string  `toml:"search_api_key_env"`
	MaxResults        int     `toml:"max_results"`
	FetchMaxBytes     int     `toml:"fetch_max_bytes"`
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 = unlimited
}

// TimeoutsConfig contains timeout settings for network operations.
type TimeoutsConfig struct {
	WebSearch int `toml:"web_search"` // web_search timeout in seconds (default 30)
	WebFetch  int `toml:"web_fetch"`  // web_fetch timeout in seconds (default 60)
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path         string `toml:"path"`          // Base directory for session logs
	ReportsDir   string `toml:"reports_dir"`   // Saved markdown reports
	SessionStore string `toml:"session_store"` // file|sqlite|none
}

// TelemetryConfig contains tracing settings.
type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string `toml:"endpoint"`
}

// Citation modes.
const (
	CitationAgent = "agent"
	CitationLocal = "local"
)

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		LLM: LLMConfig{
			MaxTokens: 4096,
		},
		Research: ResearchConfig{
			MaxIterations: 3,
			CitationMode:  CitationAgent,
			MaxToolTurns:  8,
		},
		Web: WebConfig{
			SearchProvider: "tavily",
			MaxResults:     5,
			FetchMaxBytes:  50000,
		},
		Timeouts: TimeoutsConfig{
			WebSearch: 30, // 30 seconds for web search
			WebFetch:  60, // 60 seconds for web fetch
		},
		Storage: StorageConfig{
			Path:         "~/.local/researcher",
			ReportsDir:   "reports",
			SessionStore: "file",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "researcher",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads researcher.toml from the current directory, or returns
// defaults when it does not exist.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	path := filepath.Join(cwd, "researcher.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	if c.Research.MaxIterations < 1 {
		return fmt.Errorf("research.max_iterations must be at least 1")
	}
	if c.Research.MaxParallel < 0 {
		return fmt.Errorf("research.max_parallel must not be negative")
	}
	switch c.Research.CitationMode {
	case CitationAgent, CitationLocal:
	default:
		return fmt.Errorf("unknown research.citation_mode %q", c.Research.CitationMode)
	}
	switch c.Web.SearchProvider {
	case "tavily", "brave":
	default:
		return fmt.Errorf("unknown web.search_provider %q", c.Web.SearchProvider)
	}
	switch c.Storage.SessionStore {
	case "file", "sqlite", "none", "":
	default:
		return fmt.Errorf("unknown storage.session_store %q", c.Storage.SessionStore)
	}
	if c.LLM.RetryBackoff != "" {
		if _, err := time.ParseDuration(c.LLM.RetryBackoff); err != nil {
			return fmt.Errorf("llm.retry_backoff: %w", err)
		}
	}
	return nil
}

// GetAPIKey returns the API key from the configured environment variable.
// If api_key_env is not set, uses the default env var for the provider.
func (c *Config) GetAPIKey() string {
	return apiKey(c.LLM)
}

func apiKey(l LLMConfig) string {
	envVar := l.KeyEnv()
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// ResolvedProvider returns the configured provider, inferring it from the
// model name when unset.
func (l LLMConfig) ResolvedProvider() string {
	if l.Provider != "" {
		return l.Provider
	}
	return llm.InferProviderFromModel(l.Model)
}

// KeyEnv returns the environment variable holding this LLM's API key.
func (l LLMConfig) KeyEnv() string {
	if l.APIKeyEnv != "" {
		return l.APIKeyEnv
	}
	return DefaultAPIKeyEnv(l.ResolvedProvider())
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	case "tavily":
		return "TAVILY_API_KEY"
	case "brave":
		return "BRAVE_API_KEY"
	default:
		return ""
	}
}

// GetSearchAPIKey returns the web search API key.
func (c *Config) GetSearchAPIKey() string {
	envVar := c.Web.SearchAPIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(c.Web.SearchProvider)
	}
	return os.Getenv(envVar)
}

// GetProfile returns the LLM config for a role profile.
// Falls back to default LLM config if profile not found.
func (c *Config) GetProfile(name string) LLMConfig {
	if name == "" {
		return c.LLM
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return c.LLM
	}
	// Fill in defaults from main LLM config
	result := c.LLM
	if profile.Model != "" {
		result.Model = profile.Model
		// A model override without a provider should not inherit a mismatched provider.
		result.Provider = profile.Provider
	}
	if profile.Provider != "" {
		result.Provider = profile.Provider
	}
	if profile.APIKeyEnv != "" {
		result.APIKeyEnv = profile.APIKeyEnv
	}
	if profile.MaxTokens != 0 {
		result.MaxTokens = profile.MaxTokens
	}
	if profile.BaseURL != "" {
		result.BaseURL = profile.BaseURL
	}
	if profile.Thinking != "" {
		result.Thinking = profile.Thinking
	}
	return result
}

// GetProfileAPIKey returns the API key for a specific profile.
func (c *Config) GetProfileAPIKey(profileName string) string {
	return apiKey(c.GetProfile(profileName))
}

// CheckAPIKeys reports every required key missing from the environment for
// the given roles. Providers without a default key variable are skipped.
func (c *Config) CheckAPIKeys(roles ...string) error {
	var missing []string
	seen := map[string]bool{}
	need := func(envVar string) {
		if envVar == "" || seen[envVar] {
			return
		}
		seen[envVar] = true
		if os.Getenv(envVar) == "" {
			missing = append(missing, envVar)
		}
	}
	if len(roles) == 0 {
		roles = []string{""}
	}
	for _, role := range roles {
		need(c.GetProfile(role).KeyEnv())
	}
	if c.Web.SearchAPIKeyEnv != "" {
		need(c.Web.SearchAPIKeyEnv)
	} else {
		need(DefaultAPIKeyEnv(c.Web.SearchProvider))
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing API keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RetryBackoffDuration returns the configured max backoff, or zero for the provider default.
func (l LLMConfig) RetryBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(l.RetryBackoff)
	return d
}

// ProviderConfig builds the LLM provider settings for a role profile.
func (c *Config) ProviderConfig(role string) llm.ProviderConfig {
	p := c.GetProfile(role)
	return llm.ProviderConfig{
		Provider:  p.ResolvedProvider(),
		Model:     p.Model,
		APIKey:    apiKey(p),
		MaxTokens: p.MaxTokens,
		BaseURL:   p.BaseURL,
		Thinking:  llm.ThinkingConfig{Level: llm.ParseThinkingLevel(p.Thinking)},
		RetryConfig: llm.RetryConfig{
			MaxRetries: p.MaxRetries,
			MaxBackoff: p.RetryBackoffDuration(),
		},
	}
}

// ProviderConfigs builds provider settings for every configured profile.
func (c *Config) ProviderConfigs() map[string]llm.ProviderConfig {
	out := make(map[string]llm.ProviderConfig, len(c.Profiles))
	for name := range c.Profiles {
		out[name] = c.ProviderConfig(name)
	}
	return out
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// WebSearchTimeout returns the search timeout as a duration.
func (c *Config) WebSearchTimeout() time.Duration {
	return time.Duration(c.Timeouts.WebSearch) * time.Second
}

// WebFetchTimeout returns the fetch timeout as a duration.
func (c *Config) WebFetchTimeout() time.Duration {
	return time.Duration(c.Timeouts.WebFetch) * time.Second
}
