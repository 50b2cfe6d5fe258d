package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/researcher/internal/llm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "researcher.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	if cfg.Research.MaxIterations != 3 {
		t.Errorf("expected 3 max iterations, got %d", cfg.Research.MaxIterations)
	}
	if cfg.Research.CitationMode != CitationAgent {
		t.Errorf("expected agent citation mode, got %s", cfg.Research.CitationMode)
	}
	if cfg.Web.MaxResults != 5 || cfg.Web.SearchProvider != "tavily" {
		t.Errorf("unexpected web defaults: %+v", cfg.Web)
	}
	if cfg.WebSearchTimeout() != 30*time.Second || cfg.WebFetchTimeout() != 60*time.Second {
		t.Errorf("unexpected timeouts: %+v", cfg.Timeouts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "anthropic"
model = "claude-sonnet-4-20250514"
max_tokens = 8192
thinking = "medium"
retry_backoff = "30s"

[profiles.subagent]
model = "gpt-4o-mini"

[profiles.citation]
max_tokens = 2048

[research]
max_iterations = 5
max_parallel = 4
citation_mode = "local"

[web]
search_provider = "brave"

[storage]
session_store = "sqlite"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Research.MaxIterations != 5 || cfg.Research.MaxParallel != 4 {
		t.Errorf("unexpected research config: %+v", cfg.Research)
	}
	// Unset fields keep defaults.
	if cfg.Research.MaxToolTurns != 8 || cfg.Web.MaxResults != 5 {
		t.Errorf("defaults lost: %+v %+v", cfg.Research, cfg.Web)
	}
	if cfg.Storage.SessionStore != "sqlite" {
		t.Errorf("expected sqlite store, got %s", cfg.Storage.SessionStore)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", "[llm\nmodel=", "failed to parse config"},
		{"bad iterations", "[research]\nmax_iterations = 0", "max_iterations"},
		{"bad citation mode", "[research]\ncitation_mode = \"magic\"", "citation_mode"},
		{"bad search provider", "[web]\nsearch_provider = \"bing\"", "search_provider"},
		{"bad store", "[storage]\nsession_store = \"redis\"", "session_store"},
		{"bad backoff", "[llm]\nretry_backoff = \"soon\"", "retry_backoff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDefault_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if cfg.Research.MaxIterations != 3 {
		t.Error("expected defaults when researcher.toml is absent")
	}
}

func TestGetProfile(t *testing.T) {
	cfg := New()
	cfg.LLM = LLMConfig{Provider: "anthropic", Model: "claude-sonnet-4", MaxTokens: 4096, Thinking: "auto"}
	cfg.Profiles = map[string]Profile{
		"subagent": {Model: "gpt-4o-mini"},
		"citation": {MaxTokens: 1024, Thinking: "off"},
		"lead":     {Provider: "openai", Model: "o3", APIKeyEnv: "LEAD_KEY"},
	}

	if got := cfg.GetProfile("unknown"); got != cfg.LLM {
		t.Errorf("unknown profile should fall back, got %+v", got)
	}

	sub := cfg.GetProfile("subagent")
	if sub.Model != "gpt-4o-mini" || sub.ResolvedProvider() != "openai" || sub.MaxTokens != 4096 {
		t.Errorf("unexpected subagent profile: %+v", sub)
	}

	cite := cfg.GetProfile("citation")
	if cite.Provider != "anthropic" || cite.Model != "claude-sonnet-4" || cite.MaxTokens != 1024 || cite.Thinking != "off" {
		t.Errorf("unexpected citation profile: %+v", cite)
	}

	lead := cfg.GetProfile("lead")
	if lead.KeyEnv() != "LEAD_KEY" {
		t.Errorf("expected LEAD_KEY, got %s", lead.KeyEnv())
	}
}

func TestProviderConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	cfg := New()
	cfg.LLM = LLMConfig{Model: "claude-sonnet-4", MaxTokens: 2000, Thinking: "high", MaxRetries: 2, RetryBackoff: "10s"}

	got := cfg.ProviderConfig("lead")
	want := llm.ProviderConfig{
		Provider:    "anthropic",
		Model:       "claude-sonnet-4",
		APIKey:      "sk-test",
		MaxTokens:   2000,
		Thinking:    llm.ThinkingConfig{Level: llm.ThinkingHigh},
		RetryConfig: llm.RetryConfig{MaxRetries: 2, MaxBackoff: 10 * time.Second},
	}
	if got != want {
		t.Errorf("ProviderConfig mismatch:\n got %+v\nwant %+v", got, want)
	}

	cfg.Profiles = map[string]Profile{"main": {}}
	if configs := cfg.ProviderConfigs(); len(configs) != 1 || configs["main"].Model != "claude-sonnet-4" {
		t.Errorf("unexpected profile configs: %+v", configs)
	}
}

func TestCheckAPIKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TAVILY_API_KEY", "")

	cfg := New()
	cfg.LLM = LLMConfig{Provider: "anthropic", Model: "claude-sonnet-4"}
	cfg.Profiles = map[string]Profile{"subagent": {Model: "gpt-4o"}}

	err := cfg.CheckAPIKeys("lead", "subagent", "citation")
	if err == nil {
		t.Fatal("expected missing keys error")
	}
	if want := "missing API keys: ANTHROPIC_API_KEY, OPENAI_API_KEY, TAVILY_API_KEY"; err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}

	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("OPENAI_API_KEY", "o")
	t.Setenv("TAVILY_API_KEY", "t")
	if err := cfg.CheckAPIKeys("lead", "subagent"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	// Local providers need no key.
	cfg.LLM = LLMConfig{Provider: "ollama", Model: "llama3"}
	cfg.Profiles = nil
	if err := cfg.CheckAPIKeys(); err != nil {
		t.Errorf("expected no error for ollama, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x"); got != filepath.Join(home, "x") {
		t.Errorf("got %s", got)
	}
	if got := ExpandPath("/abs"); got != "/abs" {
		t.Errorf("got %s", got)
	}
}
