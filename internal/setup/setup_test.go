package setup

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vinayprograms/researcher/internal/config"
	"github.com/vinayprograms/researcher/internal/credentials"
)

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	back  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
)

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWizard_Flow(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "researcher.toml"), filepath.Join(dir, "creds", "credentials.toml"))

	// welcome -> provider (anthropic) -> model prefilled
	m = press(t, m, enter, enter)
	if m.step != StepModel || m.textInput.Value() != "claude-sonnet-4-5" {
		t.Fatalf("expected prefilled model step, got step %d value %q", m.step, m.textInput.Value())
	}
	m = press(t, m, enter, typed("sk-ant"), enter)
	if m.step != StepSearchProvider || m.answers.APIKey != "sk-ant" {
		t.Fatalf("unexpected state after key: step %d answers %+v", m.step, m.answers)
	}
	// brave, key, local citations
	m = press(t, m, down, enter, typed("bsk"), enter, down, enter)
	if m.step != StepConfirm {
		t.Fatalf("expected confirm step, got %d", m.step)
	}
	want := Answers{
		Provider: "anthropic", Model: "claude-sonnet-4-5", APIKey: "sk-ant",
		SearchProvider: "brave", SearchAPIKey: "bsk", CitationMode: config.CitationLocal,
	}
	if m.Answers() != want {
		t.Errorf("answers = %+v, want %+v", m.Answers(), want)
	}
	if !strings.Contains(m.View(), "anthropic, brave") {
		t.Errorf("confirm view missing keys summary:\n%s", m.View())
	}

	next, cmd := m.Update(enter)
	if cmd == nil {
		t.Fatal("confirm should return a write command")
	}
	final, _ := next.(Model).Update(cmd())
	m = final.(Model)
	if m.step != StepComplete || m.Err() != nil || len(m.FilesWritten()) != 2 {
		t.Fatalf("unexpected completion: step %d err %v files %v", m.step, m.Err(), m.FilesWritten())
	}
}

func TestWizard_KeylessProviderSkipsKeyStep(t *testing.T) {
	m := New("researcher.toml", "credentials.toml")
	m = press(t, m, enter)
	for i := 0; i < len(providers)-1; i++ {
		m = press(t, m, down)
	}
	m = press(t, m, enter, enter)
	if m.answers.Provider != "ollama" || m.step != StepSearchProvider {
		t.Fatalf("expected search step for ollama, got step %d answers %+v", m.step, m.answers)
	}
	m = press(t, m, back)
	if m.step != StepModel {
		t.Errorf("going back should skip the key step, got %d", m.step)
	}
}

func TestWizard_EmptyModelStays(t *testing.T) {
	m := New("researcher.toml", "credentials.toml")
	m = press(t, m, enter, enter)
	m.textInput.SetValue("  ")
	m = press(t, m, enter)
	if m.step != StepModel {
		t.Errorf("empty model should not advance, got step %d", m.step)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "researcher.toml")
	credsPath := filepath.Join(dir, "credentials.toml")

	existing := &credentials.Credentials{}
	existing.SetAPIKey("openai", "sk-openai")
	if err := existing.Save(credsPath); err != nil {
		t.Fatal(err)
	}

	a := Answers{Provider: "anthropic", Model: "claude-x", APIKey: "sk-ant", SearchProvider: "tavily", CitationMode: config.CitationAgent}
	files, err := Write(a, cfgPath, credsPath)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected config and credentials, got %v", files)
	}

	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.Model != "claude-x" || cfg.Web.SearchProvider != "tavily" || cfg.Research.CitationMode != config.CitationAgent {
		t.Errorf("unexpected config %+v", cfg)
	}

	creds, err := credentials.LoadFile(credsPath)
	if err != nil {
		t.Fatal(err)
	}
	if creds.Anthropic.APIKey != "sk-ant" || creds.OpenAI.APIKey != "sk-openai" {
		t.Errorf("credentials not merged: %+v", creds)
	}
}

func TestWrite_NoKeys(t *testing.T) {
	dir := t.TempDir()
	a := Answers{Provider: "ollama", Model: "llama3.2", SearchProvider: "brave", CitationMode: config.CitationLocal}
	files, err := Write(a, filepath.Join(dir, "researcher.toml"), filepath.Join(dir, "credentials.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("expected only the config file, got %v", files)
	}
	cfg, err := config.LoadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.BaseURL == "" {
		t.Error("ollama config needs a base_url")
	}
}
