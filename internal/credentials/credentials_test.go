package credentials

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStandardPaths(t *testing.T) {
	paths := StandardPaths()
	if len(paths) < 1 {
		t.Fatal("expected at least one standard path")
	}
	if paths[0] != "credentials.toml" {
		t.Errorf("first path should be credentials.toml, got %s", paths[0])
	}
}

func TestLoadFile(t *testing.T) {
	credPath := filepath.Join(t.TempDir(), "credentials.toml")
	content := `
[anthropic]
api_key = "sk-ant-test123"

[tavily]
api_key = "tvly-test"
`
	if err := os.WriteFile(credPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	creds, err := LoadFile(credPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Anthropic == nil || creds.Anthropic.APIKey != "sk-ant-test123" {
		t.Errorf("anthropic key not loaded correctly")
	}
	if creds.Tavily == nil || creds.Tavily.APIKey != "tvly-test" {
		t.Errorf("tavily key not loaded correctly")
	}
	if creds.OpenAI != nil {
		t.Errorf("openai should be nil when not configured")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	credPath := filepath.Join(t.TempDir(), "credentials.toml")
	os.WriteFile(credPath, []byte("[anthropic\napi_key="), 0600)
	if _, err := LoadFile(credPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestApply(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("TAVILY_API_KEY", "already-set")
	t.Setenv("BRAVE_API_KEY", "")

	creds := &Credentials{
		Anthropic: &ProviderCreds{APIKey: "from-file"},
		Tavily:    &ProviderCreds{APIKey: "from-file"},
		Brave:     &ProviderCreds{},
	}
	creds.Apply()

	if got := os.Getenv("ANTHROPIC_API_KEY"); got != "from-file" {
		t.Errorf("expected key applied, got %q", got)
	}
	if got := os.Getenv("TAVILY_API_KEY"); got != "already-set" {
		t.Errorf("existing env must win, got %q", got)
	}
	if got := os.Getenv("BRAVE_API_KEY"); got != "" {
		t.Errorf("empty key must not be applied, got %q", got)
	}

	var nilCreds *Credentials
	nilCreds.Apply()
}

func TestLoad_CurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	os.WriteFile("credentials.toml", []byte("[groq]\napi_key = \"g\"\n"), 0600)

	creds, path, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != "credentials.toml" || creds.Groq == nil || creds.Groq.APIKey != "g" {
		t.Errorf("unexpected load result: path=%s creds=%+v", path, creds)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("RESEARCHER_TEST_A", "")
	t.Setenv("RESEARCHER_TEST_B", "keep")
	os.Unsetenv("RESEARCHER_TEST_A")

	envPath := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(envPath, []byte("RESEARCHER_TEST_A=loaded\nRESEARCHER_TEST_B=overridden\n"), 0600)

	if err := LoadEnv(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("RESEARCHER_TEST_A"); got != "loaded" {
		t.Errorf("expected loaded, got %q", got)
	}
	if got := os.Getenv("RESEARCHER_TEST_B"); got != "keep" {
		t.Errorf("existing env must not be overridden, got %q", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.toml")
	creds := &Credentials{}
	if err := creds.SetAPIKey("anthropic", "sk-ant"); err != nil {
		t.Fatal(err)
	}
	if err := creds.SetAPIKey("tavily", "tvly"); err != nil {
		t.Fatal(err)
	}
	if err := creds.SetAPIKey("ollama", "x"); err == nil {
		t.Error("expected error for provider without a key slot")
	}
	if err := creds.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Anthropic == nil || loaded.Anthropic.APIKey != "sk-ant" || loaded.Tavily.APIKey != "tvly" {
		t.Errorf("unexpected credentials %+v", loaded)
	}
	if loaded.OpenAI != nil {
		t.Error("unset providers should stay empty")
	}
}
