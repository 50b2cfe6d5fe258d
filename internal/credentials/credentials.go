// Package credentials loads API keys from standard locations.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Credentials holds API keys loaded from credentials.toml
type Credentials struct {
	Anthropic  *ProviderCreds `toml:"anthropic"`
	OpenAI     *ProviderCreds `toml:"openai"`
	Google     *ProviderCreds `toml:"google"`
	Mistral    *ProviderCreds `toml:"mistral"`
	Groq       *ProviderCreds `toml:"groq"`
	OpenRouter *ProviderCreds `toml:"openrouter"`
	Tavily     *ProviderCreds `toml:"tavily"`
	Brave      *ProviderCreds `toml:"brave"`
}

// ProviderCreds holds credentials for a single provider
type ProviderCreds struct {
	APIKey string `toml:"api_key"`
}

// StandardPaths returns the standard credential file locations in order of priority
func StandardPaths() []string {
	paths := []string{"credentials.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "researcher", "credentials.toml"),
			filepath.Join(home, ".researcher", "credentials.toml"),
		)
	}
	return paths
}

// Load loads credentials from the first available standard location
func Load() (*Credentials, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			creds, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return creds, path, nil
		}
	}
	return nil, "", nil // No credentials file found (not an error)
}

// LoadFile loads credentials from a specific file
func LoadFile(path string) (*Credentials, error) {
	var creds Credentials
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// Apply sets environment variables from loaded credentials (if not already set)
func (c *Credentials) Apply() {
	if c == nil {
		return
	}
	for env, p := range map[string]*ProviderCreds{
		"ANTHROPIC_API_KEY":  c.Anthropic,
		"OPENAI_API_KEY":     c.OpenAI,
		"GOOGLE_API_KEY":     c.Google,
		"MISTRAL_API_KEY":    c.Mistral,
		"GROQ_API_KEY":       c.Groq,
		"OPENROUTER_API_KEY": c.OpenRouter,
		"TAVILY_API_KEY":     c.Tavily,
		"BRAVE_API_KEY":      c.Brave,
	} {
		if p != nil && p.APIKey != "" {
			setIfEmpty(env, p.APIKey)
		}
	}
}

// DefaultPath is where setup writes credentials.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.toml"
	}
	return filepath.Join(home, ".config", "researcher", "credentials.toml")
}

// SetAPIKey stores key for a provider. Unknown providers are rejected.
func (c *Credentials) SetAPIKey(provider, key string) error {
	creds := &ProviderCreds{APIKey: key}
	switch provider {
	case "anthropic":
		c.Anthropic = creds
	case "openai":
		c.OpenAI = creds
	case "google":
		c.Google = creds
	case "mistral":
		c.Mistral = creds
	case "groq":
		c.Groq = creds
	case "openrouter":
		c.OpenRouter = creds
	case "tavily":
		c.Tavily = creds
	case "brave":
		c.Brave = creds
	default:
		return fmt.Errorf("no credentials slot for provider %q", provider)
	}
	return nil
}

// Save writes the credentials to path, readable only by the owner.
func (c *Credentials) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return nil
}

// LoadEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Setup loads .env then the first credentials file found, returning the
// credentials path used (empty if none).
func Setup() (string, error) {
	if err := LoadEnv(); err != nil {
		return "", err
	}
	creds, path, err := Load()
	if err != nil {
		return path, err
	}
	creds.Apply()
	return path, nil
}

func setIfEmpty(key, value string) {
	if os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}
