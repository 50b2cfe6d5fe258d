// Package setup provides the interactive setup wizard that writes
// researcher.toml and credentials.toml.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/researcher/internal/config"
	"github.com/vinayprograms/researcher/internal/credentials"
)

// Answers holds what the user chose.
type Answers struct {
	Provider string
	Model    string
	APIKey   string

	SearchProvider string
	SearchAPIKey   string

	CitationMode string
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// Step represents a setup wizard step
type Step int

const (
	StepWelcome Step = iota
	StepProvider
	StepModel
	StepAPIKey
	StepSearchProvider
	StepSearchKey
	StepCitation
	StepConfirm
	StepComplete
)

type option struct {
	name, desc string
	// model is the default model offered for an LLM provider.
	model string
}

var (
	providers = []option{
		{"anthropic", "Claude models", "claude-sonnet-4-5"},
		{"openai", "GPT models", "gpt-4o"},
		{"google", "Gemini models", "gemini-2.5-pro"},
		{"mistral", "Mistral models", "mistral-large-latest"},
		{"groq", "Fast open models", "llama-3.3-70b-versatile"},
		{"openrouter", "Many providers, one key", "anthropic/claude-sonnet-4.5"},
		{"ollama", "Local models, no key", "llama3.2"},
	}
	searchProviders = []option{
		{name: "tavily", desc: "Tavily search API"},
		{name: "brave", desc: "Brave search API"},
	}
	citationModes = []option{
		{name: config.CitationAgent, desc: "Citation agent adds numbered references (one more LLM call)"},
		{name: config.CitationLocal, desc: "Format URLs into references locally"},
	}
)

// Model is the bubbletea model for the setup wizard
type Model struct {
	step      Step
	answers   Answers
	cursor    int
	textInput textinput.Model
	err       error

	configPath string
	credsPath  string

	// Results
	filesWritten []string
}

type filesWrittenMsg struct{ files []string }

type errMsg struct{ error }

// New creates a wizard that writes configPath and credsPath.
func New(configPath, credsPath string) Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return Model{
		step:       StepWelcome,
		textInput:  ti,
		configPath: configPath,
		credsPath:  credsPath,
		answers: Answers{
			SearchProvider: "tavily",
			CitationMode:   config.CitationAgent,
		},
	}
}

// Answers returns the collected answers.
func (m Model) Answers() Answers { return m.answers }

// Err returns the error that ended the wizard, if any.
func (m Model) Err() error { return m.err }

// FilesWritten lists the files the wizard wrote.
func (m Model) FilesWritten() []string { return m.filesWritten }

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case filesWrittenMsg:
		m.filesWritten = msg.files
		m.step = StepComplete
		return m, nil
	case errMsg:
		m.err = msg.error
		m.step = StepComplete
		return m, nil

	case tea.KeyMsg:
		// Text input steps capture every key except ctrl+c and enter.
		if m.isTextInputStep() {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				return m.handleEnter()
			default:
				var cmd tea.Cmd
				m.textInput, cmd = m.textInput.Update(msg)
				return m, cmd
			}
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.step == StepWelcome || m.step == StepComplete {
				return m, tea.Quit
			}
			m.step = m.previousStep()
			m.cursor = 0
			return m, nil
		case "enter":
			return m.handleEnter()
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.options())-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m Model) isTextInputStep() bool {
	return m.step == StepModel || m.step == StepAPIKey || m.step == StepSearchKey
}

func (m Model) options() []option {
	switch m.step {
	case StepProvider:
		return providers
	case StepSearchProvider:
		return searchProviders
	case StepCitation:
		return citationModes
	}
	return nil
}

func (m Model) previousStep() Step {
	prev := m.step - 1
	if prev == StepAPIKey && !needsKey(m.answers.Provider) {
		prev--
	}
	if prev < StepWelcome {
		return StepWelcome
	}
	return prev
}

func needsKey(provider string) bool {
	return config.DefaultAPIKeyEnv(provider) != ""
}

// prompt switches to a text input step with an initial value.
func (m Model) prompt(step Step, value string, secret bool) Model {
	m.step = step
	m.textInput.SetValue(value)
	m.textInput.CursorEnd()
	if secret {
		m.textInput.EchoMode = textinput.EchoPassword
	} else {
		m.textInput.EchoMode = textinput.EchoNormal
	}
	return m
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.textInput.Value())

	switch m.step {
	case StepWelcome:
		m.step = StepProvider
		m.cursor = 0

	case StepProvider:
		p := providers[m.cursor]
		m.answers.Provider = p.name
		return m.prompt(StepModel, p.model, false), nil

	case StepModel:
		if value == "" {
			return m, nil
		}
		m.answers.Model = value
		if needsKey(m.answers.Provider) {
			return m.prompt(StepAPIKey, "", true), nil
		}
		m.step = StepSearchProvider
		m.cursor = 0

	case StepAPIKey:
		m.answers.APIKey = value
		m.step = StepSearchProvider
		m.cursor = 0

	case StepSearchProvider:
		m.answers.SearchProvider = searchProviders[m.cursor].name
		return m.prompt(StepSearchKey, "", true), nil

	case StepSearchKey:
		m.answers.SearchAPIKey = value
		m.step = StepCitation
		m.cursor = 0

	case StepCitation:
		m.answers.CitationMode = citationModes[m.cursor].name
		m.step = StepConfirm

	case StepConfirm:
		return m, m.writeFiles()

	case StepComplete:
		return m, tea.Quit
	}
	return m, nil
}

// View renders the current step.
func (m Model) View() string {
	var s strings.Builder
	switch m.step {
	case StepWelcome:
		s.WriteString(titleStyle.Render("Researcher Setup") + "\n\n")
		s.WriteString(normalStyle.Render("This wizard writes "+m.configPath+" and stores API keys in "+m.credsPath+".") + "\n\n")
		s.WriteString(dimStyle.Render("Press Enter to continue, q to quit"))
	case StepProvider:
		s.WriteString(m.viewOptions("LLM Provider", "Select the provider for every agent role"))
	case StepModel:
		s.WriteString(m.viewInput("Model", "Model used by the research agents"))
	case StepAPIKey:
		s.WriteString(m.viewInput("API Key", "Enter your API key for "+m.answers.Provider+" (leave empty to use "+config.DefaultAPIKeyEnv(m.answers.Provider)+")"))
	case StepSearchProvider:
		s.WriteString(m.viewOptions("Web Search", "Select the search API sub-agents use"))
	case StepSearchKey:
		s.WriteString(m.viewInput("Search API Key", "Enter your API key for "+m.answers.SearchProvider+" (leave empty to use "+config.DefaultAPIKeyEnv(m.answers.SearchProvider)+")"))
	case StepCitation:
		s.WriteString(m.viewOptions("Citations", "How should the final report be cited?"))
	case StepConfirm:
		s.WriteString(m.viewConfirm())
	case StepComplete:
		s.WriteString(m.viewComplete())
	}
	return s.String()
}

func (m Model) viewOptions(title, subtitle string) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(title) + "\n")
	s.WriteString(subtitleStyle.Render(subtitle) + "\n\n")
	for i, o := range m.options() {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}
		s.WriteString(cursor + style.Render(o.name) + " - " + dimStyle.Render(o.desc) + "\n")
	}
	s.WriteString("\n" + dimStyle.Render("↑/↓ to move, Enter to select, q to go back"))
	return s.String()
}

func (m Model) viewInput(title, subtitle string) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(title) + "\n")
	s.WriteString(subtitleStyle.Render(subtitle) + "\n\n")
	s.WriteString(m.textInput.View() + "\n\n")
	s.WriteString(dimStyle.Render("Enter to continue"))
	return s.String()
}

func (m Model) viewConfirm() string {
	a := m.answers
	var s strings.Builder
	s.WriteString(titleStyle.Render("Confirm") + "\n\n")
	fmt.Fprintf(&s, "  LLM:        %s / %s\n", a.Provider, a.Model)
	fmt.Fprintf(&s, "  Search:     %s\n", a.SearchProvider)
	fmt.Fprintf(&s, "  Citations:  %s\n", a.CitationMode)
	fmt.Fprintf(&s, "  Keys saved: %s\n", keysSummary(a))
	s.WriteString("\n" + dimStyle.Render("Enter to write files, q to go back"))
	return s.String()
}

func keysSummary(a Answers) string {
	var names []string
	if a.APIKey != "" {
		names = append(names, a.Provider)
	}
	if a.SearchAPIKey != "" {
		names = append(names, a.SearchProvider)
	}
	if len(names) == 0 {
		return "none (environment variables)"
	}
	return strings.Join(names, ", ")
}

func (m Model) viewComplete() string {
	var s strings.Builder
	if m.err != nil {
		s.WriteString(errorStyle.Render("Setup failed: "+m.err.Error()) + "\n\n")
	} else {
		s.WriteString(successStyle.Render("✓ Setup complete") + "\n\n")
		for _, f := range m.filesWritten {
			s.WriteString("  " + f + "\n")
		}
		s.WriteString("\n" + normalStyle.Render(`Try: researcher research "your question"`) + "\n")
	}
	s.WriteString("\n" + dimStyle.Render("Press Enter or q to exit"))
	return s.String()
}

func (m Model) writeFiles() tea.Cmd {
	return func() tea.Msg {
		files, err := Write(m.answers, m.configPath, m.credsPath)
		if err != nil {
			return errMsg{err}
		}
		return filesWrittenMsg{files}
	}
}

// Write saves the config file and, when keys were entered, merges them into
// the credentials file. It returns the paths written.
func Write(a Answers, configPath, credsPath string) ([]string, error) {
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(configPath, []byte(GenerateConfig(a)), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", configPath, err)
	}
	files := []string{configPath}

	if a.APIKey == "" && a.SearchAPIKey == "" {
		return files, nil
	}
	creds := &credentials.Credentials{}
	if _, err := os.Stat(credsPath); err == nil {
		existing, err := credentials.LoadFile(credsPath)
		if err != nil {
			return files, err
		}
		creds = existing
	}
	if a.APIKey != "" {
		if err := creds.SetAPIKey(a.Provider, a.APIKey); err != nil {
			return files, err
		}
	}
	if a.SearchAPIKey != "" {
		if err := creds.SetAPIKey(a.SearchProvider, a.SearchAPIKey); err != nil {
			return files, err
		}
	}
	if err := creds.Save(credsPath); err != nil {
		return files, err
	}
	return append(files, credsPath), nil
}

// GenerateConfig renders researcher.toml for the answers.
func GenerateConfig(a Answers) string {
	var sb strings.Builder

	sb.WriteString("# Researcher Configuration\n")
	sb.WriteString("# Generated by: researcher setup\n\n")

	sb.WriteString("[llm]\n")
	fmt.Fprintf(&sb, "provider = %q\n", a.Provider)
	fmt.Fprintf(&sb, "model = %q\n", a.Model)
	if a.Provider == "ollama" {
		sb.WriteString("base_url = \"http://localhost:11434/v1\"\n")
	}
	sb.WriteString("max_tokens = 4096\n\n")

	sb.WriteString("# Per-role overrides: [profiles.main], [profiles.lead], [profiles.subagent], [profiles.citation]\n\n")

	sb.WriteString("[research]\n")
	sb.WriteString("max_iterations = 3\n")
	fmt.Fprintf(&sb, "citation_mode = %q\n\n", a.CitationMode)

	sb.WriteString("[web]\n")
	fmt.Fprintf(&sb, "search_provider = %q\n", a.SearchProvider)
	sb.WriteString("max_results = 5\n\n")

	sb.WriteString("[storage]\n")
	sb.WriteString("path = \"~/.local/researcher\"\n")
	sb.WriteString("reports_dir = \"reports\"\n")
	sb.WriteString("session_store = \"file\"\n")

	return sb.String()
}

// Run starts the setup wizard
func Run(configPath, credsPath string) error {
	final, err := tea.NewProgram(New(configPath, credsPath)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
