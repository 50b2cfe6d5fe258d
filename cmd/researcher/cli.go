// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Research ResearchCmd `cmd:"" help:"Research a query and print the cited report"`
	Chat     ChatCmd     `cmd:"" help:"Chat with the assistant; research requests are delegated to the research team"`
	Models   ModelsCmd   `cmd:"" help:"List models known to the provider catalog"`
	Replay   ReplayCmd   `cmd:"" help:"Replay a recorded research session"`
	Reports  ReportsCmd  `cmd:"" help:"List saved research reports"`
	Setup    SetupCmd    `cmd:"" help:"Interactive setup wizard"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

// Globals are flags shared by every command.
type Globals struct {
	Config   string `short:"c" help:"Config file path (default: ./researcher.toml)"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"Minimum log level (${enum})"`
	LogFile  string `help:"Write structured logs to this file and show a short progress feed instead"`
}

// ResearchCmd runs one research query.
type ResearchCmd struct {
	Query          []string `arg:"" help:"Research query"`
	MaxIterations  int      `help:"Override research.max_iterations"`
	MaxParallel    int      `help:"Override research.max_parallel (0 = unbounded)"`
	LocalCitations bool     `help:"Format citations locally instead of with the citation agent"`
	NoSave         bool     `help:"Do not save the report to the reports directory"`
	Render         bool     `help:"Render the report as styled markdown"`
}

// ChatCmd starts an interactive conversation.
type ChatCmd struct {
	NoSave bool `help:"Do not save research reports"`
}

// ModelsCmd lists catalog models.
type ModelsCmd struct {
	Provider string `arg:"" optional:"" help:"Only list models for this provider"`
}

// ReplayCmd replays a session for analysis.
type ReplayCmd struct {
	Session string `arg:"" help:"Session ID or JSONL session file"`
	Verbose int    `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
}

// ReportsCmd lists saved reports.
type ReportsCmd struct {
	Dir string `help:"Reports directory (default: storage.reports_dir)"`
}

// SetupCmd runs the interactive setup wizard.
type SetupCmd struct {
	Output string `short:"o" default:"researcher.toml" help:"Config file to write"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
