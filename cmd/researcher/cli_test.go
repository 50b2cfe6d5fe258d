package main

import (
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kongVars())
	if err != nil {
		t.Fatal(err)
	}
	return parser
}

func TestResearchCmd_Basic(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	ctx, err := parser.Parse([]string{"research", "compare", "A", "and", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ctx.Command(), "research") {
		t.Errorf("unexpected command %q", ctx.Command())
	}
	if len(cli.Research.Query) != 4 || cli.Research.Query[0] != "compare" {
		t.Errorf("unexpected query %v", cli.Research.Query)
	}
	if cli.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cli.LogLevel)
	}
}

func TestResearchCmd_Flags(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	_, err := parser.Parse([]string{
		"--config", "my.toml", "--log-level", "debug",
		"research", "--max-iterations", "5", "--max-parallel", "2",
		"--local-citations", "--no-save", "--render", "query",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cli.Config != "my.toml" || cli.LogLevel != "debug" {
		t.Errorf("unexpected globals %+v", cli.Globals)
	}
	r := cli.Research
	if r.MaxIterations != 5 || r.MaxParallel != 2 || !r.LocalCitations || !r.NoSave || !r.Render {
		t.Errorf("unexpected flags %+v", r)
	}
}

func TestResearchCmd_RequiresQuery(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)
	if _, err := parser.Parse([]string{"research"}); err == nil {
		t.Error("expected error without a query")
	}
}

func TestGlobals_InvalidLogLevel(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)
	if _, err := parser.Parse([]string{"--log-level", "loud", "version"}); err == nil {
		t.Error("expected enum error")
	}
}

func TestReplayCmd_Verbose(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	_, err := parser.Parse([]string{"replay", "-vv", "abc-123"})
	if err != nil {
		t.Fatal(err)
	}
	if cli.Replay.Session != "abc-123" || cli.Replay.Verbose != 2 {
		t.Errorf("unexpected replay flags %+v", cli.Replay)
	}
}

func TestModelsCmd_OptionalProvider(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	if _, err := parser.Parse([]string{"models"}); err != nil {
		t.Fatal(err)
	}
	if cli.Models.Provider != "" {
		t.Errorf("expected no provider, got %q", cli.Models.Provider)
	}
	if _, err := parser.Parse([]string{"models", "anthropic"}); err != nil {
		t.Fatal(err)
	}
	if cli.Models.Provider != "anthropic" {
		t.Errorf("expected anthropic, got %q", cli.Models.Provider)
	}
}

func TestChatAndReportsCmd(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	if _, err := parser.Parse([]string{"chat", "--no-save"}); err != nil {
		t.Fatal(err)
	}
	if !cli.Chat.NoSave {
		t.Error("expected --no-save")
	}
	if _, err := parser.Parse([]string{"reports", "--dir", "out"}); err != nil {
		t.Fatal(err)
	}
	if cli.Reports.Dir != "out" {
		t.Errorf("unexpected dir %q", cli.Reports.Dir)
	}
}

func TestSetupCmd_DefaultOutput(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)
	if _, err := parser.Parse([]string{"setup"}); err != nil {
		t.Fatal(err)
	}
	if cli.Setup.Output != "researcher.toml" {
		t.Errorf("unexpected output %q", cli.Setup.Output)
	}
}
