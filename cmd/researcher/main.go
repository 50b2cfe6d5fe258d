// Package main is the entry point for the researcher CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/vinayprograms/researcher/internal/credentials"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	// Priority: environment > .env > credentials.toml
	if _, err := credentials.Setup(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("researcher"),
		kong.Description("Multi-agent research assistant: a lead researcher plans, sub-agents search the web in parallel, and the report comes back cited."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kongVars(),
	)

	err := kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}

// Run shows version information.
func (c *VersionCmd) Run() error {
	fmt.Printf("researcher version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}
