package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"

	"github.com/vinayprograms/researcher/internal/config"
	"github.com/vinayprograms/researcher/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// loadConfig reads --config, or ./researcher.toml when present.
func loadConfig(g *Globals) (*config.Config, error) {
	if g.Config != "" {
		return config.LoadFile(g.Config)
	}
	return config.LoadDefault()
}

// newLogger builds the process logger. With --log-file, structured lines go
// to the file and the returned progress writer is stderr; otherwise logs go to
// stderr and progress is nil.
func newLogger(g *Globals) (*logging.Logger, io.Writer, func(), error) {
	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(g.LogLevel))

	if g.LogFile == "" {
		logger.SetConsole(isTerminal(os.Stderr))
		return logger, nil, func() {}, nil
	}
	f, err := os.OpenFile(config.ExpandPath(g.LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, os.Stderr, func() { f.Close() }, nil
}

// startRuntime wires a runtime for cfg. Callers must defer rt.cleanup().
func startRuntime(ctx context.Context, g *Globals, cfg *config.Config) (*runtime, error) {
	logger, progress, closeLog, err := newLogger(g)
	if err != nil {
		return nil, err
	}
	rt := newRuntime(cfg, logger)
	rt.progress = progress
	rt.addCloser(closeLog)
	if err := rt.setup(ctx); err != nil {
		rt.cleanup()
		return nil, err
	}
	return rt, nil
}

// renderMarkdown styles markdown for the terminal.
func renderMarkdown(content string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// printReport writes the report to w, styled when render is set.
func printReport(w io.Writer, content string, render bool) error {
	if render {
		styled, err := renderMarkdown(content, 100)
		if err == nil {
			content = styled
		}
	}
	_, err := fmt.Fprintln(w, content)
	return err
}
