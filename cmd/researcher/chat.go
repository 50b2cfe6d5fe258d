package main

import (
	"context"
	"os"

	"github.com/vinayprograms/researcher/internal/agent"
	"github.com/vinayprograms/researcher/internal/chat"
)

// Run starts the interactive chat loop on stdin/stdout.
func (c *ChatCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	roles := append([]string{agent.RoleMain}, researchRoles(cfg)...)
	if err := cfg.CheckAPIKeys(roles...); err != nil {
		return err
	}

	rt, err := startRuntime(ctx, g, cfg)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	front, err := rt.provider(agent.RoleMain)
	if err != nil {
		return err
	}
	researcher := chat.ResearchFunc(func(ctx context.Context, task string) (string, error) {
		res, err := rt.research(ctx, task, runOptions{NoSave: c.NoSave})
		return res.Report, err
	})
	return chat.New(front, researcher, rt.logger).REPL(ctx, os.Stdin, os.Stdout)
}
