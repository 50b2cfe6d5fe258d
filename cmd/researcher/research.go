package main

import (
	"context"
	"os"
	"strings"

	"github.com/vinayprograms/researcher/internal/agent"
	"github.com/vinayprograms/researcher/internal/config"
	"github.com/vinayprograms/researcher/internal/research"
)

// Run researches the query and prints the final report.
func (c *ResearchCmd) Run(g *Globals, ctx context.Context) error {
	query := strings.TrimSpace(strings.Join(c.Query, " "))
	if query == "" {
		return research.ErrEmptyQuery
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}
	if err := cfg.CheckAPIKeys(researchRoles(cfg)...); err != nil {
		return err
	}

	rt, err := startRuntime(ctx, g, cfg)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	res, err := rt.research(ctx, query, runOptions{NoSave: c.NoSave})
	if err != nil {
		return err
	}
	return printReport(os.Stdout, res.Report, c.Render)
}

// apply layers command-line overrides onto cfg and revalidates it.
func (c *ResearchCmd) apply(cfg *config.Config) error {
	if c.MaxIterations > 0 {
		cfg.Research.MaxIterations = c.MaxIterations
	}
	if c.MaxParallel > 0 {
		cfg.Research.MaxParallel = c.MaxParallel
	}
	if c.LocalCitations {
		cfg.Research.CitationMode = config.CitationLocal
	}
	return cfg.Validate()
}

// researchRoles lists the agent roles a research run calls.
func researchRoles(cfg *config.Config) []string {
	roles := []string{agent.RoleLead, agent.RoleSubAgent}
	if cfg.Research.CitationMode != config.CitationLocal {
		roles = append(roles, agent.RoleCitation)
	}
	return roles
}
