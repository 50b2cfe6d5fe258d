package main

import (
	"github.com/vinayprograms/researcher/internal/credentials"
	"github.com/vinayprograms/researcher/internal/setup"
)

// Run starts the setup wizard.
func (c *SetupCmd) Run() error {
	return setup.Run(c.Output, credentials.DefaultPath())
}
