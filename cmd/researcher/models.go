package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/vinayprograms/researcher/internal/llm"
)

// Run lists catalog models, optionally for one provider.
func (c *ModelsCmd) Run(ctx context.Context) error {
	models, err := llm.NewCatalog().Models(ctx, c.Provider)
	if err != nil {
		return err
	}
	return writeModels(os.Stdout, models)
}

func writeModels(w io.Writer, models []llm.ModelInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tMODEL\tCONTEXT\t$/1M IN\t$/1M OUT\tREASONING")
	for _, m := range models {
		reasoning := ""
		if m.CanReason {
			reasoning = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%s\n",
			m.Provider, m.ID, m.ContextWindow, m.CostPer1MIn, m.CostPer1MOut, reasoning)
	}
	return tw.Flush()
}
