package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/vinayprograms/researcher/internal/config"
	"github.com/vinayprograms/researcher/internal/report"
)

// Run lists saved reports, newest first.
func (c *ReportsCmd) Run(g *Globals) error {
	dir := c.Dir
	if dir == "" {
		cfg, err := loadConfig(g)
		if err != nil {
			return err
		}
		dir = cfg.Storage.ReportsDir
	}
	reports, err := report.List(config.ExpandPath(dir))
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Printf("No reports in %s\n", dir)
		return nil
	}
	return writeReports(os.Stdout, reports)
}

func writeReports(w io.Writer, reports []*report.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GENERATED\tSOURCES\tQUERY\tPATH")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			r.Generated.Local().Format("2006-01-02 15:04"), len(r.Sources), truncateQuery(r.Query, 60), r.Path)
	}
	return tw.Flush()
}

func truncateQuery(q string, max int) string {
	runes := []rune(q)
	if len(runes) <= max {
		return q
	}
	return string(runes[:max-1]) + "…"
}
