package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jimezsa/admitscrape/internal/report"
	"github.com/jimezsa/admitscrape/internal/store"
)

type ReportCmd struct {
	Input  string `name:"input" required:"" help:"Store target: path.jsonl, path.json, sqlite:path.db or mysql://dsn."`
	Term   string `help:"Only include records for this term, e.g. \"Fall 2025\"."`
	Output string `name:"output" short:"o" help:"Write the JSON report to a file."`
}

func (c *ReportCmd) Run(ctx *Context) error {
	records, err := store.Load(ctx.RunContext(), c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	summary := report.Build(records, report.Options{Term: c.Term})
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if c.Output == "" {
		_, err = ctx.Out.Write(data)
		return err
	}
	if err := os.WriteFile(c.Output, data, 0o644); err != nil {
		return fmt.Errorf("write --output: %w", err)
	}
	if !ctx.JSONOutput {
		ctx.UI.Successf("Report over %d record(s) written to %s", summary.TotalRecords, c.Output)
	}
	return nil
}
