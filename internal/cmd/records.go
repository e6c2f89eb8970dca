package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimezsa/admitscrape/internal/export"
	"github.com/jimezsa/admitscrape/internal/store"
	"github.com/muesli/termenv"
)

type RecordsCmd struct {
	Export RecordsExportCmd `cmd:"" help:"Write stored records as table, csv, tsv, json, jsonl or markdown."`
	Merge  RecordsMergeCmd  `cmd:"" help:"Merge an input file into a history file, deduplicated by source URL."`
	Diff   RecordsDiffCmd   `cmd:"" help:"Write records from --new whose source URL is not in --seen."`
}

type RecordsExportCmd struct {
	Input  string `name:"input" required:"" help:"Store target: path.jsonl, path.json, sqlite:path.db or mysql://dsn."`
	Format string `help:"Output format: table, csv, tsv, json, jsonl, md." enum:",table,csv,tsv,json,jsonl,md" default:""`
	Links  string `help:"Table link display: short or full." enum:"short,full" default:"short"`
	Output string `name:"output" short:"o" help:"Write output to a file."`
}

type RecordsMergeCmd struct {
	Seen  string `name:"seen" required:"" help:"History file. A missing file is treated as empty."`
	Input string `name:"input" required:"" help:"Records to merge into the history."`
	Out   string `name:"out" required:"" help:"Output path for the merged history."`
	Stats bool   `name:"stats" help:"Print merge stats."`
}

type RecordsDiffCmd struct {
	New   string `name:"new" required:"" help:"Freshly scraped records (A)."`
	Seen  string `name:"seen" required:"" help:"History file (B). A missing file is treated as empty."`
	Out   string `name:"out" required:"" help:"Output path for unseen records (A-B)."`
	Stats bool   `name:"stats" help:"Print comparison stats."`
}

func (c *RecordsExportCmd) Run(ctx *Context) error {
	records, err := store.Load(ctx.RunContext(), c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	format, err := resolveFormat(ctx, c.Format, c.Output)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if c.Output != "" {
		if pathsEqual(c.Output, c.Input) {
			return fmt.Errorf("--output path must differ from --input")
		}
		file, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(c.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	return export.WriteRecords(writer, records, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   colorEnabled && isTTY(writer),
		LinkStyle:    linkStyle,
	})
}

func (c *RecordsMergeCmd) Run(ctx *Context) error {
	seenRecords, err := store.ReadFileAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}
	input, err := store.ReadFile(c.Input)
	if err != nil {
		return fmt.Errorf("read --input: %w", err)
	}

	merged, stats := store.Merge(seenRecords, input)
	if err := store.WriteFile(c.Out, merged); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Out,
			"total_seen=%d total_input=%d invalid_skipped=%d added=%d total_out=%d\n",
			stats.TotalSeen,
			stats.TotalInput,
			stats.InvalidSkipped(),
			stats.Added,
			stats.TotalOut,
		)
		return err
	}
	return nil
}

func (c *RecordsDiffCmd) Run(ctx *Context) error {
	fresh, err := store.ReadFile(c.New)
	if err != nil {
		return fmt.Errorf("read --new: %w", err)
	}
	seenRecords, err := store.ReadFileAllowMissing(c.Seen)
	if err != nil {
		return fmt.Errorf("read --seen: %w", err)
	}

	unseen, stats := store.Diff(fresh, seenRecords)
	if err := store.WriteFile(c.Out, unseen); err != nil {
		return fmt.Errorf("write --out: %w", err)
	}

	if c.Stats {
		_, err := fmt.Fprintf(
			ctx.Out,
			"total_new=%d total_seen=%d invalid_skipped=%d unseen_emitted=%d\n",
			stats.TotalNew,
			stats.TotalSeen,
			stats.InvalidSkipped(),
			stats.Unseen,
		)
		return err
	}
	return nil
}

// resolveFormat picks the export format. Global --json/--plain win, then an
// explicit --format, then the output file extension. Terminals get a table.
func resolveFormat(ctx *Context, formatFlag string, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if strings.TrimSpace(formatFlag) != "" {
		return export.ParseFormat(formatFlag)
	}

	if outputPath != "" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".json":
			return export.FormatJSON, nil
		case ".jsonl", ".ndjson":
			return export.FormatJSONL, nil
		case ".md":
			return export.FormatMarkdown, nil
		case ".tsv":
			return export.FormatTSV, nil
		default:
			return export.FormatCSV, nil
		}
	}

	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func pathsEqual(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil {
		return absA == absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}
