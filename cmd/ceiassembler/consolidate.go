package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fcjbispo/fbpyutils-finance-sub001/internal/domain"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type consolidateCmd struct {
	out    string
	kind   string
	format string
}

func (*consolidateCmd) Name() string { return "consolidate" }
func (*consolidateCmd) Synopsis() string {
	return "consolidate statement workbooks into one table file per report kind"
}
func (*consolidateCmd) Usage() string {
	return `ceiassembler consolidate [-out <dir>] [-kind <kind>] [-format csv|json] <file>...

  Reads CEI statement workbooks named like posicao-2023-03-31.xlsx and
  writes <dir>/<kind>.<format> for every report kind. CSV files carry the
  header even when no file contributed rows; JSON files hold an array of
  row objects with typed values.
`
}

func (c *consolidateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "out", "", "Output directory (defaults to OUTPUT_DIR).")
	f.StringVar(&c.kind, "kind", "", "Only consolidate this report kind.")
	f.StringVar(&c.format, "format", "csv", "Output format: csv or json.")
}

func (c *consolidateCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := args[0].(*app)
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one workbook is required")
		return subcommands.ExitUsageError
	}

	if c.format != "csv" && c.format != "json" {
		fmt.Fprintf(os.Stderr, "unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}

	out := c.out
	if out == "" {
		out = a.cfg.OutputDir
	}

	tables, err := c.run(ctx, a, f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, kind := range domain.Kinds {
		table, ok := tables[kind]
		if !ok {
			continue
		}
		path := filepath.Join(out, string(kind)+"."+c.format)
		if err := writeTable(path, table, c.format); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		a.logger.Info("table written",
			zap.String("kind", string(kind)),
			zap.String("path", path),
			zap.Int("rows", table.Len()),
		)
	}
	return subcommands.ExitSuccess
}

func (c *consolidateCmd) run(ctx context.Context, a *app, files []string) (map[domain.Kind]*domain.Table, error) {
	svc := a.consolidator()
	if c.kind == "" {
		return svc.ConsolidateAll(ctx, files)
	}

	kind, err := domain.ParseKind(c.kind)
	if err != nil {
		return nil, err
	}
	table, err := svc.Consolidate(ctx, kind, files)
	if err != nil {
		return nil, err
	}
	return map[domain.Kind]*domain.Table{kind: table}, nil
}

func writeTable(path string, table *domain.Table, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	write := table.WriteCSV
	if format == "json" {
		write = table.WriteJSON
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
