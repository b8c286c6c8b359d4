package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/salesmerge/internal/application"
	"github.com/JonMunkholm/salesmerge/internal/config"
	"github.com/JonMunkholm/salesmerge/internal/core"
	"github.com/JonMunkholm/salesmerge/internal/logging"
	"github.com/JonMunkholm/salesmerge/internal/sheet"
)

// errSortKeyMissing stops a run whose sort key no file has, unless --force.
var errSortKeyMissing = errors.New("sort key missing from every file; rerun with --force to merge anyway")

type mergeOptions struct {
	sortKey       string
	output        string
	backend       string
	parserCommand string
	parserArgs    []string
	codepage      int
	locale        string
	force         bool
	verbose       bool
}

func newRootCmd() *cobra.Command {
	opts := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge [file...]",
		Short: "Merge sales report spreadsheets into one sorted workbook",
		Long: `Reads .xls, .xlsx and .csv sales reports, repairs mis-decoded Traditional
Chinese text, concatenates every row and writes one .xlsx ordered by the sort
column. Files that fail to parse are reported and skipped.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.sortKey, "sort-key", "k", core.DefaultSortKey, "column to sort by")
	flags.StringVarP(&opts.output, "output", "o", "", "output file (default 合併銷售報表_YYYY-MM-DD.xlsx)")
	flags.StringVar(&opts.backend, "backend", config.BackendInProcess, "parser backend: inprocess or external")
	flags.StringVar(&opts.parserCommand, "parser-command", "", "external parser executable")
	flags.StringSliceVar(&opts.parserArgs, "parser-args", nil, "arguments placed before the file path")
	flags.IntVar(&opts.codepage, "codepage", 0, "codepage hint for legacy files (default 950)")
	flags.StringVar(&opts.locale, "locale", "", "collation locale (default zh-Hant)")
	flags.BoolVarP(&opts.force, "force", "f", false, "merge even if no file has the sort column")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log parse details to stderr")

	return cmd
}

// configure loads the environment configuration and applies the flags
// the user set explicitly.
func configure(cmd *cobra.Command, opts *mergeOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("sort-key") || cfg.Merge.SortKey == "" {
		cfg.Merge.SortKey = opts.sortKey
	}
	if flags.Changed("backend") {
		cfg.Parser.Backend = opts.backend
	}
	if flags.Changed("parser-command") {
		cfg.Parser.Command = opts.parserCommand
		if !flags.Changed("backend") {
			cfg.Parser.Backend = config.BackendExternal
		}
	}
	if flags.Changed("parser-args") {
		cfg.Parser.Args = opts.parserArgs
	}
	if flags.Changed("codepage") {
		cfg.Parser.Codepage = opts.codepage
	}
	if flags.Changed("locale") {
		cfg.Merge.Collation = opts.locale
	}

	cfg.Logging.Level = "warn"
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMerge(cmd *cobra.Command, opts *mergeOptions, paths []string) error {
	cfg, err := configure(cmd, opts)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	logger := logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	var sources []core.Source
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "skip %s: %v\n", path, err)
			continue
		}
		sources = append(sources, core.Source{Name: filepath.Base(path), Data: data})
	}

	loaded := 0
	for _, out := range app.Service.IngestBatch(ctx, sources) {
		switch {
		case out.Err != nil:
			fmt.Fprintf(stderr, "skip %s: %s\n", out.Name, core.FormatUserError(out.Err))
		case out.File.Error != "":
			fmt.Fprintf(stderr, "warning %s: %s\n", out.Name, out.File.Error)
			loaded++
		default:
			fmt.Fprintf(stdout, "loaded %s: %d rows\n", out.Name, out.File.RowCount)
			loaded++
		}
	}
	if loaded == 0 {
		return core.ErrNoFiles
	}

	output := opts.output
	if output == "" {
		output = core.DefaultOutputName(time.Now())
	}
	output = sheet.EnsureExtension(output)

	rec, err := export(ctx, app.Service, output, core.MergeRequest{
		SortKey:  cfg.Merge.SortKey,
		FileName: filepath.Base(output),
		Force:    opts.force,
	}, stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %s: %d rows from %d files sorted by %s\n",
		output, rec.TotalRows, len(rec.FileNames), rec.SortKey)
	return nil
}

// export merges into memory and writes output only on success.
func export(ctx context.Context, svc *core.Service, output string, req core.MergeRequest, stderr io.Writer) (core.MergeRecord, error) {
	var buf bytes.Buffer
	rec, err := svc.Export(ctx, &buf, req)
	if warn, ok := core.IsSortKeyWarning(err); ok {
		sample := strings.Join(warn.Available, ", ")
		if warn.Truncated {
			sample += "..."
		}
		fmt.Fprintf(stderr, "warning: no file has the column %q (available: %s)\n", warn.SortKey, sample)
		return core.MergeRecord{}, errSortKeyMissing
	}
	if err != nil {
		return core.MergeRecord{}, err
	}

	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return core.MergeRecord{}, fmt.Errorf("write %s: %w", output, err)
	}
	return rec, nil
}
