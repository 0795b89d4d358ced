package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/export"
	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
)

// RunFlags holds the flags of the run command
type RunFlags struct {
	Ingest      IngestFlags
	Output      string
	Format      string
	NoHighlight   bool
	StatusText    string
	StatusColumns []string
	ReviewLimit   int
	ShowGroups    bool
}

func (a *app) runCmd() *cobra.Command {
	flags := &RunFlags{}

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Reconcile a ledger file",
		Long: `Reconcile a CSV or XLSX ledger and print a summary.

With --output the result is also written to a file. The format follows the
file extension (.csv or .xlsx) unless --format says otherwise:
  xlsx       every row with its group, matched rows highlighted
  csv        every row with its group
  report     summary, matched, unmatched and per-group detail sheets
  unmatched  unmatched expenses and revenues only
  update     the input rows unchanged, plus --status-column columns
             filled with --status-text on matched rows`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReconcile(cmd, args[0], flags)
		},
	}

	flags.Ingest.register(cmd)
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Write the result to this file")
	cmd.Flags().StringVarP(&flags.Format, "format", "f", "", "Output format: xlsx, csv, report, unmatched, update")
	cmd.Flags().BoolVar(&flags.NoHighlight, "no-highlight", false, "Do not highlight matched rows in xlsx output")
	cmd.Flags().StringVar(&flags.StatusText, "status-text", "", "Text written next to matched rows in xlsx output")
	cmd.Flags().StringSliceVar(&flags.StatusColumns, "status-column", nil, "Column filled with the status text in update output (repeatable)")
	cmd.Flags().IntVar(&flags.ReviewLimit, "review-limit", 10, "Unresolved transactions to list (0 = all)")
	cmd.Flags().BoolVar(&flags.ShowGroups, "groups", true, "List match groups")

	return cmd
}

func (a *app) runReconcile(cmd *cobra.Command, path string, flags *RunFlags) error {
	format, err := outputFormat(flags)
	if err != nil {
		return err
	}

	processed, err := a.loadLedger(path, flags.Ingest)
	if err != nil {
		return err
	}

	pipeline, err := a.pipeline()
	if err != nil {
		return err
	}

	result, err := pipeline.Run(cmd.Context(), processed.Set)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, path, processed)
	if flags.ShowGroups {
		PrintGroups(out, result.State)
	}
	PrintReview(out, result.ReviewItems, flags.ReviewLimit)
	for _, warning := range result.Warnings {
		a.logger.Warn(warning)
	}
	PrintSummary(out, result.Summary, result.Duration)

	if flags.Output == "" {
		return nil
	}
	if err := a.writeOutput(flags, format, result, processed.Source); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", flags.Output)
	return nil
}

// outputFormat resolves --format, falling back to the output extension.
func outputFormat(flags *RunFlags) (export.Format, error) {
	if flags.Format != "" {
		return export.ParseFormat(flags.Format)
	}
	if strings.EqualFold(filepath.Ext(flags.Output), ".csv") {
		return export.FormatCSV, nil
	}
	return export.FormatXLSX, nil
}

func (a *app) writeOutput(flags *RunFlags, format export.Format, result *reconcile.Result, source *ingest.Table) (err error) {
	opts := a.cfg.ExportOptions()
	opts.Source = source
	if flags.NoHighlight {
		opts.Highlight = false
	}
	if flags.StatusText != "" {
		opts.StatusText = flags.StatusText
	}
	if len(flags.StatusColumns) > 0 {
		opts.StatusColumns = flags.StatusColumns
	}

	f, err := os.Create(flags.Output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", flags.Output, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", flags.Output, closeErr)
		}
	}()

	if err := format.Write(f, result.State, result.Summary, opts); err != nil {
		return fmt.Errorf("failed to write %s: %w", flags.Output, err)
	}

	a.logger.Info("Exported result", "file", flags.Output, "format", string(format))
	return nil
}
