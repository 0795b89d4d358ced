package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
)

// IngestFlags choose which columns of a ledger file are read
type IngestFlags struct {
	AmountColumn       string
	DescriptionColumn  string
	RequireDescription bool
}

// register adds the ingest flags to cmd
func (f *IngestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.AmountColumn, "amount-column", "a", "", "Amount column (default: detected)")
	cmd.Flags().StringVarP(&f.DescriptionColumn, "description-column", "d", "", "Description column (default: detected)")
	cmd.Flags().BoolVar(&f.RequireDescription, "require-description", false, "Reject rows with an empty description")
}

// loadLedger reads a ledger file into a transaction set. Columns not named
// by flags are detected from the file content.
func (a *app) loadLedger(path string, flags IngestFlags) (*ingest.Processed, error) {
	table, err := ingest.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	amountColumn, descriptionColumn := flags.AmountColumn, flags.DescriptionColumn
	if amountColumn == "" || descriptionColumn == "" {
		analysis := ingest.AnalyzeColumns(table)
		if amountColumn == "" {
			amountColumn = analysis.SuggestedAmountColumn
		}
		if descriptionColumn == "" {
			descriptionColumn = analysis.SuggestedDescriptionColumn
		}
		a.logger.Debug("Detected columns",
			"amount_column", amountColumn,
			"description_column", descriptionColumn,
		)
	}

	opts := ingest.Options{
		RequireDescription: flags.RequireDescription || a.cfg.Ingest.RequireDescription,
	}

	processed, err := ingest.Process(table, amountColumn, descriptionColumn, opts)
	if err != nil {
		if errors.Is(err, ingest.ErrColumnNotFound) {
			return nil, fmt.Errorf("%w (available: %v)", err, table.Headers)
		}
		return nil, err
	}

	for _, rejected := range processed.Rejected {
		a.logger.Warn("Skipping row", "error", rejected)
	}
	a.logger.Info("Loaded ledger",
		"file", path,
		"transactions", processed.Set.Len(),
		"rejected", len(processed.Rejected),
	)

	return processed, nil
}
