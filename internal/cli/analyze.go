package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
)

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze FILE",
		Short: "Show the columns of a ledger file and which ones would be used",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ingest.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			PrintAnalysis(cmd.OutOrStdout(), ingest.AnalyzeColumns(table), len(table.Rows))
			return nil
		},
	}
}
