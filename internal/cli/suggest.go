package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) suggestCmd() *cobra.Command {
	var (
		ingestFlags IngestFlags
		id          int
	)

	cmd := &cobra.Command{
		Use:   "suggest FILE --id N",
		Short: "Rank possible partners for one transaction",
		Long: `Reconcile a ledger, then rank the unclaimed transactions of the opposite
kind that could pair with the given one. Transaction ids are zero-based
data row numbers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processed, err := a.loadLedger(args[0], ingestFlags)
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

			suggestions, err := pipeline.Suggest(result.State, id)
			if err != nil {
				return err
			}

			target, _ := processed.Set.Get(id)
			PrintSuggestions(cmd.OutOrStdout(), target, result.State, suggestions)
			return nil
		},
	}

	ingestFlags.register(cmd)
	cmd.Flags().IntVar(&id, "id", -1, "Transaction id (zero-based data row)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
