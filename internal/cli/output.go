package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

const rule = "------------------------------------------------------------"

// PrintHeader prints the file being reconciled and what was loaded from it
func PrintHeader(w io.Writer, path string, processed *ingest.Processed) {
	fmt.Fprintf(w, "reconcile: %s\n", path)
	fmt.Fprintln(w, processed.Message())
	if processed.Zero > 0 {
		fmt.Fprintf(w, "Excluded %d zero-amount rows\n", processed.Zero)
	}
	fmt.Fprintln(w)
}

// PrintAnalysis prints the column classification of a ledger file
func PrintAnalysis(w io.Writer, analysis ingest.ColumnAnalysis, rows int) {
	fmt.Fprintf(w, "Rows: %d\n", rows)
	fmt.Fprintf(w, "Columns: %s\n", strings.Join(analysis.AllColumns, ", "))
	fmt.Fprintf(w, "Numeric: %s\n", joinOrNone(analysis.NumericColumns))
	fmt.Fprintf(w, "Text: %s\n", joinOrNone(analysis.TextColumns))
	fmt.Fprintf(w, "Suggested amount column: %s\n", orNone(analysis.SuggestedAmountColumn))
	fmt.Fprintf(w, "Suggested description column: %s\n", orNone(analysis.SuggestedDescriptionColumn))
}

// PrintGroups prints one line per match group in creation order
func PrintGroups(w io.Writer, state *balance.State) {
	groups := state.Groups()
	if len(groups) == 0 {
		fmt.Fprintln(w, "No match groups.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tSTRATEGY\tCONFIDENCE\tSTATUS\tBALANCE\tMEMBERS")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%s\t%s\t%s\n",
			g.ID,
			g.Strategy,
			g.Confidence*100,
			g.Status,
			g.Balance.StringFixed(2),
			formatIDs(g.Members),
		)
	}
	_ = tw.Flush()
}

// PrintReview prints unresolved transactions with their best suggestions.
// A limit of zero prints every item.
func PrintReview(w io.Writer, items []reconcile.ReviewItem, limit int) {
	if len(items) == 0 {
		return
	}

	fmt.Fprintf(w, "\nNeeds review (%d):\n", len(items))
	shown := items
	if limit > 0 && limit < len(items) {
		shown = items[:limit]
	}
	for _, item := range shown {
		fmt.Fprintf(w, "  #%d %s %s\n", item.TransactionID, item.Amount.StringFixed(2), item.Description)
		for _, s := range item.Suggestions {
			printSuggestion(w, "      ", s)
		}
	}
	if len(shown) < len(items) {
		fmt.Fprintf(w, "  ... %d more\n", len(items)-len(shown))
	}
}

// PrintSuggestions prints ranked partners for a single transaction
func PrintSuggestions(w io.Writer, target transaction.Transaction, state *balance.State, suggestions []reconcile.Suggestion) {
	fmt.Fprintf(w, "#%d %s %s (%s)\n", target.ID(), target.Amount().StringFixed(2), target.Description(), target.Kind())
	if g, ok := state.GroupOf(target.ID()); ok {
		fmt.Fprintf(w, "Already in %s (%s)\n", g.ID, g.Status)
	}

	if len(suggestions) == 0 {
		fmt.Fprintln(w, "No suggestions.")
		return
	}
	for _, s := range suggestions {
		printSuggestion(w, "  ", s)
	}
}

func printSuggestion(w io.Writer, indent string, s reconcile.Suggestion) {
	fmt.Fprintf(w, "%s-> #%d %s %s [%.1f%%", indent, s.TransactionID, s.Amount.StringFixed(2), s.Description, s.Confidence*100)
	if len(s.SharedKeywords) > 0 {
		fmt.Fprintf(w, " keywords=%s", strings.Join(s.SharedKeywords, ","))
	}
	fmt.Fprintln(w, "]")
}

// PrintSummary prints the reconciliation result summary
func PrintSummary(w io.Writer, summary balance.Summary, duration time.Duration) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Summary: Groups=%d Matched=%d Pending=%d Unresolved=%d\n",
		summary.TotalGroups,
		summary.MatchedTransactions,
		summary.PendingTransactions,
		summary.UnmatchedTransactions)
	fmt.Fprintf(w, "Revenue=%s Expenses=%s Net=%s Unresolved amount=%s\n",
		summary.TotalRevenue.StringFixed(2),
		summary.TotalExpenses.StringFixed(2),
		summary.NetBalance.StringFixed(2),
		summary.UnresolvedAmount.StringFixed(2))
	fmt.Fprintf(w, "Auto-matched=%.1f%% Review=%.1f%% Progress=%.1f%%\n",
		summary.AutoMatchedPercent,
		summary.ReviewPercent,
		summary.ProgressPercent)

	if len(summary.Discrepancies) > 0 {
		fmt.Fprintln(w, "\nDiscrepancies:")
		for _, d := range summary.Discrepancies {
			fmt.Fprintf(w, "  - %s %s balance=%s\n", d.GroupID, d.Status, d.Balance.StringFixed(2))
		}
	}
	if summary.BoundedSearches > 0 {
		fmt.Fprintf(w, "\nWarning: %d combination searches hit the size bound\n", summary.BoundedSearches)
	}
	if duration > 0 {
		fmt.Fprintf(w, "\nCompleted in %s\n", duration.Round(time.Millisecond))
	}
}

func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " ")
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
