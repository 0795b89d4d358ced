// Package export writes reconciliation results back out as CSV and XLSX
// files: a grouped listing of every transaction, a multi-sheet report, and
// the uploaded file itself with status columns filled in.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

const (
	// UnmatchedGroupID labels rows that belong to no group.
	UnmatchedGroupID = "UNMATCHED"

	DefaultHighlightColor = "FFFF00"
	DefaultStatusText     = "RECONCILED"
	DefaultStatusColumn   = "Reconciliation Status"
)

// Options control the XLSX exports.
type Options struct {
	// Highlight fills matched rows with HighlightColor.
	Highlight      bool
	HighlightColor string
	// StatusText is written to the reconciled column of matched rows.
	StatusText string
	// StatusColumns are the columns the update export fills with StatusText.
	StatusColumns []string
	// Source is the uploaded table the update export writes back. Row i of
	// the table is transaction i.
	Source *ingest.Table
}

// DefaultOptions returns the export options used when none are given.
func DefaultOptions() Options {
	return Options{
		Highlight:      true,
		HighlightColor: DefaultHighlightColor,
		StatusText:     DefaultStatusText,
		StatusColumns:  []string{DefaultStatusColumn},
	}
}

var groupedHeader = []string{
	"id", "description", "amount", "kind",
	"match_group_id", "match_status", "match_type", "match_confidence", "group_position",
}

// groupedRow is one transaction placed in the grouped listing.
type groupedRow struct {
	tx       transaction.Transaction
	group    *balance.MatchGroup
	status   balance.Status
	position string
}

func (r groupedRow) groupID() string {
	if r.group == nil {
		return UnmatchedGroupID
	}
	return r.group.ID
}

func (r groupedRow) strategy() string {
	if r.group == nil {
		return "N/A"
	}
	return string(r.group.Strategy)
}

func (r groupedRow) confidence() string {
	if r.group == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", r.group.Confidence*100)
}

func (r groupedRow) matched() bool {
	return r.status == balance.StatusMatched
}

// groupedRows lists group members in group creation order, revenues before
// expenses, followed by every ungrouped transaction in id order.
func groupedRows(state *balance.State) []groupedRow {
	set := state.Transactions()
	rows := make([]groupedRow, 0, set.Len())

	for _, g := range state.Groups() {
		var revenues, expenses []transaction.Transaction
		for _, id := range g.Members {
			tx, ok := set.Get(id)
			if !ok {
				continue
			}
			if tx.IsRevenue() {
				revenues = append(revenues, tx)
			} else {
				expenses = append(expenses, tx)
			}
		}

		for i, tx := range revenues {
			rows = append(rows, groupedRow{tx: tx, group: g, status: g.Status, position: position("revenue", i, len(revenues))})
		}
		for i, tx := range expenses {
			rows = append(rows, groupedRow{tx: tx, group: g, status: g.Status, position: position("expense", i, len(expenses))})
		}
	}

	for _, tx := range set.All() {
		if state.IsClaimed(tx.ID()) {
			continue
		}
		status := state.StatusOf(tx.ID())
		rows = append(rows, groupedRow{tx: tx, status: status, position: string(status)})
	}

	return rows
}

func position(side string, i, n int) string {
	if n == 1 {
		return side
	}
	return side + "_" + strconv.Itoa(i+1)
}

func (r groupedRow) record() []string {
	return []string{
		strconv.Itoa(r.tx.ID()),
		r.tx.Description(),
		r.tx.Amount().String(),
		string(r.tx.Kind()),
		r.groupID(),
		string(r.status),
		r.strategy(),
		r.confidence(),
		r.position,
	}
}

// WriteGroupedCSV writes every transaction with its group assignment.
func WriteGroupedCSV(w io.Writer, state *balance.State) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(groupedHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range groupedRows(state) {
		if err := writer.Write(row.record()); err != nil {
			return fmt.Errorf("failed to write transaction %d: %w", row.tx.ID(), err)
		}
	}

	writer.Flush()
	return writer.Error()
}
