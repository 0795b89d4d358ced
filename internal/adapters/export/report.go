package export

import (
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

const (
	SheetSummary      = "Summary"
	SheetMatched      = "Matched"
	SheetUnmatched    = "Unmatched"
	SheetMatchDetails = "Match Details"

	SheetUnmatchedExpenses = "Unmatched Expenses"
	SheetUnmatchedRevenues = "Unmatched Revenues"
)

var now = time.Now

var detailsHeader = []string{
	"Match Group ID", "Match Type", "Confidence (%)", "Status",
	"Revenue Amount", "Expense Count", "Total Expenses", "Balance", "Balanced",
	"Shared Keywords", "Reason",
}

// WriteReport writes a four-sheet workbook: headline figures, matched
// transactions, everything still open, and one line per group.
func WriteReport(w io.Writer, state *balance.State, summary balance.Summary) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	defer wb.close()

	if err := writeSummarySheet(wb, summary); err != nil {
		return err
	}

	rows := groupedRows(state)
	var matched, open []groupedRow
	for _, row := range rows {
		if row.matched() {
			matched = append(matched, row)
		} else {
			open = append(open, row)
		}
	}
	if err := writeRowsSheet(wb, SheetMatched, matched); err != nil {
		return err
	}
	if err := writeRowsSheet(wb, SheetUnmatched, open); err != nil {
		return err
	}
	if err := writeDetailsSheet(wb, state); err != nil {
		return err
	}

	return wb.writeTo(w)
}

// WriteUnmatchedXLSX writes the ungrouped transactions split by kind, for
// working through them outside the tool.
func WriteUnmatchedXLSX(w io.Writer, state *balance.State) error {
	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	defer wb.close()

	var expenses, revenues []groupedRow
	for _, row := range groupedRows(state) {
		if row.group != nil {
			continue
		}
		switch row.tx.Kind() {
		case transaction.KindExpense:
			expenses = append(expenses, row)
		case transaction.KindRevenue:
			revenues = append(revenues, row)
		}
	}

	if err := writeRowsSheet(wb, SheetUnmatchedExpenses, expenses); err != nil {
		return err
	}
	if err := writeRowsSheet(wb, SheetUnmatchedRevenues, revenues); err != nil {
		return err
	}
	return wb.writeTo(w)
}

func writeSummarySheet(wb *workbook, s balance.Summary) error {
	if err := wb.addSheet(SheetSummary, []string{"Metric", "Value"}); err != nil {
		return err
	}

	metrics := [][]interface{}{
		{"Report Date", now().Format("2006-01-02 15:04:05")},
		{"Total Transactions", s.TotalTransactions},
		{"Total Expenses", s.ExpenseCount},
		{"Total Revenues", s.RevenueCount},
		{"Zero Amount Rows", s.ZeroCount},
		{"Matched Transactions", s.MatchedTransactions},
		{"Pending Review Transactions", s.PendingTransactions},
		{"Unmatched Transactions", s.UnmatchedTransactions},
		{"Match Rate (%)", s.ProgressPercent},
		{"Auto Matched (%)", s.AutoMatchedPercent},
		{"Total Match Groups", s.TotalGroups},
		{"Matched Groups", s.MatchedGroups},
		{"Pending Groups", s.PendingGroups},
		{"Total Expense Amount", s.TotalExpenses.InexactFloat64()},
		{"Total Revenue Amount", s.TotalRevenue.InexactFloat64()},
		{"Net Balance", s.NetBalance.InexactFloat64()},
		{"Unresolved Amount", s.UnresolvedAmount.InexactFloat64()},
		{"Bounded Searches", s.BoundedSearches},
	}
	for i, m := range metrics {
		if err := wb.setRow(SheetSummary, i+2, m, 0); err != nil {
			return err
		}
	}
	return nil
}

func writeRowsSheet(wb *workbook, sheet string, rows []groupedRow) error {
	if err := wb.addSheet(sheet, groupedHeader); err != nil {
		return err
	}
	for i, row := range rows {
		if err := wb.setRow(sheet, i+2, row.cells(), 0); err != nil {
			return err
		}
	}
	return nil
}

func writeDetailsSheet(wb *workbook, state *balance.State) error {
	if err := wb.addSheet(SheetMatchDetails, detailsHeader); err != nil {
		return err
	}

	set := state.Transactions()
	for i, g := range state.Groups() {
		revenue, expenses := decimal.Zero, decimal.Zero
		expenseCount := 0
		for _, id := range g.Members {
			tx, ok := set.Get(id)
			if !ok {
				continue
			}
			if tx.IsRevenue() {
				revenue = revenue.Add(tx.AbsAmount())
			} else {
				expenses = expenses.Add(tx.AbsAmount())
				expenseCount++
			}
		}

		balanced := "Unbalanced"
		if g.Status == balance.StatusMatched {
			balanced = "Balanced"
		}

		values := []interface{}{
			g.ID,
			string(g.Strategy),
			roundTo(g.Confidence*100, 1),
			string(g.Status),
			revenue.InexactFloat64(),
			expenseCount,
			expenses.InexactFloat64(),
			g.Balance.InexactFloat64(),
			balanced,
			strings.Join(g.SharedKeywords, ", "),
			g.Reason,
		}
		if err := wb.setRow(SheetMatchDetails, i+2, values, 0); err != nil {
			return err
		}
	}
	return nil
}
