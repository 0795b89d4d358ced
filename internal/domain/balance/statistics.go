package balance

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// Summary is a read-only projection of a reconciliation state.
type Summary struct {
	TotalTransactions     int `json:"total_transactions"`
	ExpenseCount          int `json:"expense_count"`
	RevenueCount          int `json:"revenue_count"`
	ZeroCount             int `json:"zero_count"`
	MatchedTransactions   int `json:"matched_transactions"`
	PendingTransactions   int `json:"pending_transactions"`
	UnmatchedTransactions int `json:"unmatched_transactions"`

	TotalGroups      int            `json:"total_groups"`
	MatchedGroups    int            `json:"matched_groups"`
	PendingGroups    int            `json:"pending_groups"`
	GroupsByStrategy map[string]int `json:"groups_by_strategy"`
	AutoConfirmable  int            `json:"auto_confirmable"`

	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetBalance       decimal.Decimal `json:"net_balance"`
	UnresolvedAmount decimal.Decimal `json:"unresolved_amount"`

	AutoMatchedPercent float64 `json:"auto_matched_percent"`
	ReviewPercent      float64 `json:"review_percent"`
	ProgressPercent    float64 `json:"progress_percent"`

	Discrepancies   []Discrepancy `json:"discrepancies"`
	BoundedSearches int           `json:"bounded_searches"`
}

// Discrepancy is a group whose members do not net to exactly zero.
type Discrepancy struct {
	GroupID string          `json:"group_id"`
	Status  Status          `json:"status"`
	Balance decimal.Decimal `json:"balance"`
}

// ComputeStatistics summarizes a state. It never modifies it.
func ComputeStatistics(state *State) Summary {
	summary := Summary{
		GroupsByStrategy: make(map[string]int),
		TotalRevenue:     decimal.Zero,
		TotalExpenses:    decimal.Zero,
		UnresolvedAmount: decimal.Zero,
		Discrepancies:    []Discrepancy{},
		BoundedSearches:  state.BoundedSearches(),
	}

	autoMatched := 0
	for _, tx := range state.Transactions().All() {
		summary.TotalTransactions++
		switch tx.Kind() {
		case transaction.KindExpense:
			summary.ExpenseCount++
			summary.TotalExpenses = summary.TotalExpenses.Add(tx.AbsAmount())
		case transaction.KindRevenue:
			summary.RevenueCount++
			summary.TotalRevenue = summary.TotalRevenue.Add(tx.AbsAmount())
		default:
			summary.ZeroCount++
			continue
		}

		group, ok := state.claimed[tx.ID()]
		switch {
		case !ok:
			summary.UnmatchedTransactions++
			summary.UnresolvedAmount = summary.UnresolvedAmount.Add(tx.AbsAmount())
		case group.Status == StatusMatched:
			summary.MatchedTransactions++
			if group.Strategy != matcher.StrategyManual {
				autoMatched++
			}
		default:
			summary.PendingTransactions++
		}
	}
	summary.NetBalance = summary.TotalRevenue.Sub(summary.TotalExpenses)

	for _, g := range state.groups {
		summary.TotalGroups++
		summary.GroupsByStrategy[string(g.Strategy)]++
		if g.Status == StatusMatched {
			summary.MatchedGroups++
		} else {
			summary.PendingGroups++
		}
		if g.Confidence >= state.config.HighConfidenceThreshold {
			summary.AutoConfirmable++
		}
		if !g.Balance.IsZero() {
			summary.Discrepancies = append(summary.Discrepancies, Discrepancy{
				GroupID: g.ID,
				Status:  g.Status,
				Balance: g.Balance,
			})
		}
	}

	matchable := summary.ExpenseCount + summary.RevenueCount
	summary.AutoMatchedPercent = percent(autoMatched, matchable)
	summary.ReviewPercent = percent(summary.PendingTransactions, matchable)
	summary.ProgressPercent = percent(summary.MatchedTransactions, matchable)

	return summary
}

// percent returns part/whole as a percentage rounded to two places.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}
