// Package validator provides balance checks for candidate match groups.
//
// A group balances when its signed amounts cancel out: revenue on one side,
// expenses on the other, net residual within tolerance. The validator is
// used before a group is committed so half-posted or over-claimed groups are
// flagged for review instead of being marked reconciled.
package validator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the residual below which a group counts as balanced.
var DefaultTolerance = decimal.New(1, -2)

// GroupValidation contains the result of validating a group's amounts.
type GroupValidation struct {
	// Valid is true if the amounts cancel out within tolerance
	Valid bool

	// Revenue is the sum of all positive amounts
	Revenue decimal.Decimal

	// Expenses is the unsigned sum of all negative amounts
	Expenses decimal.Decimal

	// Residual is the signed net of the group (revenue - expenses)
	Residual decimal.Decimal

	// Reason explains why validation failed (empty if valid)
	Reason string
}

// ValidateGroup checks that the signed amounts of a group net to zero.
//
// The validation passes if:
//
//	|sum(amounts)| <= tolerance
//
// A negative tolerance is treated as zero.
func ValidateGroup(amounts []decimal.Decimal, tolerance decimal.Decimal) *GroupValidation {
	if tolerance.IsNegative() {
		tolerance = decimal.Zero
	}

	revenue := decimal.Zero
	expenses := decimal.Zero
	for _, amount := range amounts {
		if amount.IsPositive() {
			revenue = revenue.Add(amount)
		} else {
			expenses = expenses.Add(amount.Abs())
		}
	}
	residual := revenue.Sub(expenses)

	result := &GroupValidation{
		Revenue:  revenue,
		Expenses: expenses,
		Residual: residual,
	}

	if residual.Abs().LessThanOrEqual(tolerance) {
		result.Valid = true
		return result
	}

	if residual.IsNegative() {
		result.Reason = fmt.Sprintf("expenses ($%s) exceed revenue ($%s) by $%s - likely a revenue entry is missing",
			expenses.StringFixed(2), revenue.StringFixed(2), residual.Abs().StringFixed(2))
	} else {
		result.Reason = fmt.Sprintf("revenue ($%s) exceeds expenses ($%s) by $%s - likely an expense hasn't been grouped yet",
			revenue.StringFixed(2), expenses.StringFixed(2), residual.StringFixed(2))
	}

	return result
}
