// Package transaction defines the immutable input records the reconciliation
// engine works on.
//
// A Transaction is a row index, a free-text description and a signed amount.
// Negative amounts are expenses, positive amounts are revenues and zero rows
// are carried along (so row indexes stay stable) but never matched.
//
// Example usage:
//
//	tx, err := transaction.Parse(0, "Invoice A", "-5000")
//	if err != nil {
//		var inputErr *transaction.InputError
//		errors.As(err, &inputErr) // malformed row, reject it
//	}
//	set, err := transaction.NewSet([]transaction.Transaction{tx})
package transaction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction by the sign of its amount.
type Kind string

const (
	KindExpense Kind = "expense"
	KindRevenue Kind = "revenue"
	KindZero    Kind = "zero"
)

// Opposite returns the kind a transaction must be matched against.
func (k Kind) Opposite() Kind {
	switch k {
	case KindExpense:
		return KindRevenue
	case KindRevenue:
		return KindExpense
	default:
		return KindZero
	}
}

// Transaction is a single ledger row. Fields are unexported so a value can
// never be changed once it has been built.
type Transaction struct {
	id          int
	description string
	amount      decimal.Decimal
}

// New builds a transaction from already-resolved values.
func New(id int, description string, amount decimal.Decimal) Transaction {
	return Transaction{
		id:          id,
		description: description,
		amount:      amount,
	}
}

// NewFromFloat is a convenience for tests and callers holding float amounts.
func NewFromFloat(id int, description string, amount float64) Transaction {
	return New(id, description, decimal.NewFromFloat(amount))
}

// Parse builds a transaction from raw cell text. Amounts that are missing or
// not numeric are rejected with an InputError, never coerced.
func Parse(id int, description, rawAmount string) (Transaction, error) {
	cleaned := strings.TrimSpace(rawAmount)
	if cleaned == "" {
		return Transaction{}, &InputError{Row: id, Field: "amount", Reason: "missing amount"}
	}

	// Thousands separators are formatting, not data
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Transaction{}, &InputError{
			Row:    id,
			Field:  "amount",
			Reason: fmt.Sprintf("non-numeric amount %q", rawAmount),
			Err:    err,
		}
	}

	return New(id, strings.TrimSpace(description), amount), nil
}

// ID returns the stable row index.
func (t Transaction) ID() int { return t.id }

// Description returns the free-text description.
func (t Transaction) Description() string { return t.description }

// Amount returns the signed amount.
func (t Transaction) Amount() decimal.Decimal { return t.amount }

// AbsAmount returns the unsigned amount.
func (t Transaction) AbsAmount() decimal.Decimal { return t.amount.Abs() }

// Kind derives the transaction kind from the amount sign.
func (t Transaction) Kind() Kind {
	switch t.amount.Sign() {
	case -1:
		return KindExpense
	case 1:
		return KindRevenue
	default:
		return KindZero
	}
}

// IsExpense reports whether the amount is negative.
func (t Transaction) IsExpense() bool { return t.Kind() == KindExpense }

// IsRevenue reports whether the amount is positive.
func (t Transaction) IsRevenue() bool { return t.Kind() == KindRevenue }

// Matchable reports whether the transaction takes part in matching.
func (t Transaction) Matchable() bool { return t.Kind() != KindZero }

func (t Transaction) String() string {
	return fmt.Sprintf("#%d %q %s", t.id, t.description, t.amount.StringFixed(2))
}
