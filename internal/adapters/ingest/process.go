package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// ErrColumnNotFound is returned when a chosen column is not in the table.
var ErrColumnNotFound = errors.New("column not found")

// Options control how rows are resolved into transactions.
type Options struct {
	// RequireDescription rejects rows whose description cell is empty.
	RequireDescription bool
}

// Processed is the outcome of resolving a table.
type Processed struct {
	Set      *transaction.Set
	Rejected []*transaction.InputError
	// Source is the table the set was resolved from. Transaction i came
	// from Source.Rows[i].
	Source *Table

	Expenses int
	Revenues int
	Zero     int
}

// Message summarizes the processed rows for display.
func (p *Processed) Message() string {
	return fmt.Sprintf("Processed %d transactions (%d expenses, %d revenues, %d rejected)",
		p.Set.Len(), p.Expenses, p.Revenues, len(p.Rejected))
}

// Process resolves the chosen columns into a transaction set. The id of a
// transaction is its zero-based data row index, so ids stay stable when
// rows are rejected. Zero-amount rows are kept but never matched.
func Process(t *Table, amountColumn, descriptionColumn string, opts Options) (*Processed, error) {
	amountIdx, ok := t.Column(amountColumn)
	if !ok {
		return nil, fmt.Errorf("%w: amount column %q", ErrColumnNotFound, amountColumn)
	}
	descIdx, ok := t.Column(descriptionColumn)
	if !ok {
		return nil, fmt.Errorf("%w: description column %q", ErrColumnNotFound, descriptionColumn)
	}

	result := &Processed{Source: t}
	txs := make([]transaction.Transaction, 0, len(t.Rows))

	for i, row := range t.Rows {
		description := strings.TrimSpace(row[descIdx])
		if opts.RequireDescription && description == "" {
			result.Rejected = append(result.Rejected, &transaction.InputError{
				Row:    i,
				Field:  "description",
				Reason: "empty description",
			})
			continue
		}

		tx, err := transaction.Parse(i, description, row[amountIdx])
		if err != nil {
			var inputErr *transaction.InputError
			if errors.As(err, &inputErr) {
				result.Rejected = append(result.Rejected, inputErr)
				continue
			}
			return nil, err
		}

		switch tx.Kind() {
		case transaction.KindExpense:
			result.Expenses++
		case transaction.KindRevenue:
			result.Revenues++
		default:
			result.Zero++
		}
		txs = append(txs, tx)
	}

	set, err := transaction.NewSet(txs)
	if err != nil {
		return nil, err
	}
	result.Set = set

	return result, nil
}
