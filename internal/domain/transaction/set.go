package transaction

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Set is an arena of transactions indexed by id. It is read-only after
// construction; every accessor hands out copies.
type Set struct {
	byID  map[int]Transaction
	order []int
}

// NewSet indexes the given transactions. Duplicate ids are an InputError.
func NewSet(txs []Transaction) (*Set, error) {
	s := &Set{
		byID:  make(map[int]Transaction, len(txs)),
		order: make([]int, 0, len(txs)),
	}

	for _, tx := range txs {
		if _, exists := s.byID[tx.id]; exists {
			return nil, &InputError{Row: tx.id, Field: "id", Reason: "duplicate row id"}
		}
		s.byID[tx.id] = tx
		s.order = append(s.order, tx.id)
	}

	sort.Ints(s.order)
	return s, nil
}

// MustSet is NewSet for fixtures that are known to be valid.
func MustSet(txs ...Transaction) *Set {
	s, err := NewSet(txs)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of transactions, zero rows included.
func (s *Set) Len() int { return len(s.order) }

// Get returns the transaction with the given id.
func (s *Set) Get(id int) (Transaction, bool) {
	tx, ok := s.byID[id]
	return tx, ok
}

// All returns every transaction in id order.
func (s *Set) All() []Transaction {
	out := make([]Transaction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// OfKind returns the transactions of one kind in id order.
func (s *Set) OfKind(kind Kind) []Transaction {
	var out []Transaction
	for _, id := range s.order {
		if tx := s.byID[id]; tx.Kind() == kind {
			out = append(out, tx)
		}
	}
	return out
}

// Expenses returns the negative-amount transactions in id order.
func (s *Set) Expenses() []Transaction { return s.OfKind(KindExpense) }

// Revenues returns the positive-amount transactions in id order.
func (s *Set) Revenues() []Transaction { return s.OfKind(KindRevenue) }

// Sum adds the amounts of the given ids. Unknown ids contribute nothing.
func (s *Set) Sum(ids []int) decimal.Decimal {
	total := decimal.Zero
	for _, id := range ids {
		if tx, ok := s.byID[id]; ok {
			total = total.Add(tx.amount)
		}
	}
	return total
}
