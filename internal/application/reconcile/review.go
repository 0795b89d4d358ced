package reconcile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotMatchable        = errors.New("transaction has a zero amount")
)

// Confirm records a manual match of anchorID with partnerIDs at full
// confidence. Only balanced groups are accepted. Without override a partner
// that already belongs to a group is a *balance.ConflictError; with override
// the conflicting groups are dissolved first.
func (p *Pipeline) Confirm(state *balance.State, anchorID int, partnerIDs []int, override bool) (*balance.MatchGroup, error) {
	members := append([]int{anchorID}, partnerIDs...)

	amounts := make([]decimal.Decimal, 0, len(members))
	for _, id := range members {
		if tx, ok := state.Transactions().Get(id); ok {
			amounts = append(amounts, tx.Amount())
		}
	}
	if len(amounts) == len(members) && !p.calculator.ValidateBalance(amounts) {
		return nil, fmt.Errorf("%w: transactions %v", balance.ErrUnbalanced, members)
	}

	keywords := p.confirmKeywords(state, anchorID, partnerIDs)

	if !override {
		group, err := state.AssignGroup(members, matcher.StrategyManual, 1.0, keywords)
		if err != nil {
			return nil, err
		}
		p.logger.Info("Confirmed manual match", "group_id", group.ID, "members", group.Members)
		return group, nil
	}

	group, dissolved, err := state.Override(members, matcher.StrategyManual, 1.0, keywords)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Confirmed manual match",
		"group_id", group.ID,
		"members", group.Members,
		"dissolved", dissolved,
	)
	return group, nil
}

func (p *Pipeline) confirmKeywords(state *balance.State, anchorID int, partnerIDs []int) []string {
	anchor, ok := state.Transactions().Get(anchorID)
	if !ok {
		return nil
	}

	anchorKeywords := p.matcher.ExtractKeywords(anchor.Description())
	shared := matcher.NewKeywordSet()
	for _, id := range partnerIDs {
		if tx, ok := state.Transactions().Get(id); ok {
			for kw := range anchorKeywords.Intersect(p.matcher.ExtractKeywords(tx.Description())) {
				shared[kw] = struct{}{}
			}
		}
	}
	return shared.Sorted()
}

// Review builds a review item for every matchable transaction no group has
// claimed: revenues first, then expenses, each in id order.
func (p *Pipeline) Review(state *balance.State) []ReviewItem {
	items := []ReviewItem{}
	for _, kind := range []transaction.Kind{transaction.KindRevenue, transaction.KindExpense} {
		for _, tx := range state.Unclaimed(kind) {
			items = append(items, ReviewItem{
				TransactionID: tx.ID(),
				Description:   tx.Description(),
				Amount:        tx.Amount(),
				Kind:          tx.Kind(),
				Suggestions:   p.suggest(state, tx),
			})
		}
	}
	return items
}

// Suggest ranks unclaimed partners for a single transaction.
func (p *Pipeline) Suggest(state *balance.State, id int) ([]Suggestion, error) {
	tx, ok := state.Transactions().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	if !tx.Matchable() {
		return nil, fmt.Errorf("%w: %d", ErrNotMatchable, id)
	}
	return p.suggest(state, tx), nil
}

func (p *Pipeline) suggest(state *balance.State, target transaction.Transaction) []Suggestion {
	suggestions := []Suggestion{}
	for c := range p.matcher.AssistedSuggestions(target, state.Unclaimed(target.Kind().Opposite())) {
		partner, _ := state.Transactions().Get(c.Member())
		suggestions = append(suggestions, Suggestion{
			TransactionID:  partner.ID(),
			Description:    partner.Description(),
			Amount:         partner.Amount(),
			Confidence:     c.Confidence,
			Similarity:     c.Similarity,
			KeywordScore:   c.KeywordScore,
			AmountScore:    c.AmountScore,
			SharedKeywords: c.SharedKeywords,
		})
	}
	return suggestions
}
