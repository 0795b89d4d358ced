package matcher

import (
	"iter"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// AssistedSuggestions ranks pool transactions as possible partners for
// target, for a human to confirm. Nothing is ever applied automatically.
//
// The score is a weighted blend of description similarity, keyword overlap
// and amount proximity. Ranking happens when the sequence is iterated, so
// ranging over it again re-ranks from scratch. At most MaxSuggestions
// candidates are yielded, best first, earlier ids winning ties.
func (m *Matcher) AssistedSuggestions(target transaction.Transaction, pool []transaction.Transaction) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, c := range m.rankSuggestions(target, pool) {
			if !yield(c) {
				return
			}
		}
	}
}

func (m *Matcher) rankSuggestions(target transaction.Transaction, pool []transaction.Transaction) []Candidate {
	if !target.Matchable() || m.config.MaxSuggestions <= 0 {
		return nil
	}

	targetKeywords := m.ExtractKeywords(target.Description())
	ranked := make([]Candidate, 0, len(pool))

	for _, tx := range pool {
		if !opposed(target, tx) {
			continue
		}

		txKeywords := m.ExtractKeywords(tx.Description())
		sim := Similarity(target.Description(), tx.Description())
		keywordScore := targetKeywords.OverlapRatio(txKeywords)
		amountScore := AmountProximity(target.Amount(), tx.Amount())

		score := sim*m.config.SimilarityWeight +
			keywordScore*m.config.KeywordWeight +
			amountScore*m.config.AmountWeight

		ranked = append(ranked, Candidate{
			Strategy:       StrategyAssisted,
			Confidence:     min(max(score, 0), 1),
			Anchor:         target.ID(),
			Members:        []int{tx.ID()},
			SharedKeywords: targetKeywords.Intersect(txKeywords).Sorted(),
			AmountDelta:    target.Amount().Add(tx.Amount()),
			Similarity:     sim,
			KeywordScore:   keywordScore,
			AmountScore:    amountScore,
		})
	}

	sortCandidates(ranked)
	if len(ranked) > m.config.MaxSuggestions {
		ranked = ranked[:m.config.MaxSuggestions]
	}
	return ranked
}

// AmountProximity scores how close two unsigned amounts are, relative to the
// target: 1 for equal amounts, falling to 0 at a 100% difference.
func AmountProximity(target, candidate decimal.Decimal) float64 {
	t := target.Abs()
	if t.IsZero() {
		return 0
	}

	diff := candidate.Abs().Sub(t).Abs()
	score, _ := decimal.NewFromInt(1).Sub(diff.Div(t)).Float64()
	return max(score, 0)
}
