package matcher

import (
	"sort"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// ExactPool returns every transaction in pool whose normalized description
// equals the anchor's, in id order.
func (m *Matcher) ExactPool(anchor transaction.Transaction, pool []transaction.Transaction) []Candidate {
	var out []Candidate
	for _, tx := range pool {
		if c, ok := m.ExactMatch(anchor, tx); ok {
			out = append(out, c)
		}
	}
	sortCandidates(out)
	return out
}

// KeywordPool returns a keyword candidate for every transaction in pool that
// shares keywords with the anchor. A revenue can be linked to several
// expenses at once; combining them is left to the balance calculator.
func (m *Matcher) KeywordPool(anchor transaction.Transaction, pool []transaction.Transaction) []Candidate {
	anchorKeywords := m.ExtractKeywords(anchor.Description())
	if anchorKeywords.Len() == 0 {
		return nil
	}

	var out []Candidate
	for _, tx := range pool {
		if !opposed(anchor, tx) {
			continue
		}
		if c, ok := m.keywordMatch(anchor, anchorKeywords, tx); ok {
			out = append(out, c)
		}
	}
	sortCandidates(out)
	return out
}

// FuzzyPool returns a fuzzy candidate for every transaction in pool whose
// description is similar enough to the anchor's.
func (m *Matcher) FuzzyPool(anchor transaction.Transaction, pool []transaction.Transaction) []Candidate {
	var out []Candidate
	for _, tx := range pool {
		if c, ok := m.FuzzyMatch(anchor, tx); ok {
			out = append(out, c)
		}
	}
	sortCandidates(out)
	return out
}

// sortCandidates orders by confidence descending, then by the earliest
// member id so equal scores always come back in the same order.
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Confidence != cs[j].Confidence {
			return cs[i].Confidence > cs[j].Confidence
		}
		return cs[i].Member() < cs[j].Member()
	})
}
