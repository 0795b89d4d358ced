// Package matcher links expense and revenue transactions using only their
// descriptions and amounts.
//
// The matcher runs four escalating strategies:
//   - Exact: identical normalized descriptions (confidence 1.0)
//   - Keyword: shared description keywords (confidence 0.70-0.95)
//   - Fuzzy: token-sorted edit-distance similarity (confidence 0.60-0.90)
//   - Assisted: ranked suggestions for a human to confirm
//
// Every function is pure: transactions are never modified and nothing is
// claimed here. Deciding which candidates become match groups is the job of
// the balance package.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	if c, ok := m.KeywordMatch(revenue, expense); ok {
//		fmt.Println(c.Confidence, c.SharedKeywords)
//	}
package matcher

import (
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// Matcher produces candidate matches between transactions
type Matcher struct {
	config    Config
	stopwords map[string]struct{}
	aliases   map[string]string
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	stopwords := make(map[string]struct{}, len(config.Stopwords))
	for _, w := range config.Stopwords {
		stopwords[Normalize(w)] = struct{}{}
	}

	aliases := make(map[string]string, len(config.KeywordAliases))
	for from, to := range config.KeywordAliases {
		aliases[Normalize(from)] = Normalize(to)
	}

	return &Matcher{
		config:    config,
		stopwords: stopwords,
		aliases:   aliases,
	}
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// AutoConfirmable reports whether a confidence clears the high-confidence
// threshold used upstream to confirm groups without review.
func (m *Matcher) AutoConfirmable(confidence float64) bool {
	return confidence >= m.config.HighConfidenceThreshold
}

// opposed reports whether a and b can be matched against each other.
func opposed(a, b transaction.Transaction) bool {
	return a.ID() != b.ID() && a.Matchable() && b.Matchable() && a.Kind() == b.Kind().Opposite()
}

// ExactMatch returns a full-confidence candidate when both descriptions are
// identical after normalization. Amounts do not have to offset; the
// candidate's AmountDelta tells the caller whether they do.
func (m *Matcher) ExactMatch(a, b transaction.Transaction) (Candidate, bool) {
	if !opposed(a, b) {
		return Candidate{}, false
	}

	left := Normalize(a.Description())
	if left == "" || left != Normalize(b.Description()) {
		return Candidate{}, false
	}

	return Candidate{
		Strategy:       StrategyExact,
		Confidence:     1.0,
		Anchor:         a.ID(),
		Members:        []int{b.ID()},
		SharedKeywords: m.ExtractKeywords(a.Description()).Sorted(),
		AmountDelta:    a.Amount().Add(b.Amount()),
	}, true
}

// KeywordMatch returns a candidate when the two descriptions share enough
// keywords. Confidence grows linearly with the overlap ratio from the
// configured floor to the configured ceiling.
func (m *Matcher) KeywordMatch(a, b transaction.Transaction) (Candidate, bool) {
	if !opposed(a, b) {
		return Candidate{}, false
	}
	return m.keywordMatch(a, m.ExtractKeywords(a.Description()), b)
}

func (m *Matcher) keywordMatch(a transaction.Transaction, aKeywords KeywordSet, b transaction.Transaction) (Candidate, bool) {
	if aKeywords.Len() == 0 {
		return Candidate{}, false
	}

	bKeywords := m.ExtractKeywords(b.Description())
	shared := aKeywords.Intersect(bKeywords)
	if shared.Len() == 0 || shared.Len() < m.config.MinSharedKeywords {
		return Candidate{}, false
	}

	ratio := aKeywords.OverlapRatio(bKeywords)
	if ratio < m.config.MinKeywordOverlap {
		return Candidate{}, false
	}

	return Candidate{
		Strategy:       StrategyKeyword,
		Confidence:     scale(ratio, m.config.KeywordConfidenceFloor, m.config.KeywordConfidenceCeiling),
		Anchor:         a.ID(),
		Members:        []int{b.ID()},
		SharedKeywords: shared.Sorted(),
		AmountDelta:    a.Amount().Add(b.Amount()),
		KeywordScore:   ratio,
	}, true
}

// FuzzyMatch returns a candidate when the description similarity reaches the
// fuzzy threshold. Confidence is scaled across the range above the threshold.
func (m *Matcher) FuzzyMatch(a, b transaction.Transaction) (Candidate, bool) {
	if !opposed(a, b) {
		return Candidate{}, false
	}

	sim := Similarity(a.Description(), b.Description())
	if sim == 0 || sim < m.config.FuzzyThreshold {
		return Candidate{}, false
	}

	position := 1.0
	if m.config.FuzzyThreshold < 1 {
		position = (sim - m.config.FuzzyThreshold) / (1 - m.config.FuzzyThreshold)
	}

	shared := m.ExtractKeywords(a.Description()).Intersect(m.ExtractKeywords(b.Description()))

	return Candidate{
		Strategy:       StrategyFuzzy,
		Confidence:     scale(position, m.config.FuzzyConfidenceFloor, m.config.FuzzyConfidenceCeiling),
		Anchor:         a.ID(),
		Members:        []int{b.ID()},
		SharedKeywords: shared.Sorted(),
		AmountDelta:    a.Amount().Add(b.Amount()),
		Similarity:     sim,
	}, true
}

// scale maps a position in [0,1] linearly onto [floor,ceiling].
func scale(position, floor, ceiling float64) float64 {
	position = min(max(position, 0), 1)
	return floor + (ceiling-floor)*position
}
