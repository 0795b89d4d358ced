package matcher

import (
	"github.com/shopspring/decimal"
)

// Strategy names the matching level that produced a candidate.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategyKeyword  Strategy = "keyword"
	StrategyFuzzy    Strategy = "fuzzy"
	StrategyAssisted Strategy = "assisted"
	StrategyManual   Strategy = "manual"
)

// Level returns the precedence of a strategy (1 runs first).
func (s Strategy) Level() int {
	switch s {
	case StrategyExact:
		return 1
	case StrategyKeyword:
		return 2
	case StrategyFuzzy:
		return 3
	case StrategyAssisted:
		return 4
	default:
		return 0
	}
}

// Config holds matcher configuration
type Config struct {
	FuzzyThreshold          float64 // Default: 0.80 similarity
	HighConfidenceThreshold float64 // Default: 0.90, auto-confirm eligibility
	KeywordMinLength        int     // Default: 3 characters

	MinSharedKeywords int     // Default: 1
	MinKeywordOverlap float64 // Default: 0.20 shared/max(len)

	KeywordConfidenceFloor   float64 // Default: 0.70
	KeywordConfidenceCeiling float64 // Default: 0.95
	FuzzyConfidenceFloor     float64 // Default: 0.60
	FuzzyConfidenceCeiling   float64 // Default: 0.90

	// Assisted ranking
	MaxSuggestions   int     // Default: 5
	SimilarityWeight float64 // Default: 0.4
	KeywordWeight    float64 // Default: 0.4
	AmountWeight     float64 // Default: 0.2

	Stopwords      []string
	KeywordAliases map[string]string // token -> canonical token
}

// DefaultStopwords are dropped from keyword sets. Document words such as
// "invoice" and "payment" appear on both sides of a ledger and carry no signal.
var DefaultStopwords = []string{
	"to", "from", "for", "the", "and", "or", "in", "at", "by",
	"invoice", "payment", "receipt", "transaction", "bill", "ref",
}

// DefaultKeywordAliases folds verb forms that describe the same purchase.
var DefaultKeywordAliases = map[string]string{
	"buy":       "purchase",
	"buying":    "purchase",
	"bought":    "purchase",
	"purchased": "purchase",
	"purchases": "purchase",
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	aliases := make(map[string]string, len(DefaultKeywordAliases))
	for k, v := range DefaultKeywordAliases {
		aliases[k] = v
	}

	return Config{
		FuzzyThreshold:           0.80,
		HighConfidenceThreshold:  0.90,
		KeywordMinLength:         3,
		MinSharedKeywords:        1,
		MinKeywordOverlap:        0.20,
		KeywordConfidenceFloor:   0.70,
		KeywordConfidenceCeiling: 0.95,
		FuzzyConfidenceFloor:     0.60,
		FuzzyConfidenceCeiling:   0.90,
		MaxSuggestions:           5,
		SimilarityWeight:         0.4,
		KeywordWeight:            0.4,
		AmountWeight:             0.2,
		Stopwords:                append([]string(nil), DefaultStopwords...),
		KeywordAliases:           aliases,
	}
}

// Candidate is a proposed relationship between an anchor transaction and
// one or more transactions of the opposite kind. Candidates are suggestions;
// the balance calculator decides what becomes a match group.
type Candidate struct {
	Strategy       Strategy
	Confidence     float64 // 0-1
	Anchor         int     // Transaction id the candidate was built for
	Members        []int   // Opposite-kind transaction ids
	SharedKeywords []string
	AmountDelta    decimal.Decimal // anchor + members, zero when balanced

	// Assisted sub-scores (0 for other strategies)
	Similarity   float64
	KeywordScore float64
	AmountScore  float64
}

// IDs returns the anchor followed by the members.
func (c Candidate) IDs() []int {
	ids := make([]int, 0, len(c.Members)+1)
	ids = append(ids, c.Anchor)
	return append(ids, c.Members...)
}

// Member returns the single member of a pairwise candidate.
func (c Candidate) Member() int {
	if len(c.Members) == 0 {
		return -1
	}
	return c.Members[0]
}
