package matcher

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// KeywordSet is a set of normalized description tokens.
type KeywordSet map[string]struct{}

// NewKeywordSet builds a set from already-normalized tokens.
func NewKeywordSet(tokens ...string) KeywordSet {
	s := make(KeywordSet, len(tokens))
	for _, tok := range tokens {
		s[tok] = struct{}{}
	}
	return s
}

// Len returns the number of keywords.
func (s KeywordSet) Len() int { return len(s) }

// Contains reports whether the keyword is in the set.
func (s KeywordSet) Contains(keyword string) bool {
	_, ok := s[keyword]
	return ok
}

// Intersect returns the keywords present in both sets.
func (s KeywordSet) Intersect(other KeywordSet) KeywordSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}

	out := make(KeywordSet)
	for k := range small {
		if _, ok := large[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// OverlapRatio is |A∩B| / max(|A|,|B|). Empty sets overlap with nothing.
func (s KeywordSet) OverlapRatio(other KeywordSet) float64 {
	denom := max(len(s), len(other))
	if denom == 0 {
		return 0
	}
	return float64(len(s.Intersect(other))) / float64(denom)
}

// Sorted returns the keywords in lexical order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Normalize lower-cases a description, trims it and collapses inner
// whitespace. Exact matching compares normalized descriptions.
func Normalize(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// tokenize splits a description into lower-case letter/digit runs.
func tokenize(description string) []string {
	return strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return token != ""
}

// ExtractKeywords returns the keyword set of a description. Numbers are
// treated as noise, aliases are folded before stopwords and short tokens are
// dropped. Blank descriptions yield an empty set.
func (m *Matcher) ExtractKeywords(description string) KeywordSet {
	set := make(KeywordSet)
	for _, tok := range tokenize(description) {
		if isNumeric(tok) {
			continue
		}
		if canonical, ok := m.aliases[tok]; ok {
			tok = canonical
		}
		if _, stop := m.stopwords[tok]; stop {
			continue
		}
		if utf8.RuneCountInString(tok) < m.config.KeywordMinLength {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}
