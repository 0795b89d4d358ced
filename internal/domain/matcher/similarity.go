package matcher

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Similarity returns an order-insensitive edit-distance ratio in [0,1].
//
// Both descriptions are tokenized, the tokens sorted and re-joined, and the
// Levenshtein ratio (|a|+|b|-distance)/(|a|+|b|) computed with substitutions
// costing 2, so "Supplies Office" and "office supplies" score 1.0.
func Similarity(a, b string) float64 {
	left := tokenSort(a)
	right := tokenSort(b)
	if left == "" || right == "" {
		return 0
	}
	if left == right {
		return 1
	}
	return levenshtein.RatioForStrings([]rune(left), []rune(right), levenshtein.DefaultOptions)
}

func tokenSort(s string) string {
	tokens := tokenize(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
