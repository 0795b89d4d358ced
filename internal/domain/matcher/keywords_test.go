package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_ExtractKeywords(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{"aliases and stopwords", "Buy Pen from Shopee!", []string{"pen", "purchase", "shopee"}},
		{"numbers are noise", "Order 12345 to ACME-Corp", []string{"acme", "corp", "order"}},
		{"short tokens dropped", "ab cd xyz", []string{"xyz"}},
		{"document words dropped", "Payment receipt for invoice", []string{}},
		{"blank", "   ", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ExtractKeywords(tt.description).Sorted())
		})
	}
}

func TestMatcher_ExtractKeywords_Deterministic(t *testing.T) {
	m := NewMatcher(DefaultConfig())

	first := m.ExtractKeywords("Stationery Purchase Payment")
	second := m.ExtractKeywords("Stationery Purchase Payment")

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"purchase", "stationery"}, first.Sorted())
}

func TestMatcher_ExtractKeywords_CustomMinLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeywordMinLength = 5
	m := NewMatcher(cfg)

	assert.Equal(t, []string{"shopee"}, m.ExtractKeywords("Pen from Shopee").Sorted())
}

func TestKeywordSet_Overlap(t *testing.T) {
	a := NewKeywordSet("shopee", "pen", "purchase")
	b := NewKeywordSet("purchase", "stationery")

	assert.Equal(t, []string{"purchase"}, a.Intersect(b).Sorted())
	assert.InDelta(t, 1.0/3.0, a.OverlapRatio(b), 0.0001)
	assert.Equal(t, 0.0, a.OverlapRatio(NewKeywordSet()))
	assert.Equal(t, 0.0, NewKeywordSet().OverlapRatio(NewKeywordSet()))
	assert.True(t, a.Contains("pen"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "invoice a", Normalize("  Invoice \t A "))
	assert.Equal(t, "", Normalize("   "))
}
