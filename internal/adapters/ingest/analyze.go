package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// descriptionMinMeanLength is the mean cell length above which a text
// column is taken to hold descriptions rather than codes.
const descriptionMinMeanLength = 10

// ColumnAnalysis classifies the columns of a table and suggests which ones
// hold amounts and descriptions.
type ColumnAnalysis struct {
	AllColumns                 []string `json:"all_columns"`
	NumericColumns             []string `json:"numeric_columns"`
	TextColumns                []string `json:"text_columns"`
	SuggestedAmountColumn      string   `json:"suggested_amount_column"`
	SuggestedDescriptionColumn string   `json:"suggested_description_column"`
}

// AnalyzeColumns inspects every column. A column is numeric when all its
// non-empty cells parse as numbers. The suggested amount column is the
// first numeric column carrying both signs, else the first numeric column.
// The suggested description column is the first text column with a mean
// length above ten characters, else the first text column.
func AnalyzeColumns(t *Table) ColumnAnalysis {
	analysis := ColumnAnalysis{
		AllColumns:     append([]string(nil), t.Headers...),
		NumericColumns: []string{},
		TextColumns:    []string{},
	}

	for col, name := range t.Headers {
		if numeric, mixedSigns := numericColumn(t, col); numeric {
			analysis.NumericColumns = append(analysis.NumericColumns, name)
			if analysis.SuggestedAmountColumn == "" && mixedSigns {
				analysis.SuggestedAmountColumn = name
			}
			continue
		}

		analysis.TextColumns = append(analysis.TextColumns, name)
		if analysis.SuggestedDescriptionColumn == "" && meanLength(t, col) > descriptionMinMeanLength {
			analysis.SuggestedDescriptionColumn = name
		}
	}

	if analysis.SuggestedAmountColumn == "" && len(analysis.NumericColumns) > 0 {
		analysis.SuggestedAmountColumn = analysis.NumericColumns[0]
	}
	if analysis.SuggestedDescriptionColumn == "" && len(analysis.TextColumns) > 0 {
		analysis.SuggestedDescriptionColumn = analysis.TextColumns[0]
	}

	return analysis
}

func numericColumn(t *Table, col int) (numeric, mixedSigns bool) {
	var seen, negative, positive bool
	for _, row := range t.Rows {
		cell := strings.ReplaceAll(strings.TrimSpace(row[col]), ",", "")
		if cell == "" {
			continue
		}
		value, err := decimal.NewFromString(cell)
		if err != nil {
			return false, false
		}
		seen = true
		negative = negative || value.IsNegative()
		positive = positive || value.IsPositive()
	}
	return seen, negative && positive
}

func meanLength(t *Table, col int) float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	total := 0
	for _, row := range t.Rows {
		total += utf8.RuneCountInString(strings.TrimSpace(row[col]))
	}
	return float64(total) / float64(len(t.Rows))
}
