package export

import (
	"fmt"
	"io"
	"math"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
)

const groupedSheet = "Reconciliation"

// WriteGroupedXLSX writes the grouped listing as a workbook. Matched rows
// carry opts.StatusText in the reconciled column and, when opts.Highlight
// is set, are filled with opts.HighlightColor.
func WriteGroupedXLSX(w io.Writer, state *balance.State, opts Options) error {
	if opts.HighlightColor == "" {
		opts.HighlightColor = DefaultHighlightColor
	}

	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	defer wb.close()

	header := append(append([]string(nil), groupedHeader...), "reconciled")
	if err := wb.addSheet(groupedSheet, header); err != nil {
		return err
	}

	highlight := 0
	if opts.Highlight {
		if highlight, err = wb.fillStyle(opts.HighlightColor); err != nil {
			return fmt.Errorf("failed to create highlight style: %w", err)
		}
	}

	for i, row := range groupedRows(state) {
		values := row.cells()
		style := 0
		if row.matched() {
			values = append(values, opts.StatusText)
			style = highlight
		} else {
			values = append(values, "")
		}

		if err := wb.setRow(groupedSheet, i+2, values, style); err != nil {
			return err
		}
	}

	return wb.writeTo(w)
}

// cells is the typed form of record: numbers stay numeric in the workbook.
func (r groupedRow) cells() []interface{} {
	confidence := interface{}("N/A")
	if r.group != nil {
		confidence = roundTo(r.group.Confidence, 4)
	}
	return []interface{}{
		r.tx.ID(),
		r.tx.Description(),
		r.tx.Amount().InexactFloat64(),
		string(r.tx.Kind()),
		r.groupID(),
		string(r.status),
		r.strategy(),
		confidence,
		r.position,
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
