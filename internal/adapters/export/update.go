package export

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
)

const updatedSheet = "Sheet1"

// ErrNoSource is returned by the update export when there is no uploaded
// table to write back.
var ErrNoSource = errors.New("no source table to update")

// WriteUpdatedXLSX writes the uploaded table back with its original headers
// and cells. Every column in opts.StatusColumns is filled with
// opts.StatusText on matched rows; a name that is already a header reuses
// that column, any other name is appended. Other rows keep their original
// value in reused columns and stay empty in appended ones.
func WriteUpdatedXLSX(w io.Writer, state *balance.State, opts Options) error {
	if opts.Source == nil {
		return ErrNoSource
	}
	if opts.HighlightColor == "" {
		opts.HighlightColor = DefaultHighlightColor
	}
	if len(opts.StatusColumns) == 0 {
		opts.StatusColumns = []string{DefaultStatusColumn}
	}

	header, statusIdx := statusColumns(opts.Source, opts.StatusColumns)

	wb, err := newWorkbook()
	if err != nil {
		return err
	}
	defer wb.close()

	if err := wb.addSheet(updatedSheet, header); err != nil {
		return err
	}

	highlight := 0
	if opts.Highlight {
		if highlight, err = wb.fillStyle(opts.HighlightColor); err != nil {
			return fmt.Errorf("failed to create highlight style: %w", err)
		}
	}

	for i, row := range opts.Source.Rows {
		values := make([]interface{}, len(header))
		for col := range values {
			values[col] = ""
			if col < len(row) {
				values[col] = row[col]
			}
		}

		style := 0
		if state.StatusOf(i) == balance.StatusMatched {
			for _, col := range statusIdx {
				values[col] = opts.StatusText
			}
			style = highlight
		}

		if err := wb.setRow(updatedSheet, i+2, values, style); err != nil {
			return err
		}
	}

	return wb.writeTo(w)
}

// statusColumns extends the source headers with the status columns that are
// not already present and returns the index of every status column.
func statusColumns(source *ingest.Table, names []string) ([]string, []int) {
	header := append([]string(nil), source.Headers...)
	extended := &ingest.Table{Headers: header}

	var idx []int
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		col, ok := extended.Column(name)
		if !ok {
			extended.Headers = append(extended.Headers, name)
			col = len(extended.Headers) - 1
		}
		if !slices.Contains(idx, col) {
			idx = append(idx, col)
		}
	}
	return extended.Headers, idx
}
