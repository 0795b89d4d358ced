// Package ingest turns uploaded CSV and XLSX files into transaction sets.
//
// Reading is split from processing: ReadFile/Read load a raw Table of cell
// text, AnalyzeColumns suggests which columns hold amounts and descriptions,
// and Process resolves the chosen columns into transactions, rejecting rows
// with missing or non-numeric amounts.
//
// Example usage:
//
//	table, err := ingest.ReadFile("ledger.xlsx")
//	analysis := ingest.AnalyzeColumns(table)
//	processed, err := ingest.Process(table,
//	    analysis.SuggestedAmountColumn,
//	    analysis.SuggestedDescriptionColumn,
//	    ingest.Options{})
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
)

// Table is the raw content of an uploaded file: a header row and data rows,
// every row padded to the header width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns the index of a header, matched case-insensitively.
func (t *Table) Column(name string) (int, bool) {
	want := strings.TrimSpace(name)
	for i, h := range t.Headers {
		if strings.EqualFold(h, want) {
			return i, true
		}
	}
	return -1, false
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q (allowed: csv, xlsx)", ErrUnsupportedFormat, ext)
	}
}

// ReadFile reads a CSV or XLSX file from disk.
func ReadFile(path string) (*Table, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, format)
}

// Read parses r in the given format. XLSX input is read from its first sheet.
func Read(r io.Reader, format Format) (*Table, error) {
	var (
		records [][]string
		err     error
	)

	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return newTable(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, nil
}

// newTable takes the first record as the header and drops blank rows.
func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		headers[i] = h
	}

	table := &Table{Headers: headers}
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make([]string, len(headers))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, ErrEmptyFile
	}
	return table, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
