package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
)

// Format names one of the export layouts.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatXLSX      Format = "xlsx"
	FormatReport    Format = "report"
	FormatUnmatched Format = "unmatched"
	FormatUpdate    Format = "update"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Formats lists every supported format, default first.
var Formats = []Format{FormatXLSX, FormatCSV, FormatReport, FormatUnmatched, FormatUpdate}

// ParseFormat resolves a format name. An empty name means xlsx.
func ParseFormat(name string) (Format, error) {
	if name == "" {
		return FormatXLSX, nil
	}
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q: must be one of csv, xlsx, report, unmatched, update", name)
}

// Write renders state in this format.
func (f Format) Write(w io.Writer, state *balance.State, summary balance.Summary, opts Options) error {
	switch f {
	case FormatCSV:
		return WriteGroupedCSV(w, state)
	case FormatXLSX:
		return WriteGroupedXLSX(w, state, opts)
	case FormatReport:
		return WriteReport(w, state, summary)
	case FormatUnmatched:
		return WriteUnmatchedXLSX(w, state)
	case FormatUpdate:
		return WriteUpdatedXLSX(w, state, opts)
	default:
		return fmt.Errorf("unknown export format %q", string(f))
	}
}

// ContentType returns the MIME type of the rendered file.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return contentTypeCSV
	}
	return contentTypeXLSX
}

// Filename builds the download name for a file exported from base.
func (f Format) Filename(base string) string {
	switch f {
	case FormatCSV:
		return "reconciled_" + base + ".csv"
	case FormatReport:
		return "reconciliation_report_" + base + ".xlsx"
	case FormatUnmatched:
		return "unmatched_" + base + ".xlsx"
	case FormatUpdate:
		return base + "_reconciled.xlsx"
	default:
		return "reconciled_" + base + ".xlsx"
	}
}
