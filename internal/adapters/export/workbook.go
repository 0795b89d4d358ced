package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	headerColor    = "366092"
	maxColumnWidth = 50
)

// workbook wraps an excelize file with the sheet helpers the exports share.
type workbook struct {
	f           *excelize.File
	headerStyle int
	sheets      int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &workbook{f: f, headerStyle: headerStyle}, nil
}

// addSheet creates a sheet with a styled header row. The first sheet takes
// over the default one so no empty sheet is left behind.
func (wb *workbook) addSheet(name string, header []string) error {
	if wb.sheets == 0 {
		if err := wb.f.SetSheetName(wb.f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", name, err)
		}
	} else if _, err := wb.f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	wb.sheets++

	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := wb.f.SetSheetRow(name, "A1", &cells); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := wb.f.SetCellStyle(name, "A1", last, wb.headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", name, err)
	}
	return nil
}

// setRow writes values into row (1-based) and fills it with style when
// style is non-zero.
func (wb *workbook) setRow(sheet string, row int, values []interface{}, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := wb.f.SetSheetRow(sheet, first, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	if style == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, first, last, style)
}

// fitColumns sizes columns to their widest cell, capped at maxColumnWidth.
func (wb *workbook) fitColumns(sheet string) error {
	rows, err := wb.f.GetRows(sheet)
	if err != nil {
		return err
	}

	widths := map[int]int{}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := wb.f.SetColWidth(sheet, col, col, float64(min(width+2, maxColumnWidth))); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) fillStyle(color string) (int, error) {
	return wb.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
}

func (wb *workbook) close() {
	_ = wb.f.Close()
}

func (wb *workbook) writeTo(w io.Writer) error {
	for _, sheet := range wb.f.GetSheetList() {
		if err := wb.fitColumns(sheet); err != nil {
			return fmt.Errorf("failed to size %s columns: %w", sheet, err)
		}
	}
	wb.f.SetActiveSheet(0)

	if err := wb.f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
