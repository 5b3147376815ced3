package puckdump

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// sheetDef is one worksheet: a header row, data rows, and optional column
// widths keyed by header name.
type sheetDef struct {
	Name    string
	Headers []string
	Rows    [][]any
	Widths  map[string]float64
}

const defaultColWidth = 14

// writeWorkbook renders the sheets into an xlsx file. Every sheet gets a
// frozen header row and an autofilter over the data range.
func writeWorkbook(path string, sheets []sheetDef) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, s := range sheets {
		if err := addSheet(f, s); err != nil {
			return fmt.Errorf("sheet %s: %w", s.Name, err)
		}
	}
	// Drop the default sheet once real ones exist.
	if len(sheets) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func addSheet(f *excelize.File, s sheetDef) error {
	if _, err := f.NewSheet(s.Name); err != nil {
		return err
	}

	header := make([]any, len(s.Headers))
	for i, h := range s.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
		return err
	}
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(max(len(s.Headers), 1))
	if err != nil {
		return err
	}
	filterRange := fmt.Sprintf("A1:%s%d", lastCol, len(s.Rows)+1)
	if err := f.AutoFilter(s.Name, filterRange, nil); err != nil {
		return err
	}
	if err := f.SetPanes(s.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	for i, h := range s.Headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(defaultColWidth)
		if w, ok := s.Widths[h]; ok {
			width = w
		}
		if err := f.SetColWidth(s.Name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
