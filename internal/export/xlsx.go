package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// WriteXLSX writes t to a workbook with a single sheet named sheet (Sheet1 when empty).
func WriteXLSX(w io.Writer, t Table, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("export: rename sheet: %w", err)
		}
	}
	if err := setRow(f, sheet, 1, t.Headers); err != nil {
		return err
	}
	for i, r := range t.Rows {
		if err := setRow(f, sheet, i+2, r); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, n int, cells []string) error {
	axis, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return f.SetSheetRow(sheet, axis, &values)
}

// readXLSX returns the rows of sheet, or of the first sheet when sheet is absent.
func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("export: open workbook: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		name = sheet
	}
	return f.GetRows(name)
}
