// Package export renders tables as CSV, JSON, PDF and XLSX, and reads sensors and alerts back.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrNoHeader is returned when an imported file has no header row.
	ErrNoHeader = errors.New("export: missing header row")
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("export: missing column")
	// ErrMalformedRow wraps per-row parse failures.
	ErrMalformedRow = errors.New("export: malformed row")
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatPDF, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// Table is a titled grid of strings. Every row should have len(Headers) cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// FileName returns "<kind>_<YYYY-MM-DD>.<ext>".
func FileName(kind string, f Format, day time.Time) string {
	return fmt.Sprintf("%s_%s.%s", kind, day.Format("2006-01-02"), f)
}

// Write renders t in format f.
func Write(w io.Writer, t Table, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, t)
	case FormatPDF:
		return WritePDF(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t, t.Title)
	}
	return fmt.Errorf("export: unknown format %q", f)
}

// WriteCSV writes the header then every row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteJSON writes the rows as an array of objects keyed by header. Missing cells are empty strings.
func WriteJSON(w io.Writer, t Table) error {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			rec[h] = cell(row, i)
		}
		out = append(out, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// record is one imported row keyed by header.
type record map[string]string

func (r record) get(col string) string { return strings.TrimSpace(r[col]) }

// records keys rows[1:] by the header in rows[0]. Blank rows are skipped and each required column
// must be present.
func records(rows [][]string, required ...string) ([]record, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	header := make([]string, len(rows[0]))
	present := make(map[string]bool, len(header))
	for i, h := range rows[0] {
		// spreadsheets saved with a BOM keep it on the first cell
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		present[h] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	out := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(record, len(header))
		for i, h := range header {
			rec[h] = cell(row, i)
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}
