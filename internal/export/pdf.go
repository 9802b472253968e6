package export

import (
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const (
	titleHeight  = 12
	headerHeight = 8
	rowHeight    = 7
	// tables wider than this are laid out in landscape
	portraitColumns = 5
)

var (
	titleStyle  = props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}
	headerStyle = props.Text{Size: 9, Style: fontstyle.Bold, Top: 1.5}
	cellStyle   = props.Text{Size: 8, Top: 1.5}
)

// WritePDF renders t as a single table: the title row, the header row, then the data rows.
func WritePDF(w io.Writer, t Table) error {
	cols := len(t.Headers)
	if cols == 0 {
		cols = 1
	}
	b := config.NewBuilder().WithMaxGridSize(cols)
	if cols > portraitColumns {
		b = b.WithOrientation(orientation.Horizontal)
	}
	m := maroto.New(b.Build())

	if t.Title != "" {
		m.AddRow(titleHeight, text.NewCol(cols, t.Title, titleStyle))
	}
	m.AddRows(tableRow(headerHeight, t.Headers, cols, headerStyle))
	for _, r := range t.Rows {
		m.AddRows(tableRow(rowHeight, r, cols, cellStyle))
	}

	doc, err := m.Generate()
	if err != nil {
		return err
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

func tableRow(height float64, cells []string, cols int, style props.Text) core.Row {
	r := row.New(height)
	for i := 0; i < cols; i++ {
		r.Add(text.NewCol(1, cell(cells, i), style))
	}
	return r
}
