package odt

import (
	"strings"

	"github.com/karlla1220/meetgrid/model"
)

// maxRepeat caps number-rows-repeated and number-columns-repeated. Office
// suites pad tables with thousands of repeated empty cells.
const maxRepeat = 64

// convertTable resolves a table:table into grid coordinates. A cell's
// spans come from its attributes; a covered cell inside the column span of
// a cell in the same row is skipped, any other covered cell continues a
// vertical merge from above. markers maps cell style names to colours.
func convertTable(tbl tableXML, markers map[string]string) *model.Table {
	table := &model.Table{}
	for _, row := range tbl.allRows() {
		converted := convertRow(row, markers)
		for i := 0; i < min(atoiOr(row.Repeated, 1), maxRepeat); i++ {
			table.Rows = append(table.Rows, model.Row{Cells: append([]model.Cell(nil), converted.Cells...)})
		}
	}
	return table
}

func convertRow(row rowXML, markers map[string]string) model.Row {
	var (
		out     model.Row
		col     int
		spanEnd int // grid column after the last cell that started in this row
	)
	for _, c := range row.Cells {
		name := c.XMLName.Local
		if name != "table-cell" && name != "covered-table-cell" {
			continue
		}
		for i := 0; i < min(atoiOr(c.Repeated, 1), maxRepeat); i++ {
			if c.covered() {
				if col >= spanEnd {
					out.Cells = appendContinuation(out.Cells, col)
				}
				col++
				continue
			}
			cell := model.Cell{
				Text:    c.text(),
				Col:     col,
				ColSpan: atoiOr(c.ColsSpanned, 1),
				RowSpan: atoiOr(c.RowsSpanned, 1),
				Marker:  markers[c.StyleName],
			}
			out.Cells = append(out.Cells, cell)
			spanEnd = col + cell.ColSpan
			// The rest of the span is listed as covered cells.
			col++
		}
	}
	return out
}

// appendContinuation adds a placeholder at col, widening the previous
// placeholder when it ends just before col.
func appendContinuation(cells []model.Cell, col int) []model.Cell {
	if n := len(cells); n > 0 {
		last := &cells[n-1]
		if last.Continuation && last.Col+last.Span() == col {
			last.ColSpan++
			return cells
		}
	}
	return append(cells, model.Cell{Col: col, ColSpan: 1, RowSpan: 1, Continuation: true})
}

// cellMarkers maps automatic cell styles to their background colour.
func cellMarkers(styles automaticStylesXML) map[string]string {
	out := make(map[string]string)
	for _, s := range styles.Styles {
		if s.CellProps == nil {
			continue
		}
		if fill := normalizeFill(s.CellProps.BackgroundColor); fill != "" {
			out[s.Name] = fill
		}
	}
	return out
}

func normalizeFill(fill string) string {
	fill = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(fill), "#"))
	switch fill {
	case "", "AUTO", "TRANSPARENT", "FFFFFF":
		return ""
	}
	return fill
}
