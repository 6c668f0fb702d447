package model

import (
	"strings"
)

// Table is one tabular region of a source document, normalised to grid
// coordinates. Rows keep document order; each row lists the cells that start
// or continue in it.
type Table struct {
	Index   int    // position among the document's tables
	Context string // text of the paragraph preceding the table, if any
	Rows    []Row
}

// Row is a table row.
type Row struct {
	Cells []Cell
}

// Cell is one table cell positioned on the grid.
type Cell struct {
	Text    string
	Col     int // first grid column covered (0-indexed)
	ColSpan int // grid columns covered (>= 1)
	RowSpan int // rows covered (>= 1); set on the cell that starts a vertical merge

	// Continuation marks a placeholder for a cell covered by a vertical merge
	// that started in an earlier row. It carries no text of its own.
	Continuation bool

	// Marker is the cell's background colour as upper-case hex without '#',
	// or empty. Some authors tag rooms by colour rather than by column.
	Marker string
}

// Span returns ColSpan clamped to at least 1.
func (c Cell) Span() int {
	if c.ColSpan < 1 {
		return 1
	}
	return c.ColSpan
}

// Rows returns RowSpan clamped to at least 1.
func (c Cell) Rows() int {
	if c.RowSpan < 1 {
		return 1
	}
	return c.RowSpan
}

// NewCell returns a single-span cell at col.
func NewCell(col int, text string) Cell {
	return Cell{Text: text, Col: col, ColSpan: 1, RowSpan: 1}
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColCount returns the widest row's grid column count.
func (t *Table) ColCount() int {
	count := 0
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			if end := cell.Col + cell.Span(); end > count {
				count = end
			}
		}
	}
	return count
}

// CellAt returns the cell of row whose span covers grid column col.
func (r Row) CellAt(col int) (Cell, bool) {
	for _, cell := range r.Cells {
		if col >= cell.Col && col < cell.Col+cell.Span() {
			return cell, true
		}
	}
	return Cell{}, false
}

// Distinct returns the non-continuation cells of the row.
func (r Row) Distinct() []Cell {
	out := make([]Cell, 0, len(r.Cells))
	for _, cell := range r.Cells {
		if !cell.Continuation {
			out = append(out, cell)
		}
	}
	return out
}

// Text joins the row's distinct cell texts with a space.
func (r Row) Text() string {
	parts := make([]string, 0, len(r.Cells))
	for _, cell := range r.Distinct() {
		if cell.Text != "" {
			parts = append(parts, cell.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Occupancy resolves merges into a flat map from grid position to the cell
// that covers it. A vertically merged cell is written into every row it
// spans, so continuation placeholders resolve to their origin.
func (t *Table) Occupancy() map[GridPos]Placed {
	occ := make(map[GridPos]Placed)
	for r, row := range t.Rows {
		for _, cell := range row.Cells {
			if cell.Continuation {
				continue
			}
			origin := GridPos{Row: r, Col: cell.Col}
			for dr := 0; dr < cell.Rows() && r+dr < len(t.Rows); dr++ {
				for dc := 0; dc < cell.Span(); dc++ {
					occ[GridPos{Row: r + dr, Col: cell.Col + dc}] = Placed{Cell: cell, Origin: origin}
				}
			}
		}
	}
	return occ
}

// Placed is a cell together with the grid position it originates from.
type Placed struct {
	Cell
	Origin GridPos
}

// GridPos is a (row, column) grid coordinate.
type GridPos struct {
	Row int
	Col int
}

// ToText returns a tab-separated rendering of the table, one line per row.
func (t *Table) ToText() string {
	var sb strings.Builder
	for i, row := range t.Rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		for j, cell := range row.Cells {
			if j > 0 {
				sb.WriteString("\t")
			}
			if cell.Continuation {
				sb.WriteString("^")
				continue
			}
			sb.WriteString(strings.ReplaceAll(cell.Text, "\n", " / "))
		}
	}
	return sb.String()
}

// ComputeRowSpans sets RowSpan on cells that start a vertical merge by
// counting the continuation placeholders below them at the same column.
func (t *Table) ComputeRowSpans() {
	for r := range t.Rows {
		for i := range t.Rows[r].Cells {
			cell := &t.Rows[r].Cells[i]
			if cell.Continuation {
				continue
			}
			span := 1
			for below := r + 1; below < len(t.Rows); below++ {
				next, ok := t.Rows[below].CellAt(cell.Col)
				if !ok || !next.Continuation || next.Col != cell.Col {
					break
				}
				span++
			}
			if span > cell.RowSpan {
				cell.RowSpan = span
			}
		}
	}
}
