package docx

import (
	"strconv"
	"strings"

	"github.com/karlla1220/meetgrid/model"
)

// convertTable resolves a w:tbl into grid coordinates. gridSpan sets the
// column span, w:vMerge without a value marks a continuation of the cell
// above, and w:shd fill becomes the cell marker.
func convertTable(tbl tableXML) *model.Table {
	table := &model.Table{}
	for _, row := range tbl.Rows {
		col := atoiOr(row.Properties.GridBefore.Val, 0)
		var out model.Row
		for _, cell := range row.Cells {
			mc := model.Cell{
				Col:     col,
				ColSpan: atoiOr(cell.Properties.GridSpan.Val, 1),
				RowSpan: 1,
				Marker:  normalizeFill(cell.Properties.Shading.Fill),
			}
			if isContinuation(cell.Properties.VMerge) {
				mc.Continuation = true
			} else {
				mc.Text = cellText(cell)
			}
			out.Cells = append(out.Cells, mc)
			col += mc.ColSpan
		}
		table.Rows = append(table.Rows, out)
	}
	table.ComputeRowSpans()
	return table
}

// isContinuation reports a vMerge that continues the merge above. An absent
// element and val="restart" both start fresh content.
func isContinuation(v vMergeXML) bool {
	return v.XMLName.Local == "vMerge" && (v.Val == "" || v.Val == "continue")
}

// cellText joins a cell's paragraphs with newlines.
func cellText(cell tableCellXML) string {
	parts := make([]string, 0, len(cell.Paragraphs))
	for _, p := range cell.Paragraphs {
		if text := strings.TrimSpace(paragraphText(p)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// paragraphText concatenates the text of runs and hyperlink runs.
func paragraphText(p paragraphXML) string {
	var sb strings.Builder
	for _, run := range p.Runs {
		sb.WriteString(runText(run))
	}
	for _, link := range p.Hyperlinks {
		for _, run := range link.Runs {
			sb.WriteString(runText(run))
		}
	}
	return sb.String()
}

func runText(run runXML) string {
	var sb strings.Builder
	for _, t := range run.Text {
		sb.WriteString(t.Value)
	}
	for range run.Tabs {
		sb.WriteString("\t")
	}
	for range run.Breaks {
		sb.WriteString("\n")
	}
	return sb.String()
}

// normalizeFill returns an upper-case hex colour, or "" for automatic and
// white fills.
func normalizeFill(fill string) string {
	fill = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(fill), "#"))
	switch fill {
	case "", "AUTO", "FFFFFF":
		return ""
	}
	return fill
}

func atoiOr(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}
