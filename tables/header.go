package tables

import (
	"sort"

	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/text"
)

// parseDayHeader maps each weekday named in the first row to the columns
// its header cell spans. The first mention of a day wins.
func parseDayHeader(row model.Row) []dayRange {
	var days []dayRange
	seen := make(map[model.Day]bool)
	for _, c := range row.Distinct() {
		d, ok := model.FindDay(c.Text)
		if !ok || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, dayRange{Day: d, Start: c.Col, End: c.Col + c.Span()})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Start < days[j].Start })
	return days
}

// containingDay returns the day whose range holds [start, end) entirely.
func containingDay(days []dayRange, start, end int) (model.Day, bool) {
	for _, d := range days {
		if start >= d.Start && end <= d.End {
			return d.Day, true
		}
	}
	return 0, false
}

// resolveRooms fixes each day's room columns for one table and registers
// the rooms. Label rows win, then labels carried from an earlier day, then
// rooms counted from the data rows.
func (x *extraction) resolveRooms(tableIdx int, t *model.Table, days []dayRange, headerEnd int,
	occ map[model.GridPos]model.Placed, labelOf func(int) (model.Placed, bool)) map[model.Day][]roomCol {

	labels := x.headerLabels(t, days, headerEnd)
	layout := make(map[model.Day][]roomCol, len(days))

	var carried []roomCol
	var carriedFrom dayRange
	for _, d := range days {
		cols := labels[d.Day]
		switch {
		case len(cols) > 0:
			carried, carriedFrom = cols, d
		case carried != nil:
			cols = shift(carried, d.Start-carriedFrom.Start, d.End)
		}
		if len(cols) == 0 {
			cols = x.countedRooms(tableIdx, t, d, headerEnd, occ, labelOf)
		}

		registered := make([]roomCol, len(cols))
		for i, c := range cols {
			c.Name = x.addRoom(d.Day, c.Name, t.Context)
			registered[i] = c
		}
		layout[d.Day] = registered
	}
	return layout
}

// headerLabels reads room labels from the rows between the day header and
// the first data row. Per day, the row with the most labels is used. A
// label crossing a day boundary is a banner and is skipped.
func (x *extraction) headerLabels(t *model.Table, days []dayRange, headerEnd int) map[model.Day][]roomCol {
	best := make(map[model.Day][]roomCol)
	colourNames := make(map[string]map[string]bool)

	for r := 1; r < headerEnd && r < len(t.Rows); r++ {
		if k := classify(t.Rows[r]); k != rowData {
			continue
		}
		perDay := make(map[model.Day][]roomCol)
		for _, c := range t.Rows[r].Distinct() {
			name := text.Collapse(c.Text)
			if name == "" {
				continue
			}
			day, ok := containingDay(days, c.Col, c.Col+c.Span())
			if !ok {
				continue
			}
			perDay[day] = append(perDay[day], roomCol{Name: name, Start: c.Col, End: c.Col + c.Span()})
			if c.Marker != "" {
				if colourNames[c.Marker] == nil {
					colourNames[c.Marker] = make(map[string]bool)
				}
				colourNames[c.Marker][name] = true
			}
		}
		for day, cols := range perDay {
			if len(cols) > len(best[day]) {
				best[day] = cols
			}
		}
	}

	// A colour shared by several labels is decoration, not a room tag.
	for colour, names := range colourNames {
		if len(names) != 1 {
			continue
		}
		if _, set := x.markers[colour]; set {
			continue
		}
		for name := range names {
			x.markers[colour] = name
		}
	}
	return best
}

// shift moves carried label columns by offset, dropping any that start at
// or past limit.
func shift(cols []roomCol, offset, limit int) []roomCol {
	var out []roomCol
	for _, c := range cols {
		c.Start += offset
		c.End += offset
		if c.Start >= limit {
			continue
		}
		if c.End > limit {
			c.End = limit
		}
		out = append(out, c)
	}
	return out
}

// countedRooms derives room columns from the data row with the most
// distinct cells under the day. The header grid often allocates more
// columns than rooms for flexible merging, so only cell boundaries count.
func (x *extraction) countedRooms(tableIdx int, t *model.Table, d dayRange, headerEnd int,
	occ map[model.GridPos]model.Placed, labelOf func(int) (model.Placed, bool)) []roomCol {

	var best []int
	for r := headerEnd; r < len(t.Rows); r++ {
		if classify(t.Rows[r]) != rowData {
			continue
		}
		if p, ok := labelOf(r); !ok {
			continue
		} else if _, ok := parseTimeLabel(p.Text); !ok {
			continue
		}
		var starts []int
		seen := make(map[model.GridPos]bool)
		for c := d.Start; c < d.End; c++ {
			cell, ok := occ[model.GridPos{Row: r, Col: c}]
			if !ok || seen[cell.Origin] {
				continue
			}
			seen[cell.Origin] = true
			starts = append(starts, max(cell.Col, d.Start))
		}
		if len(starts) > len(best) {
			best = starts
		}
	}
	if len(best) == 0 {
		best = []int{d.Start}
	}

	cols := make([]roomCol, len(best))
	for i := range best {
		start, end := best[i], d.End
		if i == 0 {
			start = d.Start
		}
		if i+1 < len(best) {
			end = best[i+1]
		}
		cols[i] = roomCol{Name: x.generatedName(tableIdx, i, len(best)), Start: start, End: end}
	}
	return cols
}

// generatedName names the i-th of n counted rooms. The first table uses the
// document's room list when it has enough names.
func (x *extraction) generatedName(tableIdx, i, n int) string {
	if tableIdx == 0 && n <= len(x.roomNames) {
		return x.roomNames[i]
	}
	prefix := "Offline"
	if tableIdx == 0 {
		prefix = x.opts.FallbackPrefix
		if prefix == "" {
			prefix = "Room"
		}
	}
	return fallbackName(prefix, i)
}
