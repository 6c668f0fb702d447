package tables

import (
	"fmt"
	"sort"
	"strings"

	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/text"
)

// Options control extraction of one document.
type Options struct {
	// SourceID identifies the document in the output; defaults to the
	// document's own SourceID.
	SourceID string

	// MaxTables bounds the schedule tables considered. When more qualify,
	// the widest are kept in document order. Zero means unbounded.
	MaxTables int

	// HeaderRows caps the rows after the day header that may carry room
	// labels. Zero scans up to the first time-labelled row.
	HeaderRows int

	// Blocks completes start-only time labels ("08:30") with an end time.
	Blocks []model.TimeBlock

	// RoomNames names the first table's generated room columns in order,
	// overriding a "Meeting Rooms:" cell in the document.
	RoomNames []string

	// Markers binds background colours (RRGGBB) to room names.
	Markers map[string]string

	// FallbackPrefix names generated rooms of the first table; later tables
	// use "Offline". Defaults to "Room".
	FallbackPrefix string
}

// Result is the canonical cell map of one document.
type Result struct {
	SourceID string
	Blocks   []model.TimeBlock
	Rooms    map[model.Day][]string
	Cells    model.CellMap

	// Markers maps colours to rooms, including colours learnt from shaded
	// room labels.
	Markers map[string]string

	// Contexts records, per day and room, the paragraph introducing the
	// table the room came from.
	Contexts map[model.Day]map[string]string

	Breaks   []model.NamedInterval
	Warnings []string
}

// Days returns the days that have rooms, Monday first.
func (r *Result) Days() []model.Day {
	var days []model.Day
	for _, d := range model.Days() {
		if len(r.Rooms[d]) > 0 {
			days = append(days, d)
		}
	}
	return days
}

// Block returns the block with the given index.
func (r *Result) Block(index int) (model.TimeBlock, bool) {
	if index < 0 || index >= len(r.Blocks) {
		return model.TimeBlock{}, false
	}
	return r.Blocks[index], true
}

// RawCells lists the non-empty cells ordered by day, block, then the day's
// room order.
func (r *Result) RawCells() []model.RawCell {
	var out []model.RawCell
	for _, day := range r.Days() {
		for _, b := range r.Blocks {
			for _, room := range r.Rooms[day] {
				content := r.Cells[model.CellKey{Day: day, Room: room, Block: b.Index}]
				if content == "" {
					continue
				}
				out = append(out, model.RawCell{Day: day, Room: room, Block: b.Index, Text: content, SourceID: r.SourceID})
			}
		}
	}
	return out
}

// Extract builds the cell map of doc.
func Extract(doc *model.Document, opts Options) (*Result, error) {
	sourceID := opts.SourceID
	if sourceID == "" && doc != nil {
		sourceID = doc.SourceID
	}
	malformed := func(format string, args ...any) error {
		return &model.MalformedDocumentError{SourceID: sourceID, Reason: fmt.Sprintf(format, args...)}
	}

	if doc == nil || doc.RowCount() == 0 {
		return nil, malformed("document has no table rows")
	}

	candidates := scheduleTables(doc.Tables)
	if len(candidates) == 0 {
		return nil, malformed("no table header names a weekday")
	}
	candidates = widest(candidates, opts.MaxTables)

	x := newExtraction(sourceID, opts)
	if len(x.roomNames) == 0 {
		x.roomNames = findRoomNames(candidates)
	}
	for i, t := range candidates {
		x.addTable(i, t)
	}

	if len(x.rooms) == 0 {
		return nil, malformed("header establishes no (day, room) pair")
	}
	if len(x.intervals) == 0 {
		return nil, malformed("no data row yields a time block")
	}
	return x.finish(), nil
}

// scheduleTables keeps tables whose first row names a weekday.
func scheduleTables(all []*model.Table) []*model.Table {
	var out []*model.Table
	for _, t := range all {
		if len(t.Rows) < 2 {
			continue
		}
		if _, ok := model.FindDay(t.Rows[0].Text()); ok {
			out = append(out, t)
		}
	}
	return out
}

// widest keeps the max widest tables, preserving document order.
func widest(tables []*model.Table, max int) []*model.Table {
	if max <= 0 || len(tables) <= max {
		return tables
	}
	ranked := append([]*model.Table(nil), tables...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ColCount() > ranked[j].ColCount()
	})
	ranked = ranked[:max]
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Index < ranked[j].Index
	})
	return ranked
}

// findRoomNames reads the first "Meeting Rooms:" cell of the tables.
func findRoomNames(tables []*model.Table) []string {
	for _, t := range tables {
		for _, row := range t.Rows {
			for _, cell := range row.Distinct() {
				if strings.Contains(strings.ToLower(cell.Text), metadataMarker) {
					if names := parseRoomNames(cell.Text); len(names) > 0 {
						return names
					}
				}
			}
		}
	}
	return nil
}

// dayRange is the grid column range [Start, End) under a day header.
type dayRange struct {
	Day   model.Day
	Start int
	End   int
}

// roomCol is a room's column range within a day.
type roomCol struct {
	Name  string
	Start int
	End   int
}

// slot addresses accumulated text before block indices are final.
type slot struct {
	Day      model.Day
	Room     string
	Interval model.Interval
}

// origin identifies a source cell across tables for deduplication.
type origin struct {
	Table int
	Pos   model.GridPos
}

type fragment struct {
	From origin
	Text string
}

type pendingBreak struct {
	Name  string
	After model.Clock // end of the preceding data row, if any
	Table int
}

// extraction accumulates state across the tables of one document.
type extraction struct {
	sourceID  string
	opts      Options
	roomNames []string
	markers   map[string]string

	rooms     map[model.Day][]string
	contexts  map[model.Day]map[string]string
	intervals map[model.Interval]bool
	cells     map[slot][]fragment
	breaks    []model.NamedInterval
	pending   []pendingBreak
	warnings  []string
}

func newExtraction(sourceID string, opts Options) *extraction {
	x := &extraction{
		sourceID:  sourceID,
		opts:      opts,
		roomNames: opts.RoomNames,
		markers:   make(map[string]string),
		rooms:     make(map[model.Day][]string),
		contexts:  make(map[model.Day]map[string]string),
		intervals: make(map[model.Interval]bool),
		cells:     make(map[slot][]fragment),
	}
	for colour, room := range opts.Markers {
		x.markers[strings.ToUpper(strings.TrimPrefix(colour, "#"))] = room
	}
	return x
}

func (x *extraction) warnf(format string, args ...any) {
	x.warnings = append(x.warnings, fmt.Sprintf(format, args...))
}

// addRoom registers a new room for day, renaming it if the name is taken
// by an earlier table.
func (x *extraction) addRoom(day model.Day, name, context string) string {
	unique := name
	for n := 2; contains(x.rooms[day], unique); n++ {
		unique = fmt.Sprintf("%s (%d)", name, n)
	}
	x.rooms[day] = append(x.rooms[day], unique)
	if x.contexts[day] == nil {
		x.contexts[day] = make(map[string]string)
	}
	x.contexts[day][unique] = context
	return unique
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// addTable resolves one schedule table into accumulated cells.
func (x *extraction) addTable(tableIdx int, t *model.Table) {
	days := parseDayHeader(t.Rows[0])
	if len(days) == 0 {
		return
	}
	firstDayCol := days[0].Start
	occ := t.Occupancy()

	labelOf := func(r int) (model.Placed, bool) {
		p, ok := occ[model.GridPos{Row: r, Col: 0}]
		if !ok || firstDayCol == 0 || p.Col+p.Span() > firstDayCol {
			return model.Placed{}, false
		}
		return p, true
	}

	// The header region ends at the first time-labelled data row.
	headerEnd := len(t.Rows)
	for r := 1; r < len(t.Rows); r++ {
		if p, ok := labelOf(r); ok && classify(t.Rows[r]) == rowData {
			if _, ok := parseTimeLabel(p.Text); ok {
				headerEnd = r
				break
			}
		}
	}
	if x.opts.HeaderRows > 0 && headerEnd > 1+x.opts.HeaderRows {
		headerEnd = 1 + x.opts.HeaderRows
	}

	layout := x.resolveRooms(tableIdx, t, days, headerEnd, occ, labelOf)

	var lastEnd model.Clock
	for r := headerEnd; r < len(t.Rows); r++ {
		row := t.Rows[r]
		switch classify(row) {
		case rowBreak:
			x.addBreak(tableIdx, row, lastEnd)
			continue
		case rowFooter, rowMetadata, rowOther:
			continue
		}

		p, ok := labelOf(r)
		if !ok {
			continue
		}
		iv, ok := x.resolveInterval(p.Text)
		if !ok {
			if strings.TrimSpace(p.Text) != "" {
				x.warnf("table %d row %d: unrecognised time label %q", tableIdx, r, p.Text)
			}
			continue
		}
		x.intervals[iv] = true
		lastEnd = iv.End
		x.resolvePendingBreaks(tableIdx, iv.Start)

		seen := make(map[model.GridPos]bool)
		for c := firstDayCol; c < t.ColCount(); c++ {
			cell, ok := occ[model.GridPos{Row: r, Col: c}]
			if !ok || seen[cell.Origin] {
				continue
			}
			seen[cell.Origin] = true
			content := strings.TrimSpace(cell.Text)
			if content == "" {
				continue
			}
			x.place(tableIdx, cell, content, iv, days, layout)
		}
	}
}

// resolveInterval turns a time label into an interval, completing
// start-only labels from the configured blocks.
func (x *extraction) resolveInterval(label string) (model.Interval, bool) {
	tl, ok := parseTimeLabel(label)
	if !ok {
		return model.Interval{}, false
	}
	if tl.End > tl.Start {
		return model.Interval{Start: tl.Start, End: tl.End}, true
	}
	for _, b := range x.opts.Blocks {
		if b.Start == tl.Start {
			return b.Interval(), true
		}
	}
	return model.Interval{}, false
}

// place writes a cell's text to every room of every day it covers.
func (x *extraction) place(tableIdx int, cell model.Placed, content string, iv model.Interval, days []dayRange, layout map[model.Day][]roomCol) {
	from := origin{Table: tableIdx, Pos: cell.Origin}
	cellStart, cellEnd := cell.Col, cell.Col+cell.Span()

	for _, d := range days {
		start, end := max(cellStart, d.Start), min(cellEnd, d.End)
		if start >= end {
			continue
		}
		var rooms []string
		if name, ok := x.markers[cell.Marker]; ok && cell.Marker != "" {
			if !contains(x.rooms[d.Day], name) {
				x.addRoom(d.Day, name, "")
			}
			rooms = []string{name}
		} else {
			rooms = roomsCovering(layout[d.Day], start, end)
		}
		for _, room := range rooms {
			k := slot{Day: d.Day, Room: room, Interval: iv}
			if !hasOrigin(x.cells[k], from) {
				x.cells[k] = append(x.cells[k], fragment{From: from, Text: content})
			}
		}
	}
}

func hasOrigin(frags []fragment, o origin) bool {
	for _, f := range frags {
		if f.From == o {
			return true
		}
	}
	return false
}

// roomsCovering returns the rooms whose first column lies in [start, end),
// or failing that the room sharing the most columns with the range.
func roomsCovering(rooms []roomCol, start, end int) []string {
	var out []string
	for _, r := range rooms {
		if r.Start >= start && r.Start < end {
			out = append(out, r.Name)
		}
	}
	if len(out) > 0 {
		return out
	}
	best, bestOverlap := "", 0
	for _, r := range rooms {
		if ov := min(end, r.End) - max(start, r.Start); ov > bestOverlap {
			best, bestOverlap = r.Name, ov
		}
	}
	if best == "" {
		return nil
	}
	return []string{best}
}

func (x *extraction) addBreak(tableIdx int, row model.Row, after model.Clock) {
	name := ""
	for _, c := range row.Distinct() {
		if containsAny(strings.ToLower(c.Text), breakWords) {
			name = text.Collapse(c.Text)
			break
		}
	}
	if label, ok := parseTimeLabel(row.Text()); ok && label.End > label.Start {
		x.breaks = append(x.breaks, model.NamedInterval{Name: name, Start: label.Start, End: label.End})
		return
	}
	x.pending = append(x.pending, pendingBreak{Name: name, After: after, Table: tableIdx})
}

// resolvePendingBreaks closes untimed breaks of the table at the next data
// row's start.
func (x *extraction) resolvePendingBreaks(tableIdx int, next model.Clock) {
	kept := x.pending[:0]
	for _, pb := range x.pending {
		if pb.Table != tableIdx {
			kept = append(kept, pb)
			continue
		}
		if pb.After > 0 && next > pb.After {
			x.breaks = append(x.breaks, model.NamedInterval{Name: pb.Name, Start: pb.After, End: next})
		}
	}
	x.pending = kept
}

// finish assigns block indices in time order and fills the complete map.
func (x *extraction) finish() *Result {
	ivs := make([]model.Interval, 0, len(x.intervals))
	for iv := range x.intervals {
		ivs = append(ivs, iv)
	}
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Start != ivs[j].Start {
			return ivs[i].Start < ivs[j].Start
		}
		return ivs[i].End < ivs[j].End
	})

	res := &Result{
		SourceID: x.sourceID,
		Rooms:    x.rooms,
		Cells:    make(model.CellMap),
		Markers:  x.markers,
		Contexts: x.contexts,
		Warnings: x.warnings,
	}
	index := make(map[model.Interval]int, len(ivs))
	for i, iv := range ivs {
		index[iv] = i
		res.Blocks = append(res.Blocks, model.TimeBlock{Index: i, Start: iv.Start, End: iv.End})
	}

	for day, rooms := range x.rooms {
		for _, room := range rooms {
			for _, b := range res.Blocks {
				res.Cells[model.CellKey{Day: day, Room: room, Block: b.Index}] = ""
			}
		}
	}
	for k, frags := range x.cells {
		parts := make([]string, 0, len(frags))
		for _, f := range frags {
			if !contains(parts, f.Text) {
				parts = append(parts, f.Text)
			}
		}
		res.Cells[model.CellKey{Day: k.Day, Room: k.Room, Block: index[k.Interval]}] = strings.Join(parts, "\n")
	}

	seen := make(map[model.NamedInterval]bool)
	for _, b := range x.breaks {
		if !seen[b] {
			seen[b] = true
			res.Breaks = append(res.Breaks, b)
		}
	}
	sort.Slice(res.Breaks, func(i, j int) bool { return res.Breaks[i].Start < res.Breaks[j].Start })
	return res
}
