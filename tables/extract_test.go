package tables

import (
	"errors"
	"strings"
	"testing"

	"github.com/karlla1220/meetgrid/model"
)

// ============================================================================
// Fixture helpers
// ============================================================================

func cell(col int, text string) model.Cell {
	return model.NewCell(col, text)
}

func span(col, n int, text string) model.Cell {
	return model.Cell{Text: text, Col: col, ColSpan: n, RowSpan: 1}
}

func shaded(col, n int, text, marker string) model.Cell {
	return model.Cell{Text: text, Col: col, ColSpan: n, RowSpan: 1, Marker: marker}
}

func cont(col, n int) model.Cell {
	return model.Cell{Col: col, ColSpan: n, Continuation: true}
}

func row(cells ...model.Cell) model.Row {
	return model.Row{Cells: cells}
}

func docOf(tables ...*model.Table) *model.Document {
	doc := model.NewDocument("main", "main.docx")
	for _, t := range tables {
		doc.AddTable(t)
	}
	return doc
}

func key(day model.Day, room string, block int) model.CellKey {
	return model.CellKey{Day: day, Room: room, Block: block}
}

// labelledTable has room labels under Monday only; Tuesday inherits them.
//
//	| Time        | Monday       | Tuesday    |
//	|             | R1    | R2   |     |      |
//	| 08:30-10:30 | A     | B    | Plenary    |
//	| 10:30-11:00 | Coffee break              |
//	| 11:00-13:00 | C (2 rows) |      |     |      |
//	| 14:30-16:30 | ^     | D    |     |      |
func labelledTable() *model.Table {
	c := model.Cell{Text: "C", Col: 1, ColSpan: 1, RowSpan: 2}
	return &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), span(1, 2, "Monday"), span(3, 2, "Tuesday")),
		row(cell(0, ""), cell(1, "R1"), cell(2, "R2"), cell(3, ""), cell(4, "")),
		row(cell(0, "08:30-10:30"), cell(1, "RAN1 A"), cell(2, "RAN1 B"), span(3, 2, "Plenary")),
		row(cell(0, "10:30-11:00"), span(1, 4, "Coffee break")),
		row(cell(0, "11:00-13:00"), c, cell(2, ""), cell(3, ""), cell(4, "")),
		row(cell(0, "14:30-16:30"), cont(1, 1), cell(2, "D"), cell(3, ""), cell(4, "")),
	}}
}

// ============================================================================
// Extract Tests
// ============================================================================

func TestExtractLabelledTable(t *testing.T) {
	res, err := Extract(docOf(labelledTable()), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got := len(res.Blocks); got != 3 {
		t.Fatalf("blocks = %d, want 3", got)
	}
	if res.Blocks[1].Start != model.MustClock("11:00") || res.Blocks[1].End != model.MustClock("13:00") {
		t.Errorf("block 1 = %v", res.Blocks[1])
	}

	for _, day := range []model.Day{model.Monday, model.Tuesday} {
		if got := strings.Join(res.Rooms[day], ","); got != "R1,R2" {
			t.Errorf("%s rooms = %q, want R1,R2", day, got)
		}
	}

	tests := []struct {
		key  model.CellKey
		want string
	}{
		{key(model.Monday, "R1", 0), "RAN1 A"},
		{key(model.Monday, "R2", 0), "RAN1 B"},
		{key(model.Tuesday, "R1", 0), "Plenary"},
		{key(model.Tuesday, "R2", 0), "Plenary"},
		{key(model.Monday, "R1", 1), "C"},
		{key(model.Monday, "R1", 2), "C"},
		{key(model.Monday, "R2", 2), "D"},
		{key(model.Tuesday, "R2", 2), ""},
	}
	for _, tt := range tests {
		got, ok := res.Cells.Lookup(tt.key)
		if !ok {
			t.Errorf("%v not examined", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("%v = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestExtractCellMapComplete(t *testing.T) {
	res, err := Extract(docOf(labelledTable()), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := 0
	for _, day := range res.Days() {
		for _, room := range res.Rooms[day] {
			for _, b := range res.Blocks {
				want++
				if _, ok := res.Cells.Lookup(key(day, room, b.Index)); !ok {
					t.Errorf("missing %s/%s/%d", day, room, b.Index)
				}
			}
		}
	}
	if len(res.Cells) != want {
		t.Errorf("cells = %d, want %d", len(res.Cells), want)
	}
	if got := len(res.RawCells()); got != 7 {
		t.Errorf("RawCells() = %d, want 7 non-empty", got)
	}
}

func TestExtractBreaks(t *testing.T) {
	res, err := Extract(docOf(labelledTable()), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(res.Breaks) != 1 {
		t.Fatalf("breaks = %v, want one", res.Breaks)
	}
	b := res.Breaks[0]
	if b.Name != "Coffee break" || b.Start != model.MustClock("10:30") || b.End != model.MustClock("11:00") {
		t.Errorf("break = %+v", b)
	}
}

func TestExtractUntimedBreak(t *testing.T) {
	tbl := &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), cell(1, "Monday")),
		row(cell(0, "08:30-10:30"), cell(1, "A")),
		row(span(0, 2, "Lunch")),
		row(cell(0, "14:30-16:30"), cell(1, "B")),
	}}
	res, err := Extract(docOf(tbl), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(res.Breaks) != 1 {
		t.Fatalf("breaks = %v", res.Breaks)
	}
	if got := res.Breaks[0].Interval(); got.Start != model.MustClock("10:30") || got.End != model.MustClock("14:30") {
		t.Errorf("untimed break = %v, want 10:30-14:30", got)
	}
}

func TestExtractCountedRooms(t *testing.T) {
	tbl := &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), span(1, 4, "Monday")),
		row(cell(0, "08:30-10:30"), span(1, 2, "S1"), span(3, 2, "S2")),
		row(cell(0, "11:00-13:00"), span(1, 4, "Plenary")),
	}}

	t.Run("generated names", func(t *testing.T) {
		res, err := Extract(docOf(tbl), Options{})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got := strings.Join(res.Rooms[model.Monday], ","); got != "Room A,Room B" {
			t.Fatalf("rooms = %q", got)
		}
		if got := res.Cells[key(model.Monday, "Room B", 0)]; got != "S2" {
			t.Errorf("Room B TB0 = %q, want S2", got)
		}
		for _, room := range []string{"Room A", "Room B"} {
			if got := res.Cells[key(model.Monday, room, 1)]; got != "Plenary" {
				t.Errorf("%s TB1 = %q, want Plenary", room, got)
			}
		}
	})

	t.Run("meeting rooms cell", func(t *testing.T) {
		named := &model.Table{Rows: append(append([]model.Row(nil), tbl.Rows...),
			row(span(0, 5, "Meeting Rooms:\nAlpha\nBeta")))}
		res, err := Extract(docOf(named), Options{})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got := strings.Join(res.Rooms[model.Monday], ","); got != "Alpha,Beta" {
			t.Errorf("rooms = %q, want Alpha,Beta", got)
		}
	})

	t.Run("prefix option", func(t *testing.T) {
		res, err := Extract(docOf(tbl), Options{FallbackPrefix: "Hall"})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got := res.Rooms[model.Monday][0]; got != "Hall A" {
			t.Errorf("first room = %q, want Hall A", got)
		}
	})
}

func TestExtractOfflineTable(t *testing.T) {
	main := &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), span(1, 2, "Monday")),
		row(cell(0, "08:30-10:30"), cell(1, "S1"), cell(2, "S2")),
	}}
	offline := &model.Table{Context: "Offline sessions", Rows: []model.Row{
		row(cell(0, "Time"), cell(1, "Monday")),
		row(cell(0, "08:30-10:30"), cell(1, "Offline talk")),
	}}
	res, err := Extract(docOf(main, offline), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := strings.Join(res.Rooms[model.Monday], ","); got != "Room A,Room B,Offline A" {
		t.Fatalf("rooms = %q", got)
	}
	if got := res.Cells[key(model.Monday, "Offline A", 0)]; got != "Offline talk" {
		t.Errorf("Offline A = %q", got)
	}
	if got := res.Contexts[model.Monday]["Offline A"]; got != "Offline sessions" {
		t.Errorf("context = %q", got)
	}
}

func TestExtractDuplicateRoomLabels(t *testing.T) {
	a := &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), cell(1, "Monday")),
		row(cell(0, ""), cell(1, "Main")),
		row(cell(0, "08:30-10:30"), cell(1, "x")),
	}}
	b := &model.Table{Rows: a.Rows}
	res, err := Extract(docOf(a, b), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := strings.Join(res.Rooms[model.Monday], ","); got != "Main,Main (2)" {
		t.Errorf("rooms = %q", got)
	}
}

func TestExtractBannerIgnored(t *testing.T) {
	tbl := &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), span(1, 2, "Monday"), span(3, 2, "Tuesday")),
		row(cell(0, ""), span(1, 4, "Hosted by the host company")),
		row(cell(0, ""), cell(1, "R1"), cell(2, "R2"), cell(3, "R3"), cell(4, "R4")),
		row(cell(0, "08:30-10:30"), cell(1, "a"), cell(2, "b"), cell(3, "c"), cell(4, "d")),
	}}
	res, err := Extract(docOf(tbl), Options{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := strings.Join(res.Rooms[model.Tuesday], ","); got != "R3,R4" {
		t.Errorf("Tuesday rooms = %q, want R3,R4", got)
	}
	for _, day := range res.Days() {
		for _, room := range res.Rooms[day] {
			if strings.Contains(room, "Hosted") {
				t.Errorf("banner became room %q on %s", room, day)
			}
		}
	}
}

func TestExtractMarkers(t *testing.T) {
	t.Run("option binding wins over column", func(t *testing.T) {
		tbl := &model.Table{Rows: []model.Row{
			row(cell(0, "Time"), span(1, 4, "Monday")),
			row(cell(0, "08:30-10:30"), span(1, 2, "S1"), span(3, 2, "S2")),
			row(cell(0, "11:00-13:00"), shaded(1, 2, "Yellow talk", "FFFF00"), span(3, 2, "")),
		}}
		res, err := Extract(docOf(tbl), Options{Markers: map[string]string{"#ffff00": "Room B"}})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got := res.Cells[key(model.Monday, "Room B", 1)]; got != "Yellow talk" {
			t.Errorf("Room B TB1 = %q, want Yellow talk", got)
		}
		if got := res.Cells[key(model.Monday, "Room A", 1)]; got != "" {
			t.Errorf("Room A TB1 = %q, want empty", got)
		}
	})

	t.Run("learnt from shaded labels", func(t *testing.T) {
		tbl := &model.Table{Rows: []model.Row{
			row(cell(0, "Time"), span(1, 2, "Monday")),
			row(cell(0, ""), shaded(1, 1, "R1", "AAAAAA"), shaded(2, 1, "R2", "BBBBBB")),
			row(cell(0, "08:30-10:30"), shaded(1, 1, "Tagged", "BBBBBB"), cell(2, "")),
		}}
		res, err := Extract(docOf(tbl), Options{})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got := res.Cells[key(model.Monday, "R2", 0)]; got != "Tagged" {
			t.Errorf("R2 = %q, want Tagged", got)
		}
		if res.Markers["AAAAAA"] != "R1" {
			t.Errorf("markers = %v", res.Markers)
		}
	})

	t.Run("shared label colour not learnt", func(t *testing.T) {
		tbl := &model.Table{Rows: []model.Row{
			row(cell(0, "Time"), span(1, 2, "Monday")),
			row(cell(0, ""), shaded(1, 1, "R1", "DDDDDD"), shaded(2, 1, "R2", "DDDDDD")),
			row(cell(0, "08:30-10:30"), shaded(1, 1, "Grey", "DDDDDD"), cell(2, "")),
		}}
		res, err := Extract(docOf(tbl), Options{})
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if _, ok := res.Markers["DDDDDD"]; ok {
			t.Error("shared colour should not be bound")
		}
		if got := res.Cells[key(model.Monday, "R1", 0)]; got != "Grey" {
			t.Errorf("R1 = %q, want Grey", got)
		}
	})
}

func TestExtractStartOnlyLabels(t *testing.T) {
	tbl := &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), cell(1, "Wednesday")),
		row(cell(0, "08:30"), cell(1, "a")),
		row(cell(0, "11:00"), cell(1, "b")),
	}}
	blocks := []model.TimeBlock{
		{Index: 0, Start: model.MustClock("08:30"), End: model.MustClock("10:30")},
		{Index: 1, Start: model.MustClock("11:00"), End: model.MustClock("13:00")},
	}

	res, err := Extract(docOf(tbl), Options{Blocks: blocks})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(res.Blocks) != 2 || res.Blocks[1].End != model.MustClock("13:00") {
		t.Errorf("blocks = %v", res.Blocks)
	}

	_, err = Extract(docOf(tbl), Options{})
	var malformed *model.MalformedDocumentError
	if !errors.As(err, &malformed) {
		t.Fatalf("without blocks: error = %v, want MalformedDocumentError", err)
	}
}

func TestExtractMalformed(t *testing.T) {
	noDay := &model.Table{Rows: []model.Row{
		row(cell(0, "Name"), cell(1, "Value")),
		row(cell(0, "a"), cell(1, "b")),
	}}
	noTimes := &model.Table{Rows: []model.Row{
		row(cell(0, "Time"), cell(1, "Monday")),
		row(cell(0, "TBD"), cell(1, "x")),
	}}

	tests := []struct {
		name   string
		doc    *model.Document
		reason string
	}{
		{"nil", nil, "no table rows"},
		{"empty", docOf(), "no table rows"},
		{"no weekday", docOf(noDay), "weekday"},
		{"no time labels", docOf(noTimes), "time block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.doc, Options{SourceID: "src"})
			var malformed *model.MalformedDocumentError
			if !errors.As(err, &malformed) {
				t.Fatalf("error = %v, want MalformedDocumentError", err)
			}
			if malformed.SourceID != "src" || !strings.Contains(malformed.Reason, tt.reason) {
				t.Errorf("error = %+v", malformed)
			}
		})
	}
}

func TestWidest(t *testing.T) {
	narrow := &model.Table{Index: 0, Rows: []model.Row{row(cell(0, "a"))}}
	wide := &model.Table{Index: 1, Rows: []model.Row{row(span(0, 9, "b"))}}
	mid := &model.Table{Index: 2, Rows: []model.Row{row(span(0, 5, "c"))}}

	got := widest([]*model.Table{narrow, wide, mid}, 2)
	if len(got) != 2 || got[0] != wide || got[1] != mid {
		t.Errorf("widest() kept tables %d, %d", got[0].Index, got[1].Index)
	}
	if got := widest([]*model.Table{narrow}, 2); len(got) != 1 {
		t.Errorf("widest() with fewer tables = %d", len(got))
	}
}

// ============================================================================
// Row helper Tests
// ============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		row  model.Row
		want rowKind
	}{
		{"break", row(cell(0, "10:30-11:00"), span(1, 4, "Coffee Break")), rowBreak},
		{"footer", row(span(0, 5, "All sessions end at 19:30. No exceptions.")), rowFooter},
		{"metadata", row(span(0, 5, "Meeting Rooms: A, B")), rowMetadata},
		{"data mentioning lunch", row(cell(0, "11:00"), cell(1, "lunch talk"), cell(2, "b"), cell(3, "c"), cell(4, "d")), rowData},
		{"sparse data", row(cell(0, "08:30-10:30"), span(1, 4, "Plenary")), rowData},
		{"continuations only", row(cont(0, 1), cont(1, 1)), rowOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.row); got != tt.want {
				t.Errorf("classify() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTimeLabel(t *testing.T) {
	tests := []struct {
		in        string
		start     string
		end       string
		wantMatch bool
	}{
		{"08:30 ~ 10:30", "08:30", "10:30", true},
		{"8.30-10.30", "08:30", "10:30", true},
		{"08:30\n(120 min)", "08:30", "", true},
		{"17:00-16:00", "17:00", "", true},
		{"TBD", "", "", false},
		{"25:00", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseTimeLabel(tt.in)
			if ok != tt.wantMatch {
				t.Fatalf("parseTimeLabel(%q) ok = %v", tt.in, ok)
			}
			if !ok {
				return
			}
			if got.Start.String() != tt.start {
				t.Errorf("start = %s, want %s", got.Start, tt.start)
			}
			if tt.end == "" && got.End != 0 {
				t.Errorf("end = %s, want none", got.End)
			}
			if tt.end != "" && got.End.String() != tt.end {
				t.Errorf("end = %s, want %s", got.End, tt.end)
			}
		})
	}
}

func TestFallbackName(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "Room A"},
		{1, "Room B"},
		{25, "Room Z"},
		{26, "Room AA"},
		{27, "Room AB"},
	}
	for _, tt := range tests {
		if got := fallbackName("Room", tt.i); got != tt.want {
			t.Errorf("fallbackName(%d) = %q, want %q", tt.i, got, tt.want)
		}
	}
}

func TestParseRoomNames(t *testing.T) {
	got := parseRoomNames("Meeting Rooms:\n Main Hall \n\nAnnex")
	if strings.Join(got, "|") != "Main Hall|Annex" {
		t.Errorf("parseRoomNames() = %q", got)
	}
}

func TestParseDayHeader(t *testing.T) {
	days := parseDayHeader(row(cell(0, "Time"), span(1, 3, "Monday (Nov 17)"), span(4, 2, "Tuesday"), cell(6, "Monday")))
	if len(days) != 2 {
		t.Fatalf("days = %+v", days)
	}
	if days[0].Day != model.Monday || days[0].Start != 1 || days[0].End != 4 {
		t.Errorf("Monday range = %+v", days[0])
	}
	if days[1].Day != model.Tuesday || days[1].Start != 4 || days[1].End != 6 {
		t.Errorf("Tuesday range = %+v", days[1])
	}
}
