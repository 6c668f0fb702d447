package assemble

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/karlla1220/meetgrid/gateway"
	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/slots"
	"github.com/karlla1220/meetgrid/tables"
)

// ============================================================================
// Fixture helpers
// ============================================================================

func tb(i int, start, end string) model.TimeBlock {
	return model.TimeBlock{Index: i, Start: model.MustClock(start), End: model.MustClock(end)}
}

func result(id string, blocks []model.TimeBlock, rooms []string, cells map[model.CellKey]string) *tables.Result {
	r := &tables.Result{
		SourceID: id,
		Blocks:   blocks,
		Rooms:    map[model.Day][]string{model.Monday: rooms},
		Cells:    make(model.CellMap),
		Markers:  make(map[string]string),
		Contexts: make(map[model.Day]map[string]string),
	}
	for k, v := range cells {
		r.Cells[k] = v
	}
	return r
}

func mon(room string, block int) model.CellKey {
	return model.CellKey{Day: model.Monday, Room: room, Block: block}
}

var blocks = []model.TimeBlock{
	tb(0, "09:00", "10:00"),
	tb(1, "10:00", "11:00"),
	tb(2, "11:30", "12:30"),
}

// collection builds a primary "main" with rooms R1 and R2 on Monday and an
// optional detail "vice" whose "Room A" is hinted to R1.
func collection(t *testing.T, withDetail bool) *slots.Collection {
	t.Helper()
	sources := []slots.Source{{
		ID:   "main",
		Role: model.RolePrimary,
		Result: result("main", blocks, []string{"R1", "R2"}, map[model.CellKey]string{
			mon("R1", 0): "RAN1 session",
		}),
	}}
	if withDetail {
		sources = append(sources, slots.Source{
			ID:   "vice",
			Role: model.RoleDetail,
			Result: result("vice", []model.TimeBlock{tb(0, "09:15", "09:45")}, []string{"Room A"}, map[model.CellKey]string{
				mon("Room A", 0): "9.1.2 discussion, Jane",
			}),
			Hints: slots.RoomHint{"Room A": "R1"},
		})
	}
	col, err := slots.Collect(sources)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return col
}

func cand(room, name, start, end string, conf float64, sources ...string) gateway.Candidate {
	return gateway.Candidate{
		Name:       name,
		Room:       room,
		Start:      model.MustClock(start),
		End:        model.MustClock(end),
		Confidence: conf,
		Sources:    sources,
	}
}

func answered(block model.TimeBlock, cands ...gateway.Candidate) gateway.SlotResult {
	return gateway.SlotResult{
		Request:  gateway.Request{Day: model.Monday, Block: block},
		Response: gateway.Response{Sessions: cands},
	}
}

var fixedNow = func() time.Time { return time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC) }

func run(t *testing.T, col *slots.Collection, results ...gateway.SlotResult) (*model.Schedule, *Report) {
	t.Helper()
	return Assemble(Input{
		MeetingName: "RAN1#124",
		Timezone:    "Europe/Athens",
		Collection:  col,
		Results:     results,
		Now:         fixedNow,
	})
}

func monday(t *testing.T, s *model.Schedule) *model.DaySchedule {
	t.Helper()
	ds := s.Day(model.Monday)
	if ds == nil {
		t.Fatal("no Monday in schedule")
	}
	return ds
}

// ============================================================================
// Scenario Tests
// ============================================================================

func TestSingleOpeningSession(t *testing.T) {
	col, err := slots.Collect([]slots.Source{{
		ID:   "main",
		Role: model.RolePrimary,
		Result: result("main", []model.TimeBlock{tb(0, "09:00", "09:30")}, []string{"R1", "R2"}, map[model.CellKey]string{
			mon("R1", 0): "Opening — John",
		}),
	}})
	if err != nil {
		t.Fatal(err)
	}
	key := model.SlotKey{Day: model.Monday, Block: 0}
	req := gateway.Request{
		Day:       model.Monday,
		Block:     col.Blocks[0],
		Fragments: col.Slots[key],
		Rooms:     col.Rooms[model.Monday],
		Hint:      col.HintsFor(key),
	}
	resp, err := gateway.Heuristic{}.Structure(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	sched, report := run(t, col, gateway.SlotResult{Request: req, Response: resp})
	if len(report.Errors) != 0 {
		t.Fatalf("errors = %v", report.Errors)
	}
	ds := monday(t, sched)
	if len(ds.Sessions) != 1 {
		t.Fatalf("sessions = %+v", ds.Sessions)
	}
	s := ds.Sessions[0]
	if s.Room != "R1" || s.Day != model.Monday || s.Interval().String() != "09:00-09:30" {
		t.Errorf("session = %+v", s)
	}
	if s.Name != "Opening" || s.Chair != "John" {
		t.Errorf("name/chair = %q/%q", s.Name, s.Chair)
	}
	if got := strings.Join(ds.Rooms, ","); got != "R1,R2" {
		t.Errorf("rooms = %q", got)
	}
}

func TestPrimaryAndDetailMergeThroughHint(t *testing.T) {
	col := collection(t, true)
	detail := cand("Room A", "9.1.2 discussion", "09:15", "09:45", 0.5, "vice")
	detail.Chair = "Jane"

	sched, report := run(t, col, answered(blocks[0],
		cand("R1", "RAN1 session", "09:00", "10:00", 0.3, "main"),
		detail,
	))
	if len(report.Errors) != 0 || len(report.UnmappedRooms) != 0 {
		t.Fatalf("report = %+v", report)
	}
	ds := monday(t, sched)
	if len(ds.Sessions) != 1 {
		t.Fatalf("sessions = %+v", ds.Sessions)
	}
	s := ds.Sessions[0]
	if s.Room != "R1" || s.AgendaItem != "9.1.2" || s.Chair != "Jane" {
		t.Errorf("merged = %+v", s)
	}
	if s.Name != "RAN1 session" || s.Interval().String() != "09:00-10:00" {
		t.Errorf("primary should win name and time: %+v", s)
	}
	if diff := cmp.Diff([]string{"main", "vice"}, s.Sources); diff != "" {
		t.Errorf("sources (-want +got):\n%s", diff)
	}
	want := map[string][]string{"name": {"discussion"}, "time": {"09:15-09:45"}}
	if diff := cmp.Diff(want, s.Annotations); diff != "" {
		t.Errorf("annotations (-want +got):\n%s", diff)
	}
	if !s.HasRole(model.RolePrimary) || !s.HasRole(model.RoleDetail) {
		t.Errorf("roles = %v", s.Roles)
	}
}

func TestGenericPrimarySplitIntoDetailSessions(t *testing.T) {
	col := collection(t, true)
	sched, report := run(t, col, answered(blocks[0],
		cand("R1", "RAN1 session", "09:00", "10:00", 0.3, "main"),
		cand("Room A", "9.1.2 discussion", "09:00", "09:30", 0.5, "vice"),
		cand("Room A", "9.1.3 other topic", "09:30", "10:00", 0.5, "vice"),
	))
	if len(report.Errors) != 0 {
		t.Fatalf("errors = %v", report.Errors)
	}
	ds := monday(t, sched)
	if len(ds.Sessions) != 2 {
		t.Fatalf("want one session per detail item, got %+v", ds.Sessions)
	}

	got := make(map[string]string)
	for _, s := range ds.Sessions {
		got[s.AgendaItem] = s.Room + " " + s.Interval().String()
		if diff := cmp.Diff([]string{"main", "vice"}, s.Sources); diff != "" {
			t.Errorf("%s sources (-want +got):\n%s", s.AgendaItem, diff)
		}
		if len(s.Annotations) != 0 {
			t.Errorf("%s annotations = %v", s.AgendaItem, s.Annotations)
		}
	}
	want := map[string]string{
		"9.1.2": "R1 09:00-09:30",
		"9.1.3": "R1 09:30-10:00",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}
}

func TestMergeIsNotTransitive(t *testing.T) {
	at := func(name, agenda, start, end string) model.Session {
		return model.Session{
			Name: name, AgendaItem: agenda, Room: "R1",
			Start: model.MustClock(start), End: model.MustClock(end),
			Sources: []string{"main"},
		}
	}
	// The middle session duplicates both others, which never overlap.
	merged := mergeDay([]model.Session{
		at("CSI", "", "09:00", "09:30"),
		at("CSI", "9.2", "09:00", "10:00"),
		at("MIMO", "9.2", "09:30", "10:00"),
	})
	if len(merged) != 2 {
		t.Fatalf("merged = %+v, want 2 sessions", merged)
	}
	var names []string
	for _, s := range merged {
		names = append(names, s.Name+" "+s.Interval().String())
	}
	want := []string{"CSI 09:00-09:30", "MIMO 09:30-10:00"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("sessions (-want +got):\n%s", diff)
	}
}

func TestConcurrentSessionsKept(t *testing.T) {
	col := collection(t, false)
	sched, report := run(t, col, answered(blocks[1],
		cand("R1", "Sub-track A", "10:00", "10:30", 0.5, "main"),
		cand("R1", "Sub-track B", "10:00", "10:30", 0.5, "main"),
	))
	if len(report.Errors) != 0 {
		t.Fatalf("errors = %v", report.Errors)
	}
	ds := monday(t, sched)
	if len(ds.Sessions) != 2 {
		t.Fatalf("want both sessions kept, got %+v", ds.Sessions)
	}
	if ds.Sessions[0].ID == ds.Sessions[1].ID {
		t.Error("concurrent sessions share an id")
	}
}

func TestUnresolvedSlotDoesNotAbort(t *testing.T) {
	col := collection(t, false)
	failed := gateway.SlotResult{
		Request: gateway.Request{Day: model.Monday, Block: blocks[1]},
		Err:     &model.GatewayUnavailableError{Day: model.Monday, Block: 1, Err: context.DeadlineExceeded},
	}
	sched, report := run(t, col,
		answered(blocks[0], cand("R1", "Opening", "09:00", "09:30", 0.5, "main")),
		failed,
		answered(blocks[2], cand("R2", "Closing", "11:30", "12:00", 0.5, "main")),
	)
	want := []model.SlotKey{{Day: model.Monday, Block: 1}}
	if diff := cmp.Diff(want, sched.Unresolved); diff != "" {
		t.Errorf("unresolved (-want +got):\n%s", diff)
	}
	if sched.SessionCount() != 2 {
		t.Errorf("sessions = %d, want 2", sched.SessionCount())
	}
	var gue *model.GatewayUnavailableError
	if len(report.Errors) != 1 || !errors.As(report.Errors[0], &gue) {
		t.Errorf("errors = %v", report.Errors)
	}
}

// ============================================================================
// Validation Tests
// ============================================================================

func TestIntegrityErrors(t *testing.T) {
	col := collection(t, false)
	tests := []struct {
		name   string
		block  model.TimeBlock
		c      gateway.Candidate
		reason string
	}{
		{"start after end", blocks[0], cand("R1", "x", "09:30", "09:00", 0.5, "main"), "not before"},
		{"empty range", blocks[0], cand("R1", "x", "09:30", "09:30", 0.5, "main"), "not before"},
		{"outside block", blocks[0], cand("R1", "x", "13:00", "14:00", 0.5, "main"), "outside"},
		// block 1 has no primary text, so an empty label has nowhere to go
		{"no room", blocks[1], cand("", "x", "10:00", "10:30", 0.5, "main"), "room"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, report := run(t, col, answered(tt.block, tt.c))
			if sched.SessionCount() != 0 {
				t.Errorf("session should be excluded")
			}
			dies := report.IntegrityErrors()
			if len(dies) != 1 || !strings.Contains(dies[0].Reason, tt.reason) {
				t.Errorf("errors = %v, want reason containing %q", report.Errors, tt.reason)
			}
		})
	}
}

func TestEmptyRoomFallsBackToSolePrimaryRoom(t *testing.T) {
	col := collection(t, false) // block 0 only has R1 text
	sched, report := run(t, col, answered(blocks[0], cand("", "x", "09:00", "09:30", 0.5, "main")))
	if len(report.Errors) != 0 {
		t.Fatalf("errors = %v", report.Errors)
	}
	if got := monday(t, sched).Sessions[0].Room; got != "R1" {
		t.Errorf("room = %q, want R1", got)
	}
}

func TestClampingAndSpanning(t *testing.T) {
	col := collection(t, false)
	sched, _ := run(t, col,
		// starts before its block
		answered(blocks[0], cand("R1", "early", "08:45", "09:30", 0.5, "main")),
		// runs into the directly following block
		answered(blocks[0], cand("R2", "long", "09:30", "10:30", 0.5, "main")),
		// runs past a block followed by a break
		answered(blocks[1], cand("R2", "late", "10:30", "11:15", 0.5, "main")),
	)
	got := make(map[string]model.Session)
	for _, s := range monday(t, sched).Sessions {
		got[s.Name] = s
	}
	if s := got["early"]; s.Interval().String() != "09:00-09:30" || !s.Flags.Clamped {
		t.Errorf("early = %+v", s)
	}
	if s := got["long"]; s.Interval().String() != "09:30-10:30" || s.Flags.Clamped {
		t.Errorf("long = %+v", s)
	}
	if s := got["late"]; s.Interval().String() != "10:30-11:00" || !s.Flags.Clamped {
		t.Errorf("late = %+v", s)
	}
}

// ============================================================================
// Room Binding Tests
// ============================================================================

func TestRoomBinding(t *testing.T) {
	col := collection(t, true)
	sched, report := run(t, col, answered(blocks[0],
		cand("r2", "folded", "09:00", "09:30", 0.5, "main"),
		cand("Room A", "hinted", "09:30", "10:00", 0.5, "vice"),
		cand("Annex", "unknown", "09:00", "09:30", 0.5, "vice"),
	))
	rooms := make(map[string]string)
	ds := monday(t, sched)
	for _, s := range ds.Sessions {
		rooms[s.Name] = s.Room
	}
	want := map[string]string{"folded": "R2", "hinted": "R1", "unknown": "Annex"}
	if diff := cmp.Diff(want, rooms); diff != "" {
		t.Errorf("rooms (-want +got):\n%s", diff)
	}
	if got := strings.Join(ds.Rooms, ","); got != "R1,R2,Annex" {
		t.Errorf("day rooms = %q, want the unmapped room appended", got)
	}
	wantUnmapped := []UnmappedRoom{{Day: model.Monday, Label: "Annex", Sources: []string{"vice"}}}
	if diff := cmp.Diff(wantUnmapped, report.UnmappedRooms); diff != "" {
		t.Errorf("unmapped (-want +got):\n%s", diff)
	}
}

// ============================================================================
// Merge Tests
// ============================================================================

func TestMergeSameNameAcrossSources(t *testing.T) {
	col := collection(t, true)
	a := cand("R1", "CSI", "09:00", "09:30", 0.5, "main")
	a.Chair = "Alice"
	b := cand("R1", "csi", "09:05", "09:35", 0.9, "vice")
	b.Chair = "Bob"

	sched, _ := run(t, col, answered(blocks[0], a, b))
	ds := monday(t, sched)
	if len(ds.Sessions) != 1 {
		t.Fatalf("sessions = %+v", ds.Sessions)
	}
	s := ds.Sessions[0]
	if s.Chair != "Alice" || s.Confidence != 0.9 {
		t.Errorf("merged = %+v", s)
	}
	if diff := cmp.Diff([]string{"Bob"}, s.Annotations["chair"]); diff != "" {
		t.Errorf("chair annotation (-want +got):\n%s", diff)
	}
}

func TestMergeRankWithoutPrimary(t *testing.T) {
	mk := func(chair string, conf float64, src string) model.Session {
		return model.Session{
			Name: "x", Chair: chair, Room: "R1", Confidence: conf,
			Start: model.MustClock("09:00"), End: model.MustClock("09:30"),
			Sources: []string{src}, Roles: []model.Role{model.RoleDetail},
		}
	}
	got := resolve([]model.Session{mk("C", 0.5, "c"), mk("B", 0.5, "b"), mk("A", 0.9, "z")})
	if got.Chair != "A" {
		t.Errorf("chair = %q, want the most confident", got.Chair)
	}
	if diff := cmp.Diff([]string{"B", "C"}, got.Annotations["chair"]); diff != "" {
		t.Errorf("annotations ordered by rank (-want +got):\n%s", diff)
	}
}

func TestDuplicates(t *testing.T) {
	base := model.Session{
		Name: "CSI", Room: "R1", Sources: []string{"main"}, Roles: []model.Role{model.RolePrimary},
		Start: model.MustClock("09:00"), End: model.MustClock("10:00"),
	}
	with := func(f func(*model.Session)) model.Session {
		s := base
		s.Sources = []string{"main"}
		f(&s)
		return s
	}
	detail := func(s *model.Session) {
		s.Name = "other"
		s.Sources = []string{"vice"}
		s.Roles = []model.Role{model.RoleDetail}
	}

	tests := []struct {
		name string
		b    model.Session
		want bool
	}{
		{"same name", with(func(s *model.Session) {}), true},
		{"half overlap", with(func(s *model.Session) { s.Start, s.End = model.MustClock("09:30"), model.MustClock("10:30") }), true},
		{"small overlap", with(func(s *model.Session) { s.Start, s.End = model.MustClock("09:45"), model.MustClock("10:45") }), false},
		{"other room", with(func(s *model.Session) { s.Room = "R2" }), false},
		{"one category missing", with(func(s *model.Session) { s.Category = "MIMO" }), true},
		{"different name same source", with(func(s *model.Session) { s.Name = "other" }), false},
		{"detail source", with(detail), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := duplicates(base, tt.b); got != tt.want {
				t.Errorf("duplicates() = %v, want %v", got, tt.want)
			}
		})
	}

	a, b := base, base
	a.Category, b.Category = "MIMO", "NTN"
	if duplicates(a, b) {
		t.Error("different categories should not merge")
	}
	a.AgendaItem, b.AgendaItem = "9.1", "9.1"
	a.Name, b.Name = "x", "y"
	a.Category, b.Category = "", ""
	if !duplicates(a, b) {
		t.Error("equal agenda items should merge")
	}
}

// ============================================================================
// Category Tests
// ============================================================================

func TestCategoryNormalisation(t *testing.T) {
	v := newVocabulary(map[string]string{"multi-antenna": "MIMO"})
	tests := []struct{ in, want string }{
		{"  Multi-Antenna ", "MIMO"},
		{"mimo", "MIMO"},
		{"NTN  NR", "NTN NR"},
		{"ntn nr", "NTN NR"},
		{"ＮＴＮ ＮＲ", "NTN NR"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := v.canonical(tt.in); got != tt.want {
			t.Errorf("canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBackfill(t *testing.T) {
	col := collection(t, false)
	withCat := func(c gateway.Candidate, cat string) gateway.Candidate {
		c.Category = cat
		return c
	}
	sched, _ := run(t, col,
		answered(blocks[0], withCat(cand("R1", "a", "09:00", "09:30", 0.5, "main"), "MIMO")),
		answered(blocks[1], cand("R1", "b", "10:00", "10:30", 0.5, "main")),
		answered(blocks[1], withCat(cand("R2", "c", "10:00", "10:30", 0.5, "main"), "NTN")),
		answered(blocks[2], withCat(cand("R2", "d", "11:30", "12:00", 0.5, "main"), "AI/ML")),
		answered(blocks[0], cand("R2", "e", "09:00", "09:30", 0.5, "main")),
		answered(blocks[2], cand("R2", "f", "12:00", "12:30", 0.5, "main")),
	)
	got := make(map[string]model.Session)
	for _, s := range monday(t, sched).Sessions {
		got[s.Name] = s
	}
	if s := got["b"]; s.Category != "MIMO" || !s.Flags.Backfilled {
		t.Errorf("b = %+v, want MIMO from the previous block", s)
	}
	if s := got["e"]; s.Category != "NTN" {
		t.Errorf("e = %+v, want NTN from the next block", s)
	}
	if s := got["f"]; s.Category != "" || s.Flags.Backfilled {
		t.Errorf("f = %+v, want uncategorised (NTN and AI/ML both adjacent)", s)
	}
}

// ============================================================================
// Overflow Tests
// ============================================================================

func TestOverflowFlagsSessions(t *testing.T) {
	col := collection(t, false)
	sched, report := run(t, col, answered(blocks[0],
		cand("R1", "a", "09:00", "09:40", 0.5, "main"),
		cand("R1", "b", "09:20", "10:00", 0.5, "main"),
		cand("R2", "c", "09:00", "09:30", 0.5, "main"),
	))
	want := []model.DurationOverflowWarning{{Day: model.Monday, Block: 0, Room: "R1", Total: 80, Limit: 60}}
	if diff := cmp.Diff(want, report.Warnings); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
	for _, s := range monday(t, sched).Sessions {
		if s.Flags.NeedsReview != (s.Room == "R1") {
			t.Errorf("%s NeedsReview = %v", s.Name, s.Flags.NeedsReview)
		}
	}
	if sched.SessionCount() != 3 {
		t.Errorf("overflowing sessions must be kept")
	}
}

// ============================================================================
// Determinism Tests
// ============================================================================

func TestAssembleIsIdempotent(t *testing.T) {
	col := collection(t, true)
	detail := cand("Room A", "9.1.2 discussion", "09:15", "09:45", 0.5, "vice")
	detail.Chair = "Jane"
	results := []gateway.SlotResult{
		answered(blocks[1], cand("R2", "Sub-track", "10:00", "10:30", 0.5, "main")),
		answered(blocks[0], cand("R1", "RAN1 session", "09:00", "10:00", 0.3, "main"), detail),
	}

	first, _ := run(t, col, results...)
	second, _ := run(t, col, results...)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}

	reversed := []gateway.SlotResult{results[1], results[0]}
	third, _ := run(t, col, reversed...)
	if diff := cmp.Diff(first, third); diff != "" {
		t.Errorf("result order changed the schedule (-first +third):\n%s", diff)
	}

	for _, s := range first.Days[0].Sessions {
		if s.ID == "" {
			t.Errorf("session %q has no id", s.Name)
		}
	}
	if !first.GeneratedAt.Equal(fixedNow()) || first.MeetingName != "RAN1#124" {
		t.Errorf("header = %q %v", first.MeetingName, first.GeneratedAt)
	}
}

// ============================================================================
// Agenda Tests
// ============================================================================

func TestAgendaFromName(t *testing.T) {
	tests := []struct {
		in       string
		item     string
		wantName string
	}{
		{"9.1.2 discussion", "9.1.2", "discussion"},
		{"AI 10.5.4.1 Misc", "10.5.4.1", "Misc"},
		{".8.1 leftovers", "8.1", "leftovers"},
		{"9.1.x", "9.1.x", ""},
		{"Opening", "", "Opening"},
		{"R1 session", "", "R1 session"},
	}
	for _, tt := range tests {
		item, name := agendaFromName(tt.in)
		if item != tt.item || name != tt.wantName {
			t.Errorf("agendaFromName(%q) = %q, %q; want %q, %q", tt.in, item, name, tt.item, tt.wantName)
		}
	}
	if got := agendaFromHeader("AI 9.1 R20 AI/ML"); got != "9.1" {
		t.Errorf("agendaFromHeader() = %q", got)
	}
	if got := agendaFromHeader("MIMO"); got != "" {
		t.Errorf("agendaFromHeader() = %q", got)
	}
}

func TestBareAgendaNameGetsLabel(t *testing.T) {
	col := collection(t, false)
	sched, _ := run(t, col, answered(blocks[0], cand("R1", "9.1.2", "09:00", "09:30", 0.5, "main")))
	s := monday(t, sched).Sessions[0]
	if s.Name != "AI 9.1.2" || s.AgendaItem != "9.1.2" {
		t.Errorf("session = %q / %q", s.Name, s.AgendaItem)
	}
}
