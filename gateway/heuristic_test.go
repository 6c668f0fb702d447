package gateway

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/karlla1220/meetgrid/model"
)

func structure(t *testing.T, req Request) []Candidate {
	t.Helper()
	resp, err := Heuristic{}.Structure(context.Background(), req)
	if err != nil {
		t.Fatalf("Structure() error = %v", err)
	}
	return resp.Sessions
}

func TestHeuristicFallbackSession(t *testing.T) {
	req := request(tb(0, "09:00", "09:30"), frag("main", model.RolePrimary, "R1", "Opening — John"))
	got := structure(t, req)

	want := []Candidate{{
		Name:       "Opening",
		Chair:      "John",
		Room:       "R1",
		Start:      model.MustClock("09:00"),
		End:        model.MustClock("09:30"),
		Confidence: HeuristicFallbackConfidence,
		Sources:    []string{"main"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestHeuristicFallbackUsesFragmentTime(t *testing.T) {
	f := frag("vice", model.RoleDetail, "Room A", "9.1.2 discussion, Jane")
	f.Time = model.Interval{Start: model.MustClock("09:15"), End: model.MustClock("09:45")}
	req := request(tb(0, "09:00", "10:00"), f)
	req.Hint = map[string]string{"Room A": "R1"}

	got := structure(t, req)
	if len(got) != 1 {
		t.Fatalf("sessions = %+v", got)
	}
	c := got[0]
	if c.Room != "R1" || c.Name != "9.1.2 discussion" || c.Chair != "Jane" {
		t.Errorf("candidate = %+v", c)
	}
	if c.Interval().String() != "09:15-09:45" {
		t.Errorf("interval = %s, want 09:15-09:45", c.Interval())
	}
}

func TestHeuristicItems(t *testing.T) {
	body := "NR MIMO\n" +
		"Rel-19 CSI (60)\n" +
		"9.1.2 CSI enhancements, Jane (30)\n" +
		"9.1.3 Beam management (30)\n" +
		"Closing remarks (15)"
	req := request(tb(0, "08:30", "10:30"), frag("main", model.RolePrimary, "R2", body))
	got := structure(t, req)

	want := []Candidate{
		{Name: "9.1.2 CSI enhancements", Chair: "Jane", Room: "R2", Category: "Rel-19 CSI", Start: model.MustClock("08:30"), End: model.MustClock("09:00")},
		{Name: "9.1.3 Beam management", Room: "R2", Category: "Rel-19 CSI", Start: model.MustClock("09:00"), End: model.MustClock("09:30")},
		{Name: "Closing remarks", Room: "R2", Start: model.MustClock("09:30"), End: model.MustClock("09:45")},
	}
	opts := cmpopts.IgnoreFields(Candidate{}, "Confidence", "Sources")
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func TestHeuristicHeaderLines(t *testing.T) {
	body := "Chair: Younsun Kim\nAI/ML\nPositioning (45)\nYounsun\nLMF (30)"
	got := structure(t, request(tb(0, "08:30", "10:30"), frag("main", model.RolePrimary, "R1", body)))
	if len(got) != 2 {
		t.Fatalf("sessions = %+v", got)
	}
	if got[0].Chair != "Younsun Kim" || got[0].Category != "AI/ML" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Chair != "Younsun" || got[1].Start != model.MustClock("09:15") {
		t.Errorf("second = %+v", got[1])
	}
}

func TestHeuristicSkipsContinuations(t *testing.T) {
	f := frag("vice", model.RoleDetail, "R1", "Spanning talk")
	f.Continuation = true
	if got := structure(t, request(tb(1, "11:00", "13:00"), f)); len(got) != 0 {
		t.Errorf("continuation produced sessions: %+v", got)
	}
}

func TestHeuristicMultiRoomFragment(t *testing.T) {
	f := model.Fragment{SourceID: "main", Rooms: []string{"R1", "R2"}, Text: "Plenary"}
	got := structure(t, request(tb(0, "08:30", "10:30"), f))
	if len(got) != 2 || got[0].Room != "R1" || got[1].Room != "R2" {
		t.Errorf("sessions = %+v", got)
	}
}

func TestSplitChair(t *testing.T) {
	tests := []struct {
		in, name, chair string
	}{
		{"9.1.2 discussion, Jane", "9.1.2 discussion", "Jane"},
		{"Opening - John Smith", "Opening", "John Smith"},
		{"MIMO, CSI", "MIMO, CSI", ""},
		{"RAN1 A", "RAN1 A", ""},
	}
	for _, tt := range tests {
		name, chair := splitChair(tt.in)
		if name != tt.name || chair != tt.chair {
			t.Errorf("splitChair(%q) = %q, %q; want %q, %q", tt.in, name, chair, tt.name, tt.chair)
		}
	}
}

func TestGroupSpanNeedsTwoItems(t *testing.T) {
	lines := splitLines("A (30)\nB (30)")
	if _, ok := groupSpan(lines, 0); ok {
		t.Error("a single equal item is a sibling, not a group")
	}
}
