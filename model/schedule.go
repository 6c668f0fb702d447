package model

import (
	"time"
)

// SessionFlags record review state set during assembly.
type SessionFlags struct {
	NeedsReview bool `json:"needs_review,omitempty"` // block overflowed its duration
	Clamped     bool `json:"clamped,omitempty"`      // range was clipped to its block
	Backfilled  bool `json:"backfilled,omitempty"`   // category copied from a neighbour
}

// Session is one structured meeting event.
type Session struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Chair      string `json:"chair,omitempty"`
	AgendaItem string `json:"agenda_item,omitempty"`
	Category   string `json:"category,omitempty"`
	Start      Clock  `json:"start"`
	End        Clock  `json:"end"`
	Room       string `json:"room"`
	Day        Day    `json:"day"`
	Block      int    `json:"block"`

	// Sources lists contributing source ids, sorted and unique.
	Sources []string `json:"sources"`
	// Roles holds the distinct roles among Sources.
	Roles      []Role  `json:"roles"`
	Confidence float64 `json:"confidence"`

	// Annotations keeps values that lost a merge conflict, keyed by field name.
	Annotations map[string][]string `json:"annotations,omitempty"`
	Flags       SessionFlags        `json:"flags"`
}

// Interval returns the session's time range.
func (s Session) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Duration returns the session length in minutes.
func (s Session) Duration() int {
	return s.Interval().Duration()
}

// HasRole reports whether any contributing source had role r.
func (s Session) HasRole(r Role) bool {
	for _, have := range s.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// DaySchedule holds one day's rooms and sessions.
type DaySchedule struct {
	Day      Day       `json:"day"`
	Rooms    []string  `json:"rooms"`
	Sessions []Session `json:"sessions"`
}

// HasRoom reports whether room is in the day's room list.
func (d *DaySchedule) HasRoom(room string) bool {
	for _, r := range d.Rooms {
		if r == room {
			return true
		}
	}
	return false
}

// AddRoom appends room if it is not listed yet.
func (d *DaySchedule) AddRoom(room string) {
	if !d.HasRoom(room) {
		d.Rooms = append(d.Rooms, room)
	}
}

// Schedule is the root aggregate of a pipeline run.
type Schedule struct {
	MeetingName string        `json:"meeting_name"`
	Timezone    string        `json:"timezone"`
	RunID       string        `json:"run_id,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
	Days        []DaySchedule `json:"days"`
	Blocks      []TimeBlock   `json:"blocks"`

	// Unresolved lists slots whose structuring failed.
	Unresolved []SlotKey `json:"unresolved,omitempty"`
}

// Day returns the schedule for d, or nil.
func (s *Schedule) Day(d Day) *DaySchedule {
	for i := range s.Days {
		if s.Days[i].Day == d {
			return &s.Days[i]
		}
	}
	return nil
}

// Block returns the time block with the given index.
func (s *Schedule) Block(index int) (TimeBlock, bool) {
	for _, b := range s.Blocks {
		if b.Index == index {
			return b, true
		}
	}
	return TimeBlock{}, false
}

// SessionCount returns the number of sessions across all days.
func (s *Schedule) SessionCount() int {
	n := 0
	for _, d := range s.Days {
		n += len(d.Sessions)
	}
	return n
}
