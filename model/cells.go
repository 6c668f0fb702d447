package model

import (
	"fmt"
	"sort"
)

// Role is the part a source plays in reconciliation.
type Role int

const (
	// RolePrimary defines the room layout and column order.
	RolePrimary Role = iota
	// RoleDetail supplies richer per-event data for the same wall-clock time,
	// possibly in a different room vocabulary.
	RoleDetail
)

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}
	return "detail"
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "primary":
		*r = RolePrimary
	case "detail":
		*r = RoleDetail
	default:
		return fmt.Errorf("unknown role %q", string(b))
	}
	return nil
}

// CellKey addresses one (day, room, block) coordinate.
type CellKey struct {
	Day   Day
	Room  string
	Block int
}

// CellMap maps every coordinate of an extracted document to its text.
// Coordinates without data hold "" so callers can tell empty from unexamined.
type CellMap map[CellKey]string

// Lookup returns the text at k and whether k was examined.
func (m CellMap) Lookup(k CellKey) (string, bool) {
	text, ok := m[k]
	return text, ok
}

// Keys returns all keys ordered by day, block, then room.
func (m CellMap) Keys() []CellKey {
	keys := make([]CellKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Block != b.Block {
			return a.Block < b.Block
		}
		return a.Room < b.Room
	})
	return keys
}

// RawCell is one extracted cell. It is a value and never mutated.
type RawCell struct {
	Day      Day
	Room     string
	Block    int
	Text     string
	SourceID string
}

// Key returns the cell's coordinate.
func (c RawCell) Key() CellKey {
	return CellKey{Day: c.Day, Room: c.Room, Block: c.Block}
}

// SlotKey is a (day, block) coordinate, the unit of aggregation before
// structuring.
type SlotKey struct {
	Day   Day `json:"day"`
	Block int `json:"block"`
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/TB%d", k.Day.Short(), k.Block)
}

// Fragment is one source's text for a slot.
type Fragment struct {
	SourceID string   `json:"source_id"`
	Role     Role     `json:"role"`
	Rooms    []string `json:"rooms"` // room labels in the source's vocabulary
	Text     string   `json:"text"`

	// Time is the interval the source's own row gave the text.
	Time Interval `json:"time"`

	// Continuation marks a detail fragment whose interval overlaps this slot
	// as much as an earlier slot it was assigned to.
	Continuation bool `json:"continuation,omitempty"`
}

// SlotFragmentSet maps slots to their fragments.
type SlotFragmentSet map[SlotKey][]Fragment

// Keys returns the slots in day then block order.
func (s SlotFragmentSet) Keys() []SlotKey {
	keys := make([]SlotKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return keys[i].Block < keys[j].Block
	})
	return keys
}
