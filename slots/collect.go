package slots

import (
	"errors"
	"fmt"

	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/tables"
)

// ErrPrimaryCount is returned when the sources do not contain exactly one
// primary.
var ErrPrimaryCount = errors.New("exactly one primary source is required")

// Source is one extracted document and the role it plays.
type Source struct {
	ID     string
	Role   model.Role
	Result *tables.Result

	// Hints fixes the primary room of some detail labels up front.
	Hints RoomHint
}

// RoomHint maps a detail source's room labels to primary room labels.
type RoomHint map[string]string

// Collection is the per-slot fragment set of a run.
type Collection struct {
	PrimaryID string

	Slots  model.SlotFragmentSet
	Blocks []model.TimeBlock // the primary's blocks

	// Rooms lists each day's rooms: the primary's in column order, then
	// detail labels no hint maps to a primary room.
	Rooms map[model.Day][]string

	primaryRooms map[model.Day][]string

	Hints map[string]RoomHint // by detail source id
	Roles map[string]model.Role

	// Orphans are detail fragments whose time overlaps no primary block.
	Orphans []model.Fragment

	// Breaks are the break rows found in any source, primary first.
	Breaks []model.NamedInterval
}

// Days returns the days that have rooms, Monday first.
func (c *Collection) Days() []model.Day {
	var days []model.Day
	for _, d := range model.Days() {
		if len(c.Rooms[d]) > 0 {
			days = append(days, d)
		}
	}
	return days
}

// Block returns the primary block with the given index.
func (c *Collection) Block(index int) (model.TimeBlock, bool) {
	for _, b := range c.Blocks {
		if b.Index == index {
			return b, true
		}
	}
	return model.TimeBlock{}, false
}

// HintsFor merges the hints of the detail sources contributing to key,
// restricted to the labels their fragments use.
func (c *Collection) HintsFor(key model.SlotKey) map[string]string {
	out := make(map[string]string)
	for _, f := range c.Slots[key] {
		hint := c.Hints[f.SourceID]
		for _, room := range f.Rooms {
			if target, ok := hint[room]; ok {
				out[room] = target
			}
		}
	}
	return out
}

// PrimaryRooms returns the rooms named by the primary's own fragments in
// key, in first-seen order.
func (c *Collection) PrimaryRooms(key model.SlotKey) []string {
	var rooms []string
	for _, f := range c.Slots[key] {
		if f.Role != model.RolePrimary || f.Continuation {
			continue
		}
		for _, r := range f.Rooms {
			if !contains(rooms, r) {
				rooms = append(rooms, r)
			}
		}
	}
	return rooms
}

// IsPrimaryRoom reports whether room is one of the primary's rooms on d.
func (c *Collection) IsPrimaryRoom(d model.Day, room string) bool {
	return contains(c.primaryRooms[d], room)
}

// Collect buckets the non-empty cells of every source into the primary's
// (day, block) slots.
func Collect(sources []Source) (*Collection, error) {
	var primary *Source
	seen := make(map[string]bool)
	for i := range sources {
		s := &sources[i]
		if s.ID == "" {
			return nil, fmt.Errorf("source %d has no id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
		if s.Result == nil {
			return nil, fmt.Errorf("source %q has no extraction result", s.ID)
		}
		if s.Role != model.RolePrimary {
			continue
		}
		if primary != nil {
			return nil, fmt.Errorf("%w: got %q and %q", ErrPrimaryCount, primary.ID, s.ID)
		}
		primary = s
	}
	if primary == nil {
		return nil, fmt.Errorf("%w: got none", ErrPrimaryCount)
	}

	c := &Collection{
		PrimaryID: primary.ID,
		Slots:     make(model.SlotFragmentSet),
		Blocks:    primary.Result.Blocks,
		Rooms:     make(map[model.Day][]string),
		Hints:     make(map[string]RoomHint),
		Roles:     make(map[string]model.Role),
	}
	c.primaryRooms = make(map[model.Day][]string)
	for _, d := range primary.Result.Days() {
		c.Rooms[d] = append([]string(nil), primary.Result.Rooms[d]...)
		c.primaryRooms[d] = primary.Result.Rooms[d]
	}
	c.addBreaks(primary.Result.Breaks)

	for _, s := range sources {
		c.Roles[s.ID] = s.Role
		if s.Role == model.RolePrimary {
			c.addCells(s)
			continue
		}
		hint := resolveHints(primary.Result, s.Result, s.Hints)
		c.Hints[s.ID] = hint
		for _, d := range s.Result.Days() {
			for _, room := range s.Result.Rooms[d] {
				if _, mapped := hint[room]; !mapped && !contains(c.Rooms[d], room) {
					c.Rooms[d] = append(c.Rooms[d], room)
				}
			}
		}
		c.addCells(s)
		c.addBreaks(s.Result.Breaks)
	}
	return c, nil
}

func (c *Collection) addBreaks(breaks []model.NamedInterval) {
	for _, b := range breaks {
		dup := false
		for _, have := range c.Breaks {
			if have.Interval() == b.Interval() {
				dup = true
				break
			}
		}
		if !dup {
			c.Breaks = append(c.Breaks, b)
		}
	}
}

func (c *Collection) addCells(s Source) {
	for _, rc := range s.Result.RawCells() {
		b, ok := s.Result.Block(rc.Block)
		if !ok {
			continue
		}
		if s.Role == model.RolePrimary {
			c.put(model.SlotKey{Day: rc.Day, Block: rc.Block}, s, rc, b.Interval(), false)
			continue
		}
		targets := c.rebucket(b.Interval())
		if len(targets) == 0 {
			c.Orphans = append(c.Orphans, fragmentOf(s, rc, b.Interval(), false))
			continue
		}
		for i, idx := range targets {
			c.put(model.SlotKey{Day: rc.Day, Block: idx}, s, rc, b.Interval(), i > 0)
		}
	}
}

// rebucket returns the primary blocks sharing the most time with iv,
// earliest first. Only the first receives the fragment proper.
func (c *Collection) rebucket(iv model.Interval) []int {
	best := 0
	var out []int
	for _, b := range c.Blocks {
		ov := b.Interval().Overlap(iv)
		switch {
		case ov == 0 || ov < best:
		case ov > best:
			best, out = ov, []int{b.Index}
		default:
			out = append(out, b.Index)
		}
	}
	return out
}

// put adds a fragment to key. Identical text from the same source in the
// same slot collapses into one fragment naming all its rooms.
func (c *Collection) put(key model.SlotKey, s Source, rc model.RawCell, iv model.Interval, continuation bool) {
	frags := c.Slots[key]
	for i := range frags {
		f := &frags[i]
		if f.SourceID == s.ID && f.Text == rc.Text && f.Continuation == continuation {
			if !contains(f.Rooms, rc.Room) {
				f.Rooms = append(f.Rooms, rc.Room)
			}
			return
		}
	}
	c.Slots[key] = append(frags, fragmentOf(s, rc, iv, continuation))
}

func fragmentOf(s Source, rc model.RawCell, iv model.Interval, continuation bool) model.Fragment {
	return model.Fragment{
		SourceID:     s.ID,
		Role:         s.Role,
		Rooms:        []string{rc.Room},
		Text:         rc.Text,
		Time:         iv,
		Continuation: continuation,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
