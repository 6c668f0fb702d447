package assemble

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/karlla1220/meetgrid/gateway"
	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/text"
)

// bindRoom decides the column of a candidate. The collector's hint for the
// candidate's own sources is tried first, then any source's hint, then a
// folded match against the day's rooms. An unmatched label is kept as is.
// An empty label falls back to the slot's single primary room.
func (a *assembler) bindRoom(key model.SlotKey, c gateway.Candidate) (string, bool) {
	label := text.Collapse(c.Room)
	if label == "" {
		rooms := a.col.PrimaryRooms(key)
		if len(rooms) == 1 {
			return rooms[0], true
		}
		return "", false
	}

	for _, src := range c.Sources {
		if room, ok := a.col.Hinted(src, label); ok {
			return room, true
		}
	}
	ids := make([]string, 0, len(a.col.Hints))
	for id := range a.col.Hints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if room, ok := a.col.Hinted(id, label); ok {
			return room, true
		}
	}

	for _, room := range a.col.Rooms[key.Day] {
		if text.Equal(room, label) {
			return room, true
		}
	}
	if ds := a.sched.Day(key.Day); ds != nil {
		for _, room := range ds.Rooms {
			if text.Equal(room, label) {
				return room, true
			}
		}
	}
	return label, true
}

// noteRoom makes sure room has a column on d and records it when it is not
// one of the primary's rooms.
func (a *assembler) noteRoom(d model.Day, room string, sources []string) {
	ds := a.day(d)
	if !ds.HasRoom(room) {
		a.log.Info("room appended to day",
			zap.Stringer("day", d),
			zap.String("room", room),
			zap.String("sources", strings.Join(sources, ",")))
		ds.AddRoom(room)
	}
	if a.col.IsPrimaryRoom(d, room) {
		return
	}
	byLabel := a.unmapped[d]
	if byLabel == nil {
		byLabel = make(map[string][]string)
		a.unmapped[d] = byLabel
	}
	have := byLabel[room]
	for _, src := range sources {
		if !containsString(have, src) {
			have = append(have, src)
		}
	}
	sort.Strings(have)
	byLabel[room] = have
}
