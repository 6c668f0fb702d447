package assemble

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karlla1220/meetgrid/gateway"
	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/slots"
	"github.com/karlla1220/meetgrid/text"
)

// sessionSpace namespaces the deterministic session ids.
var sessionSpace = uuid.MustParse("6f1c9a52-3b0e-4d8e-9a47-2c5d0e8b7f31")

// Input is everything one assembly needs.
type Input struct {
	MeetingName string
	Timezone    string
	RunID       string

	Collection *slots.Collection
	Results    []gateway.SlotResult

	// Aliases maps category spellings to their canonical form. Keys are
	// compared folded.
	Aliases map[string]string

	// Now stamps the schedule; time.Now when nil.
	Now    func() time.Time
	Logger *zap.Logger
}

// UnmappedRoom is a room label that matched no primary room and was kept
// as its own column.
type UnmappedRoom struct {
	Day     model.Day
	Label   string
	Sources []string
}

// Report collects everything assembly had to leave out or flag.
type Report struct {
	UnmappedRooms []UnmappedRoom

	// Errors holds *model.DataIntegrityError for excluded sessions and
	// *model.GatewayUnavailableError for unresolved slots.
	Errors []error

	Warnings []model.DurationOverflowWarning
}

// IntegrityErrors returns the excluded sessions.
func (r *Report) IntegrityErrors() []*model.DataIntegrityError {
	var out []*model.DataIntegrityError
	for _, err := range r.Errors {
		if die, ok := err.(*model.DataIntegrityError); ok {
			out = append(out, die)
		}
	}
	return out
}

type assembler struct {
	col    *slots.Collection
	log    *zap.Logger
	vocab  *vocabulary
	sched  *model.Schedule
	report *Report

	sessions map[model.Day][]model.Session
	unmapped map[model.Day]map[string][]string
}

// Assemble builds the schedule from the slot results of one run.
func Assemble(in Input) (*model.Schedule, *Report) {
	now := in.Now
	if now == nil {
		now = time.Now
	}
	log := in.Logger
	if log == nil {
		log = zap.NewNop()
	}
	col := in.Collection
	if col == nil {
		col = &slots.Collection{}
	}

	a := &assembler{
		col:    col,
		log:    log,
		vocab:  newVocabulary(in.Aliases),
		report: &Report{},
		sched: &model.Schedule{
			MeetingName: in.MeetingName,
			Timezone:    in.Timezone,
			RunID:       in.RunID,
			GeneratedAt: now().UTC(),
			Blocks:      append([]model.TimeBlock(nil), col.Blocks...),
		},
		sessions: make(map[model.Day][]model.Session),
		unmapped: make(map[model.Day]map[string][]string),
	}
	for _, d := range col.Days() {
		a.day(d).Rooms = append([]string(nil), col.Rooms[d]...)
	}

	results := append([]gateway.SlotResult(nil), in.Results...)
	sort.SliceStable(results, func(i, j int) bool {
		ki, kj := results[i].Key(), results[j].Key()
		if ki.Day != kj.Day {
			return ki.Day < kj.Day
		}
		return ki.Block < kj.Block
	})
	for _, res := range results {
		a.addResult(res)
	}

	for _, ds := range a.sched.Days {
		merged := mergeDay(a.sessions[ds.Day])
		backfill(merged)
		a.sessions[ds.Day] = merged
	}
	a.checkOverflow()
	a.finish()
	return a.sched, a.report
}

// day returns the schedule for d, inserting it in weekday order.
func (a *assembler) day(d model.Day) *model.DaySchedule {
	if ds := a.sched.Day(d); ds != nil {
		return ds
	}
	a.sched.Days = append(a.sched.Days, model.DaySchedule{Day: d})
	sort.Slice(a.sched.Days, func(i, j int) bool { return a.sched.Days[i].Day < a.sched.Days[j].Day })
	return a.sched.Day(d)
}

func (a *assembler) addResult(res gateway.SlotResult) {
	key := res.Key()
	if !res.Resolved() {
		a.sched.Unresolved = append(a.sched.Unresolved, key)
		a.report.Errors = append(a.report.Errors, res.Err)
		a.day(key.Day)
		return
	}
	block, ok := a.col.Block(key.Block)
	if !ok {
		block = res.Request.Block
	}
	for _, c := range res.Response.Sessions {
		s, err := a.session(key, block, c)
		if err != nil {
			a.log.Warn("session excluded",
				zap.Stringer("slot", key),
				zap.String("session", c.Name),
				zap.Error(err))
			a.report.Errors = append(a.report.Errors, err)
			continue
		}
		a.sessions[key.Day] = append(a.sessions[key.Day], s)
	}
}

func (a *assembler) session(key model.SlotKey, block model.TimeBlock, c gateway.Candidate) (model.Session, error) {
	name := text.Collapse(c.Name)
	fail := func(room, reason string) error {
		return &model.DataIntegrityError{SessionName: name, Day: key.Day, Room: room, Reason: reason}
	}

	room, ok := a.bindRoom(key, c)
	if !ok {
		return model.Session{}, fail(c.Room, "room cannot be resolved")
	}
	if c.Start >= c.End {
		return model.Session{}, fail(room, fmt.Sprintf("start %s is not before end %s", c.Start, c.End))
	}
	window := a.window(block, c.Interval())
	iv := c.Interval()
	if iv.Overlap(window) == 0 {
		return model.Session{}, fail(room, fmt.Sprintf("%s lies outside block %s", iv, window))
	}

	s := model.Session{
		Name:       name,
		Chair:      text.Collapse(c.Chair),
		AgendaItem: strings.Trim(strings.TrimSpace(c.AgendaItem), "."),
		Category:   a.vocab.canonical(c.Category),
		Start:      c.Start,
		End:        c.End,
		Room:       room,
		Day:        key.Day,
		Block:      key.Block,
		Sources:    uniqueSorted(c.Sources),
		Confidence: c.Confidence,
	}
	if s.Start < window.Start {
		s.Start, s.Flags.Clamped = window.Start, true
	}
	if s.End > window.End {
		s.End, s.Flags.Clamped = window.End, true
	}
	if s.AgendaItem == "" {
		s.AgendaItem, s.Name = agendaFromName(s.Name)
	}
	if s.AgendaItem == "" {
		s.AgendaItem = agendaFromHeader(c.Category)
	}
	if s.Name == "" {
		s.Name = "Untitled"
		if s.AgendaItem != "" {
			s.Name = "AI " + s.AgendaItem
		}
	}
	s.Roles = a.roles(s.Sources)
	a.noteRoom(key.Day, room, s.Sources)
	return s, nil
}

// window returns the block extended over directly following blocks when iv
// runs into them.
func (a *assembler) window(block model.TimeBlock, iv model.Interval) model.Interval {
	w := block.Interval()
	for iv.End > w.End {
		next, ok := a.nextBlock(w.End)
		if !ok {
			break
		}
		w.End = next.End
	}
	return w
}

func (a *assembler) nextBlock(at model.Clock) (model.TimeBlock, bool) {
	for _, b := range a.col.Blocks {
		if b.Start == at {
			return b, true
		}
	}
	return model.TimeBlock{}, false
}

func (a *assembler) roles(sources []string) []model.Role {
	var roles []model.Role
	for _, r := range []model.Role{model.RolePrimary, model.RoleDetail} {
		for _, src := range sources {
			if role, ok := a.col.Roles[src]; ok && role == r {
				roles = append(roles, r)
				break
			}
		}
	}
	return roles
}

// checkOverflow flags every (day, block, room) whose sessions add up to more
// than the block holds. Only the part of a session inside the block counts.
func (a *assembler) checkOverflow() {
	for _, ds := range a.sched.Days {
		sessions := a.sessions[ds.Day]
		type cell struct {
			block int
			room  string
		}
		totals := make(map[cell]int)
		var order []cell
		for _, s := range sessions {
			b, ok := a.sched.Block(s.Block)
			if !ok {
				continue
			}
			k := cell{s.Block, s.Room}
			if _, seen := totals[k]; !seen {
				order = append(order, k)
			}
			totals[k] += s.Interval().Overlap(b.Interval())
		}
		for _, k := range order {
			b, _ := a.sched.Block(k.block)
			limit := b.Interval().Duration()
			if totals[k] <= limit {
				continue
			}
			a.report.Warnings = append(a.report.Warnings, model.DurationOverflowWarning{
				Day: ds.Day, Block: k.block, Room: k.room, Total: totals[k], Limit: limit,
			})
			for i := range sessions {
				if sessions[i].Block == k.block && sessions[i].Room == k.room {
					sessions[i].Flags.NeedsReview = true
				}
			}
		}
	}
}

// finish orders sessions, assigns ids and copies them into the schedule.
func (a *assembler) finish() {
	for i := range a.sched.Days {
		ds := &a.sched.Days[i]
		sessions := a.sessions[ds.Day]
		col := make(map[string]int, len(ds.Rooms))
		for j, r := range ds.Rooms {
			col[r] = j
		}
		sort.SliceStable(sessions, func(x, y int) bool {
			sx, sy := sessions[x], sessions[y]
			if col[sx.Room] != col[sy.Room] {
				return col[sx.Room] < col[sy.Room]
			}
			if sx.Start != sy.Start {
				return sx.Start < sy.Start
			}
			if sx.End != sy.End {
				return sx.End < sy.End
			}
			return sx.Name < sy.Name
		})
		seen := make(map[string]int)
		for j := range sessions {
			sessions[j].ID = sessionID(sessions[j], seen)
		}
		ds.Sessions = sessions
	}

	for _, d := range model.Days() {
		labels := make([]string, 0, len(a.unmapped[d]))
		for label := range a.unmapped[d] {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			a.report.UnmappedRooms = append(a.report.UnmappedRooms, UnmappedRoom{
				Day: d, Label: label, Sources: a.unmapped[d][label],
			})
		}
	}
	sort.SliceStable(a.report.Warnings, func(i, j int) bool {
		wi, wj := a.report.Warnings[i], a.report.Warnings[j]
		if wi.Day != wj.Day {
			return wi.Day < wj.Day
		}
		if wi.Block != wj.Block {
			return wi.Block < wj.Block
		}
		return wi.Room < wj.Room
	})
}

func sessionID(s model.Session, seen map[string]int) string {
	seed := strings.Join([]string{
		s.Day.String(), s.Room, s.Start.String(), s.End.String(), text.Fold(s.Name), text.Fold(s.Category),
	}, "\x1f")
	if n := seen[seed]; n > 0 {
		seen[seed] = n + 1
		seed = fmt.Sprintf("%s\x1f%d", seed, n)
	} else {
		seen[seed] = 1
	}
	return uuid.NewSHA1(sessionSpace, []byte(seed)).String()
}

func uniqueSorted(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" && !containsString(out, s) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
