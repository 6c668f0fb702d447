package layout

import (
	"sort"

	"go.uber.org/zap"

	"github.com/karlla1220/meetgrid/model"
)

// Break is a named pause drawn across the grid.
type Break struct {
	Name  string
	Start model.Clock
	End   model.Clock

	// Days restricts the break to some days; empty means every day.
	Days []model.Day
}

// Interval returns the break's time range.
func (b Break) Interval() model.Interval {
	return model.Interval{Start: b.Start, End: b.End}
}

// On reports whether the break applies to d.
func (b Break) On(d model.Day) bool {
	if len(b.Days) == 0 {
		return true
	}
	for _, have := range b.Days {
		if have == d {
			return true
		}
	}
	return false
}

// Config holds the grid geometry.
type Config struct {
	// AxisStart and AxisEnd bound the time axis.
	// Default: 08:30 to 19:30
	AxisStart model.Clock
	AxisEnd   model.Clock

	// Granularity is the length of one row in minutes.
	// Default: 5
	Granularity int

	// Breaks become break rows.
	// Default: the coffee and lunch breaks of the standard meeting day
	Breaks []Break
}

// DefaultConfig returns the standard meeting-day geometry.
func DefaultConfig() Config {
	return Config{
		AxisStart:   model.MustClock("08:30"),
		AxisEnd:     model.MustClock("19:30"),
		Granularity: 5,
		Breaks: []Break{
			{Name: "Coffee break", Start: model.MustClock("10:30"), End: model.MustClock("11:00")},
			{Name: "Lunch", Start: model.MustClock("13:00"), End: model.MustClock("14:30")},
			{Name: "Coffee break", Start: model.MustClock("16:30"), End: model.MustClock("17:00")},
		},
	}
}

// Rows returns the number of rows on the axis.
func (c Config) Rows() int {
	span := int(c.AxisEnd - c.AxisStart)
	if span <= 0 || c.Granularity <= 0 {
		return 0
	}
	return (span + c.Granularity - 1) / c.Granularity
}

// Row is one step of a day's time axis.
type Row struct {
	Index int         `json:"index"`
	Start model.Clock `json:"start"`
	Break string      `json:"break,omitempty"` // break name on break rows
}

// IsBreak reports whether the row belongs to a break.
func (r Row) IsBreak() bool {
	return r.Break != ""
}

// Column is one room of a day.
type Column struct {
	Index int    `json:"index"`
	Room  string `json:"room"`

	// SubColumns is the most sessions that overlap at once in the room.
	SubColumns int `json:"sub_columns"`
}

// Placement positions one session.
type Placement struct {
	SessionID string    `json:"session_id"`
	Day       model.Day `json:"day"`
	Column    int       `json:"column"`
	RowStart  int       `json:"row_start"`
	RowSpan   int       `json:"row_span"`

	// SubColumn is the session's lane within its overlap cluster, and
	// SubColumns the number of lanes that cluster uses.
	SubColumn  int `json:"sub_column"`
	SubColumns int `json:"sub_columns"`

	Color   Color `json:"color"`
	Clipped bool  `json:"clipped,omitempty"`

	// OverBreak names the first break row the placement covers. Break rows
	// hold no sessions, so a non-empty value needs review.
	OverBreak string `json:"over_break,omitempty"`
}

// RowEnd returns the first row after the placement.
func (p Placement) RowEnd() int {
	return p.RowStart + p.RowSpan
}

// Region marks rows of a day that span every column, such as an
// unresolved slot.
type Region struct {
	Block    int    `json:"block"`
	RowStart int    `json:"row_start"`
	RowSpan  int    `json:"row_span"`
	Label    string `json:"label"`
}

// DayGrid is the grid of one day.
type DayGrid struct {
	Day        model.Day   `json:"day"`
	Rows       []Row       `json:"rows"`
	Columns    []Column    `json:"columns"`
	Placements []Placement `json:"placements"`
	Regions    []Region    `json:"regions,omitempty"`
}

// Placement returns the placement of the session with the given id.
func (g *DayGrid) Placement(sessionID string) (Placement, bool) {
	for _, p := range g.Placements {
		if p.SessionID == sessionID {
			return p, true
		}
	}
	return Placement{}, false
}

// ClippedSession records a session that lies entirely outside the axis.
type ClippedSession struct {
	SessionID string         `json:"session_id"`
	Day       model.Day      `json:"day"`
	Room      string         `json:"room"`
	Time      model.Interval `json:"time"`
}

// Grid is the laid-out schedule.
type Grid struct {
	AxisStart   model.Clock `json:"axis_start"`
	AxisEnd     model.Clock `json:"axis_end"`
	Granularity int         `json:"granularity"`

	Days    []DayGrid        `json:"days"`
	Clipped []ClippedSession `json:"clipped,omitempty"`
	Legend  []LegendEntry    `json:"legend"`
}

// Day returns the grid of d, or nil.
func (g *Grid) Day(d model.Day) *DayGrid {
	for i := range g.Days {
		if g.Days[i].Day == d {
			return &g.Days[i]
		}
	}
	return nil
}

// UnresolvedLabel marks regions of slots whose structuring failed.
const UnresolvedLabel = "unresolved"

// Engine lays out schedules.
type Engine struct {
	config Config
	logger *zap.Logger
}

// NewEngine creates an engine with the default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultConfig(), nil)
}

// NewEngineWithConfig creates an engine with a custom configuration. A nil
// logger discards clipping reports.
func NewEngineWithConfig(config Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{config: config, logger: logger}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Layout places every session of s. Colours come from palette, which may
// be shared with other layouts of the same run; nil starts a fresh one.
func (e *Engine) Layout(s *model.Schedule, palette *Palette) *Grid {
	if palette == nil {
		palette = NewPalette(DefaultHues)
	}
	g := &Grid{
		AxisStart:   e.config.AxisStart,
		AxisEnd:     e.config.AxisEnd,
		Granularity: e.config.Granularity,
	}
	for i := range s.Days {
		g.Days = append(g.Days, e.layoutDay(s, &s.Days[i], palette, g))
	}
	g.Legend = palette.Legend()
	return g
}

func (e *Engine) layoutDay(s *model.Schedule, ds *model.DaySchedule, palette *Palette, g *Grid) DayGrid {
	dg := DayGrid{Day: ds.Day, Rows: e.rows(ds.Day)}

	column := make(map[string]int, len(ds.Rooms))
	for i, room := range ds.Rooms {
		dg.Columns = append(dg.Columns, Column{Index: i, Room: room, SubColumns: 1})
		column[room] = i
	}

	for _, sess := range ds.Sessions {
		col, ok := column[sess.Room]
		if !ok {
			col = len(dg.Columns)
			dg.Columns = append(dg.Columns, Column{Index: col, Room: sess.Room, SubColumns: 1})
			column[sess.Room] = col
		}
		p, ok := e.place(sess)
		if !ok {
			e.logger.Info("session outside time axis",
				zap.Stringer("day", ds.Day),
				zap.String("room", sess.Room),
				zap.String("session", sess.Name),
				zap.Stringer("time", sess.Interval()))
			g.Clipped = append(g.Clipped, ClippedSession{
				SessionID: sess.ID, Day: ds.Day, Room: sess.Room, Time: sess.Interval(),
			})
			continue
		}
		if p.Clipped {
			e.logger.Debug("session clipped to time axis",
				zap.Stringer("day", ds.Day),
				zap.String("room", sess.Room),
				zap.String("session", sess.Name),
				zap.Stringer("time", sess.Interval()))
		}
		p.Day = ds.Day
		p.Column = col
		p.Color = palette.Color(sess.Category)
		if name := breakUnder(dg.Rows, p); name != "" {
			p.OverBreak = name
			e.logger.Warn("session covers break rows",
				zap.Stringer("day", ds.Day),
				zap.String("room", sess.Room),
				zap.String("session", sess.Name),
				zap.String("break", name))
		}
		dg.Placements = append(dg.Placements, p)
	}

	assignLanes(dg.Placements, dg.Columns)

	for _, key := range s.Unresolved {
		if key.Day != ds.Day {
			continue
		}
		b, ok := s.Block(key.Block)
		if !ok {
			continue
		}
		start, span, ok := e.span(b.Interval())
		if !ok {
			continue
		}
		dg.Regions = append(dg.Regions, Region{Block: key.Block, RowStart: start, RowSpan: span, Label: UnresolvedLabel})
	}
	return dg
}

func (e *Engine) rows(d model.Day) []Row {
	n := e.config.Rows()
	rows := make([]Row, n)
	for i := range rows {
		start := e.config.AxisStart + model.Clock(i*e.config.Granularity)
		rows[i] = Row{Index: i, Start: start}
		for _, b := range e.config.Breaks {
			if b.On(d) && b.Interval().Contains(start) {
				rows[i].Break = b.Name
				break
			}
		}
	}
	return rows
}

// breakUnder returns the name of the first break row within p's rows.
func breakUnder(rows []Row, p Placement) string {
	for r := p.RowStart; r < p.RowEnd() && r < len(rows); r++ {
		if rows[r].Break != "" {
			return rows[r].Break
		}
	}
	return ""
}

// place computes the rows of a session. It reports false when nothing of
// the session lies on the axis.
func (e *Engine) place(s model.Session) (Placement, bool) {
	start, span, ok := e.span(s.Interval())
	if !ok {
		return Placement{}, false
	}
	clipped := s.Start < e.config.AxisStart || s.End > e.config.AxisEnd
	return Placement{
		SessionID: s.ID,
		RowStart:  start,
		RowSpan:   span,
		Clipped:   clipped,
	}, true
}

// span clips iv to the axis and converts it to rows.
func (e *Engine) span(iv model.Interval) (start, span int, ok bool) {
	g := e.config.Granularity
	if g <= 0 {
		return 0, 0, false
	}
	axis := model.Interval{Start: e.config.AxisStart, End: e.config.AxisEnd}
	if iv.Overlap(axis) == 0 {
		return 0, 0, false
	}
	if iv.Start < axis.Start {
		iv.Start = axis.Start
	}
	if iv.End > axis.End {
		iv.End = axis.End
	}
	start = int(iv.Start-axis.Start) / g
	span = (iv.Duration() + g - 1) / g
	if span < 1 {
		span = 1
	}
	if rows := e.config.Rows(); start+span > rows {
		span = rows - start
	}
	return start, span, true
}

// assignLanes spreads placements whose rows overlap within a column over
// sub-columns. Each placement takes the lowest lane free at its start row;
// a cluster of transitively overlapping placements shares one lane count.
func assignLanes(placements []Placement, columns []Column) {
	byColumn := make(map[int][]int)
	for i, p := range placements {
		byColumn[p.Column] = append(byColumn[p.Column], i)
	}
	for col, idx := range byColumn {
		sort.SliceStable(idx, func(a, b int) bool {
			pa, pb := placements[idx[a]], placements[idx[b]]
			if pa.RowStart != pb.RowStart {
				return pa.RowStart < pb.RowStart
			}
			return pa.RowEnd() > pb.RowEnd()
		})

		var (
			laneEnds   []int
			cluster    []int
			clusterEnd int
		)
		flush := func() {
			for _, i := range cluster {
				placements[i].SubColumns = len(laneEnds)
			}
			if len(laneEnds) > columns[col].SubColumns {
				columns[col].SubColumns = len(laneEnds)
			}
			laneEnds, cluster = nil, nil
		}
		for _, i := range idx {
			p := &placements[i]
			if len(cluster) > 0 && p.RowStart >= clusterEnd {
				flush()
			}
			lane := -1
			for l, end := range laneEnds {
				if end <= p.RowStart {
					lane = l
					break
				}
			}
			if lane < 0 {
				lane = len(laneEnds)
				laneEnds = append(laneEnds, 0)
			}
			laneEnds[lane] = p.RowEnd()
			p.SubColumn = lane
			cluster = append(cluster, i)
			if len(cluster) == 1 || p.RowEnd() > clusterEnd {
				clusterEnd = p.RowEnd()
			}
		}
		if len(cluster) > 0 {
			flush()
		}
	}
}
