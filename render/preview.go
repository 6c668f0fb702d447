package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/karlla1220/meetgrid/layout"
	"github.com/karlla1220/meetgrid/model"
)

// DefaultColumnWidth is the preview width of one room column.
const DefaultColumnWidth = 28

var (
	dayStyle    = lipgloss.NewStyle().Bold(true).MarginTop(1)
	roomStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	breakStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	regionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)
)

// PreviewOptions tune the terminal preview.
type PreviewOptions struct {
	// Days limits the preview; empty shows every day.
	Days []model.Day

	// ColumnWidth is the inner width of a room column.
	// Default: DefaultColumnWidth
	ColumnWidth int
}

// Preview writes one block per day with the rooms side by side.
func Preview(w io.Writer, s *model.Schedule, g *layout.Grid, opts PreviewOptions) error {
	width := opts.ColumnWidth
	if width <= 0 {
		width = DefaultColumnWidth
	}

	var b strings.Builder
	title := s.MeetingName
	if title == "" {
		title = "Schedule"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
	b.WriteString("\n")

	for _, ds := range s.Days {
		if !wanted(opts.Days, ds.Day) {
			continue
		}
		dg := g.Day(ds.Day)
		if dg == nil {
			continue
		}
		b.WriteString(dayStyle.Render(ds.Day.String()))
		b.WriteString("\n")
		b.WriteString(previewDay(&ds, dg, g, width))
		b.WriteString("\n")
	}

	if len(g.Legend) > 0 {
		var items []string
		for _, e := range g.Legend {
			items = append(items, swatch(e.Color).Render(" "+e.Category+" "))
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(items, " "))
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}

func previewDay(ds *model.DaySchedule, dg *layout.DayGrid, g *layout.Grid, width int) string {
	byID := make(map[string]model.Session, len(ds.Sessions))
	for _, sess := range ds.Sessions {
		byID[sess.ID] = sess
	}

	lines := make([][]string, len(dg.Columns))
	for i, c := range dg.Columns {
		lines[i] = append(lines[i], roomStyle.Render(truncate(c.Room, width)))
	}

	placements := append([]layout.Placement(nil), dg.Placements...)
	sort.SliceStable(placements, func(i, j int) bool {
		if placements[i].RowStart != placements[j].RowStart {
			return placements[i].RowStart < placements[j].RowStart
		}
		return placements[i].SubColumn < placements[j].SubColumn
	})
	for _, p := range placements {
		sess := byID[p.SessionID]
		label := fmt.Sprintf("%s %s", sess.Start, sess.Name)
		if p.SubColumns > 1 {
			label = fmt.Sprintf("%s [%d/%d]", label, p.SubColumn+1, p.SubColumns)
		}
		if sess.Flags.NeedsReview {
			label += " !"
		}
		lines[p.Column] = append(lines[p.Column], swatch(p.Color).Width(width).Render(truncate(label, width)))
	}

	cols := make([]string, len(lines))
	for i := range lines {
		cols[i] = columnStyle.Width(width + 2).Render(strings.Join(lines[i], "\n"))
	}
	out := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	var notes []string
	for _, r := range breakRuns(dg.Rows, g) {
		notes = append(notes, breakStyle.Render(r))
	}
	for _, r := range dg.Regions {
		start := g.AxisStart + model.Clock(r.RowStart*g.Granularity)
		end := start + model.Clock(r.RowSpan*g.Granularity)
		notes = append(notes, regionStyle.Render(fmt.Sprintf("%s %s-%s", r.Label, start, end)))
	}
	if len(notes) > 0 {
		out += "\n" + strings.Join(notes, "  ")
	}
	return out
}

// breakRuns summarises consecutive break rows as "Name HH:MM-HH:MM".
func breakRuns(rows []layout.Row, g *layout.Grid) []string {
	var out []string
	for i := 0; i < len(rows); {
		if !rows[i].IsBreak() {
			i++
			continue
		}
		j := i
		for j < len(rows) && rows[j].Break == rows[i].Break {
			j++
		}
		end := rows[j-1].Start + model.Clock(g.Granularity)
		out = append(out, fmt.Sprintf("%s %s-%s", rows[i].Break, rows[i].Start, end))
		i = j
	}
	return out
}

func swatch(c layout.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(c.Background)).
		Foreground(lipgloss.Color(c.Text))
}

func wanted(days []model.Day, d model.Day) bool {
	if len(days) == 0 {
		return true
	}
	for _, have := range days {
		if have == d {
			return true
		}
	}
	return false
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
