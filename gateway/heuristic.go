package gateway

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/text"
)

// Confidence levels reported by Heuristic.
const (
	HeuristicItemConfidence     = 0.5
	HeuristicFallbackConfidence = 0.3
)

var (
	// "9.1.2 CSI enhancements (30)" or "Opening (15 min)"
	durationPattern = regexp.MustCompile(`^(.*?)\s*\((\d{1,3})\s*(?:min(?:ute)?s?|')?\)\s*$`)

	// "topic, Jane Doe" or "Opening — John"
	chairPattern = regexp.MustCompile(`^(.*?)\s*(?:,|—|–|\s-\s)\s*(\p{Lu}[\p{Ll}.'-]+(?:\s+\p{Lu}[\p{Ll}.'-]+){0,2})$`)

	// "Chair: Jane Doe"
	chairPrefix = regexp.MustCompile(`(?i)^(?:chair|chaired by|moderator)\s*:?\s+(.+)$`)

	// a bare given name: "Younsun"
	personPattern = regexp.MustCompile(`^\p{Lu}[\p{Ll}'-]+$`)
)

// Heuristic structures slots with fixed text rules:
//
//   - a line ending in "(N)" is an item of N minutes;
//   - an item whose minutes equal the sum of two or more items right after
//     it is a group header and becomes their category;
//   - a line without minutes is a chair when it names a person and a
//     category otherwise;
//   - a trailing ", Name" names the chair;
//   - items run back to back in each room from the fragment's start;
//   - a fragment without any item becomes one session over its own
//     interval within the block.
type Heuristic struct{}

// Structure implements Gateway.
func (Heuristic) Structure(_ context.Context, req Request) (Response, error) {
	var resp Response
	for _, f := range sessionFragments(req) {
		for _, label := range f.Rooms {
			room := label
			if target, ok := req.Hint[label]; ok {
				room = target
			}
			resp.Sessions = append(resp.Sessions, structureFragment(req.Block, f, room)...)
		}
	}
	return resp, nil
}

type line struct {
	text    string
	minutes int // 0 when the line gives none
}

func splitLines(s string) []line {
	var out []line
	for _, raw := range strings.Split(s, "\n") {
		raw = text.Collapse(raw)
		if raw == "" {
			continue
		}
		if m := durationPattern.FindStringSubmatch(raw); m != nil {
			n, _ := strconv.Atoi(m[2])
			if n > 0 && m[1] != "" {
				out = append(out, line{text: m[1], minutes: n})
				continue
			}
		}
		out = append(out, line{text: raw})
	}
	return out
}

// fragmentWindow is the part of the block the fragment's own row covered.
func fragmentWindow(block model.TimeBlock, f model.Fragment) model.Interval {
	window := block.Interval()
	if f.Time.Overlap(window) > 0 {
		window = model.Interval{Start: max(f.Time.Start, block.Start), End: min(f.Time.End, block.End)}
	}
	return window
}

func structureFragment(block model.TimeBlock, f model.Fragment, room string) []Candidate {
	window := fragmentWindow(block, f)

	lines := splitLines(f.Text)
	hasItems := false
	for _, l := range lines {
		if l.minutes > 0 {
			hasItems = true
			break
		}
	}
	if !hasItems {
		return []Candidate{fallback(lines, window, f.SourceID, room)}
	}

	var (
		out      []Candidate
		chair    string
		category string
		groupEnd int // lines before this index belong to the current group
		cursor   = window.Start
	)
	for i, l := range lines {
		if i >= groupEnd && groupEnd > 0 {
			category, groupEnd = "", 0
		}
		if l.minutes == 0 {
			if name, ok := chairName(l.text); ok {
				chair = name
			} else {
				category = l.text
			}
			continue
		}
		if end, ok := groupSpan(lines, i); ok {
			category, groupEnd = l.text, end
			continue
		}

		name, itemChair := splitChair(l.text)
		if itemChair == "" {
			itemChair = chair
		}
		c := Candidate{
			Name:       name,
			Chair:      itemChair,
			Room:       room,
			Category:   category,
			Start:      cursor,
			End:        cursor + model.Clock(l.minutes),
			Confidence: HeuristicItemConfidence,
			Sources:    []string{f.SourceID},
		}
		cursor = c.End
		out = append(out, c)
	}
	return out
}

// groupSpan reports whether lines[i] is a group header: two or more items
// directly after it add up to its minutes. It returns the index after the
// group.
func groupSpan(lines []line, i int) (int, bool) {
	want, sum, items := lines[i].minutes, 0, 0
	for j := i + 1; j < len(lines); j++ {
		if lines[j].minutes == 0 {
			continue
		}
		sum += lines[j].minutes
		items++
		if sum == want {
			return j + 1, items >= 2
		}
		if sum > want {
			return 0, false
		}
	}
	return 0, false
}

func fallback(lines []line, window model.Interval, source, room string) Candidate {
	c := Candidate{
		Room:       room,
		Start:      window.Start,
		End:        window.End,
		Confidence: HeuristicFallbackConfidence,
		Sources:    []string{source},
	}
	for _, l := range lines {
		if name, ok := chairName(l.text); ok && c.Name != "" {
			c.Chair = name
			continue
		}
		if c.Name == "" {
			c.Name, c.Chair = splitChair(l.text)
		}
	}
	return c
}

// chairName recognises a line that only names a person.
func chairName(s string) (string, bool) {
	if m := chairPrefix.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if personPattern.MatchString(s) {
		return s, true
	}
	return "", false
}

// splitChair separates a trailing chair name from a session name.
func splitChair(s string) (name, chair string) {
	if m := chairPattern.FindStringSubmatch(s); m != nil && m[1] != "" {
		return m[1], m[2]
	}
	return s, ""
}
