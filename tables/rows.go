package tables

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/karlla1220/meetgrid/model"
)

// rowKind classifies a table row.
type rowKind int

const (
	rowData rowKind = iota
	rowBreak
	rowFooter
	rowMetadata
	rowOther
)

// Break, footer and metadata rows span the table in one to three cells;
// data rows that merely mention a break have many more.
const maxSpecialCells = 3

var (
	breakWords  = []string{"break", "coffee", "lunch"}
	footerWords = []string{"all sessions end", "no exceptions"}
)

const metadataMarker = "meeting rooms"

// classify decides what a row is from its distinct cells.
func classify(row model.Row) rowKind {
	cells := row.Distinct()
	if len(cells) == 0 {
		return rowOther
	}
	if len(cells) > maxSpecialCells {
		return rowData
	}
	text := strings.ToLower(row.Text())
	switch {
	case strings.Contains(text, metadataMarker):
		return rowMetadata
	case containsAny(text, footerWords):
		return rowFooter
	case containsAny(text, breakWords):
		return rowBreak
	}
	return rowData
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var clockPattern = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)

// timeLabel holds the times found in a label cell. End is zero when the
// label gives only a start.
type timeLabel struct {
	Start model.Clock
	End   model.Clock
}

// parseTimeLabel reads "08:30 ~ 10:30", "8.30-10.30" or "08:30\n(120 min)".
func parseTimeLabel(text string) (timeLabel, bool) {
	matches := clockPattern.FindAllStringSubmatch(text, -1)
	var clocks []model.Clock
	for _, m := range matches {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h > 24 || min > 59 {
			continue
		}
		clocks = append(clocks, model.Clock(h*60+min))
	}
	switch {
	case len(clocks) == 0:
		return timeLabel{}, false
	case len(clocks) == 1 || clocks[1] <= clocks[0]:
		return timeLabel{Start: clocks[0]}, true
	default:
		return timeLabel{Start: clocks[0], End: clocks[1]}, true
	}
}

// parseRoomNames reads the lines of a "Meeting Rooms:" cell, dropping the
// heading line.
func parseRoomNames(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(strings.ToLower(line), metadataMarker) {
			continue
		}
		names = append(names, line)
	}
	return names
}

// fallbackName returns "<prefix> A", "<prefix> B", ... "<prefix> AA".
func fallbackName(prefix string, i int) string {
	suffix := ""
	for i++; i > 0; i /= 26 {
		i--
		suffix = string(rune('A'+i%26)) + suffix
	}
	return prefix + " " + suffix
}
