package xlsx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cell is one worksheet cell after style resolution.
type Cell struct {
	Value string // display value; time-formatted numbers become HH:MM
	Row   int    // 0-indexed
	Col   int    // 0-indexed
	Fill  string // solid fill colour as RRGGBB, or ""

	// Merge information
	IsMerged    bool // part of a merged region
	IsMergeRoot bool // top-left cell of a merged region
	MergeRows   int  // rows in merge (1 = no merge)
	MergeCols   int  // columns in merge (1 = no merge)
}

// Sheet is a worksheet as a dense grid.
type Sheet struct {
	Name          string
	Index         int
	Rows          [][]Cell
	MergedRegions []MergedRegion
}

// MergedRegion is a merged cell range, inclusive, 0-indexed.
type MergedRegion struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// Cell returns the cell at row and col, or nil when out of range.
func (s *Sheet) Cell(row, col int) *Cell {
	if row < 0 || row >= len(s.Rows) {
		return nil
	}
	if col < 0 || col >= len(s.Rows[row]) {
		return nil
	}
	return &s.Rows[row][col]
}

// regionAt returns the merged region covering (row, col).
func (s *Sheet) regionAt(row, col int) (MergedRegion, bool) {
	for _, mr := range s.MergedRegions {
		if row >= mr.StartRow && row <= mr.EndRow && col >= mr.StartCol && col <= mr.EndCol {
			return mr, true
		}
	}
	return MergedRegion{}, false
}

// ParseCellRef parses a cell reference like "A1" or "AA100" into column and
// row indices (0-indexed).
func ParseCellRef(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && isLetter(ref[i]) {
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}

	col = ColumnToIndex(ref[:i])
	rowNum, err := strconv.Atoi(ref[i:])
	if err != nil || rowNum < 1 {
		return 0, 0, fmt.Errorf("invalid row in %q", ref)
	}
	return col, rowNum - 1, nil
}

// ColumnToIndex converts column letters to a 0-indexed column: A=0, Z=25, AA=26.
func ColumnToIndex(col string) int {
	result := 0
	for _, c := range strings.ToUpper(col) {
		if c < 'A' || c > 'Z' {
			return -1
		}
		result = result*26 + int(c-'A') + 1
	}
	return result - 1
}

// IndexToColumn converts a 0-indexed column to letters.
func IndexToColumn(index int) string {
	if index < 0 {
		return ""
	}
	result := ""
	for index++; index > 0; index /= 26 {
		index--
		result = string(rune('A'+index%26)) + result
	}
	return result
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// ParseRangeRef parses "A1:D10" into start and end coordinates.
func ParseRangeRef(ref string) (startCol, startRow, endCol, endRow int, err error) {
	from, to, ok := strings.Cut(ref, ":")
	if !ok {
		// A single-cell range is legal in mergeCells.
		to = from
	}
	if startCol, startRow, err = ParseCellRef(from); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid start cell: %w", err)
	}
	if endCol, endRow, err = ParseCellRef(to); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid end cell: %w", err)
	}
	return startCol, startRow, endCol, endRow, nil
}

// builtinTimeFormats are the numFmtId values Excel reserves for times.
var builtinTimeFormats = map[int]bool{18: true, 19: true, 20: true, 21: true, 45: true, 46: true, 47: true}

// isTimeFormat reports whether a custom format code renders a time of day.
func isTimeFormat(code string) bool {
	code = strings.ToLower(code)
	return strings.Contains(code, "h") && strings.Contains(code, "mm")
}

// formatDayFraction renders an Excel serial time (fraction of a day, with an
// optional date part) as HH:MM.
func formatDayFraction(raw string) (string, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return "", false
	}
	_, frac := math.Modf(v)
	minutes := int(math.Round(frac * 24 * 60))
	if minutes == 24*60 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), true
}
