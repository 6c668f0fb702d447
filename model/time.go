package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Day is a meeting weekday.
type Day int

const (
	// Monday is the first meeting day.
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	// Friday is the last meeting day.
	Friday
)

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// Days returns the meeting days in calendar order.
func Days() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// String returns the full English day name.
func (d Day) String() string {
	if d < Monday || d > Friday {
		return "Unknown"
	}
	return dayNames[d]
}

// Short returns the three-letter abbreviation.
func (d Day) Short() string {
	return d.String()[:3]
}

// Valid reports whether d is one of Monday..Friday.
func (d Day) Valid() bool {
	return d >= Monday && d <= Friday
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid day %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	v, ok := ParseDay(string(b))
	if !ok {
		return fmt.Errorf("unknown day %q", string(b))
	}
	*d = v
	return nil
}

// ParseDay matches full or three-letter day names, ignoring case and
// surrounding space.
func ParseDay(s string) (Day, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for _, d := range Days() {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// FindDay returns the first weekday whose full name occurs in text.
func FindDay(text string) (Day, bool) {
	lower := strings.ToLower(text)
	for _, d := range Days() {
		if strings.Contains(lower, strings.ToLower(d.String())) {
			return d, true
		}
	}
	return 0, false
}

// Clock is a time of day in minutes since midnight.
type Clock int

// ParseClock parses "8:30", "08:30" or "08.30".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, ":.")
	if sep <= 0 || sep == len(s)-1 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(s[:sep])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(s[sep+1:])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Clock `json:"start" yaml:"start" toml:"start"`
	End   Clock `json:"end" yaml:"end" toml:"end"`
}

// Duration returns the length in minutes, or 0 for an empty interval.
func (iv Interval) Duration() int {
	if iv.End <= iv.Start {
		return 0
	}
	return int(iv.End - iv.Start)
}

// Overlap returns the number of minutes shared with o.
func (iv Interval) Overlap(o Interval) int {
	start, end := iv.Start, iv.End
	if o.Start > start {
		start = o.Start
	}
	if o.End < end {
		end = o.End
	}
	if end <= start {
		return 0
	}
	return int(end - start)
}

// Contains reports whether c lies in [Start, End).
func (iv Interval) Contains(c Clock) bool {
	return c >= iv.Start && c < iv.End
}

func (iv Interval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// NamedInterval is an interval with a label, such as a coffee break.
type NamedInterval struct {
	Name  string `json:"name" yaml:"name" toml:"name"`
	Start Clock  `json:"start" yaml:"start" toml:"start"`
	End   Clock  `json:"end" yaml:"end" toml:"end"`
}

// Interval returns the unnamed range.
func (n NamedInterval) Interval() Interval {
	return Interval{Start: n.Start, End: n.End}
}

// TimeBlock is one row group of a document's time axis.
type TimeBlock struct {
	Index int   `json:"index"`
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Interval returns the block's time range.
func (b TimeBlock) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// Duration returns the block length in minutes.
func (b TimeBlock) Duration() int {
	return b.Interval().Duration()
}

func (b TimeBlock) String() string {
	return fmt.Sprintf("TB%d(%s)", b.Index, b.Interval())
}
