// Package render writes laid-out schedules for downstream consumers.
//
// [Encode] produces the JSON document a web renderer consumes: the schedule
// tree, its grid placements and a summary of what the run had to flag.
// [Preview] draws a compact per-day view for terminals.
package render
