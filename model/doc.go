// Package model provides the intermediate representation (IR) shared by every
// stage of the schedule pipeline.
//
// The types fall into three groups.
//
// # Document grid
//
// [Document], [Table], [Row] and [Cell] describe a tabular document as a grid
// of cells with row and column spans and an optional background marker. The
// format readers (docx, xlsx, htmldoc) produce these; the table extractor
// consumes them without knowing the storage format:
//
//	doc, err := docx.ReadDocument("schedule.docx")
//	res, err := tables.Extract(doc, tables.Options{SourceID: "main"})
//
// # Cells and slots
//
// [CellMap] maps a [CellKey] (day, room, block) to text and is complete over
// its domain: a combination without data holds an empty string instead of
// being absent. [RawCell] is the immutable list form. A [SlotKey] (day, block)
// groups the [Fragment] values from all sources in a [SlotFragmentSet].
//
// # Schedule
//
// [Schedule] is the root aggregate. It owns one [DaySchedule] per day, which
// owns its [Session] values. Nothing points back up the tree.
//
// # Time
//
// [Clock] is a time of day in minutes since midnight; [Interval] and
// [TimeBlock] are half-open ranges over it.
//
// # Errors
//
// The error taxonomy ([MalformedDocumentError], [DataIntegrityError],
// [GatewayUnavailableError], [DurationOverflowWarning]) lives here so every
// package can report with the same types.
package model
