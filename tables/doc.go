// Package tables turns schedule grids into a canonical cell map.
//
// A schedule table has weekdays across its first row, time labels down its
// first column, and one or more room columns under each day. Authors differ
// in everything else: some announce room names in a header row, some list
// them in a "Meeting Rooms" cell, some tag rooms by background colour, and
// most merge cells freely to express "this applies across the span".
//
// # Extraction
//
// [Extract] resolves each grid column to a (day, room) pair and each row to
// a time block, then replicates every merged cell's text to every
// (day, room, block) it covers:
//
//	doc, _ := docx.ReadDocument("RAN1#124.docx", "main")
//	res, err := tables.Extract(doc, tables.Options{SourceID: "main", MaxTables: 2})
//	text, examined := res.Cells.Lookup(model.CellKey{Day: model.Monday, Room: "Room A", Block: 0})
//
// The resulting [model.CellMap] is complete: every combination of a day's
// rooms and the document's blocks has an entry, empty when nothing was
// scheduled there.
//
// # Room resolution
//
// Room columns come from room-label rows under the day header when present.
// A label cell that crosses a day boundary is a banner and is ignored; labels
// announced under one day carry to later days that announce none. Without
// labels, the row with the most distinct cells for a day defines that day's
// room columns and names are taken from a "Meeting Rooms:" cell or
// generated ("Room A", "Room B", ... and "Offline A", ... for later tables).
//
// A cell whose background colour is bound to a room, either through
// [Options.Markers] or a shaded room label, is assigned to that room
// regardless of its column.
//
// # Errors
//
// A document with no table rows, no day header, or no time-labelled row
// yields a [model.MalformedDocumentError].
package tables
