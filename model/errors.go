package model

import (
	"fmt"
)

// MalformedDocumentError reports a document from which no layout can be
// inferred. It aborts ingestion of that document only.
type MalformedDocumentError struct {
	SourceID string
	Reason   string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document %q: %s", e.SourceID, e.Reason)
}

// DataIntegrityError reports a session that violates an invariant and was
// excluded from the schedule.
type DataIntegrityError struct {
	SessionName string
	Day         Day
	Room        string
	Reason      string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("session %q (%s, room %q): %s", e.SessionName, e.Day, e.Room, e.Reason)
}

// GatewayUnavailableError reports a slot whose structuring call failed or
// timed out. The slot is left unresolved.
type GatewayUnavailableError struct {
	Day   Day
	Block int
	Err   error
}

func (e *GatewayUnavailableError) Error() string {
	return fmt.Sprintf("slot %s: gateway unavailable: %v", SlotKey{Day: e.Day, Block: e.Block}, e.Err)
}

func (e *GatewayUnavailableError) Unwrap() error {
	return e.Err
}

// DurationOverflowWarning reports a room whose sessions in one block add up to
// more than the block's duration.
type DurationOverflowWarning struct {
	Day   Day
	Block int
	Room  string
	Total int // summed session minutes
	Limit int // block minutes
}

func (w *DurationOverflowWarning) Error() string {
	return fmt.Sprintf("slot %s room %q: sessions total %d min, block holds %d",
		SlotKey{Day: w.Day, Block: w.Block}, w.Room, w.Total, w.Limit)
}
