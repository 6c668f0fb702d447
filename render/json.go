package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/karlla1220/meetgrid/layout"
	"github.com/karlla1220/meetgrid/model"
)

// FormatVersion is bumped when the document shape changes incompatibly.
const FormatVersion = 1

// Summary counts what a run excluded or flagged.
type Summary struct {
	Sessions      int      `json:"sessions"`
	Excluded      int      `json:"excluded"`
	Unresolved    int      `json:"unresolved"`
	Overflows     int      `json:"overflows"`
	UnmappedRooms []string `json:"unmapped_rooms,omitempty"`
}

// Document is the renderer's input.
type Document struct {
	Version  int             `json:"version"`
	Schedule *model.Schedule `json:"schedule"`
	Grid     *layout.Grid    `json:"grid"`
	Summary  Summary         `json:"summary"`
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	if doc.Version == 0 {
		doc.Version = FormatVersion
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode schedule document: %w", err)
	}
	return nil
}

// Decode reads a document written by Encode.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schedule document: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	return &doc, nil
}
