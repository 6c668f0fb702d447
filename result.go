package meetgrid

import (
	"bytes"
	"sort"
	"strings"

	"github.com/karlla1220/meetgrid/assemble"
	"github.com/karlla1220/meetgrid/layout"
	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/publish"
	"github.com/karlla1220/meetgrid/render"
	"github.com/karlla1220/meetgrid/slots"
)

// Result is the outcome of a pipeline run.
type Result struct {
	Schedule *model.Schedule
	Grid     *layout.Grid
	Palette  *layout.Palette

	// Report lists excluded sessions, unresolved slots, overflowing
	// blocks and unmapped rooms.
	Report *assemble.Report

	// Collection is the slot collection the schedule was assembled from.
	Collection *slots.Collection
}

// Summary counts what the run excluded or flagged.
func (r *Result) Summary() render.Summary {
	s := render.Summary{
		Sessions:   r.Schedule.SessionCount(),
		Excluded:   len(r.Report.IntegrityErrors()),
		Unresolved: len(r.Schedule.Unresolved),
		Overflows:  len(r.Report.Warnings),
	}
	seen := make(map[string]bool)
	for _, u := range r.Report.UnmappedRooms {
		if !seen[u.Label] {
			seen[u.Label] = true
			s.UnmappedRooms = append(s.UnmappedRooms, u.Label)
		}
	}
	sort.Strings(s.UnmappedRooms)
	return s
}

// Document returns the renderer input for the run.
func (r *Result) Document() render.Document {
	return render.Document{
		Version:  render.FormatVersion,
		Schedule: r.Schedule,
		Grid:     r.Grid,
		Summary:  r.Summary(),
	}
}

// FileName returns the document's file name: the meeting name with path
// and '#' characters replaced, e.g. "RAN1-124.json".
func (r *Result) FileName() string {
	name := strings.NewReplacer("#", "-", "/", "-", "\\", "-", " ", "_").Replace(r.Schedule.MeetingName)
	if name == "" {
		name = "schedule"
	}
	return name + ".json"
}

// Artifact encodes the run's document for publishing.
func (r *Result) Artifact() (publish.Artifact, error) {
	var buf bytes.Buffer
	if err := render.Encode(&buf, r.Document()); err != nil {
		return publish.Artifact{}, err
	}
	return publish.Artifact{
		Name:        r.FileName(),
		ContentType: "application/json",
		Data:        buf.Bytes(),
		MeetingName: r.Schedule.MeetingName,
		RunID:       r.Schedule.RunID,
		Sessions:    r.Schedule.SessionCount(),
		Unresolved:  len(r.Schedule.Unresolved),
		CreatedAt:   r.Schedule.GeneratedAt,
	}, nil
}
