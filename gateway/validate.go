package gateway

import (
	"sort"

	"github.com/karlla1220/meetgrid/model"
)

// Validate checks the postcondition that no room's sessions take longer
// than the block. It returns one warning per offending room label.
func Validate(req Request, resp Response) []model.DurationOverflowWarning {
	limit := req.Block.Duration()
	totals := make(map[string]int)
	for _, c := range resp.Sessions {
		totals[c.Room] += c.Interval().Duration()
	}

	rooms := make([]string, 0, len(totals))
	for room := range totals {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)

	var warnings []model.DurationOverflowWarning
	for _, room := range rooms {
		if totals[room] > limit {
			warnings = append(warnings, model.DurationOverflowWarning{
				Day:   req.Day,
				Block: req.Block.Index,
				Room:  room,
				Total: totals[room],
				Limit: limit,
			})
		}
	}
	return warnings
}
