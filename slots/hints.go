package slots

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/karlla1220/meetgrid/tables"
	"github.com/karlla1220/meetgrid/text"
)

// resolveHints proposes a primary room for each room label of a detail
// source. Configured hints come first; otherwise rules are tried in order
// and the first that yields a single candidate wins: equal labels, a shared
// marker colour, a table context naming a primary room, then token
// containment and fuzzy similarity.
func resolveHints(primary, detail *tables.Result, configured RoomHint) RoomHint {
	targets := labels(primary)
	hint := make(RoomHint)
	for label, target := range configured {
		hint[label] = target
	}
	if len(targets) == 0 {
		return hint
	}
	folded := make([]string, len(targets))
	for i, t := range targets {
		folded[i] = text.Fold(t)
	}

	for _, label := range labels(detail) {
		if _, ok := hint[label]; ok {
			continue
		}
		for _, rule := range []func() (string, bool){
			func() (string, bool) { return exactMatch(label, targets) },
			func() (string, bool) { return markerMatch(label, primary, detail, targets) },
			func() (string, bool) { return contextMatch(label, detail, targets) },
			func() (string, bool) { return similarMatch(label, targets, folded) },
		} {
			if target, ok := rule(); ok {
				hint[label] = target
				break
			}
		}
	}
	return hint
}

// labels lists a result's room labels across days in first-seen order.
func labels(r *tables.Result) []string {
	var out []string
	for _, d := range r.Days() {
		for _, room := range r.Rooms[d] {
			if !contains(out, room) {
				out = append(out, room)
			}
		}
	}
	return out
}

func exactMatch(label string, targets []string) (string, bool) {
	for _, t := range targets {
		if text.Equal(label, t) {
			return t, true
		}
	}
	return "", false
}

func markerMatch(label string, primary, detail *tables.Result, targets []string) (string, bool) {
	colours := make([]string, 0, len(detail.Markers))
	for colour, room := range detail.Markers {
		if room == label {
			colours = append(colours, colour)
		}
	}
	sort.Strings(colours)
	for _, colour := range colours {
		if room, ok := primary.Markers[colour]; ok && contains(targets, room) {
			return room, true
		}
	}
	return "", false
}

// contextMatch reads the paragraph introducing the label's table. It only
// applies when the label is the table's sole room on that day, since a
// context naming one room says nothing about its siblings.
func contextMatch(label string, detail *tables.Result, targets []string) (string, bool) {
	var found []string
	for _, d := range detail.Days() {
		ctx, ok := detail.Contexts[d][label]
		if !ok || ctx == "" {
			continue
		}
		siblings := 0
		for _, other := range detail.Rooms[d] {
			if detail.Contexts[d][other] == ctx {
				siblings++
			}
		}
		if siblings != 1 {
			continue
		}
		for _, t := range targets {
			if text.ContainsTokens(ctx, t) && !contains(found, t) {
				found = append(found, t)
			}
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return "", false
}

func similarMatch(label string, targets, folded []string) (string, bool) {
	var contained []string
	for _, t := range targets {
		if text.ContainsTokens(label, t) || text.ContainsTokens(t, label) {
			contained = append(contained, t)
		}
	}
	if len(contained) == 1 {
		return contained[0], true
	}
	if len(contained) > 1 {
		return "", false
	}

	matches := fuzzy.Find(text.Fold(label), folded)
	if len(matches) == 0 || matches[0].Score <= 0 {
		return "", false
	}
	if len(matches) > 1 && matches[1].Score == matches[0].Score {
		return "", false
	}
	return targets[matches[0].Index], true
}

// Hinted reports the primary room a detail source's label maps to.
func (c *Collection) Hinted(sourceID, label string) (string, bool) {
	room, ok := c.Hints[sourceID][label]
	return room, ok
}
