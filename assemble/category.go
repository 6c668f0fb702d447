package assemble

import (
	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/text"
)

// vocabulary canonicalises category labels for one run. Labels that fold to
// the same form share the display spelling of an alias target or, failing
// that, the first spelling seen.
type vocabulary struct {
	aliases map[string]string
	display map[string]string
}

func newVocabulary(aliases map[string]string) *vocabulary {
	v := &vocabulary{
		aliases: make(map[string]string, 2*len(aliases)),
		display: make(map[string]string),
	}
	for from, to := range aliases {
		to = text.Collapse(to)
		if to == "" {
			continue
		}
		v.aliases[text.Fold(from)] = to
		v.aliases[text.Fold(to)] = to
	}
	return v
}

func (v *vocabulary) canonical(label string) string {
	label = text.Collapse(label)
	if label == "" {
		return ""
	}
	key := text.Fold(label)
	if to, ok := v.aliases[key]; ok {
		return to
	}
	if first, ok := v.display[key]; ok {
		return first
	}
	v.display[key] = label
	return label
}

// backfill gives an uncategorised session the category of its neighbours:
// sessions in the same room in the same or an adjacent block. It only does
// so when the neighbours agree on exactly one category.
func backfill(sessions []model.Session) {
	known := make([]string, len(sessions))
	for i, s := range sessions {
		known[i] = s.Category
	}
	for i := range sessions {
		s := &sessions[i]
		if s.Category != "" {
			continue
		}
		var found string
		ambiguous := false
		for j, o := range sessions {
			if j == i || known[j] == "" || o.Room != s.Room || abs(o.Block-s.Block) > 1 {
				continue
			}
			if found == "" {
				found = known[j]
			} else if found != known[j] {
				ambiguous = true
				break
			}
		}
		if found != "" && !ambiguous {
			s.Category = found
			s.Flags.Backfilled = true
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
