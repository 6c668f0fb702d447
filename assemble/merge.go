package assemble

import (
	"sort"

	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/text"
)

// mergeDay folds duplicate sessions of one day into single sessions.
// Sessions are grouped greedily in start order; a session joins the first
// group in its room whose every member it duplicates. Before grouping, a
// primary session that several distinct detail sessions fall inside is
// split into them.
func mergeDay(sessions []model.Session) []model.Session {
	ordered := append([]model.Session(nil), sessions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].End < ordered[j].End
	})
	ordered = splitGeneric(ordered)

	var groups [][]model.Session
	for _, s := range ordered {
		joined := false
		for g := range groups {
			if groups[g][0].Room != s.Room || !duplicatesAll(groups[g], s) {
				continue
			}
			groups[g] = append(groups[g], s)
			joined = true
			break
		}
		if !joined {
			groups = append(groups, []model.Session{s})
		}
	}

	out := make([]model.Session, 0, len(groups))
	for _, g := range groups {
		out = append(out, resolve(g))
	}
	return out
}

func duplicatesAll(group []model.Session, s model.Session) bool {
	for _, member := range group {
		if !duplicates(member, s) {
			return false
		}
	}
	return true
}

// splitGeneric replaces a primary-only session by the detail-only sessions
// it duplicates when at least two of those are distinct from each other: a
// generic block such as "RAN1 session" 09:00-10:00 listed in detail as
// 09:00-09:30 "9.1.2" and 09:30-10:00 "9.1.3". Each detail session takes
// the primary's attribution and fills its empty chair and category from it.
// Order is kept.
func splitGeneric(sessions []model.Session) []model.Session {
	drop := make(map[int]bool)
	for i, p := range sessions {
		if !p.HasRole(model.RolePrimary) || p.HasRole(model.RoleDetail) {
			continue
		}
		var parts []int
		for j, d := range sessions {
			if j == i || drop[j] || d.HasRole(model.RolePrimary) || !duplicates(p, d) {
				continue
			}
			parts = append(parts, j)
		}
		if !anyDistinct(sessions, parts) {
			continue
		}
		drop[i] = true
		for _, j := range parts {
			sessions[j] = absorb(sessions[j], p)
		}
	}
	if len(drop) == 0 {
		return sessions
	}
	out := make([]model.Session, 0, len(sessions)-len(drop))
	for i, s := range sessions {
		if !drop[i] {
			out = append(out, s)
		}
	}
	return out
}

// anyDistinct reports whether two of the indexed sessions are not
// duplicates of each other.
func anyDistinct(sessions []model.Session, idx []int) bool {
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			if !duplicates(sessions[idx[a]], sessions[idx[b]]) {
				return true
			}
		}
	}
	return false
}

func absorb(d, p model.Session) model.Session {
	if d.Chair == "" {
		d.Chair = p.Chair
	}
	if d.Category == "" {
		d.Category = p.Category
	}
	d.Sources = uniqueSorted(append(append([]string(nil), d.Sources...), p.Sources...))
	d.Roles = mergeRoles([]model.Session{p, d})
	return d
}

// duplicates reports whether a and b describe the same event: at least half
// of the shorter one overlaps the other, their categories agree or one is
// missing, and their content matches.
func duplicates(a, b model.Session) bool {
	if a.Room != b.Room {
		return false
	}
	shorter := a.Duration()
	if d := b.Duration(); d < shorter {
		shorter = d
	}
	if shorter == 0 || 2*a.Interval().Overlap(b.Interval()) < shorter {
		return false
	}
	if a.Category != "" && b.Category != "" && a.Category != b.Category {
		return false
	}
	switch {
	case text.Equal(a.Name, b.Name):
		return true
	case a.AgendaItem != "" && a.AgendaItem == b.AgendaItem:
		return true
	case disjoint(a.Sources, b.Sources) && (a.HasRole(model.RoleDetail) || b.HasRole(model.RoleDetail)):
		return true
	}
	return false
}

func disjoint(a, b []string) bool {
	for _, s := range a {
		if containsString(b, s) {
			return false
		}
	}
	return true
}

// outranks orders merge contributors: a primary-role contribution first,
// then higher confidence, then the lexically smaller source id.
func outranks(a, b model.Session) bool {
	ap, bp := a.HasRole(model.RolePrimary), b.HasRole(model.RolePrimary)
	if ap != bp {
		return ap
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return firstSource(a) < firstSource(b)
}

func firstSource(s model.Session) string {
	if len(s.Sources) == 0 {
		return "\uffff"
	}
	return s.Sources[0]
}

// resolve merges a group into one session. Each field takes the value of the
// best-ranked member that has one; other distinct values are kept as
// annotations.
func resolve(group []model.Session) model.Session {
	if len(group) == 1 {
		return group[0]
	}
	ranked := append([]model.Session(nil), group...)
	sort.SliceStable(ranked, func(i, j int) bool { return outranks(ranked[i], ranked[j]) })

	out := ranked[0]
	out.Annotations = nil
	pick := func(field string, get func(model.Session) string) string {
		var won string
		for _, s := range ranked {
			v := get(s)
			switch {
			case v == "":
			case won == "":
				won = v
			case v != won && !containsString(out.Annotations[field], v):
				if out.Annotations == nil {
					out.Annotations = make(map[string][]string)
				}
				out.Annotations[field] = append(out.Annotations[field], v)
			}
		}
		return won
	}
	out.Name = pick("name", func(s model.Session) string { return s.Name })
	out.Chair = pick("chair", func(s model.Session) string { return s.Chair })
	out.AgendaItem = pick("agenda_item", func(s model.Session) string { return s.AgendaItem })
	out.Category = pick("category", func(s model.Session) string { return s.Category })
	pick("time", func(s model.Session) string { return s.Interval().String() })

	var sources []string
	for _, s := range ranked {
		sources = append(sources, s.Sources...)
		if s.Confidence > out.Confidence {
			out.Confidence = s.Confidence
		}
		out.Flags.Clamped = out.Flags.Clamped || s.Flags.Clamped
	}
	out.Sources = uniqueSorted(sources)
	out.Roles = mergeRoles(ranked)
	return out
}

func mergeRoles(group []model.Session) []model.Role {
	var roles []model.Role
	for _, r := range []model.Role{model.RolePrimary, model.RoleDetail} {
		for _, s := range group {
			if s.HasRole(r) {
				roles = append(roles, r)
				break
			}
		}
	}
	return roles
}
