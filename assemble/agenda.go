package assemble

import (
	"regexp"
	"strings"
)

var (
	// "9.1.2 CSI", "AI 10.5.4.1 Misc", ".8.1 leftovers"
	agendaPrefix = regexp.MustCompile(`^(?:AI\s+)?\.?\s*(\d+\.\d[\d.xX]*)\s*(.*)$`)
	// a group header such as "AI 9.1 R20 AI/ML"
	agendaHeader = regexp.MustCompile(`^AI\s+(\d[\d.]*)`)
)

// agendaFromName splits a leading agenda item off name. It returns the item
// and the remaining name, or "" and name unchanged.
func agendaFromName(name string) (item, rest string) {
	m := agendaPrefix.FindStringSubmatch(name)
	if m == nil {
		return "", name
	}
	return strings.Trim(m[1], "."), strings.TrimSpace(m[2])
}

func agendaFromHeader(header string) string {
	m := agendaHeader.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], ".")
}
