package meetgrid

import (
	"strings"
)

// Warning is a non-fatal problem found during a run. The run still
// produced a result, but part of it may be missing or flagged.
type Warning struct {
	// Source is the source id the problem belongs to, or the stage
	// ("collect", "gateway", "assemble", "layout") for run-wide problems.
	Source  string
	Message string
}

func (w Warning) String() string {
	if w.Source == "" {
		return w.Message
	}
	return w.Source + ": " + w.Message
}

// FormatWarnings joins warnings into a single line.
func FormatWarnings(warnings []Warning) string {
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}
