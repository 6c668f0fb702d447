// Package meetgrid builds one weekly meeting schedule from the schedule
// documents of several authors.
//
// Basic usage:
//
//	res, warnings, err := meetgrid.New().
//	    Primary("RAN1-124-main.docx").
//	    Detail("RAN1-124-vice.docx").
//	    Build(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", meetgrid.FormatWarnings(warnings))
//	}
//
// From a configuration file:
//
//	cfg, err := config.Load("meeting.yaml")
//	if err != nil {
//	    // handle error
//	}
//	res, _, err := meetgrid.FromConfig(cfg).Heuristic().Build(ctx)
//
// A run extracts every document's tables, buckets their cells into the
// primary document's (day, block) slots, structures each slot through a
// gateway, assembles the sessions and lays them out on a grid. The stages
// are available separately in the tables, slots, gateway, assemble and
// layout packages.
package meetgrid

import (
	"github.com/karlla1220/meetgrid/config"
)

// New returns a Pipeline with the standard meeting-day configuration and
// no sources.
//
// Example:
//
//	res, _, err := meetgrid.New().Primary("main.docx").Heuristic().Build(ctx)
func New() *Pipeline {
	return &Pipeline{options: defaultOptions()}
}

// FromConfig returns a Pipeline configured by cfg, including its sources.
// The configuration is validated when the pipeline runs.
func FromConfig(cfg *config.Config) *Pipeline {
	return New().WithConfig(cfg)
}

// Must is a helper that wraps a call to a terminal operation and panics if
// the error is non-nil. It discards warnings and returns just the value.
// It is intended for use in scripts or tests where error handling would
// be cumbersome.
//
// Example:
//
//	res := meetgrid.Must(meetgrid.New().Primary("main.docx").Heuristic().Build(ctx))
func Must[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
