// Package layout maps an assembled schedule onto a discrete grid.
//
// The grid has one row per fixed step of the day's time axis and one column
// per room. Every session becomes a [Placement] with a start row, a row span
// and a colour; sessions that overlap in the same room are spread over
// sub-columns rather than hidden behind each other.
//
// # Grid Layout
//
// The [Engine] lays out a whole schedule:
//
//	engine := layout.NewEngine()
//	grid := engine.Layout(schedule, layout.NewPalette(16))
//
// For custom axes and breaks:
//
//	config := layout.DefaultConfig()
//	config.Granularity = 10
//	config.Breaks = append(config.Breaks, layout.Break{
//		Name:  "Social",
//		Start: model.MustClock("17:00"),
//		End:   model.MustClock("19:00"),
//		Days:  []model.Day{model.Wednesday},
//	})
//	engine := layout.NewEngineWithConfig(config, logger)
//
// # Geometry
//
// Rows are zero-based from the axis start. A session starting at s and
// lasting d minutes begins at row floor((s - axis start) / granularity) and
// spans ceil(d / granularity) rows, at least one. Sessions reaching past the
// axis are clipped first; sessions entirely outside it are listed in
// [Grid.Clipped] and not placed.
//
// Break rows are rows whose start lies in a configured break interval for
// the day. Slots the schedule lists as unresolved become [Region] values
// covering the slot's block across all columns.
//
// # Colours
//
// A [Palette] assigns evenly spaced hues to categories in the order it first
// sees them. One palette serves a whole run, so a category keeps its colour
// on every day. Sessions without a category get a neutral grey.
package layout
