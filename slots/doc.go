// Package slots gathers the cell text of every source by (day, time block).
//
// One source is the primary: its time blocks and room columns define the
// schedule's skeleton. Detail sources offer richer text for the same week
// but may cut time differently and name rooms differently. [Collect] buckets
// every non-empty cell of every source into the primary block it overlaps
// most, keeping fragments from different sources side by side:
//
//	col, err := slots.Collect([]slots.Source{
//		{ID: "main", Role: model.RolePrimary, Result: mainResult},
//		{ID: "vice", Role: model.RoleDetail, Result: viceResult},
//	})
//	for _, key := range col.Slots.Keys() {
//		fmt.Println(key, len(col.Slots[key]))
//	}
//
// Fragments are never merged across sources here; deciding which fragments
// describe the same session belongs to structuring and assembly.
//
// # Room hints
//
// For each detail source, [Collect] proposes which primary room each detail
// label most likely means. Hints are advisory: assembly applies them, and
// labels without one become rooms of their own.
package slots
