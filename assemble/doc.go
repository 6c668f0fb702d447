// Package assemble turns structured slot responses into a Schedule.
//
// Assembly runs after every slot call has returned. For each candidate
// session it binds the room label to a day column, validates the time range
// against the slot's block, and canonicalises the category. Sessions from
// different sources that describe the same event are then merged, missing
// categories are back-filled from neighbouring blocks, and blocks whose
// sessions overrun their duration are flagged.
//
// Nothing here aborts a run. Sessions that break an invariant are left out
// and reported as [model.DataIntegrityError]; failed slots are listed as
// unresolved; overruns become [model.DurationOverflowWarning] values.
//
// Assemble is deterministic: the same input yields an identical Schedule,
// including session ids.
package assemble
