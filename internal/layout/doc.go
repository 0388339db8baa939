// Package layout arranges the all-day events row of a calendar view.
//
// Events are anchored to day columns (sections) by a host. A layout pass
// collects the events visible in the host's day window, sorts them by
// identity and greedily stacks each one on the lowest line that has no
// overlapping event. Lines beyond the height budget are not placed; instead
// every day they touch accumulates a hidden count and gets one "+N more"
// overflow placement.
//
// The engine is synchronous and not safe for concurrent passes. Build one
// Engine per host and call RunLayoutPass before reading any placement:
//
//	eng, err := layout.New(host, layout.DefaultConfig())
//	if err != nil { ... }
//	if err := eng.RunLayoutPass(); err != nil { ... }
//	cells, _ := eng.Cells()
//	more, _ := eng.Overflows()
package layout
