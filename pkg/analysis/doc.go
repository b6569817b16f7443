// Package analysis defines the boundary between maps and the measures
// computed over them.
//
// A [Kernel] takes one map, an [Options] value and a communicator, writes its
// measures into the map's attribute table and reports the column it would
// like displayed. Kernels never see the document that owns the map; the
// document picks the map, runs the kernel and updates its display.
//
// # Options
//
// Options are immutable once validated. Callers build them from flags or a
// config file, call [Options.SetDefaults] and [Options.Validate] and only
// then touch any map, so a bad flag combination never leaves a half-analysed
// table behind.
//
//	opts := analysis.Options{Mode: analysis.ModeIntegration, Radii: []int{3, analysis.RadiusN}}
//	opts.SetDefaults()
//	if err := opts.Validate(); err != nil {
//	    return err
//	}
//	res, err := analysis.Integration{}.Run(c, axialMap, opts)
//
// # Reference kernels
//
//   - [Integration]: topological mean depth, integration and node count on
//     shape graphs, optionally choice and local measures.
//   - [StepDepth]: topological step depth from the selected shapes.
//   - [GridStepDepth]: adjacency step depth from the selected cells,
//     following merge links.
//   - [GridIsovist]: isovist measures for every filled cell.
//
// Every kernel computes into a buffer and writes the table only after the
// last record, so a cancelled run leaves the map untouched.
package analysis
