// Package grid provides PointMap, a regular grid of cells laid over a plan.
//
// A PointMap covers a rectangular region at a fixed spacing. Every cell is
// addressed by a [PixelRef] that packs its column and row as x<<16 | y. The
// packing order makes ascending refs run column by column, which is the
// order used by exports.
//
// # Building a grid
//
// Callers first call [PointMap.SetGrid] to size the grid, then
// [PointMap.BlockLines] with the plan's wall lines, then
// [PointMap.MakePoints] with a seed location to flood-fill the open space:
//
//	pm := grid.New("Ground floor", plan.Region())
//	if err := pm.SetGrid(0.5, geom.Point{}); err != nil {
//		return err
//	}
//	pm.BlockLines(walls)
//	ok, err := pm.MakePoints(seed, grid.FillFull, c)
//
// Filled cells get a row in the map's attribute table, keyed by their ref.
//
// # Merging
//
// Two filled cells may be merged so that analysis treats them as adjacent.
// A cell belongs to at most one merge pair. [PointMap.MergePixels] replaces
// any pair that already involves either cell.
package grid
