// Package shape implements vector maps: keyed collections of points, lines,
// polylines and polygons, each with an attribute row.
//
// # Keys
//
// Every shape gets the next key from a counter that only grows, so a key
// removed with [Map.RemoveShape] is never handed out again. [Map.MakeShape]
// accepts an explicit key for loaders that must preserve keys.
//
// # Graphs
//
// Maps of type [Axial], [Segment] and [Convex] are graphs. After
// [Map.MakeConnections] each shape knows its neighbours: axial lines that
// cross, segments that share an end point, convex polygons that touch.
// Manual links add connections geometry does not give; unlinks remove
// ones it does. The locked "Connectivity" column holds the neighbour count.
//
//	g, err := shape.ToAxial(nil, "axial", []*shape.Map{drawing}, false)
//	if err != nil {
//		return err
//	}
//	g.SetCurSel([]int{0}, false)
//	g.LinkShapes(geom.Pt(4, 2))
//
// # Conversions
//
// [ToAxial], [ToSegment], [AxialToSegment], [ToConvex], [ToData] and
// [ToDrawing] build a fresh map from existing ones. They report progress
// to a [comm.Communicator] and return [comm.ErrCancelled] without a
// result when cancelled.
package shape
