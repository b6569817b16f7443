// Package bsp partitions plan walls into a binary space partition tree and
// answers line-of-sight queries against it.
//
// A [Tree] is built once from the visible wall lines and then queried for
// ray hits ([Tree.Raycast]) and whole isovists ([Tree.Isovist]). Nodes are
// stored in one slice and linked by index, so a tree is a single
// allocation that can be dropped with [Tree.Invalidate] when the walls
// change.
//
//	t := bsp.New()
//	if err := t.Build(nil, walls); err != nil {
//		return err
//	}
//	iso, err := t.Isovist(geom.Pt(2.5, 2.5), region, 0, 0)
//
// Splitters are chosen to halve the bounding box of the remaining lines,
// preferring lines that run across its longer side. Lines crossing a
// splitter are cut in two.
package bsp
