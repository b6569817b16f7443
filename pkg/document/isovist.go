package document

import (
	"errors"
	"math"

	"github.com/matzehuels/spacegraph/pkg/bsp"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// IsovistMap is the data map that collects isovists.
const IsovistMap = "Isovists"

// ErrNoSelection is returned by [Document.MakeIsovistPath] when the
// displayed map has no selected lines.
var ErrNoSelection = errors.New("no lines selected")

// Isovist results.
const (
	IsovistFailed   = 0
	IsovistAppended = 1
	IsovistCreated  = 2
)

// InvalidateBSP discards the partition. Changing the shown drawings does
// this automatically.
func (d *Document) InvalidateBSP() { d.tree.Invalidate() }

// MakeBSPTree partitions the lines of the shown drawing layers unless a
// partition is already built. On cancellation no partition is kept.
func (d *Document) MakeBSPTree(c comm.Communicator) error {
	if d.tree.Built() {
		return nil
	}
	return d.tree.Build(c, d.ShownLines())
}

// BSPTree returns the partition, building it first if needed.
func (d *Document) BSPTree(c comm.Communicator) (*bsp.Tree, error) {
	if err := d.MakeBSPTree(c); err != nil {
		return nil, err
	}
	return d.tree, nil
}

// MakeIsovist adds the isovist seen from origin between the angles start
// and end (radians, counter-clockwise; equal angles for a full circle) to
// the "Isovists" data map. It returns IsovistCreated when that map had to
// be made, IsovistAppended when it existed, and IsovistFailed with the
// reason when no partition could be built.
func (d *Document) MakeIsovist(c comm.Communicator, origin geom.Point, start, end float64) (int, error) {
	tree, err := d.BSPTree(c)
	if err != nil {
		return IsovistFailed, err
	}
	iso, err := tree.Isovist(origin, d.region, start, end)
	if err != nil {
		return IsovistFailed, err
	}
	return d.addIsovists([]bsp.Isovist{iso}), nil
}

// MakeIsovistPath adds one isovist per segment of every selected line and
// polyline of the displayed shape map. Each isovist starts at its segment's
// first point and looks along the segment through a window fov radians
// wide; fov of 2π or more gives full circles.
func (d *Document) MakeIsovistPath(c comm.Communicator, fov float64) (int, error) {
	m, err := d.frontShapeMap()
	if err != nil {
		return IsovistFailed, err
	}
	var segs []geom.Line
	for _, k := range m.Selection() {
		s, err := m.Shape(k)
		if err != nil || (s.Kind != shape.KindLine && s.Kind != shape.KindPolyline) {
			continue
		}
		segs = append(segs, s.Segments()...)
	}
	if len(segs) == 0 {
		return IsovistFailed, ErrNoSelection
	}
	tree, err := d.BSPTree(c)
	if err != nil {
		return IsovistFailed, err
	}

	isos := make([]bsp.Isovist, 0, len(segs))
	for _, l := range segs {
		start, end := 0.0, 0.0
		if fov < 2*math.Pi {
			a := l.Vector().Angle()
			start = geom.NormaliseAngle(a - fov/2)
			end = geom.NormaliseAngle(a + fov/2)
		}
		iso, err := tree.Isovist(l.A, d.region, start, end)
		if err != nil {
			return IsovistFailed, err
		}
		isos = append(isos, iso)
	}
	return d.addIsovists(isos), nil
}

// addIsovists writes isovist polygons and measures into the isovist map
// and displays it.
func (d *Document) addIsovists(isos []bsp.Isovist) int {
	result := IsovistAppended
	ref, ok := d.FindMap(FamilyData, IsovistMap)
	if !ok {
		ref = MapRef{Family: FamilyData, Index: d.AddShapeMap(shape.New(IsovistMap, shape.Data))}
		result = IsovistCreated
	}
	m := d.data[ref.Index]
	t := m.Table()
	cols := make([]int, len(bsp.Columns))
	for i, name := range bsp.Columns {
		cols[i] = t.GetOrInsertColumn(name)
	}
	for _, iso := range isos {
		k := m.MakePolyShape(iso.Polygon, false)
		_ = m.SetCentroid(k, iso.Origin)
		for i, v := range iso.Values() {
			_ = t.SetValue(k, cols[i], v)
		}
	}
	_ = t.SetDisplayColumn(cols[0])
	_ = d.SetDisplayed(FamilyData, ref.Index)
	d.view = d.view.Apply(ShowDataTop)
	return result
}
