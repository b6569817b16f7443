package shape

import (
	"errors"
	"math"
	"slices"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

// ErrNothingToConvert is returned by the conversions when the sources hold
// no shape of a kind the target can use.
var ErrNothingToConvert = errors.New("no suitable shapes to convert")

// Column names written by conversions.
const (
	DrawingLayerColumn = "Drawing Layer"
	AxialRefColumn     = "Axial Line Ref"
)

// copiedPrefix is prepended to copied columns whose name clashes with a
// locked destination column.
const copiedPrefix = "Copied "

// columnMap maps source column indices to destination column indices.
type columnMap map[int]int

// copyColumns creates the destination columns for every user column of
// src. Columns a graph maintains itself are skipped.
func copyColumns(dst, src *Map) columnMap {
	cm := make(columnMap)
	for i, name := range src.table.ColumnNames() {
		if src.typ.IsGraph() && (name == ConnectivityColumn || name == LineLengthColumn) {
			continue
		}
		if j, err := dst.table.ColumnIndex(name); err == nil {
			if c, _ := dst.table.Column(j); c.Locked {
				name = copiedPrefix + name
			}
		}
		cm[i] = dst.table.GetOrInsertColumn(name)
	}
	return cm
}

func (cm columnMap) copyRow(dst *Map, dkey int, src *Map, skey int) {
	row, err := src.table.Row(skey)
	if err != nil {
		return
	}
	for from, to := range cm {
		if v := row.Value(from); v != attr.Unset {
			_ = dst.table.SetValue(dkey, to, v)
		}
	}
}

// attributed reports whether attribute values of src are worth copying.
func attributed(src *Map) bool { return src.typ != Drawing }

// copier is set up lazily for single attribute-bearing sources.
func copier(dst *Map, sources []*Map, copyAttributes bool) columnMap {
	if !copyAttributes || len(sources) != 1 || !attributed(sources[0]) {
		return nil
	}
	return copyColumns(dst, sources[0])
}

func countShapes(sources []*Map) int {
	n := 0
	for _, s := range sources {
		n += s.Len()
	}
	return n
}

// newGraph starts a graph that gets its connectivity built in one pass at
// the end of a conversion.
func newGraph(name string, t Type) *Map {
	g := NewGraph(name, t)
	g.conns = nil
	return g
}

func finishGraph(c comm.Communicator, g *Map) (*Map, error) {
	if g.Len() == 0 {
		return nil, ErrNothingToConvert
	}
	if err := g.MakeConnections(c); err != nil {
		return nil, err
	}
	col, _ := g.table.ColumnIndex(ConnectivityColumn)
	_ = g.table.SetDisplayColumn(col)
	return g, nil
}

// convertLines builds a line graph of type t from the line work of the
// sources. Drawing sources contribute every edge, including polygon
// outlines; other sources contribute lines and polylines.
func convertLines(c comm.Communicator, name string, t Type, sources []*Map, copyAttributes bool) (*Map, error) {
	g := newGraph(name, t)
	cm := copier(g, sources, copyAttributes)
	comm.SetTotal(c, countShapes(sources))
	for _, src := range sources {
		for _, k := range src.keys {
			s := src.shapes[k]
			if s.Kind == KindLine || s.Kind == KindPolyline || (src.typ == Drawing && s.Kind == KindPolygon) {
				for _, l := range s.Segments() {
					if l.Length() == 0 {
						continue
					}
					nk := g.insert(Line(l), -1)
					if cm != nil {
						cm.copyRow(g, nk, src, k)
					}
				}
			}
			if err := comm.Step(c, 1); err != nil {
				return nil, err
			}
		}
	}
	return finishGraph(c, g)
}

// ToAxial makes an axial graph from the lines of the sources. Attribute
// values are copied when copyAttributes is set and the single source is
// not a drawing.
func ToAxial(c comm.Communicator, name string, sources []*Map, copyAttributes bool) (*Map, error) {
	return convertLines(c, name, Axial, sources, copyAttributes)
}

// ToSegment makes a segment graph directly from the lines of the sources.
// Lines must meet at their end points to be connected.
func ToSegment(c comm.Communicator, name string, sources []*Map, copyAttributes bool) (*Map, error) {
	return convertLines(c, name, Segment, sources, copyAttributes)
}

// ToConvex makes a convex graph from the polygons of the sources.
func ToConvex(c comm.Communicator, name string, sources []*Map, copyAttributes bool) (*Map, error) {
	g := newGraph(name, Convex)
	cm := copier(g, sources, copyAttributes)
	comm.SetTotal(c, countShapes(sources))
	for _, src := range sources {
		for _, k := range src.keys {
			if s := src.shapes[k]; s.Kind == KindPolygon {
				nk := g.insert(s.clone(), -1)
				if cm != nil {
					cm.copyRow(g, nk, src, k)
				}
			}
			if err := comm.Step(c, 1); err != nil {
				return nil, err
			}
		}
	}
	return finishGraph(c, g)
}

// AxialToSegment breaks every line of an axial graph where it crosses a
// connected line. With stubRemoval > 0, an end piece shorter than that
// fraction of its axial line is dropped. Each segment records the key of
// its axial line. The axial map is not modified.
func AxialToSegment(c comm.Communicator, name string, axial *Map, copyAttributes bool, stubRemoval float64) (*Map, error) {
	conns := axial.conns
	if conns == nil {
		var err error
		if conns, err = axial.buildConns(nil); err != nil {
			return nil, err
		}
	}
	g := newGraph(name, Segment)
	ref := g.table.InsertOrResetLockedColumn(AxialRefColumn)
	var cm columnMap
	if copyAttributes {
		cm = copyColumns(g, axial)
	}
	comm.SetTotal(c, axial.Len())
	for _, k := range axial.keys {
		s := axial.shapes[k]
		if s.Kind == KindLine {
			for _, piece := range splitLine(s.AsLine(), axial.crossings(k, conns[k]), stubRemoval) {
				nk := g.insert(Line(piece), -1)
				_ = g.table.SetValue(nk, ref, float64(k))
				if cm != nil {
					cm.copyRow(g, nk, axial, k)
				}
			}
		}
		if err := comm.Step(c, 1); err != nil {
			return nil, err
		}
	}
	return finishGraph(c, g)
}

// crossings returns where line k crosses the connected lines in conns, as
// parameters along k.
func (m *Map) crossings(k int, conns []int) []float64 {
	l := m.shapes[k].AsLine()
	v := l.Vector()
	d := v.Dot(v)
	if d == 0 {
		return nil
	}
	var ts []float64
	for _, o := range conns {
		other := m.shapes[o]
		if other.Kind != KindLine || !l.Intersects(other.AsLine()) {
			continue
		}
		p, ok := l.Intersection(other.AsLine())
		if !ok {
			continue
		}
		ts = append(ts, p.Sub(l.A).Dot(v)/d)
	}
	return ts
}

const splitTolerance = 1e-9

// splitLine cuts l at the parameters ts.
func splitLine(l geom.Line, ts []float64, stubRemoval float64) []geom.Line {
	cuts := []float64{0}
	for _, t := range ts {
		if t > splitTolerance && t < 1-splitTolerance {
			cuts = append(cuts, t)
		}
	}
	cuts = append(cuts, 1)
	slices.Sort(cuts)
	cuts = slices.CompactFunc(cuts, func(a, b float64) bool { return math.Abs(a-b) <= splitTolerance })

	at := func(t float64) geom.Point {
		switch t {
		case 0:
			return l.A
		case 1:
			return l.B
		}
		return l.A.Add(l.Vector().Scale(t))
	}
	first, last := 0, len(cuts)-2
	if stubRemoval > 0 && len(cuts) > 2 {
		if cuts[1] < stubRemoval {
			first++
		}
		if 1-cuts[len(cuts)-2] < stubRemoval {
			last--
		}
	}
	var out []geom.Line
	for i := first; i <= last; i++ {
		out = append(out, geom.Line{A: at(cuts[i]), B: at(cuts[i+1])})
	}
	return out
}

// ToData copies every shape of the sources into a new data map. Drawing
// sources add a "Drawing Layer" column holding the source position plus
// one; attributes of a single attribute-bearing source are copied when
// copyAttributes is set.
func ToData(c comm.Communicator, name string, sources []*Map, copyAttributes bool) (*Map, error) {
	d := New(name, Data)
	cm := copier(d, sources, copyAttributes)
	layerCol := -1
	for _, src := range sources {
		if src.typ == Drawing {
			layerCol = d.table.InsertOrResetColumn(DrawingLayerColumn)
			break
		}
	}
	comm.SetTotal(c, countShapes(sources))
	for i, src := range sources {
		for _, k := range src.keys {
			nk := d.insert(src.shapes[k].clone(), -1)
			if cm != nil {
				cm.copyRow(d, nk, src, k)
			}
			if layerCol >= 0 && src.typ == Drawing {
				_ = d.table.SetValue(nk, layerCol, float64(i+1))
			}
			if err := comm.Step(c, 1); err != nil {
				return nil, err
			}
		}
	}
	if d.Len() == 0 {
		return nil, ErrNothingToConvert
	}
	return d, nil
}

// ToDrawing copies the geometry of src into a new drawing map.
func ToDrawing(c comm.Communicator, name string, src *Map) (*Map, error) {
	d := New(name, Drawing)
	comm.SetTotal(c, src.Len())
	for _, k := range src.keys {
		d.insert(src.shapes[k].clone(), -1)
		if err := comm.Step(c, 1); err != nil {
			return nil, err
		}
	}
	if d.Len() == 0 {
		return nil, ErrNothingToConvert
	}
	return d, nil
}
