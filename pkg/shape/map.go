package shape

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

var (
	// ErrUnknownShape is returned when no shape has the requested key.
	ErrUnknownShape = errors.New("unknown shape")

	// ErrNotEditable is returned by [Map.RemoveSelected], by shape creation
	// through the UI, by the Poly* calls and by [Map.SetEditable] on maps
	// that cannot be edited.
	ErrNotEditable = errors.New("map is not editable")

	// ErrKeyInUse is returned by [Map.MakeShape] when the override key is
	// already taken.
	ErrKeyInUse = errors.New("shape key in use")

	// ErrNoPolygon is returned by the Poly* editing calls when key is not
	// the polyline under construction.
	ErrNoPolygon = errors.New("no polygon under construction")

	// ErrSelfLink is returned by [Map.LinkShapesFromKeys] and
	// [Map.UnlinkShapesFromKeys] when both keys are the same.
	ErrSelfLink = errors.New("cannot link a shape to itself")
)

// Type says what a map is for.
type Type int

const (
	// Drawing maps hold imported plan geometry and have no attributes of
	// interest.
	Drawing Type = iota
	// Data maps hold arbitrary attributed shapes.
	Data
	// Axial graphs connect lines that cross.
	Axial
	// Segment graphs connect lines that share an end point.
	Segment
	// Convex graphs connect polygons that touch.
	Convex
)

func (t Type) String() string {
	switch t {
	case Drawing:
		return "drawing"
	case Data:
		return "data"
	case Axial:
		return "axial"
	case Segment:
		return "segment"
	case Convex:
		return "convex"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType maps a type name back to a Type.
func ParseType(s string) (Type, error) {
	for t := Drawing; t <= Convex; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return Data, fmt.Errorf("unknown map type %q", s)
}

// IsGraph reports whether maps of this type keep connectivity.
func (t Type) IsGraph() bool { return t == Axial || t == Segment || t == Convex }

// IsLineMap reports whether the graph's shapes are lines.
func (t Type) IsLineMap() bool { return t == Axial || t == Segment }

// Column names maintained on graphs.
const (
	ConnectivityColumn = "Connectivity"
	LineLengthColumn   = "Line Length"
)

// Link is an ordered pair of shape keys, A < B.
type Link struct {
	A int `json:"a"`
	B int `json:"b"`
}

func orderedLink(a, b int) Link {
	if a > b {
		a, b = b, a
	}
	return Link{A: a, B: b}
}

// Map is a keyed collection of shapes with one attribute row per shape.
// Graph maps (see [Type.IsGraph]) also keep connectivity between shapes,
// corrected by manual links and unlinks. A Map is not safe for concurrent
// use.
type Map struct {
	Name string

	typ      Type
	editable bool
	shown    bool

	shapes  map[int]*Shape
	keys    []int // ascending
	nextKey int

	table *attr.Table
	sel   map[int]struct{}

	links   []Link
	unlinks []Link
	conns   map[int][]int // nil until MakeConnections

	poly int // key of the polyline under construction, or -1
	undo *undoRecord
}

// New returns an empty map of type t.
func New(name string, t Type) *Map {
	return &Map{
		Name:   name,
		typ:    t,
		shown:  true,
		shapes: make(map[int]*Shape),
		table:  attr.New(),
		sel:    make(map[int]struct{}),
		poly:   -1,
	}
}

// NewGraph returns an empty graph map with the locked Connectivity column
// (and Line Length for line graphs) displayed.
func NewGraph(name string, t Type) *Map {
	m := New(name, t)
	conn := m.table.InsertOrResetLockedColumn(ConnectivityColumn)
	if t.IsLineMap() {
		m.table.InsertOrResetLockedColumn(LineLengthColumn)
	}
	_ = m.table.SetDisplayColumn(conn)
	m.conns = make(map[int][]int)
	return m
}

// Type returns the map type.
func (m *Map) Type() Type { return m.typ }

// Table returns the attribute table. Rows are keyed by shape key.
func (m *Map) Table() *attr.Table { return m.table }

// Editable reports whether shapes may be drawn or deleted interactively.
func (m *Map) Editable() bool { return m.editable }

// SetEditable switches interactive editing. Segment maps are derived and
// refuse it.
func (m *Map) SetEditable(on bool) error {
	if on && m.typ == Segment {
		return ErrNotEditable
	}
	m.editable = on
	return nil
}

// Shown reports whether the map is visible in its drawing group.
func (m *Map) Shown() bool { return m.shown }

// SetShown shows or hides the map.
func (m *Map) SetShown(on bool) { m.shown = on }

// Len returns the number of shapes.
func (m *Map) Len() int { return len(m.shapes) }

// Keys returns the shape keys in ascending order.
func (m *Map) Keys() []int { return slices.Clone(m.keys) }

// NextKey returns the key the next shape will get.
func (m *Map) NextKey() int { return m.nextKey }

// Shape returns a copy of the shape with key k.
func (m *Map) Shape(k int) (Shape, error) {
	s, ok := m.shapes[k]
	if !ok {
		return Shape{}, fmt.Errorf("shape %d: %w", k, ErrUnknownShape)
	}
	return s.clone(), nil
}

// HasShape reports whether key k exists.
func (m *Map) HasShape(k int) bool {
	_, ok := m.shapes[k]
	return ok
}

// All iterates shapes in key order. The shapes must not be modified.
func (m *Map) All() iter.Seq2[int, Shape] {
	return func(yield func(int, Shape) bool) {
		for _, k := range m.keys {
			if !yield(k, *m.shapes[k]) {
				return
			}
		}
	}
}

// Region returns the bounds of every shape.
func (m *Map) Region() geom.Region {
	var r geom.Region
	for _, s := range m.shapes {
		r = r.Union(s.Bounds())
	}
	return r
}

// Lines returns every non-degenerate segment of every shape.
func (m *Map) Lines() []geom.Line {
	var out []geom.Line
	for _, k := range m.keys {
		for _, l := range m.shapes[k].Segments() {
			if l.Length() > 0 {
				out = append(out, l)
			}
		}
	}
	return out
}

// SetCentroid overrides the reference point of shape k. Isovists use the
// viewpoint.
func (m *Map) SetCentroid(k int, p geom.Point) error {
	s, ok := m.shapes[k]
	if !ok {
		return fmt.Errorf("shape %d: %w", k, ErrUnknownShape)
	}
	s.Centroid = p
	return nil
}

// =============================================================================
// Creation
// =============================================================================

// MakePointShape adds a point. Shapes made through the UI need the map to
// be editable and can be undone.
func (m *Map) MakePointShape(p geom.Point, throughUI bool) (int, error) {
	return m.makeUI(Point(p), throughUI)
}

// MakeLineShape adds a line. See MakePointShape for throughUI.
func (m *Map) MakeLineShape(l geom.Line, throughUI bool) (int, error) {
	return m.makeUI(Line(l), throughUI)
}

// MakePolyShape adds a polyline or polygon through points.
func (m *Map) MakePolyShape(points []geom.Point, open bool) int {
	return m.insert(Poly(points, open), -1)
}

// MakeShape adds s under key ref, or under the next key when ref < 0.
// Explicit keys advance the key counter past ref.
func (m *Map) MakeShape(s Shape, ref int) (int, error) {
	if ref >= 0 && m.HasShape(ref) {
		return -1, fmt.Errorf("shape %d: %w", ref, ErrKeyInUse)
	}
	return m.insert(s.clone(), ref), nil
}

func (m *Map) makeUI(s Shape, throughUI bool) (int, error) {
	if !throughUI {
		return m.insert(s, -1), nil
	}
	if !m.editable {
		return -1, ErrNotEditable
	}
	rec := m.beginUndo()
	k := m.insert(s, -1)
	rec.added = append(rec.added, k)
	return k, nil
}

func (m *Map) insert(s Shape, ref int) int {
	k := ref
	if k < 0 {
		k = m.nextKey
	}
	m.nextKey = max(m.nextKey, k+1)
	m.shapes[k] = &s
	i, _ := slices.BinarySearch(m.keys, k)
	m.keys = slices.Insert(m.keys, i, k)
	m.table.AddRow(k)
	if m.typ.IsLineMap() {
		if col, err := m.table.ColumnIndex(LineLengthColumn); err == nil {
			_ = m.table.SetValue(k, col, s.Length())
		}
	}
	if m.conns != nil {
		m.connectShape(k)
	}
	return k
}

// PolyBegin starts a polyline with its first segment and returns its key.
// Any polyline still under construction is kept as it is. The map must be
// editable.
func (m *Map) PolyBegin(l geom.Line) (int, error) {
	if !m.editable {
		return -1, ErrNotEditable
	}
	m.poly = m.insert(Shape{Kind: KindPolyline, Points: []geom.Point{l.A, l.B}, Centroid: l.Midpoint()}, -1)
	return m.poly, nil
}

// PolyAppend adds a vertex to the polyline under construction.
func (m *Map) PolyAppend(k int, p geom.Point) error {
	if !m.editable {
		return ErrNotEditable
	}
	if k != m.poly || m.poly < 0 {
		return ErrNoPolygon
	}
	s := m.shapes[k]
	s.Points = append(s.Points, p)
	s.Centroid = lengthCentroid(s.Segments())
	m.reconnect(k)
	return nil
}

// PolyClose finishes the polyline under construction as a polygon.
// Fewer than three vertices leave it as an open line.
func (m *Map) PolyClose(k int) error {
	if !m.editable {
		return ErrNotEditable
	}
	if k != m.poly || m.poly < 0 {
		return ErrNoPolygon
	}
	m.poly = -1
	s := m.shapes[k]
	*s = Poly(s.Points, len(s.Points) < 3)
	m.reconnect(k)
	rec := m.beginUndo()
	rec.added = append(rec.added, k)
	return nil
}

// PolyCancel discards the polyline under construction.
func (m *Map) PolyCancel(k int) error {
	if !m.editable {
		return ErrNotEditable
	}
	if k != m.poly || m.poly < 0 {
		return ErrNoPolygon
	}
	m.poly = -1
	m.remove(k, nil)
	return nil
}

// =============================================================================
// Removal
// =============================================================================

// RemoveShape deletes shape k with its attribute row, links and unlinks.
// The key is never handed out again.
func (m *Map) RemoveShape(k int) error {
	if !m.HasShape(k) {
		return fmt.Errorf("shape %d: %w", k, ErrUnknownShape)
	}
	m.remove(k, m.beginUndo())
	return nil
}

// RemoveSelected deletes every selected shape and returns how many went.
func (m *Map) RemoveSelected() (int, error) {
	if !m.editable {
		return 0, ErrNotEditable
	}
	keys := m.Selection()
	if len(keys) == 0 {
		return 0, nil
	}
	m.removeAll(keys, m.beginUndo())
	return len(keys), nil
}

func (m *Map) remove(k int, rec *undoRecord) {
	m.removeAll([]int{k}, rec)
}

// removeAll deletes existing shapes in keys with their rows, links and
// unlinks, compacting the key list and the table once.
func (m *Map) removeAll(keys []int, rec *undoRecord) {
	gone := make(map[int]bool, len(keys))
	for _, k := range keys {
		if _, ok := m.shapes[k]; !ok || gone[k] {
			continue
		}
		gone[k] = true
		if rec != nil {
			rec.capture(m, k)
		}
		if m.conns != nil {
			m.disconnectShape(k)
		}
		delete(m.shapes, k)
		delete(m.sel, k)
		if m.poly == k {
			m.poly = -1
		}
	}
	if len(gone) == 0 {
		return
	}
	purge := func(l Link) bool { return gone[l.A] || gone[l.B] }
	m.links = slices.DeleteFunc(m.links, purge)
	m.unlinks = slices.DeleteFunc(m.unlinks, purge)
	m.keys = slices.DeleteFunc(m.keys, func(k int) bool { return gone[k] })
	m.table.RemoveRows(keys)
}

// NearestShape returns the key of the shape closest to p, skipping
// exclude, or -1 for an empty map.
func (m *Map) NearestShape(p geom.Point, exclude int) int {
	best, bestDist := -1, 0.0
	for _, k := range m.keys {
		if k == exclude {
			continue
		}
		if d := m.shapes[k].Dist(p); best < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}
