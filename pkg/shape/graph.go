package shape

import (
	"fmt"
	"slices"

	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

// ===== Connectivity =====

// adjacent reports whether two shapes connect geometrically under the
// map's type.
func (m *Map) adjacent(a, b *Shape) bool {
	switch m.typ {
	case Segment:
		return sharesEndpoint(a, b)
	default:
		return a.Intersects(*b)
	}
}

func sharesEndpoint(a, b *Shape) bool {
	if len(a.Points) < 2 || len(b.Points) < 2 {
		return false
	}
	ea := []geom.Point{a.Points[0], a.Points[len(a.Points)-1]}
	eb := []geom.Point{b.Points[0], b.Points[len(b.Points)-1]}
	for _, p := range ea {
		for _, q := range eb {
			if p.Eq(q) {
				return true
			}
		}
	}
	return false
}

// MakeConnections derives connectivity for every shape, applies the
// map's links and unlinks and refreshes the locked Connectivity column
// (and Line Length for line maps). It reports one step per shape; on
// cancellation the previous connectivity is kept.
func (m *Map) MakeConnections(c comm.Communicator) error {
	conns, err := m.buildConns(c)
	if err != nil {
		return err
	}
	m.conns = conns

	conn := m.table.GetOrInsertLockedColumn(ConnectivityColumn, "")
	length := -1
	if m.typ.IsLineMap() {
		length = m.table.GetOrInsertLockedColumn(LineLengthColumn, "")
	}
	for _, k := range m.keys {
		_ = m.table.SetValue(k, conn, float64(len(m.conns[k])))
		if length >= 0 {
			_ = m.table.SetValue(k, length, m.shapes[k].Length())
		}
	}
	return nil
}

// buildConns derives the adjacency lists without touching the map.
func (m *Map) buildConns(c comm.Communicator) (map[int][]int, error) {
	comm.SetTotal(c, len(m.keys))
	conns := make(map[int][]int, len(m.keys))
	for i, ka := range m.keys {
		a := m.shapes[ka]
		ba := a.Bounds()
		for _, kb := range m.keys[i+1:] {
			b := m.shapes[kb]
			if !ba.Overlaps(b.Bounds()) || !m.adjacent(a, b) {
				continue
			}
			conns[ka] = append(conns[ka], kb)
			conns[kb] = append(conns[kb], ka)
		}
		if err := comm.Step(c, 1); err != nil {
			return nil, err
		}
	}
	for _, l := range m.links {
		addConn(conns, l.A, l.B)
	}
	for _, l := range m.unlinks {
		removeConn(conns, l.A, l.B)
	}
	for k := range conns {
		slices.Sort(conns[k])
	}
	return conns, nil
}

// MakeShapeConnections builds connectivity without progress reporting and
// displays the Connectivity column.
func (m *Map) MakeShapeConnections() {
	_ = m.MakeConnections(nil)
	col, _ := m.table.ColumnIndex(ConnectivityColumn)
	_ = m.table.SetDisplayColumn(col)
}

// HasConnections reports whether connectivity has been built.
func (m *Map) HasConnections() bool { return m.conns != nil }

// Connections returns the keys connected to k in ascending order.
func (m *Map) Connections(k int) []int { return slices.Clone(m.conns[k]) }

// ConnectionPairs returns every connection once, ordered by key.
func (m *Map) ConnectionPairs() []Link {
	var out []Link
	for _, a := range m.keys {
		for _, b := range m.conns[a] {
			if a < b {
				out = append(out, Link{A: a, B: b})
			}
		}
	}
	return out
}

func addConn(conns map[int][]int, a, b int) bool {
	if slices.Contains(conns[a], b) {
		return false
	}
	conns[a] = append(conns[a], b)
	conns[b] = append(conns[b], a)
	slices.Sort(conns[a])
	slices.Sort(conns[b])
	return true
}

func removeConn(conns map[int][]int, a, b int) bool {
	i := slices.Index(conns[a], b)
	if i < 0 {
		return false
	}
	conns[a] = slices.Delete(conns[a], i, i+1)
	if j := slices.Index(conns[b], a); j >= 0 {
		conns[b] = slices.Delete(conns[b], j, j+1)
	}
	return true
}

func (m *Map) setConnectivity(keys ...int) {
	col, err := m.table.ColumnIndex(ConnectivityColumn)
	if err != nil {
		return
	}
	for _, k := range keys {
		_ = m.table.SetValue(k, col, float64(len(m.conns[k])))
	}
}

func (m *Map) connectShape(k int) {
	s := m.shapes[k]
	touched := []int{k}
	m.conns[k] = nil
	for _, o := range m.keys {
		if o == k {
			continue
		}
		if slices.Contains(m.unlinks, orderedLink(k, o)) {
			continue
		}
		other := m.shapes[o]
		if (s.Bounds().Overlaps(other.Bounds()) && m.adjacent(s, other)) || slices.Contains(m.links, orderedLink(k, o)) {
			addConn(m.conns, k, o)
			touched = append(touched, o)
		}
	}
	m.setConnectivity(touched...)
}

func (m *Map) disconnectShape(k int) {
	for _, o := range slices.Clone(m.conns[k]) {
		removeConn(m.conns, o, k)
		m.setConnectivity(o)
	}
	delete(m.conns, k)
}

func (m *Map) reconnect(k int) {
	if m.conns == nil {
		return
	}
	m.disconnectShape(k)
	m.connectShape(k)
}

// ===== Links =====

// Links returns the manual links.
func (m *Map) Links() []Link { return slices.Clone(m.links) }

// Unlinks returns the manual unlinks.
func (m *Map) Unlinks() []Link { return slices.Clone(m.unlinks) }

// LinkShapes links the single selected shape to the shape nearest p. It
// reports false when the selection is not exactly one shape or nothing
// changed.
func (m *Map) LinkShapes(p geom.Point) bool {
	k, ok := m.singleSelected()
	if !ok {
		return false
	}
	other := m.NearestShape(p, k)
	if other < 0 {
		return false
	}
	changed, err := m.LinkShapesFromKeys(k, other)
	return err == nil && changed
}

// UnlinkShapes removes the connection between the single selected shape and
// the shape nearest p.
func (m *Map) UnlinkShapes(p geom.Point) bool {
	k, ok := m.singleSelected()
	if !ok {
		return false
	}
	other := m.NearestShape(p, k)
	if other < 0 {
		return false
	}
	changed, err := m.UnlinkShapesFromKeys(k, other)
	return err == nil && changed
}

// LinkShapesFromKeys connects a and b. An unlink between them is removed
// instead of adding a link. It reports whether connectivity changed.
func (m *Map) LinkShapesFromKeys(a, b int) (bool, error) {
	if err := m.checkPair(a, b); err != nil {
		return false, err
	}
	l := orderedLink(a, b)
	if i := slices.Index(m.unlinks, l); i >= 0 {
		m.unlinks = slices.Delete(m.unlinks, i, i+1)
	} else {
		if slices.Contains(m.links, l) || (m.conns != nil && slices.Contains(m.conns[a], b)) {
			return false, nil
		}
		m.links = append(m.links, l)
	}
	if m.conns != nil {
		addConn(m.conns, a, b)
		m.setConnectivity(a, b)
	}
	return true, nil
}

// UnlinkShapesFromKeys disconnects a and b. A link between them is removed
// instead of adding an unlink.
func (m *Map) UnlinkShapesFromKeys(a, b int) (bool, error) {
	if err := m.checkPair(a, b); err != nil {
		return false, err
	}
	l := orderedLink(a, b)
	if i := slices.Index(m.links, l); i >= 0 {
		m.links = slices.Delete(m.links, i, i+1)
	} else {
		if slices.Contains(m.unlinks, l) {
			return false, nil
		}
		if m.conns != nil && !slices.Contains(m.conns[a], b) {
			return false, nil
		}
		m.unlinks = append(m.unlinks, l)
	}
	if m.conns != nil {
		removeConn(m.conns, a, b)
		m.setConnectivity(a, b)
	}
	return true, nil
}

func (m *Map) checkPair(a, b int) error {
	if !m.HasShape(a) {
		return fmt.Errorf("shape %d: %w", a, ErrUnknownShape)
	}
	if !m.HasShape(b) {
		return fmt.Errorf("shape %d: %w", b, ErrUnknownShape)
	}
	if a == b {
		return fmt.Errorf("shape %d: %w", a, ErrSelfLink)
	}
	return nil
}

// LinkLines returns one line per link, between the shapes' centroids.
func (m *Map) LinkLines() []geom.Line {
	out := make([]geom.Line, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, geom.Line{A: m.shapes[l.A].Centroid, B: m.shapes[l.B].Centroid})
	}
	return out
}

// UnlinkPoints returns where each unlinked pair of lines crosses.
func (m *Map) UnlinkPoints() []geom.Point {
	out := make([]geom.Point, 0, len(m.unlinks))
	for _, l := range m.unlinks {
		a, b := m.shapes[l.A], m.shapes[l.B]
		if p, ok := a.AsLine().Intersection(b.AsLine()); ok {
			out = append(out, p)
			continue
		}
		out = append(out, a.Centroid.Add(b.Centroid).Scale(0.5))
	}
	return out
}
