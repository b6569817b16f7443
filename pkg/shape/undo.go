package shape

import "slices"

// undoRecord holds what the last structural edit changed.
type undoRecord struct {
	added   []int
	removed []removedShape
	links   []Link
	unlinks []Link
}

type removedShape struct {
	key    int
	shape  Shape
	layers uint64
	values []float64
}

func (m *Map) beginUndo() *undoRecord {
	m.undo = &undoRecord{links: slices.Clone(m.links), unlinks: slices.Clone(m.unlinks)}
	return m.undo
}

func (r *undoRecord) capture(m *Map, k int) {
	rs := removedShape{key: k, shape: m.shapes[k].clone()}
	if row, err := m.table.Row(k); err == nil {
		rs.layers = row.Layers()
		rs.values = make([]float64, m.table.NumColumns())
		for i := range rs.values {
			rs.values[i] = row.Value(i)
		}
	}
	r.removed = append(r.removed, rs)
}

// CanUndo reports whether there is an edit to revert.
func (m *Map) CanUndo() bool { return m.undo != nil }

// Undo reverts the last shape creation or removal, restoring removed
// shapes under their old keys with their attribute values and the links
// as they were. Only one level is kept.
func (m *Map) Undo() bool {
	rec := m.undo
	if rec == nil {
		return false
	}
	m.undo = nil
	m.removeAll(rec.added, nil)
	for _, rs := range slices.Backward(rec.removed) {
		m.insert(rs.shape, rs.key)
		if rs.values != nil {
			_ = m.table.SetRowLayers(rs.key, rs.layers)
			for col, v := range rs.values {
				if col < m.table.NumColumns() {
					_ = m.table.SetValue(rs.key, col, v)
				}
			}
		}
	}
	m.links, m.unlinks = rec.links, rec.unlinks
	clear(m.sel)
	if m.conns != nil {
		_ = m.MakeConnections(nil)
	}
	return true
}
