package grid

import "slices"

// undoRecord holds the state that the last edit overwrote.
type undoRecord struct {
	cells  map[PixelRef]Cell
	merges []Pair
}

func (m *PointMap) beginUndo() *undoRecord {
	m.undo = &undoRecord{
		cells:  make(map[PixelRef]Cell),
		merges: slices.Clone(m.merges),
	}
	return m.undo
}

func (r *undoRecord) record(m *PointMap, ref PixelRef) {
	if _, ok := r.cells[ref]; !ok {
		r.cells[ref] = *m.cell(ref)
	}
}

// CanUndo reports whether there is an edit to revert.
func (m *PointMap) CanUndo() bool { return m.undo != nil }

// Undo reverts the last fill, clear or merge. Attribute rows of restored
// cells come back empty. Only one level is kept.
func (m *PointMap) Undo() bool {
	rec := m.undo
	if rec == nil {
		return false
	}
	m.undo = nil
	var gone []int
	for ref, prev := range rec.cells {
		c := m.cell(ref)
		switch {
		case c.Filled() && !prev.Filled():
			m.filled--
			gone = append(gone, int(ref))
		case !c.Filled() && prev.Filled():
			m.filled++
			m.table.AddRow(int(ref))
		}
		c.State = prev.State
	}
	m.table.RemoveRows(gone)
	for _, p := range m.merges {
		m.cell(p.A).Merge = NoPixel
		m.cell(p.B).Merge = NoPixel
	}
	for _, p := range rec.merges {
		m.cell(p.A).Merge = p.B
		m.cell(p.B).Merge = p.A
	}
	m.merges = rec.merges
	m.sel.clear()
	m.updateEdges()
	return true
}
