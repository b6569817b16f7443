package grid

import (
	"slices"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

type selectMode int

const (
	selectNone selectMode = iota
	selectSingle
	selectCompound
)

type selection struct {
	mode   selectMode
	refs   map[PixelRef]struct{}
	bl, tr PixelRef // cell box of the last single selection
	bounds geom.Region
}

func newSelection() selection {
	return selection{refs: make(map[PixelRef]struct{}), bl: NoPixel, tr: NoPixel}
}

func (s *selection) clear() {
	s.mode = selectNone
	clear(s.refs)
	s.bounds = geom.Region{}
}

// SetCurSel selects the filled cells inside r, replacing the selection
// unless add is set and a selection exists. It returns the region spanned
// by the centres of the corner cells of r.
func (m *PointMap) SetCurSel(r geom.Region, add bool) geom.Region {
	if m.cells == nil {
		return geom.Region{}
	}
	if m.sel.mode == selectNone {
		add = false
	} else if !add {
		m.sel.clear()
	}
	bl, tr := m.Pixelate(r.Min, true), m.Pixelate(r.Max, true)
	m.sel.bl, m.sel.tr = bl, tr
	if add {
		m.sel.bounds = m.sel.bounds.Union(r)
	} else {
		m.sel.bounds = r
	}
	for x := bl.X(); x <= tr.X(); x++ {
		for y := bl.Y(); y <= tr.Y(); y++ {
			ref := Ref(x, y)
			if !m.cell(ref).Filled() {
				continue
			}
			m.sel.refs[ref] = struct{}{}
			if add {
				m.sel.mode = selectCompound
			} else {
				m.sel.mode = selectSingle
			}
		}
	}
	return geom.Rect(m.Depixelate(bl), m.Depixelate(tr))
}

// SetCurSelRefs selects the given filled cells as a compound selection.
func (m *PointMap) SetCurSelRefs(refs []PixelRef, add bool) {
	if !add {
		m.sel.clear()
	}
	for _, ref := range refs {
		if m.Includes(ref) && m.cell(ref).Filled() {
			m.sel.refs[ref] = struct{}{}
			m.sel.bounds = m.sel.bounds.Union(m.CellRegion(ref))
			m.sel.mode = selectCompound
		}
	}
}

// ClearSel empties the selection. It reports whether there was one.
func (m *PointMap) ClearSel() bool {
	if m.sel.mode == selectNone && len(m.sel.refs) == 0 {
		return false
	}
	m.sel.clear()
	return true
}

// Selection returns the selected cells in ascending order.
func (m *PointMap) Selection() []PixelRef {
	out := make([]PixelRef, 0, len(m.sel.refs))
	for r := range m.sel.refs {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// SelectionCount returns the number of selected cells.
func (m *PointMap) SelectionCount() int { return len(m.sel.refs) }

// IsSelected reports whether ref is selected.
func (m *PointMap) IsSelected(ref PixelRef) bool {
	_, ok := m.sel.refs[ref]
	return ok
}

// SelectionBounds returns the union of the regions used to select.
func (m *PointMap) SelectionBounds() geom.Region { return m.sel.bounds }

// SelectedAverage returns the mean of column col over the selection.
func (m *PointMap) SelectedAverage(col int) float64 {
	return m.table.SelectedAverage(col, refKeys(m.Selection()))
}

// SelectionToLayer puts the selected cells on a new visible layer named
// name and clears the selection.
func (m *PointMap) SelectionToLayer(name string) (int, error) {
	idx, err := attr.PushSelectionToLayer(m.table, name, refKeys(m.Selection()))
	if err != nil {
		return -1, err
	}
	m.sel.clear()
	return idx, nil
}

func refKeys(refs []PixelRef) []int {
	keys := make([]int, len(refs))
	for i, r := range refs {
		keys[i] = int(r)
	}
	return keys
}
