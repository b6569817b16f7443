package shape

import (
	"slices"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

// SetCurSel selects the shapes with the given keys. Unknown keys are
// ignored. Unless add is set the previous selection is replaced. It
// returns the selection size.
func (m *Map) SetCurSel(keys []int, add bool) int {
	if !add {
		clear(m.sel)
	}
	for _, k := range keys {
		if m.HasShape(k) {
			m.sel[k] = struct{}{}
		}
	}
	return len(m.sel)
}

// SetCurSelRegion selects every shape that touches r.
func (m *Map) SetCurSelRegion(r geom.Region, add bool) int {
	if !add {
		clear(m.sel)
	}
	for _, k := range m.keys {
		if m.shapes[k].IntersectsRegion(r) {
			m.sel[k] = struct{}{}
		}
	}
	return len(m.sel)
}

// ClearSel empties the selection and reports whether it held anything.
func (m *Map) ClearSel() bool {
	if len(m.sel) == 0 {
		return false
	}
	clear(m.sel)
	return true
}

// Selection returns the selected keys in ascending order.
func (m *Map) Selection() []int {
	out := make([]int, 0, len(m.sel))
	for k := range m.sel {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// HasSelection reports whether any shape is selected.
func (m *Map) HasSelection() bool { return len(m.sel) > 0 }

// IsSelected reports whether shape k is selected.
func (m *Map) IsSelected(k int) bool {
	_, ok := m.sel[k]
	return ok
}

// SelectionBounds returns the bounds of the selected shapes.
func (m *Map) SelectionBounds() geom.Region {
	var r geom.Region
	for k := range m.sel {
		r = r.Union(m.shapes[k].Bounds())
	}
	return r
}

// SelectedAverage returns the mean of column col over the selection.
func (m *Map) SelectedAverage(col int) float64 {
	return m.table.SelectedAverage(col, m.Selection())
}

// SelectionToLayer puts the selected shapes on a new visible layer and
// clears the selection.
func (m *Map) SelectionToLayer(name string) (int, error) {
	idx, err := attr.PushSelectionToLayer(m.table, name, m.Selection())
	if err != nil {
		return -1, err
	}
	clear(m.sel)
	return idx, nil
}

func (m *Map) singleSelected() (int, bool) {
	if len(m.sel) != 1 {
		return -1, false
	}
	for k := range m.sel {
		return k, true
	}
	return -1, false
}
