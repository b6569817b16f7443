package grid

import (
	"fmt"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

// Snapshot is the serialisable form of a [PointMap]. Only cells with a
// non-zero state are stored.
type Snapshot struct {
	Name    string        `json:"name"`
	Region  geom.Region   `json:"region"`
	Spacing float64       `json:"spacing,omitempty"`
	Offset  geom.Point    `json:"offset"`
	Cells   []CellState   `json:"cells,omitempty"`
	Merges  []Pair        `json:"merges,omitempty"`
	Table   attr.Snapshot `json:"table"`
}

// CellState is one stored cell.
type CellState struct {
	Ref   PixelRef `json:"ref"`
	State State    `json:"state"`
}

// Snapshot captures the map. sorted is passed on to [attr.Table.Snapshot].
func (m *PointMap) Snapshot(sorted bool) Snapshot {
	s := Snapshot{
		Name:   m.Name,
		Region: m.region,
		Offset: m.offset,
		Merges: m.MergedPairs(),
		Table:  m.table.Snapshot(sorted),
	}
	if m.cells == nil {
		return s
	}
	s.Spacing = m.spacing
	for i, c := range m.cells {
		if c.State != 0 {
			s.Cells = append(s.Cells, CellState{Ref: Ref(i/m.rows, i%m.rows), State: c.State})
		}
	}
	return s
}

// FromSnapshot rebuilds a map written by Snapshot.
func FromSnapshot(s Snapshot) (*PointMap, error) {
	m := New(s.Name, s.Region)
	if s.Spacing > 0 {
		if err := m.SetGrid(s.Spacing, s.Offset); err != nil {
			return nil, err
		}
	}
	for _, cs := range s.Cells {
		if !m.Includes(cs.Ref) {
			return nil, fmt.Errorf("cell %v: outside %d x %d grid", cs.Ref, m.cols, m.rows)
		}
		m.cell(cs.Ref).State = cs.State
		if cs.State.Has(Filled) {
			m.filled++
		}
	}
	for _, p := range s.Merges {
		if !m.MergePixels(p.A, p.B) {
			return nil, fmt.Errorf("merge %v-%v: outside grid", p.A, p.B)
		}
	}
	t, err := attr.FromSnapshot(s.Table)
	if err != nil {
		return nil, err
	}
	m.table = t
	for _, ref := range m.FilledRefs() {
		m.table.AddRow(int(ref))
	}
	return m, nil
}
