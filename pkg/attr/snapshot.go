package attr

import (
	"fmt"
)

// Snapshot is the serialisable form of a [Table].
type Snapshot struct {
	Columns []Column      `json:"columns"`
	Rows    []RowSnapshot `json:"rows"`
	Layers  *LayerManager `json:"layers"`
	Display int           `json:"display"`
}

// RowSnapshot is the serialisable form of a [Row].
type RowSnapshot struct {
	Key    int       `json:"key"`
	Layers uint64    `json:"layers"`
	Values []float64 `json:"values"`
}

// Snapshot captures the table. With sorted set, columns are emitted in
// name order (the legacy file layout) and the display column is remapped
// to match; the result is identical for identical tables.
func (t *Table) Snapshot(sorted bool) Snapshot {
	order := make([]int, len(t.columns))
	for i := range order {
		order[i] = i
	}
	if sorted {
		order = t.SortedColumnOrder()
	}

	s := Snapshot{
		Columns: make([]Column, len(order)),
		Rows:    make([]RowSnapshot, len(t.rows)),
		Layers:  t.layers,
		Display: t.display,
	}
	t.EnsureStats()
	for i, c := range order {
		s.Columns[i] = *t.columns[c]
	}
	for i, r := range t.rows {
		vals := make([]float64, len(order))
		for j, c := range order {
			vals[j] = r.values[c]
		}
		s.Rows[i] = RowSnapshot{Key: r.key, Layers: r.layers, Values: vals}
	}
	if sorted {
		s.Display = t.SortedColumnIndex(t.display)
	}
	return s
}

// FromSnapshot rebuilds a table. It fails if a row's value count does not
// match the column count or a key repeats.
func FromSnapshot(s Snapshot) (*Table, error) {
	t := New()
	if s.Layers != nil {
		t.layers = s.Layers
	}
	for _, c := range s.Columns {
		col := c
		t.columns = append(t.columns, &col)
	}
	for _, rs := range s.Rows {
		if len(rs.Values) != len(t.columns) {
			return nil, fmt.Errorf("row %d: %d values for %d columns", rs.Key, len(rs.Values), len(t.columns))
		}
		if t.HasRow(rs.Key) {
			return nil, fmt.Errorf("row %d: duplicate key", rs.Key)
		}
		r := t.AddRow(rs.Key)
		r.layers = rs.Layers | 1
		copy(r.values, rs.Values)
	}
	if err := t.SetDisplayColumn(s.Display); err != nil {
		t.display = DisplayNone
	}
	t.InvalidateStats(-1)
	t.EnsureStats()
	return t, nil
}
