package document

import (
	"errors"
	"fmt"
	"math"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/grid"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// ErrRowCount is returned by [Document.ImportTable] when the number of
// rows does not match the map.
var ErrRowCount = errors.New("row count does not match the map")

// Table returns the attribute table of a map.
func (d *Document) Table(r MapRef) (*attr.Table, error) {
	if r.Family == FamilyGrid {
		m, err := d.Grid(r.Index)
		if err != nil {
			return nil, err
		}
		return m.Table(), nil
	}
	m, err := d.ShapeMap(r.Family, r.Index)
	if err != nil {
		return nil, err
	}
	return m.Table(), nil
}

// DisplayedRef returns the displayed map of the front family.
func (d *Document) DisplayedRef() (MapRef, error) {
	f := d.view.Front()
	i := d.Displayed(f)
	if f == FamilyNone || i < 0 {
		return MapRef{}, ErrNoDisplayedMap
	}
	return MapRef{Family: f, Index: i}, nil
}

func (d *Document) displayedTable() (*attr.Table, error) {
	r, err := d.DisplayedRef()
	if err != nil {
		return nil, err
	}
	return d.Table(r)
}

// AddAttribute adds an empty column to the displayed map and displays it.
func (d *Document) AddAttribute(name string) (int, error) {
	t, err := d.displayedTable()
	if err != nil {
		return -1, err
	}
	if t.HasColumn(name) {
		return -1, fmt.Errorf("column %q: %w", name, attr.ErrDuplicateName)
	}
	i := t.InsertOrResetColumn(name)
	_ = t.SetDisplayColumn(i)
	return i, nil
}

// RemoveAttribute removes a column from the displayed map. Locked columns
// stay.
func (d *Document) RemoveAttribute(name string) error {
	t, err := d.displayedTable()
	if err != nil {
		return err
	}
	i, err := t.ColumnIndex(name)
	if err != nil {
		return err
	}
	return t.RemoveColumn(i)
}

// RenameAttribute renames a column of the displayed map.
func (d *Document) RenameAttribute(from, to string) error {
	t, err := d.displayedTable()
	if err != nil {
		return err
	}
	i, err := t.ColumnIndex(from)
	if err != nil {
		return err
	}
	return t.RenameColumn(i, to)
}

// ImportTable writes columns of values into a map. Rows are matched to
// records in table order; NaN leaves a value unset. Existing unlocked
// columns of the same name are overwritten. Nothing is written unless every
// column can be.
func (d *Document) ImportTable(r MapRef, header []string, rows [][]float64) error {
	t, err := d.Table(r)
	if err != nil {
		return err
	}
	if len(rows) != t.NumRows() {
		return fmt.Errorf("%d rows for %d records: %w", len(rows), t.NumRows(), ErrRowCount)
	}
	for _, name := range header {
		if i, err := t.ColumnIndex(name); err == nil {
			if c, _ := t.Column(i); c.Locked {
				return fmt.Errorf("column %q: %w", name, attr.ErrColumnLocked)
			}
		}
	}
	for n, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d values for %d columns", n+1, len(row), len(header))
		}
	}

	keys := t.Keys()
	for j, name := range header {
		col := t.InsertOrResetColumn(name)
		for n, row := range rows {
			if math.IsNaN(row[j]) {
				continue
			}
			if err := t.SetValue(keys[n], col, row[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunGridAnalysis runs k on the displayed grid map and displays the
// column it names.
func (d *Document) RunGridAnalysis(c comm.Communicator, k analysis.Kernel[*grid.PointMap], opts analysis.Options) (analysis.Result, error) {
	m, err := d.DisplayedGrid()
	if err != nil {
		return analysis.Result{}, err
	}
	res, err := k.Run(c, m, opts)
	if err != nil {
		return res, err
	}
	showColumn(m.Table(), res.DisplayColumn)
	return res, nil
}

// RunShapeAnalysis runs k on the displayed map of the front family, which
// must hold shapes, and displays the column it names.
func (d *Document) RunShapeAnalysis(c comm.Communicator, k analysis.Kernel[*shape.Map], opts analysis.Options) (analysis.Result, error) {
	m, err := d.frontShapeMap()
	if err != nil {
		return analysis.Result{}, err
	}
	res, err := k.Run(c, m, opts)
	if err != nil {
		return res, err
	}
	showColumn(m.Table(), res.DisplayColumn)
	return res, nil
}

// showColumn displays the named column, or nothing when it is missing.
func showColumn(t *attr.Table, name string) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		i = attr.DisplayNone
	}
	_ = t.SetDisplayColumn(i)
}
