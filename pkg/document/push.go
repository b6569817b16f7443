package document

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// ObjectCountColumn counts the source records that met each destination
// record in [Document.PushValuesToLayer].
const ObjectCountColumn = "Object Count"

// ErrSelfPush is returned by [Document.PushValuesToLayer] when source and
// destination are the same map.
var ErrSelfPush = errors.New("cannot push values onto the same map")

// PushFunc combines the source values that meet one destination record.
type PushFunc int

const (
	PushMax PushFunc = iota
	PushMin
	PushAvg
	PushTotal
)

// ParsePushFunc maps "max", "min", "avg" and "total" to a PushFunc.
func ParsePushFunc(s string) (PushFunc, error) {
	switch strings.ToLower(s) {
	case "max", "":
		return PushMax, nil
	case "min":
		return PushMin, nil
	case "avg", "average", "mean":
		return PushAvg, nil
	case "tot", "total", "sum":
		return PushTotal, nil
	}
	return PushMax, fmt.Errorf("unknown push function %q", s)
}

// aggregate accumulates pushed values for one destination record.
type aggregate struct {
	min, max, sum float64
	n             int // set values
	count         int // every source record
}

func (a *aggregate) add(v float64) {
	a.count++
	if v == attr.Unset {
		return
	}
	if a.n == 0 {
		a.min, a.max = v, v
	} else {
		a.min, a.max = math.Min(a.min, v), math.Max(a.max, v)
	}
	a.sum += v
	a.n++
}

func (a *aggregate) result(fn PushFunc) float64 {
	if a.n == 0 {
		return attr.Unset
	}
	switch fn {
	case PushMin:
		return a.min
	case PushAvg:
		return a.sum / float64(a.n)
	case PushTotal:
		return a.sum
	}
	return a.max
}

// record is one entity of a map taking part in a push: a grid cell or a
// shape.
type record struct {
	key    int
	bounds geom.Region
	cell   bool
	shape  shape.Shape
}

// meets reports whether two records overlap. Cells meet shapes that cover
// their centre (areas) or cross their square (lines and points).
func meets(a, b record) bool {
	if !a.bounds.Overlaps(b.bounds) {
		return false
	}
	switch {
	case a.cell && b.cell:
		return a.bounds.Contains(b.bounds.Centre()) || b.bounds.Contains(a.bounds.Centre())
	case a.cell:
		return coversCell(b.shape, a.bounds)
	case b.cell:
		return coversCell(a.shape, b.bounds)
	}
	return a.shape.Intersects(b.shape)
}

func coversCell(s shape.Shape, cell geom.Region) bool {
	if s.IsPolygon() {
		return geom.Polygon(s.Points).Contains(cell.Centre())
	}
	return s.IntersectsRegion(cell)
}

// records lists the entities of a map with one attribute table.
func (d *Document) records(r MapRef) ([]record, *attr.Table, error) {
	switch r.Family {
	case FamilyGrid:
		m, err := d.Grid(r.Index)
		if err != nil {
			return nil, nil, err
		}
		refs := m.FilledRefs()
		out := make([]record, len(refs))
		for i, ref := range refs {
			out[i] = record{key: int(ref), bounds: m.CellRegion(ref), cell: true}
		}
		return out, m.Table(), nil
	case FamilyAxial, FamilyData:
		m, err := d.ShapeMap(r.Family, r.Index)
		if err != nil {
			return nil, nil, err
		}
		out := make([]record, 0, m.Len())
		for k, s := range m.All() {
			out = append(out, record{key: k, bounds: s.Bounds(), shape: s})
		}
		return out, m.Table(), nil
	}
	return nil, nil, fmt.Errorf("%s: %w", r, ErrUnknownMap)
}

// PushValuesToLayer copies column col of the source map onto the
// destination map, combining the values of every source record that meets
// a destination record with fn. The destination column takes the source
// column's name, prefixed "Copied " when that name belongs to a locked
// destination column or is "Object Count". With count set the number of
// meeting records goes to "Object Count". The destination map is displayed
// showing the new column.
func (d *Document) PushValuesToLayer(src MapRef, col string, dst MapRef, fn PushFunc, count bool) error {
	if src == dst {
		return ErrSelfPush
	}
	from, srcTable, err := d.records(src)
	if err != nil {
		return err
	}
	to, dstTable, err := d.records(dst)
	if err != nil {
		return err
	}
	srcCol, err := srcTable.ColumnIndex(col)
	if err != nil {
		return err
	}

	aggs := make([]aggregate, len(to))
	for _, s := range from {
		v, _ := srcTable.Value(s.key, srcCol)
		for i, t := range to {
			if meets(s, t) {
				aggs[i].add(v)
			}
		}
	}

	name := col
	if name == ObjectCountColumn {
		name = "Copied " + name
	} else if i, err := dstTable.ColumnIndex(name); err == nil {
		if c, _ := dstTable.Column(i); c.Locked {
			name = "Copied " + name
		}
	}
	dstCol := dstTable.InsertOrResetColumn(name)
	countCol := -1
	if count {
		countCol = dstTable.InsertOrResetColumn(ObjectCountColumn)
	}
	for i, t := range to {
		if v := aggs[i].result(fn); v != attr.Unset {
			if err := dstTable.SetValue(t.key, dstCol, v); err != nil {
				return err
			}
		}
		if countCol >= 0 {
			if err := dstTable.SetValue(t.key, countCol, float64(aggs[i].count)); err != nil {
				return err
			}
		}
	}
	_ = dstTable.SetDisplayColumn(dstCol)
	if err := d.SetDisplayed(dst.Family, dst.Index); err != nil {
		return err
	}
	d.view = d.view.Apply(ShowTop(dst.Family))
	return nil
}
