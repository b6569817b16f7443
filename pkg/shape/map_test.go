package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

func TestKeysAreNeverReused(t *testing.T) {
	m := New("points", Data)
	for i := range 3 {
		k, err := m.MakePointShape(geom.Pt(float64(i), 0), false)
		require.NoError(t, err)
		assert.Equal(t, i, k)
	}

	require.NoError(t, m.RemoveShape(1))
	_, err := m.Shape(1)
	assert.ErrorIs(t, err, ErrUnknownShape)
	assert.ErrorIs(t, m.RemoveShape(1), ErrUnknownShape)
	assert.False(t, m.Table().HasRow(1))

	k, err := m.MakePointShape(geom.Pt(9, 9), false)
	require.NoError(t, err)
	assert.Equal(t, 3, k)

	k, err = m.MakeShape(Point(geom.Pt(1, 1)), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, k)

	_, err = m.MakeShape(Point(geom.Pt(1, 1)), 0)
	assert.ErrorIs(t, err, ErrKeyInUse)

	_, err = m.MakeShape(Point(geom.Pt(1, 1)), 10)
	require.NoError(t, err)
	assert.Equal(t, 11, m.NextKey())
	assert.Equal(t, []int{0, 1, 2, 3, 10}, m.Keys())
}

func TestMakeThroughUIRequiresEditable(t *testing.T) {
	m := New("data", Data)
	_, err := m.MakeLineShape(geom.Ln(0, 0, 1, 1), true)
	assert.ErrorIs(t, err, ErrNotEditable)
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.SetEditable(true))
	k, err := m.MakeLineShape(geom.Ln(0, 0, 1, 1), true)
	require.NoError(t, err)
	assert.True(t, m.CanUndo())

	assert.True(t, m.Undo())
	assert.False(t, m.HasShape(k))
	assert.False(t, m.CanUndo())

	assert.ErrorIs(t, New("seg", Segment).SetEditable(true), ErrNotEditable)
}

func TestRemoveSelectedAndUndo(t *testing.T) {
	m := New("data", Data)
	col := m.Table().InsertOrResetColumn("Flow")
	for i := range 3 {
		k := m.MakePolyShape([]geom.Point{geom.Pt(float64(i), 0), geom.Pt(float64(i), 1)}, true)
		require.NoError(t, m.Table().SetValue(k, col, float64(10+i)))
	}
	m.SetCurSel([]int{0, 2}, false)

	_, err := m.RemoveSelected()
	assert.ErrorIs(t, err, ErrNotEditable)

	require.NoError(t, m.SetEditable(true))
	n, err := m.RemoveSelected()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1}, m.Keys())
	assert.False(t, m.HasSelection())

	require.True(t, m.Undo())
	assert.Equal(t, []int{0, 1, 2}, m.Keys())
	v, err := m.Table().Value(2, col)
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)
	assert.Equal(t, 3, m.NextKey())
}

func TestPolyEditingRequiresEditable(t *testing.T) {
	for _, typ := range []Type{Data, Segment} {
		m := New("m", typ)
		_, err := m.PolyBegin(geom.Ln(0, 0, 1, 0))
		assert.ErrorIs(t, err, ErrNotEditable, "%v", typ)
		assert.Equal(t, 0, m.Len(), "%v", typ)
	}

	m := New("data", Data)
	require.NoError(t, m.SetEditable(true))
	k, err := m.PolyBegin(geom.Ln(0, 0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, m.SetEditable(false))
	assert.ErrorIs(t, m.PolyAppend(k, geom.Pt(1, 1)), ErrNotEditable)
	assert.ErrorIs(t, m.PolyClose(k), ErrNotEditable)
	assert.ErrorIs(t, m.PolyCancel(k), ErrNotEditable)
	assert.False(t, m.CanUndo())
}

func TestPolyEditing(t *testing.T) {
	m := New("data", Data)
	require.NoError(t, m.SetEditable(true))
	k, err := m.PolyBegin(geom.Ln(0, 0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, m.PolyAppend(k, geom.Pt(1, 1)))
	require.NoError(t, m.PolyClose(k))

	s, err := m.Shape(k)
	require.NoError(t, err)
	assert.True(t, s.IsPolygon())
	assert.InDelta(t, 0.5, s.Area(), 1e-12)
	assert.ErrorIs(t, m.PolyAppend(k, geom.Pt(2, 2)), ErrNoPolygon)

	k2, err := m.PolyBegin(geom.Ln(5, 5, 6, 6))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	require.NoError(t, m.PolyCancel(k2))
	assert.Equal(t, 1, m.Len())
	assert.ErrorIs(t, m.PolyCancel(k2), ErrNoPolygon)
}

func TestSelectionRegionAndLayer(t *testing.T) {
	m := New("data", Data)
	m.MakePolyShape([]geom.Point{geom.Pt(0, 0), geom.Pt(1, 0)}, true)
	m.MakePolyShape([]geom.Point{geom.Pt(5, 5), geom.Pt(6, 6)}, true)
	m.MakePolyShape([]geom.Point{geom.Pt(0, 2), geom.Pt(2, 2), geom.Pt(2, 4), geom.Pt(0, 4)}, false)

	n := m.SetCurSelRegion(geom.Rect(geom.Pt(-1, -1), geom.Pt(1.5, 3)), false)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{0, 2}, m.Selection())
	b := m.SelectionBounds()
	assert.Equal(t, geom.Pt(0, 0), b.Min)
	assert.Equal(t, geom.Pt(2, 4), b.Max)

	idx, err := m.SelectionToLayer("picked")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.False(t, m.HasSelection())
	r, err := m.Table().Row(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.Layers())

	m.SetCurSel([]int{1}, false)
	_, err = m.SelectionToLayer("picked")
	assert.ErrorIs(t, err, attr.ErrDuplicateName)
	assert.True(t, m.ClearSel())
	assert.False(t, m.ClearSel())
}

func TestShapeDistAndIntersects(t *testing.T) {
	sq := Poly([]geom.Point{geom.Pt(0, 0), geom.Pt(2, 0), geom.Pt(2, 2), geom.Pt(0, 2)}, false)
	assert.Equal(t, 0.0, sq.Dist(geom.Pt(1, 1)))
	assert.InDelta(t, 1.0, sq.Dist(geom.Pt(3, 1)), 1e-12)
	assert.True(t, sq.Intersects(Point(geom.Pt(1, 1))))
	assert.True(t, sq.Intersects(Line(geom.Ln(-1, 1, 3, 1))))
	assert.False(t, sq.Intersects(Line(geom.Ln(3, 0, 3, 2))))
	assert.Equal(t, geom.Pt(1, 1), sq.Centroid)
	assert.InDelta(t, 8.0, sq.Length(), 1e-12)

	assert.True(t, Poly([]geom.Point{geom.Pt(0, 0), geom.Pt(1, 0)}, false).IsLine())
	assert.True(t, Poly([]geom.Point{geom.Pt(0, 0), geom.Pt(1, 0), geom.Pt(1, 1)}, true).IsPolyline())
	assert.Equal(t, KindPoint, Poly([]geom.Point{geom.Pt(0, 0)}, true).Kind)
}

func TestParseType(t *testing.T) {
	for typ := Drawing; typ <= Convex; typ++ {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseType("tower")
	assert.Error(t, err)
	assert.True(t, Segment.IsLineMap())
	assert.False(t, Convex.IsLineMap())
	assert.False(t, Data.IsGraph())
}
