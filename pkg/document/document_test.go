package document

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/bsp"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// hPlan returns a document with one drawing layer of three lines in an H.
func hPlan(t *testing.T) *Document {
	t.Helper()
	d := New("h")
	_, err := d.ImportShapes("plan.dxf", "walls", []shape.Shape{
		shape.Line(geom.Ln(0, 0, 0, 4)),
		shape.Line(geom.Ln(0, 2, 4, 2)),
		shape.Line(geom.Ln(4, 0, 4, 4)),
	})
	require.NoError(t, err)
	return d
}

func TestImportShapes(t *testing.T) {
	d := hPlan(t)
	assert.True(t, d.State().Has(LineData))
	assert.Equal(t, geom.Pt(0, 0), d.Region().Min)
	assert.Equal(t, geom.Pt(4, 4), d.Region().Max)
	require.Len(t, d.DrawingGroups(), 1)
	assert.Len(t, d.ShownLines(), 3)

	require.NoError(t, d.SetDrawingShown(0, 0, false))
	assert.Empty(t, d.ShownLines())
	assert.ErrorIs(t, d.SetDrawingShown(0, 1, true), ErrUnknownMap)
}

func TestSetViewClassNeedsMembers(t *testing.T) {
	d := hPlan(t)
	assert.False(t, d.SetViewClass(ShowHideGrid))
	assert.Equal(t, View{}, d.View())

	d.AddGrid("grid")
	assert.Equal(t, FamilyGrid, d.View().Front())
	assert.True(t, d.SetViewClass(ShowHideGrid))
	assert.Equal(t, FamilyNone, d.View().Front())
}

func TestConvertDrawingToAxial(t *testing.T) {
	d := hPlan(t)
	ref, err := d.Convert(nil, ConvertOptions{Name: "axial", To: shape.Axial, CopyAttributes: true})
	require.NoError(t, err)
	assert.Equal(t, MapRef{Family: FamilyAxial, Index: 0}, ref)
	assert.True(t, d.State().Has(ShapeGraphs))
	assert.Equal(t, FamilyAxial, d.View().Front())

	m, err := d.DisplayedShapeMap(FamilyAxial)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Table().NumRows())
	idx, err := m.Table().ColumnIndex(shape.ConnectivityColumn)
	require.NoError(t, err)
	col, err := m.Table().Column(idx)
	require.NoError(t, err)
	assert.True(t, col.Locked)
	assert.Equal(t, []shape.Link{{A: 0, B: 1}, {A: 1, B: 2}}, m.ConnectionPairs())

	seg, err := d.Convert(nil, ConvertOptions{To: shape.Segment, From: FamilyAxial, RemoveSource: true})
	require.NoError(t, err)
	assert.Equal(t, MapRef{Family: FamilyAxial, Index: 0}, seg)
	assert.Equal(t, 1, d.Count(FamilyAxial))
	g, err := d.DisplayedShapeMap(FamilyAxial)
	require.NoError(t, err)
	assert.Equal(t, shape.Segment, g.Type())
	assert.False(t, d.IsEditable())
}

func TestConvertCancelledLeavesDocument(t *testing.T) {
	d := hPlan(t)
	stop := comm.FromFunc(func(comm.Progress) bool { return false })
	_, err := d.Convert(stop, ConvertOptions{To: shape.Axial})
	assert.ErrorIs(t, err, comm.ErrCancelled)
	assert.Equal(t, 0, d.Count(FamilyAxial))
	assert.False(t, d.State().Has(ShapeGraphs))
	assert.Equal(t, View{}, d.View())
}

func TestConvertToDataAndDrawing(t *testing.T) {
	d := hPlan(t)
	ref, err := d.Convert(nil, ConvertOptions{Name: "lines", To: shape.Data})
	require.NoError(t, err)
	assert.Equal(t, FamilyData, ref.Family)
	assert.Empty(t, d.ShownLines(), "converted drawings are hidden")

	ref, err = d.Convert(nil, ConvertOptions{Name: "back", To: shape.Drawing, From: FamilyData})
	require.NoError(t, err)
	assert.Equal(t, FamilyNone, ref.Family)
	groups := d.DrawingGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, ConvertedGroup, groups[1].Name)
	assert.Len(t, d.ShownLines(), 3)

	_, err = d.Convert(nil, ConvertOptions{To: shape.Drawing})
	assert.ErrorIs(t, err, ErrWrongFamily)
}

func TestRemoveDisplayedMap(t *testing.T) {
	d := hPlan(t)
	assert.ErrorIs(t, d.RemoveDisplayedMap(), ErrNoDisplayedMap)

	d.AddGrid("grid")
	_, err := d.Convert(nil, ConvertOptions{To: shape.Axial})
	require.NoError(t, err)
	assert.Equal(t, makeView(FamilyAxial, FamilyGrid), d.View())

	require.NoError(t, d.RemoveDisplayedMap())
	assert.Equal(t, 0, d.Count(FamilyAxial))
	assert.Equal(t, -1, d.Displayed(FamilyAxial))
	assert.False(t, d.State().Has(ShapeGraphs))
	assert.Equal(t, makeView(FamilyGrid, FamilyNone), d.View())
	assert.False(t, d.SetViewClass(ShowHideAxial))
}

func TestDisplayingAnotherMemberClearsSelection(t *testing.T) {
	d := New("doc")
	first := d.AddDataMap("first")
	second := d.AddDataMap("second")
	m, err := d.ShapeMap(FamilyData, second)
	require.NoError(t, err)
	k, err := m.MakePointShape(geom.Pt(1, 1), true)
	require.NoError(t, err)
	m.SetCurSel([]int{k}, false)

	require.NoError(t, d.SetDisplayed(FamilyData, first))
	assert.False(t, m.HasSelection())
	assert.ErrorIs(t, d.SetDisplayed(FamilyData, 5), ErrUnknownMap)
}

func TestUndoDispatchesToFrontMap(t *testing.T) {
	d := New("doc")
	assert.False(t, d.CanUndo())
	i := d.AddDataMap("edits")
	assert.True(t, d.IsEditable())
	m, err := d.ShapeMap(FamilyData, i)
	require.NoError(t, err)
	k, err := m.MakeLineShape(geom.Ln(0, 0, 1, 1), true)
	require.NoError(t, err)

	assert.True(t, d.CanUndo())
	assert.True(t, d.Undo())
	assert.False(t, m.HasShape(k))
	assert.False(t, d.Undo())
}

func TestIsovistTriState(t *testing.T) {
	empty := New("empty")
	got, err := empty.MakeIsovist(nil, geom.Pt(1, 1), 0, 0)
	assert.Equal(t, IsovistFailed, got)
	assert.ErrorIs(t, err, bsp.ErrEmpty)

	d := hPlan(t)
	got, err = d.MakeIsovist(nil, geom.Pt(2, 3), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, IsovistCreated, got)

	got, err = d.MakeIsovist(nil, geom.Pt(2, 1), 0, math.Pi)
	require.NoError(t, err)
	assert.Equal(t, IsovistAppended, got)

	ref, ok := d.FindMap(FamilyData, IsovistMap)
	require.True(t, ok)
	assert.Equal(t, ref.Index, d.Displayed(FamilyData))
	assert.Equal(t, FamilyData, d.View().Front())
	m, err := d.ShapeMap(FamilyData, ref.Index)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	s, err := m.Shape(0)
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(2, 3), s.Centroid)
	for _, name := range bsp.Columns {
		assert.True(t, m.Table().HasColumn(name), name)
	}
	area, err := m.Table().ColumnIndex(bsp.ColArea)
	require.NoError(t, err)
	v, err := m.Table().Value(0, area)
	require.NoError(t, err)
	// the H leaves the top half open to the bounding box
	assert.InDelta(t, 8.0, v, 1e-4)
}

func TestMakeIsovistPath(t *testing.T) {
	d := hPlan(t)
	d.AddGrid("grid")
	_, err := d.MakeIsovistPath(nil, math.Pi)
	assert.ErrorIs(t, err, ErrWrongFamily)

	i := d.AddDataMap("route")
	m, err := d.ShapeMap(FamilyData, i)
	require.NoError(t, err)
	_, err = m.MakeLineShape(geom.Ln(1, 1, 3, 1), false)
	require.NoError(t, err)
	k := m.MakePolyShape([]geom.Point{geom.Pt(1, 3), geom.Pt(2, 3), geom.Pt(3, 3.5)}, true)

	got, err := d.MakeIsovistPath(nil, math.Pi/2)
	assert.Equal(t, IsovistFailed, got)
	assert.ErrorIs(t, err, ErrNoSelection)

	m.SetCurSel([]int{0, k}, false)
	got, err = d.MakeIsovistPath(nil, 2*math.Pi)
	require.NoError(t, err)
	assert.Equal(t, IsovistCreated, got)
	iso, err := d.DisplayedShapeMap(FamilyData)
	require.NoError(t, err)
	assert.Equal(t, IsovistMap, iso.Name)
	assert.Equal(t, 3, iso.Len())
}

// filledGrid adds a grid of unit cells over the document region and
// fills every cell.
func filledGrid(t *testing.T, d *Document) *grid.PointMap {
	t.Helper()
	pm, err := d.Grid(d.AddGrid("grid"))
	require.NoError(t, err)
	require.NoError(t, pm.SetGrid(1, geom.Point{}))
	ok, err := pm.MakePoints(geom.Pt(2, 2), grid.FillFull, nil)
	require.NoError(t, err)
	require.True(t, ok)
	return pm
}

func TestPushValuesToGrid(t *testing.T) {
	d := hPlan(t)
	pm := filledGrid(t, d)
	require.Equal(t, 25, pm.FilledCount())

	zi := d.AddDataMap("zones")
	zones, err := d.ShapeMap(FamilyData, zi)
	require.NoError(t, err)
	a := zones.MakePolyShape([]geom.Point{geom.Pt(0.5, 0.5), geom.Pt(3.5, 0.5), geom.Pt(3.5, 3.5), geom.Pt(0.5, 3.5)}, false)
	b := zones.MakePolyShape([]geom.Point{geom.Pt(2.5, 2.5), geom.Pt(4.5, 2.5), geom.Pt(4.5, 4.5), geom.Pt(2.5, 4.5)}, false)
	col := zones.Table().InsertOrResetColumn("Zone")
	require.NoError(t, zones.Table().SetValue(a, col, 7))
	require.NoError(t, zones.Table().SetValue(b, col, 3))

	src := MapRef{Family: FamilyData, Index: zi}
	dst := MapRef{Family: FamilyGrid, Index: 0}
	assert.ErrorIs(t, d.PushValuesToLayer(src, "Zone", src, PushMax, false), ErrSelfPush)
	require.NoError(t, d.PushValuesToLayer(src, "Zone", dst, PushTotal, true))
	assert.Equal(t, FamilyGrid, d.View().Front())

	cell := func(x, y int, name string) float64 {
		i, err := pm.Table().ColumnIndex(name)
		require.NoError(t, err)
		v, err := pm.Table().Value(int(grid.Ref(x, y)), i)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, 10.0, cell(3, 3, "Zone"))
	assert.Equal(t, 7.0, cell(1, 1, "Zone"))
	assert.Equal(t, 3.0, cell(4, 4, "Zone"))
	assert.Equal(t, attr.Unset, cell(0, 0, "Zone"))
	assert.Equal(t, 2.0, cell(3, 3, ObjectCountColumn))
	assert.Equal(t, 0.0, cell(0, 0, ObjectCountColumn))

	require.NoError(t, d.PushValuesToLayer(src, "Zone", dst, PushMax, false))
	assert.Equal(t, 7.0, cell(3, 3, "Zone"))
	require.NoError(t, d.PushValuesToLayer(src, "Zone", dst, PushAvg, false))
	assert.Equal(t, 5.0, cell(3, 3, "Zone"))

	// and back: each zone collects the cells it covers
	require.NoError(t, d.PushValuesToLayer(dst, ObjectCountColumn, src, PushTotal, false))
	i, err := zones.Table().ColumnIndex("Copied " + ObjectCountColumn)
	require.NoError(t, err)
	v, err := zones.Table().Value(a, i)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v, "nine cells, one of them counted twice")
}

func TestAttributesOnDisplayedMap(t *testing.T) {
	d := New("doc")
	_, err := d.AddAttribute("x")
	assert.ErrorIs(t, err, ErrNoDisplayedMap)

	d.AddDataMap("data")
	i, err := d.AddAttribute("Flow")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	_, err = d.AddAttribute("Flow")
	assert.ErrorIs(t, err, attr.ErrDuplicateName)
	require.NoError(t, d.RenameAttribute("Flow", "Traffic"))
	assert.ErrorIs(t, d.RemoveAttribute("Flow"), attr.ErrUnknownColumn)
	require.NoError(t, d.RemoveAttribute("Traffic"))
}

func TestImportTable(t *testing.T) {
	d := hPlan(t)
	ref, err := d.Convert(nil, ConvertOptions{To: shape.Axial})
	require.NoError(t, err)

	err = d.ImportTable(ref, []string{"Flow"}, [][]float64{{1}})
	assert.ErrorIs(t, err, ErrRowCount)
	err = d.ImportTable(ref, []string{shape.ConnectivityColumn}, [][]float64{{1}, {2}, {3}})
	assert.ErrorIs(t, err, attr.ErrColumnLocked)

	require.NoError(t, d.ImportTable(ref, []string{"Flow"}, [][]float64{{1}, {math.NaN()}, {3}}))
	tbl, err := d.Table(ref)
	require.NoError(t, err)
	col, err := tbl.ColumnIndex("Flow")
	require.NoError(t, err)
	for k, want := range []float64{1, attr.Unset, 3} {
		v, err := tbl.Value(k, col)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestRunAnalysis(t *testing.T) {
	d := hPlan(t)
	_, err := d.RunShapeAnalysis(nil, analysis.Integration{}, analysis.Options{})
	assert.ErrorIs(t, err, ErrWrongFamily)

	_, err = d.Convert(nil, ConvertOptions{To: shape.Axial})
	require.NoError(t, err)
	opts := analysis.Options{Mode: analysis.ModeIntegration}
	opts.SetDefaults()
	res, err := d.RunShapeAnalysis(nil, analysis.Integration{}, opts)
	require.NoError(t, err)
	assert.True(t, res.Completed)

	m, err := d.DisplayedShapeMap(FamilyAxial)
	require.NoError(t, err)
	want, err := m.Table().ColumnIndex(analysis.ColIntegration)
	require.NoError(t, err)
	assert.Equal(t, want, m.Table().DisplayColumn())

	pm := filledGrid(t, d)
	tree, err := d.BSPTree(nil)
	require.NoError(t, err)
	res, err = d.RunGridAnalysis(nil, analysis.GridIsovist{Tree: tree, Region: d.Region()}, analysis.Options{Mode: analysis.ModeIsovist})
	require.NoError(t, err)
	assert.Equal(t, bsp.ColArea, res.DisplayColumn)
	assert.True(t, pm.Table().HasColumn(bsp.ColArea))
}

func TestSnapshotRoundTrip(t *testing.T) {
	d := hPlan(t)
	filledGrid(t, d)
	_, err := d.Convert(nil, ConvertOptions{To: shape.Axial})
	require.NoError(t, err)
	_, err = d.MakeIsovist(nil, geom.Pt(2, 3), 0, 0)
	require.NoError(t, err)
	require.True(t, d.SetViewClass(ShowGridTop))

	for _, sorted := range []bool{false, true} {
		first, err := json.Marshal(d.Snapshot(sorted))
		require.NoError(t, err)

		var s Snapshot
		require.NoError(t, json.Unmarshal(first, &s))
		back, err := FromSnapshot(s)
		require.NoError(t, err)
		assert.Equal(t, d.ID, back.ID)
		assert.Equal(t, d.View(), back.View())
		assert.Equal(t, d.State(), back.State())

		second, err := json.Marshal(back.Snapshot(sorted))
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(second))
	}

	s := d.Snapshot(false)
	s.Displayed.Axial = 4
	_, err = FromSnapshot(s)
	assert.ErrorIs(t, err, ErrUnknownMap)
}
