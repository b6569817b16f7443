package grid

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

func newGrid(t *testing.T, bl, tr geom.Point, spacing float64) *PointMap {
	t.Helper()
	pm := New("test", geom.Rect(bl, tr))
	require.NoError(t, pm.SetGrid(spacing, geom.Point{}))
	return pm
}

// centre returns the middle of a central cell.
func centre(pm *PointMap) geom.Point {
	bl := pm.Region().Min
	s := pm.Spacing()
	return geom.Pt(
		bl.X+s*(math.Floor(float64(pm.Cols())*0.5)+0.5),
		bl.Y+s*(math.Floor(float64(pm.Rows())*0.5)+0.5),
	)
}

func TestSetGridDimensions(t *testing.T) {
	tests := []struct {
		name    string
		bl, tr  geom.Point
		spacing float64
	}{
		{"origin quadrant", geom.Pt(0, 0), geom.Pt(1, 1), 0.5},
		{"away from origin", geom.Pt(1, 1), geom.Pt(2, 2), 0.5},
		{"negative quadrant", geom.Pt(-1, -1), geom.Pt(0, 0), 0.5},
		{"all quadrants", geom.Pt(-1, -1), geom.Pt(1, 1), 0.5},
		{"non-square", geom.Pt(1, 2), geom.Pt(3, 4), 0.5},
		{"fractional limits", geom.Pt(1.1, 2.2), geom.Pt(3.3, 4.4), 0.5},
		{"small fractional", geom.Pt(0.1, 0.2), geom.Pt(0.3, 0.4), 0.5},
		{"negative fractional", geom.Pt(-0.4, -0.3), geom.Pt(-0.2, -0.1), 0.5},
		{"wide fractional", geom.Pt(-1.1, -2.2), geom.Pt(3.3, 4.4), 0.5},
		{"smaller spacing", geom.Pt(1.1, 2.2), geom.Pt(3.3, 4.4), 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := newGrid(t, tt.bl, tt.tr, tt.spacing)
			idx := func(c float64) int { return int(math.Floor(c/tt.spacing-0.5)) + 1 }

			assert.Equal(t, idx(tt.tr.X)-idx(tt.bl.X)+1, pm.Cols())
			assert.Equal(t, idx(tt.tr.Y)-idx(tt.bl.Y)+1, pm.Rows())
			assert.InDelta(t, float64(idx(tt.bl.X))*tt.spacing-0.5*tt.spacing, pm.Region().Min.X, 1e-9)
			assert.InDelta(t, float64(idx(tt.bl.Y))*tt.spacing-0.5*tt.spacing, pm.Region().Min.Y, 1e-9)

			ok, err := pm.MakePoints(centre(pm), FillFull, nil)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestSetGridRejectsBadSpacing(t *testing.T) {
	pm := New("test", geom.Rect(geom.Pt(0, 0), geom.Pt(1, 1)))
	assert.ErrorIs(t, pm.SetGrid(0, geom.Point{}), ErrInvalidSpacing)
	assert.ErrorIs(t, pm.SetGrid(-1, geom.Point{}), ErrInvalidSpacing)
	assert.ErrorIs(t, pm.SetGrid(1e-7, geom.Point{}), ErrGridTooLarge)
	_, err := pm.MakePoints(geom.Pt(0, 0), FillFull, nil)
	assert.ErrorIs(t, err, ErrNoGrid)
}

func TestPixelate(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2, 4), 0.5)
	assert.Equal(t, Ref(0, 0), pm.Pixelate(geom.Pt(0, 0), false))
	assert.Equal(t, Ref(4, 8), pm.Pixelate(geom.Pt(2, 4), false))
	assert.Equal(t, NoPixel, pm.Pixelate(geom.Pt(-1, 0), false))
	assert.Equal(t, Ref(0, 0), pm.Pixelate(geom.Pt(-1, -1), true))
	assert.Equal(t, Ref(4, 8), pm.Pixelate(geom.Pt(9, 9), true))

	p := pm.Depixelate(Ref(4, 8))
	assert.InDelta(t, 2.0, p.X, 1e-9)
	assert.InDelta(t, 4.0, p.Y, 1e-9)
	assert.Equal(t, 4<<16|8, int(Ref(4, 8)))
	assert.Equal(t, 4, Ref(4, 8).X())
	assert.Equal(t, 8, Ref(4, 8).Y())
}

func TestOpenGridFillsEverything(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2, 4), 0.5)
	pm.BlockLines(nil)
	ok, err := pm.MakePoints(centre(pm), FillFull, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pm.Cols()*pm.Rows(), pm.FilledCount())
	assert.Equal(t, pm.FilledCount(), pm.Table().NumRows())

	corner, _ := pm.Cell(Ref(0, 0))
	inner, _ := pm.Cell(Ref(2, 4))
	assert.True(t, corner.State.Has(Edge))
	assert.False(t, inner.State.Has(Edge))

	ok, err = pm.MakePoints(centre(pm), FillFull, nil)
	require.NoError(t, err)
	assert.False(t, ok, "seed already filled")
}

// square returns the four walls of a side x side room at the origin.
func square(side float64) []geom.Line {
	return []geom.Line{
		geom.Ln(0, 0, 0, side),
		geom.Ln(0, side, side, side),
		geom.Ln(side, side, side, 0),
		geom.Ln(side, 0, 0, 0),
	}
}

func TestBlockLinesAndMergeLinks(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(1.5, 1.5), 0.5)
	pm.BlockLines(square(1.5))
	ok, err := pm.MakePoints(centre(pm), FillFull, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []PixelRef{65537, 65538, 131073, 131074}, pm.FilledRefs())

	pm.MergePixels(65537, 131074)
	pm.MergePixels(131073, 65538)
	want := []Pair{{65537, 131074}, {65538, 131073}}
	if diff := cmp.Diff(want, pm.MergeLinks()); diff != "" {
		t.Errorf("MergeLinks mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []Pair{{65537, 131074}, {131073, 65538}}, pm.MergedPairs())
}

func TestFillTypes(t *testing.T) {
	// cells (1,0) and (0,1) are blocked so (0,0) meets the rest of the
	// grid only at a corner
	walls := []geom.Line{geom.Ln(1, 0, 1, 0.1), geom.Ln(0, 1, 0.1, 1)}
	setup := func(t *testing.T) *PointMap {
		pm := newGrid(t, geom.Pt(0, 0), geom.Pt(5, 5), 1)
		pm.BlockLines(walls)
		return pm
	}

	t.Run("semi", func(t *testing.T) {
		pm := setup(t)
		_, err := pm.MakePoints(geom.Pt(0, 0), FillSemi, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, pm.FilledCount())
	})

	t.Run("full", func(t *testing.T) {
		pm := setup(t)
		_, err := pm.MakePoints(geom.Pt(0, 0), FillFull, nil)
		require.NoError(t, err)
		assert.Equal(t, 34, pm.FilledCount())
	})

	t.Run("augment", func(t *testing.T) {
		pm := setup(t)
		_, err := pm.MakePoints(geom.Pt(0, 0), FillSemi, nil)
		require.NoError(t, err)
		ok, err := pm.MakePoints(geom.Pt(3, 3), FillAugment, nil)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 34, pm.FilledCount())

		seed, _ := pm.Cell(Ref(0, 0))
		assert.False(t, seed.State.Has(ContextFilled))
		var context int
		for _, r := range pm.FilledRefs() {
			if c, _ := pm.Cell(r); c.State.Has(ContextFilled) {
				context++
			}
		}
		assert.Equal(t, 33, context)
	})
}

func TestMakePointsCancellationKeepsCells(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(5, 5), 0.5)
	c := comm.FromFunc(func(p comm.Progress) bool { return p.Done < 3 })
	ok, err := pm.MakePoints(centre(pm), FillFull, c)
	assert.ErrorIs(t, err, comm.ErrCancelled)
	assert.True(t, ok)
	assert.True(t, pm.HasPoints())
	assert.Greater(t, pm.FilledCount(), 3)
	assert.Less(t, pm.FilledCount(), pm.Cols()*pm.Rows())
	assert.Equal(t, pm.FilledCount(), pm.Table().NumRows())
}

func TestSixBySixMergeScenario(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2.5, 2.5), 0.5)
	require.Equal(t, 6, pm.Cols())
	require.Equal(t, 6, pm.Rows())
	ok, err := pm.MakePoints(centre(pm), FillFull, nil)
	require.NoError(t, err)
	require.True(t, ok)

	all := geom.Rect(geom.Pt(0, 0), geom.Pt(2.5, 2.5))
	got := pm.SetCurSel(all, false)
	assert.Equal(t, 36, pm.SelectionCount())
	assert.InDelta(t, 2.5, got.Max.X, 1e-9)

	// the selection's bottom-left cell lands on the top-right cell
	require.True(t, pm.MergePoints(pm.Depixelate(Ref(5, 5))))
	assert.Equal(t, 0, pm.SelectionCount())
	assert.Equal(t, []Pair{{Ref(0, 0), Ref(5, 5)}}, pm.MergedPairs())
	assert.True(t, pm.IsPixelMerged(Ref(5, 5)))
	assert.Contains(t, pm.Neighbours(Ref(0, 0)), Ref(5, 5))

	pm.SetCurSel(all, false)
	require.True(t, pm.UnmergePoints())
	assert.Equal(t, 0, pm.SelectionCount())
	assert.Empty(t, pm.MergedPairs())
	assert.False(t, pm.IsPixelMerged(Ref(0, 0)))

	assert.False(t, pm.MergePoints(geom.Pt(0, 0)), "no selection")
	assert.False(t, pm.UnmergePoints(), "no selection")
}

func TestMergePixelsReplacesPairs(t *testing.T) {
	setup := func(t *testing.T) (*PointMap, PixelRef, PixelRef) {
		pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2, 4), 0.5)
		_, err := pm.MakePoints(centre(pm), FillFull, nil)
		require.NoError(t, err)
		bl, tr := pm.Pixelate(geom.Pt(0, 0), true), pm.Pixelate(geom.Pt(2, 4), true)
		require.True(t, pm.MergePixels(bl, tr))
		return pm, bl, tr
	}

	t.Run("first", func(t *testing.T) {
		pm, bl, tr := setup(t)
		above := pm.Pixelate(geom.Pt(0, 1), true)
		pm.MergePixels(above, tr)
		assert.False(t, pm.IsPixelMerged(bl))
		assert.Equal(t, []Pair{{above, tr}}, pm.MergedPairs())
	})

	t.Run("second", func(t *testing.T) {
		pm, bl, tr := setup(t)
		below := pm.Pixelate(geom.Pt(2, 3), true)
		pm.MergePixels(bl, below)
		assert.False(t, pm.IsPixelMerged(tr))
		assert.Equal(t, []Pair{{bl, below}}, pm.MergedPairs())
	})

	t.Run("self", func(t *testing.T) {
		pm, bl, tr := setup(t)
		pm.MergePixels(bl, bl)
		assert.False(t, pm.IsPixelMerged(bl))
		assert.False(t, pm.IsPixelMerged(tr))
		assert.Empty(t, pm.MergedPairs())
	})
}

func TestMergeLines(t *testing.T) {
	setup := func(t *testing.T) *PointMap {
		pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2, 4), 0.5)
		_, err := pm.MakePoints(centre(pm), FillFull, nil)
		require.NoError(t, err)
		return pm
	}
	diag := geom.Ln(0, 0, 2, 4)

	t.Run("crossing links", func(t *testing.T) {
		pm := setup(t)
		require.NoError(t, pm.MergeLines([]geom.Line{diag, geom.Ln(2, 0, 0, 4)}))
		assert.Equal(t, []Pair{{Ref(0, 0), Ref(4, 8)}, {Ref(4, 0), Ref(0, 8)}}, pm.MergedPairs())
		lines := pm.MergeLineGeometry()
		require.Len(t, lines, 2)
		assert.Equal(t, pm.Depixelate(Ref(0, 0)), lines[0].A)
	})

	tests := []struct {
		name  string
		lines []geom.Line
		want  error
	}{
		{"start off grid", []geom.Line{geom.Ln(-0.5, -0.5, 2, 4)}, ErrNotOnGrid},
		{"end off grid", []geom.Line{geom.Ln(0, 0, 2.5, 4.5)}, ErrNotOnGrid},
		{"shared start", []geom.Line{diag, geom.Ln(0, 0, 1, 4)}, ErrOverlappingLink},
		{"shared end", []geom.Line{diag, geom.Ln(1, 0, 2, 4)}, ErrOverlappingLink},
		{"duplicate", []geom.Line{diag, diag}, ErrOverlappingLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := setup(t)
			assert.ErrorIs(t, pm.MergeLines(tt.lines), tt.want)
			assert.Empty(t, pm.MergedPairs())
		})
	}

	t.Run("already merged", func(t *testing.T) {
		pm := setup(t)
		require.NoError(t, pm.MergeLines([]geom.Line{diag}))
		assert.ErrorIs(t, pm.MergeLines([]geom.Line{diag}), ErrAlreadyMerged)
	})
}

func TestClearPointsLargeGrid(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(99.5, 99.5), 0.5)
	_, err := pm.MakePoints(centre(pm), FillFull, nil)
	require.NoError(t, err)
	n := pm.FilledCount()
	require.Greater(t, n, 30_000)

	require.True(t, pm.ClearPoints())
	assert.Equal(t, 0, pm.FilledCount())
	assert.Equal(t, 0, pm.Table().NumRows())

	require.True(t, pm.Undo())
	assert.Equal(t, n, pm.FilledCount())
	assert.Equal(t, n, pm.Table().NumRows())

	pm.SetCurSel(geom.Rect(geom.Pt(0, 0), geom.Pt(49.5, 99.5)), false)
	require.True(t, pm.ClearPoints())
	assert.Equal(t, pm.FilledCount(), pm.Table().NumRows())
	assert.Less(t, pm.FilledCount(), n)
	for _, ref := range pm.FilledRefs() {
		require.True(t, pm.Table().HasRow(int(ref)))
	}
}

func TestClearPointsScopes(t *testing.T) {
	setup := func(t *testing.T) *PointMap {
		pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2.5, 2.5), 0.5)
		_, err := pm.MakePoints(centre(pm), FillFull, nil)
		require.NoError(t, err)
		return pm
	}

	t.Run("everything", func(t *testing.T) {
		pm := setup(t)
		require.True(t, pm.ClearPoints())
		assert.False(t, pm.HasPoints())
		assert.Equal(t, 0, pm.Table().NumRows())
		assert.False(t, pm.ClearPoints())
	})

	t.Run("single box", func(t *testing.T) {
		pm := setup(t)
		pm.SetCurSel(geom.Rect(geom.Pt(0, 0), geom.Pt(0.5, 0.5)), false)
		require.Equal(t, 4, pm.SelectionCount())
		require.True(t, pm.ClearPoints())
		assert.Equal(t, 32, pm.FilledCount())
		assert.Equal(t, 0, pm.SelectionCount())

		require.True(t, pm.Undo())
		assert.Equal(t, 36, pm.FilledCount())
		assert.Equal(t, 36, pm.Table().NumRows())
		assert.False(t, pm.CanUndo())
	})

	t.Run("compound", func(t *testing.T) {
		pm := setup(t)
		pm.SetCurSelRefs([]PixelRef{Ref(0, 0), Ref(5, 5)}, false)
		pm.SetCurSelRefs([]PixelRef{Ref(3, 3)}, true)
		require.Equal(t, 3, pm.SelectionCount())
		require.True(t, pm.ClearPoints())
		assert.Equal(t, 33, pm.FilledCount())
		c, _ := pm.Cell(Ref(3, 3))
		assert.False(t, c.Filled())
	})

	t.Run("clearing a merged cell dissolves the pair", func(t *testing.T) {
		pm := setup(t)
		pm.MergePixels(Ref(0, 0), Ref(5, 5))
		require.True(t, pm.FillPoint(pm.Depixelate(Ref(0, 0)), false))
		assert.False(t, pm.IsPixelMerged(Ref(5, 5)))
		require.True(t, pm.Undo())
		assert.True(t, pm.IsPixelMerged(Ref(5, 5)))
		assert.Equal(t, Ref(0, 0), pm.MergePartner(Ref(5, 5)))
	})
}

func TestFillPoint(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2, 2), 1)
	p := geom.Pt(1, 1)
	assert.True(t, pm.FillPoint(p, true))
	assert.False(t, pm.FillPoint(p, true))
	assert.Equal(t, 1, pm.FilledCount())
	assert.True(t, pm.Table().HasRow(int(pm.Pixelate(p, false))))
	assert.True(t, pm.FillPoint(p, false))
	assert.False(t, pm.FillPoint(p, false))
	assert.False(t, pm.FillPoint(geom.Pt(10, 10), true))
}

func TestNeighboursAvoidCornerCutting(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2, 2), 1)
	for _, p := range []geom.Point{geom.Pt(0, 0), geom.Pt(1, 0), geom.Pt(1, 1), geom.Pt(2, 2)} {
		require.True(t, pm.FillPoint(p, true))
	}
	assert.ElementsMatch(t, []PixelRef{Ref(1, 0)}, pm.Neighbours(Ref(0, 0)))
	assert.ElementsMatch(t, []PixelRef{Ref(1, 0)}, pm.Neighbours(Ref(1, 1)))
	assert.Empty(t, pm.Neighbours(Ref(2, 2)))
}

func TestSelectionToLayer(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(2, 2), 1)
	_, err := pm.MakePoints(geom.Pt(1, 1), FillFull, nil)
	require.NoError(t, err)
	region := pm.SetCurSel(geom.Rect(geom.Pt(-0.2, -0.2), geom.Pt(0.8, 0.3)), false)
	assert.Equal(t, geom.Rect(geom.Pt(0, 0), geom.Pt(1, 0)), region)
	require.Equal(t, 2, pm.SelectionCount())

	idx, err := pm.SelectionToLayer("corner")
	require.NoError(t, err)
	assert.Equal(t, 0, pm.SelectionCount())
	key := pm.Table().Layers().Key(idx)
	r, err := pm.Table().Row(int(Ref(1, 0)))
	require.NoError(t, err)
	assert.NotZero(t, r.Layers()&key)
}

func TestSnapshotRoundTrip(t *testing.T) {
	pm := newGrid(t, geom.Pt(0, 0), geom.Pt(1.5, 1.5), 0.5)
	pm.BlockLines(square(1.5))
	_, err := pm.MakePoints(centre(pm), FillFull, nil)
	require.NoError(t, err)
	pm.MergePixels(65537, 131074)
	col := pm.Table().InsertOrResetColumn("Depth")
	require.NoError(t, pm.Table().SetValue(65537, col, 2))

	data, err := json.Marshal(pm.Snapshot(false))
	require.NoError(t, err)
	var s Snapshot
	require.NoError(t, json.Unmarshal(data, &s))
	back, err := FromSnapshot(s)
	require.NoError(t, err)

	assert.Equal(t, pm.FilledRefs(), back.FilledRefs())
	assert.Equal(t, pm.MergedPairs(), back.MergedPairs())
	assert.Equal(t, pm.Cols(), back.Cols())
	c, _ := back.Cell(Ref(0, 0))
	assert.True(t, c.Blocked())
	v, err := back.Table().Value(65537, col)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}
