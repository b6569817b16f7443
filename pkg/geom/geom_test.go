package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b Line
		want bool
	}{
		{"crossing", Ln(0, 0, 2, 2), Ln(0, 2, 2, 0), true},
		{"touching endpoint", Ln(0, 0, 1, 0), Ln(1, 0, 1, 1), true},
		{"parallel", Ln(0, 0, 1, 0), Ln(0, 1, 1, 1), false},
		{"collinear disjoint", Ln(0, 0, 1, 0), Ln(2, 0, 3, 0), false},
		{"collinear overlapping", Ln(0, 0, 2, 0), Ln(1, 0, 3, 0), true},
		{"near miss", Ln(0, 0, 1, 1), Ln(2, 0, 1.6, 0.5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(tt.a))
		})
	}
}

func TestLineIntersection(t *testing.T) {
	p, ok := Ln(0, 0, 2, 2).Intersection(Ln(0, 2, 2, 0))
	require.True(t, ok)
	assert.InDelta(t, 1, p.X, 1e-9)
	assert.InDelta(t, 1, p.Y, 1e-9)

	_, ok = Ln(0, 0, 1, 0).Intersection(Ln(0, 1, 1, 1))
	assert.False(t, ok)
}

func TestRegionUnion(t *testing.T) {
	var r Region
	assert.True(t, r.Empty())

	r = r.Union(Rect(Pt(1, 1), Pt(2, 2)))
	r = r.Union(Rect(Pt(-1, 0), Pt(0, 3)))
	assert.Equal(t, Pt(-1, 0), r.Min)
	assert.Equal(t, Pt(2, 3), r.Max)
	assert.False(t, r.Empty())

	g := r.Grow(0.5)
	assert.Equal(t, Pt(-1.5, -0.5), g.Min)
	assert.Equal(t, Pt(2.5, 3.5), g.Max)
}

func TestRegionIntersectsLine(t *testing.T) {
	r := Rect(Pt(0, 0), Pt(1, 1))
	assert.True(t, r.IntersectsLine(Ln(-1, 0.5, 2, 0.5)))
	assert.True(t, r.IntersectsLine(Ln(0.2, 0.2, 0.3, 0.3)))
	assert.False(t, r.IntersectsLine(Ln(2, 2, 3, 3)))
}

func TestPolygonMeasures(t *testing.T) {
	sq := Polygon{Pt(0, 0), Pt(2, 0), Pt(2, 2), Pt(0, 2)}
	assert.InDelta(t, 4, sq.Area(), 1e-9)
	assert.InDelta(t, 8, sq.Perimeter(), 1e-9)
	assert.Equal(t, Pt(1, 1), sq.Centroid())
	assert.True(t, sq.Contains(Pt(1, 1)))
	assert.False(t, sq.Contains(Pt(3, 1)))
}

func TestNormaliseAngle(t *testing.T) {
	assert.InDelta(t, 0, NormaliseAngle(2*math.Pi), 1e-9)
	assert.InDelta(t, 3*math.Pi/2, NormaliseAngle(-math.Pi/2), 1e-9)
	assert.InDelta(t, math.Pi/2, Pt(0, 1).Angle(), 1e-9)
}
