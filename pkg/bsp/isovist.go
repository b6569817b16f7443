package bsp

import (
	"math"
	"slices"

	"github.com/matzehuels/spacegraph/pkg/geom"
)

// Attribute column names for isovist measures, in the order
// [Isovist.Values] returns them.
const (
	ColArea           = "Isovist Area"
	ColCompactness    = "Isovist Compactness"
	ColDriftAngle     = "Isovist Drift Angle"
	ColDriftMagnitude = "Isovist Drift Magnitude"
	ColMinRadial      = "Isovist Min Radial"
	ColMaxRadial      = "Isovist Max Radial"
	ColOcclusivity    = "Isovist Occlusivity"
	ColPerimeter      = "Isovist Perimeter"
)

// Columns lists the measure columns.
var Columns = []string{
	ColArea, ColCompactness, ColDriftAngle, ColDriftMagnitude,
	ColMinRadial, ColMaxRadial, ColOcclusivity, ColPerimeter,
}

// angleEpsilon is the offset of the rays cast either side of every line
// end.
const angleEpsilon = 1e-6

// Isovist is the region visible from Origin and its measures.
type Isovist struct {
	Origin  geom.Point
	Polygon geom.Polygon

	Area           float64
	Perimeter      float64
	Compactness    float64
	DriftAngle     float64 // degrees, counter-clockwise from +x
	DriftMagnitude float64
	MinRadial      float64
	MaxRadial      float64
	Occlusivity    float64
}

// Values returns the measures in [Columns] order.
func (iso Isovist) Values() []float64 {
	return []float64{
		iso.Area, iso.Compactness, iso.DriftAngle, iso.DriftMagnitude,
		iso.MinRadial, iso.MaxRadial, iso.Occlusivity, iso.Perimeter,
	}
}

type ray struct {
	angle float64
	dist  float64
	hit   geom.Point
}

// Isovist computes the region visible from o, bounded by the tree's lines
// and by region. The view spans counter-clockwise from start to end
// (radians); start == end means a full circle.
func (t *Tree) Isovist(o geom.Point, region geom.Region, start, end float64) (Isovist, error) {
	if !t.built {
		return Isovist{}, ErrNotBuilt
	}
	start, end = geom.NormaliseAngle(start), geom.NormaliseAngle(end)
	full := math.Abs(start-end) < 1e-12
	span := 2 * math.Pi
	if !full {
		span = geom.NormaliseAngle(end - start)
	}
	offset := func(a float64) float64 { return geom.NormaliseAngle(a - start) }

	var angles []float64
	add := func(a float64) {
		if full || offset(a) <= span {
			angles = append(angles, geom.NormaliseAngle(a))
		}
	}
	corner := func(p geom.Point) {
		if p.Eq(o) {
			return
		}
		a := p.Sub(o).Angle()
		add(a - angleEpsilon)
		add(a)
		add(a + angleEpsilon)
	}
	for _, nd := range t.nodes {
		corner(nd.line.A)
		corner(nd.line.B)
	}
	for _, e := range region.Edges() {
		corner(e.A)
	}
	add(start)
	if !full {
		add(end)
	}
	slices.SortFunc(angles, func(a, b float64) int {
		switch oa, ob := offset(a), offset(b); {
		case oa < ob:
			return -1
		case oa > ob:
			return 1
		}
		return 0
	})
	angles = slices.CompactFunc(angles, func(a, b float64) bool { return math.Abs(a-b) < 1e-12 })

	rays := make([]ray, 0, len(angles))
	for _, a := range angles {
		d := geom.Pt(math.Cos(a), math.Sin(a))
		limit := boundaryDist(o, d, region)
		dist, _ := t.Raycast(o, d, limit)
		rays = append(rays, ray{angle: a, dist: dist, hit: o.Add(d.Scale(dist))})
	}
	return measure(o, rays, full), nil
}

// boundaryDist returns how far a ray from o travels inside region.
func boundaryDist(o, d geom.Point, region geom.Region) float64 {
	best := math.Inf(1)
	for _, e := range region.Edges() {
		if h, ok := rayHit(o, d, e); ok && h < best {
			best = h
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

func measure(o geom.Point, rays []ray, full bool) Isovist {
	iso := Isovist{Origin: o, MinRadial: math.Inf(1)}
	var poly geom.Polygon
	if !full {
		poly = append(poly, o)
	}
	for i, r := range rays {
		iso.MinRadial = math.Min(iso.MinRadial, r.dist)
		iso.MaxRadial = math.Max(iso.MaxRadial, r.dist)
		if len(poly) == 0 || !poly[len(poly)-1].Eq(r.hit) {
			poly = append(poly, r.hit)
		}
		if i == 0 {
			continue
		}
		// a jump in depth between neighbouring rays is an occluding edge
		prev := rays[i-1]
		if geom.NormaliseAngle(r.angle-prev.angle) <= 2.5*angleEpsilon {
			iso.Occlusivity += math.Abs(r.dist - prev.dist)
		}
	}
	if full && len(rays) > 1 {
		first, last := rays[0], rays[len(rays)-1]
		if geom.NormaliseAngle(first.angle-last.angle) <= 2.5*angleEpsilon {
			iso.Occlusivity += math.Abs(first.dist - last.dist)
		}
	}
	if len(rays) == 0 {
		iso.MinRadial = 0
	}
	// the nearest wall may lie between two sampled rays
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		if a.Eq(o) || b.Eq(o) {
			continue
		}
		iso.MinRadial = math.Min(iso.MinRadial, geom.Line{A: a, B: b}.DistTo(o))
	}
	iso.Polygon = poly
	iso.Area = poly.Area()
	iso.Perimeter = poly.Perimeter()
	if iso.Perimeter > 0 {
		iso.Compactness = 4 * math.Pi * iso.Area / (iso.Perimeter * iso.Perimeter)
	}
	c := poly.Centroid()
	iso.DriftMagnitude = o.Dist(c)
	if iso.DriftMagnitude > 0 {
		iso.DriftAngle = c.Sub(o).Angle() * 180 / math.Pi
	}
	return iso
}
