package geom

import "math"

// Polygon is a closed ring of vertices. The closing edge from the last
// vertex back to the first is implicit.
type Polygon []Point

// SignedArea returns the shoelace area: positive for counter-clockwise rings.
func (pg Polygon) SignedArea() float64 {
	n := len(pg)
	if n < 3 {
		return 0
	}
	var s float64
	for i := range n {
		j := (i + 1) % n
		s += pg[i].Cross(pg[j])
	}
	return s / 2
}

// Area returns the absolute enclosed area.
func (pg Polygon) Area() float64 { return math.Abs(pg.SignedArea()) }

// Perimeter returns the length of the ring including the closing edge.
func (pg Polygon) Perimeter() float64 {
	n := len(pg)
	if n < 2 {
		return 0
	}
	var s float64
	for i := range n {
		s += pg[i].Dist(pg[(i+1)%n])
	}
	return s
}

// Centroid returns the area centroid, falling back to the vertex mean for
// degenerate rings.
func (pg Polygon) Centroid() Point {
	a := pg.SignedArea()
	if math.Abs(a) <= Tolerance {
		return Mean(pg)
	}
	var cx, cy float64
	n := len(pg)
	for i := range n {
		j := (i + 1) % n
		f := pg[i].Cross(pg[j])
		cx += (pg[i].X + pg[j].X) * f
		cy += (pg[i].Y + pg[j].Y) * f
	}
	return Point{cx / (6 * a), cy / (6 * a)}
}

// Contains reports whether p is inside the ring (even-odd rule).
func (pg Polygon) Contains(p Point) bool {
	in := false
	n := len(pg)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pg[i], pg[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// Bounds returns the bounding region of the vertices.
func (pg Polygon) Bounds() Region { return BoundsOf(pg) }

// Mean returns the arithmetic mean of pts.
func Mean(pts []Point) Point {
	if len(pts) == 0 {
		return Point{}
	}
	var s Point
	for _, p := range pts {
		s = s.Add(p)
	}
	return s.Scale(1 / float64(len(pts)))
}

// BoundsOf returns the bounding region of pts.
func BoundsOf(pts []Point) Region {
	var r Region
	for _, p := range pts {
		r = r.Extend(p)
	}
	return r
}
