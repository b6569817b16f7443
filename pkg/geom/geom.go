// Package geom provides the planar geometry used by every map type: points,
// line segments, axis-aligned regions and polygon helpers.
//
// All coordinates are float64 in plan units. The package is allocation-light
// and has no state; every function is safe for concurrent use.
package geom

import (
	"encoding/json"
	"math"
)

// Tolerance is the distance below which two coordinates are treated as equal.
const Tolerance = 1e-9

// Point is a location in the plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of the cross product of p and q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Len returns the length of p as a vector.
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the distance between p and q.
func (p Point) Dist(q Point) float64 { return p.Sub(q).Len() }

// Angle returns the direction of p as a vector, in [0, 2π).
func (p Point) Angle() float64 {
	a := math.Atan2(p.Y, p.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Eq reports whether p and q coincide within Tolerance.
func (p Point) Eq(q Point) bool {
	return math.Abs(p.X-q.X) <= Tolerance && math.Abs(p.Y-q.Y) <= Tolerance
}

// Line is a segment from A to B.
type Line struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Ln is shorthand for Line{Point{x1, y1}, Point{x2, y2}}.
func Ln(x1, y1, x2, y2 float64) Line { return Line{Point{x1, y1}, Point{x2, y2}} }

// Vector returns B-A.
func (l Line) Vector() Point { return l.B.Sub(l.A) }

// Length returns the segment length.
func (l Line) Length() float64 { return l.A.Dist(l.B) }

// Midpoint returns the centre of the segment.
func (l Line) Midpoint() Point { return l.A.Add(l.B).Scale(0.5) }

// Bounds returns the smallest region containing the segment.
func (l Line) Bounds() Region {
	return Region{
		Min: Point{math.Min(l.A.X, l.B.X), math.Min(l.A.Y, l.B.Y)},
		Max: Point{math.Max(l.A.X, l.B.X), math.Max(l.A.Y, l.B.Y)},
	}
}

// Side returns the sign of p relative to the directed line: positive when p
// is to the left, negative to the right and 0 when collinear.
func (l Line) Side(p Point) float64 {
	s := l.Vector().Cross(p.Sub(l.A))
	if math.Abs(s) <= Tolerance {
		return 0
	}
	return s
}

// ClosestPoint returns the point on the segment nearest p.
func (l Line) ClosestPoint(p Point) Point {
	v := l.Vector()
	d := v.Dot(v)
	if d == 0 {
		return l.A
	}
	t := p.Sub(l.A).Dot(v) / d
	t = math.Max(0, math.Min(1, t))
	return l.A.Add(v.Scale(t))
}

// DistTo returns the distance from p to the segment.
func (l Line) DistTo(p Point) float64 { return p.Dist(l.ClosestPoint(p)) }

// Intersects reports whether the two segments share at least one point.
func (l Line) Intersects(m Line) bool {
	d1 := l.Side(m.A)
	d2 := l.Side(m.B)
	d3 := m.Side(l.A)
	d4 := m.Side(l.B)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(l, m.A)) ||
		(d2 == 0 && onSegment(l, m.B)) ||
		(d3 == 0 && onSegment(m, l.A)) ||
		(d4 == 0 && onSegment(m, l.B))
}

func onSegment(l Line, p Point) bool {
	b := l.Bounds()
	return p.X >= b.Min.X-Tolerance && p.X <= b.Max.X+Tolerance &&
		p.Y >= b.Min.Y-Tolerance && p.Y <= b.Max.Y+Tolerance
}

// Intersection returns the crossing point of the infinite lines through l
// and m. ok is false when they are parallel.
func (l Line) Intersection(m Line) (p Point, ok bool) {
	r := l.Vector()
	s := m.Vector()
	den := r.Cross(s)
	if math.Abs(den) <= Tolerance {
		return Point{}, false
	}
	t := m.A.Sub(l.A).Cross(s) / den
	return l.A.Add(r.Scale(t)), true
}

// Region is an axis-aligned rectangle. The zero Region is empty.
type Region struct {
	Min, Max Point
	set      bool
}

// Rect builds a region from two opposite corners.
func Rect(a, b Point) Region {
	return Region{
		Min: Point{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max: Point{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
		set: true,
	}
}

// Empty reports whether the region holds no points at all.
func (r Region) Empty() bool {
	return !r.set && r.Min == (Point{}) && r.Max == (Point{})
}

// Width returns the horizontal extent.
func (r Region) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Region) Height() float64 { return r.Max.Y - r.Min.Y }

// Centre returns the midpoint of the region.
func (r Region) Centre() Point { return r.Min.Add(r.Max).Scale(0.5) }

// Contains reports whether p lies inside or on the boundary of r.
func (r Region) Contains(p Point) bool {
	return p.X >= r.Min.X-Tolerance && p.X <= r.Max.X+Tolerance &&
		p.Y >= r.Min.Y-Tolerance && p.Y <= r.Max.Y+Tolerance
}

// Overlaps reports whether r and o share any area or boundary.
func (r Region) Overlaps(o Region) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Union returns the smallest region containing both r and o.
func (r Region) Union(o Region) Region {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Region{
		Min: Point{math.Min(r.Min.X, o.Min.X), math.Min(r.Min.Y, o.Min.Y)},
		Max: Point{math.Max(r.Max.X, o.Max.X), math.Max(r.Max.Y, o.Max.Y)},
		set: true,
	}
}

// Extend returns r grown to contain p.
func (r Region) Extend(p Point) Region {
	return r.Union(Region{Min: p, Max: p, set: true})
}

// Grow returns r with every side pushed out by d.
func (r Region) Grow(d float64) Region {
	return Region{
		Min: Point{r.Min.X - d, r.Min.Y - d},
		Max: Point{r.Max.X + d, r.Max.Y + d},
		set: true,
	}
}

// Edges returns the four boundary segments, counter-clockwise from the
// bottom-left corner.
func (r Region) Edges() []Line {
	bl, br := r.Min, Point{r.Max.X, r.Min.Y}
	tr, tl := r.Max, Point{r.Min.X, r.Max.Y}
	return []Line{{bl, br}, {br, tr}, {tr, tl}, {tl, bl}}
}

// IntersectsLine reports whether segment l touches the region.
func (r Region) IntersectsLine(l Line) bool {
	if r.Contains(l.A) || r.Contains(l.B) {
		return true
	}
	if !l.Bounds().Overlaps(r) {
		return false
	}
	for _, e := range r.Edges() {
		if l.Intersects(e) {
			return true
		}
	}
	return false
}

type regionJSON struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// MarshalJSON writes the corners, or null for an empty region.
func (r Region) MarshalJSON() ([]byte, error) {
	if r.Empty() {
		return []byte("null"), nil
	}
	return json.Marshal(regionJSON{Min: r.Min, Max: r.Max})
}

// UnmarshalJSON reads a region written by MarshalJSON.
func (r *Region) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Region{}
		return nil
	}
	var v regionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Rect(v.Min, v.Max)
	return nil
}

// NormaliseAngle wraps a into [0, 2π).
func NormaliseAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
