package shape

import (
	"fmt"
	"math"

	"github.com/matzehuels/spacegraph/pkg/geom"
)

// Kind is the geometric kind of a shape.
type Kind uint8

const (
	KindPoint Kind = iota + 1
	KindLine
	KindPolyline
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolyline:
		return "polyline"
	case KindPolygon:
		return "polygon"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Shape is one piece of vector geometry. Polygons are closed implicitly;
// the last point is not repeated.
type Shape struct {
	Kind     Kind         `json:"kind"`
	Points   []geom.Point `json:"points"`
	Centroid geom.Point   `json:"centroid"`
}

// Point returns a point shape.
func Point(p geom.Point) Shape {
	return Shape{Kind: KindPoint, Points: []geom.Point{p}, Centroid: p}
}

// Line returns a line shape.
func Line(l geom.Line) Shape {
	return Shape{Kind: KindLine, Points: []geom.Point{l.A, l.B}, Centroid: l.Midpoint()}
}

// Poly returns a polyline (open) or polygon through points. Two points
// always make a line; fewer make a point.
func Poly(points []geom.Point, open bool) Shape {
	switch len(points) {
	case 0:
		return Shape{}
	case 1:
		return Point(points[0])
	case 2:
		return Line(geom.Line{A: points[0], B: points[1]})
	}
	s := Shape{Points: append([]geom.Point(nil), points...)}
	if open {
		s.Kind = KindPolyline
		s.Centroid = lengthCentroid(s.Segments())
	} else {
		s.Kind = KindPolygon
		s.Centroid = geom.Polygon(s.Points).Centroid()
	}
	return s
}

func lengthCentroid(segs []geom.Line) geom.Point {
	var c geom.Point
	var total float64
	for _, l := range segs {
		n := l.Length()
		c = c.Add(l.Midpoint().Scale(n))
		total += n
	}
	if total == 0 {
		return c
	}
	return c.Scale(1 / total)
}

// IsLine reports whether s is a single segment.
func (s Shape) IsLine() bool { return s.Kind == KindLine }

// IsPolyline reports whether s is an open chain of segments.
func (s Shape) IsPolyline() bool { return s.Kind == KindPolyline }

// IsPolygon reports whether s is a closed ring.
func (s Shape) IsPolygon() bool { return s.Kind == KindPolygon }

// AsLine returns the segment of a line shape.
func (s Shape) AsLine() geom.Line {
	if len(s.Points) < 2 {
		return geom.Line{}
	}
	return geom.Line{A: s.Points[0], B: s.Points[1]}
}

// Segments returns the edges of s, including the closing edge of a
// polygon. Points have none.
func (s Shape) Segments() []geom.Line {
	n := len(s.Points)
	if n < 2 {
		return nil
	}
	out := make([]geom.Line, 0, n)
	for i := 0; i+1 < n; i++ {
		out = append(out, geom.Line{A: s.Points[i], B: s.Points[i+1]})
	}
	if s.Kind == KindPolygon {
		out = append(out, geom.Line{A: s.Points[n-1], B: s.Points[0]})
	}
	return out
}

// Bounds returns the bounding region of s.
func (s Shape) Bounds() geom.Region { return geom.BoundsOf(s.Points) }

// Length returns the summed segment length (the perimeter of a polygon).
func (s Shape) Length() float64 {
	var n float64
	for _, l := range s.Segments() {
		n += l.Length()
	}
	return n
}

// Area returns the enclosed area of a polygon, 0 otherwise.
func (s Shape) Area() float64 {
	if s.Kind != KindPolygon {
		return 0
	}
	return geom.Polygon(s.Points).Area()
}

// Dist returns the distance from p to s; 0 inside a polygon.
func (s Shape) Dist(p geom.Point) float64 {
	switch {
	case len(s.Points) == 0:
		return math.Inf(1)
	case s.Kind == KindPoint:
		return p.Dist(s.Points[0])
	case s.Kind == KindPolygon && geom.Polygon(s.Points).Contains(p):
		return 0
	}
	d := math.Inf(1)
	for _, l := range s.Segments() {
		d = math.Min(d, l.DistTo(p))
	}
	return d
}

// Intersects reports whether s and o share any point.
func (s Shape) Intersects(o Shape) bool {
	if !s.Bounds().Overlaps(o.Bounds()) {
		return false
	}
	if s.Kind == KindPolygon && len(o.Points) > 0 && geom.Polygon(s.Points).Contains(o.Points[0]) {
		return true
	}
	if o.Kind == KindPolygon && len(s.Points) > 0 && geom.Polygon(o.Points).Contains(s.Points[0]) {
		return true
	}
	if s.Kind == KindPoint || o.Kind == KindPoint {
		return s.Dist(o.Points[0]) <= geom.Tolerance || o.Dist(s.Points[0]) <= geom.Tolerance
	}
	for _, a := range s.Segments() {
		for _, b := range o.Segments() {
			if a.Intersects(b) {
				return true
			}
		}
	}
	return false
}

// IntersectsRegion reports whether any part of s lies in r.
func (s Shape) IntersectsRegion(r geom.Region) bool {
	if !s.Bounds().Overlaps(r) {
		return false
	}
	for _, p := range s.Points {
		if r.Contains(p) {
			return true
		}
	}
	for _, l := range s.Segments() {
		if r.IntersectsLine(l) {
			return true
		}
	}
	return s.Kind == KindPolygon && geom.Polygon(s.Points).Contains(r.Centre())
}

func (s Shape) clone() Shape {
	s.Points = append([]geom.Point(nil), s.Points...)
	return s
}
