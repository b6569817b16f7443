package bsp

import (
	"errors"
	"math"

	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

var (
	// ErrEmpty is returned by [Tree.Build] when no line has a length.
	ErrEmpty = errors.New("no lines to partition")

	// ErrNotBuilt is returned by queries on a tree that has not been
	// built, or whose build was cancelled.
	ErrNotBuilt = errors.New("partition not built")
)

// maxSample bounds how many candidate splitters are scored per node.
const maxSample = 512

// noNode marks a missing child.
const noNode = -1

type node struct {
	line        geom.Line
	left, right int
}

// Tree is a binary space partition of wall lines. Nodes live in a flat
// slice and refer to their children by index. Building is not safe for
// concurrent use; a built tree may be queried from many goroutines.
type Tree struct {
	nodes []node
	root  int
	built bool
}

// New returns an empty, unbuilt tree.
func New() *Tree { return &Tree{root: noNode} }

// Built reports whether the tree holds a completed partition.
func (t *Tree) Built() bool { return t.built }

// Invalidate discards the partition. The next query needs a new Build.
func (t *Tree) Invalidate() {
	t.nodes = nil
	t.root = noNode
	t.built = false
}

// Len returns the number of nodes. A line cut by a splitter counts once
// per piece.
func (t *Tree) Len() int { return len(t.nodes) }

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if t.root == noNode {
		return 0
	}
	type item struct{ n, d int }
	best := 0
	stack := []item{{t.root, 1}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		best = max(best, it.d)
		nd := t.nodes[it.n]
		if nd.left != noNode {
			stack = append(stack, item{nd.left, it.d + 1})
		}
		if nd.right != noNode {
			stack = append(stack, item{nd.right, it.d + 1})
		}
	}
	return best
}

// Build partitions lines, discarding zero-length ones. It announces the
// number of usable lines and steps once per line placed. On cancellation the
// partial tree is discarded and [comm.ErrCancelled] returned.
func (t *Tree) Build(c comm.Communicator, lines []geom.Line) error {
	t.Invalidate()
	work := make([]geom.Line, 0, len(lines))
	for _, l := range lines {
		if l.Length() > 0 {
			work = append(work, l)
		}
	}
	if len(work) == 0 {
		return ErrEmpty
	}
	comm.SetTotal(c, len(work))

	type job struct {
		lines  []geom.Line
		parent int
		left   bool
	}
	stack := []job{{lines: work, parent: noNode}}
	extra := 0
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pick := pickSplitter(j.lines)
		left, right := partition(j.lines, pick)
		extra += len(left) + len(right) - (len(j.lines) - 1)
		idx := len(t.nodes)
		t.nodes = append(t.nodes, node{line: j.lines[pick], left: noNode, right: noNode})
		switch {
		case j.parent == noNode:
			t.root = idx
		case j.left:
			t.nodes[j.parent].left = idx
		default:
			t.nodes[j.parent].right = idx
		}
		if len(right) > 0 {
			stack = append(stack, job{lines: right, parent: idx})
		}
		if len(left) > 0 {
			stack = append(stack, job{lines: left, parent: idx, left: true})
		}
		// pieces of cut lines do not count as work
		n := 1
		if extra > 0 {
			extra--
			n = 0
		}
		if err := comm.Step(c, n); err != nil {
			t.Invalidate()
			return err
		}
	}
	t.built = true
	return nil
}

// pickSplitter chooses the line that best halves the bounding box of
// lines. Lines running across the longer side of the box are preferred;
// among them the one whose midpoint is nearest the box centre wins, ties
// going to the earlier line. Large sets are scored on an even sample.
func pickSplitter(lines []geom.Line) int {
	var bounds geom.Region
	for _, l := range lines {
		bounds = bounds.Union(l.Bounds())
	}
	centre := bounds.Centre()
	wide := bounds.Width() >= bounds.Height()

	stride := 1
	if len(lines) > maxSample {
		stride = len(lines) / maxSample
	}
	score := func(l geom.Line) float64 {
		m := l.Midpoint()
		if wide {
			return math.Abs(m.X - centre.X)
		}
		return math.Abs(m.Y - centre.Y)
	}
	across := func(l geom.Line) bool {
		v := l.Vector()
		if wide {
			return math.Abs(v.Y) > math.Abs(v.X)
		}
		return math.Abs(v.X) > math.Abs(v.Y)
	}

	best, bestScore := -1, 0.0
	for i := 0; i < len(lines); i += stride {
		if !across(lines[i]) {
			continue
		}
		if s := score(lines[i]); best < 0 || s < bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 {
		return best
	}
	for i := 0; i < len(lines); i += stride {
		if s := score(lines[i]); best < 0 || s < bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// partition sorts every line except the splitter to the left (including
// collinear lines) or right of it, cutting lines that straddle it.
func partition(lines []geom.Line, pick int) (left, right []geom.Line) {
	split := lines[pick]
	for i, l := range lines {
		if i == pick {
			continue
		}
		sa, sb := split.Side(l.A), split.Side(l.B)
		switch {
		case sa >= 0 && sb >= 0:
			left = append(left, l)
		case sa <= 0 && sb <= 0:
			right = append(right, l)
		default:
			p := cutPoint(l, sa, sb)
			a, b := geom.Line{A: l.A, B: p}, geom.Line{A: p, B: l.B}
			if sa > 0 {
				left, right = append(left, a), append(right, b)
			} else {
				left, right = append(left, b), append(right, a)
			}
		}
	}
	return left, right
}

// cutPoint returns where l crosses a splitter, given the splitter's side
// values sa and sb of l's end points. They have opposite signs.
func cutPoint(l geom.Line, sa, sb float64) geom.Point {
	d := sb - sa
	return geom.Pt((l.A.X*sb-l.B.X*sa)/d, (l.A.Y*sb-l.B.Y*sa)/d)
}

// ===== Ray queries =====

const rayEpsilon = 1e-9

// rayHit returns the distance along the unit direction d from o to
// segment s.
func rayHit(o, d geom.Point, s geom.Line) (float64, bool) {
	e := s.Vector()
	den := d.Cross(e)
	if math.Abs(den) < 1e-12 {
		return 0, false
	}
	w := s.A.Sub(o)
	t := w.Cross(e) / den
	u := w.Cross(d) / den
	if t <= rayEpsilon || u < -rayEpsilon || u > 1+rayEpsilon {
		return 0, false
	}
	return t, true
}

// Raycast returns the distance from o along the unit direction d to the
// nearest line, if any line is hit before maxDist.
func (t *Tree) Raycast(o, d geom.Point, maxDist float64) (float64, bool) {
	if !t.built {
		return 0, false
	}
	best := t.cast(t.root, o, d, maxDist)
	return best, best < maxDist
}

// cast visits the side of each splitter holding o first and only crosses
// to the far side when the ray reaches the splitter before the best hit.
func (t *Tree) cast(n int, o, d geom.Point, best float64) float64 {
	if n == noNode {
		return best
	}
	nd := &t.nodes[n]
	side := nd.line.Side(o)
	near, far := nd.left, nd.right
	if side < 0 {
		near, far = far, near
	}
	best = t.cast(near, o, d, best)
	if h, ok := rayHit(o, d, nd.line); ok && h < best {
		best = h
	}
	if side == 0 {
		return t.cast(far, o, d, best)
	}
	v := nd.line.Vector()
	den := d.Cross(v)
	if math.Abs(den) < 1e-12 {
		return best
	}
	cross := nd.line.A.Sub(o).Cross(v) / den
	if cross <= 0 || cross >= best {
		return best
	}
	return t.cast(far, o, d, best)
}
