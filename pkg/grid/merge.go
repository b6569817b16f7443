package grid

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/spacegraph/pkg/geom"
)

var (
	// ErrNotOnGrid is returned by [PointMap.MergeLines] when a line end
	// does not fall on a filled cell.
	ErrNotOnGrid = errors.New("line ends not both on filled cells")

	// ErrOverlappingLink is returned by [PointMap.MergeLines] when two of
	// the requested links share a cell.
	ErrOverlappingLink = errors.New("overlapping link")

	// ErrAlreadyMerged is returned by [PointMap.MergeLines] when a link end
	// is already merged on the map.
	ErrAlreadyMerged = errors.New("cell already merged")
)

// MergePixels merges cells a and b. Any pair that already involves a or b
// is dissolved first; merging a cell with itself only dissolves. It reports
// false when either ref is off the grid.
func (m *PointMap) MergePixels(a, b PixelRef) bool {
	if !m.Includes(a) || !m.Includes(b) {
		return false
	}
	m.unmergePixel(a)
	if a == b {
		return true
	}
	m.unmergePixel(b)
	m.cell(a).Merge = b
	m.cell(b).Merge = a
	m.merges = append(m.merges, Pair{A: a, B: b})
	return true
}

func (m *PointMap) unmergePixel(a PixelRef) {
	b := m.cell(a).Merge
	if b == NoPixel {
		return
	}
	m.cell(a).Merge = NoPixel
	m.cell(b).Merge = NoPixel
	m.merges = slices.DeleteFunc(m.merges, func(p Pair) bool {
		return p.A == a || p.B == a
	})
}

// IsPixelMerged reports whether ref is part of a merge pair.
func (m *PointMap) IsPixelMerged(ref PixelRef) bool {
	return m.Includes(ref) && m.cell(ref).Merge != NoPixel
}

// MergePartner returns the cell merged with ref, or NoPixel.
func (m *PointMap) MergePartner(ref PixelRef) PixelRef {
	if !m.Includes(ref) {
		return NoPixel
	}
	return m.cell(ref).Merge
}

// MergedPairs returns the merge pairs in the order they were made.
func (m *PointMap) MergedPairs() []Pair { return slices.Clone(m.merges) }

// MergePoints merges the selection with the cells under p. The selection is
// moved so that its lowest column and row land on the cell containing p,
// and every selected cell is merged with the filled cell it lands on. The
// selection is cleared. It reports false when nothing is selected.
func (m *PointMap) MergePoints(p geom.Point) bool {
	sel := m.Selection()
	if len(sel) == 0 {
		return false
	}
	target := m.Pixelate(p, true)
	minX, minY := sel[0].X(), sel[0].Y()
	for _, r := range sel[1:] {
		minX, minY = min(minX, r.X()), min(minY, r.Y())
	}
	dx, dy := target.X()-minX, target.Y()-minY

	m.beginUndo()
	for _, a := range sel {
		b := a.Offset(dx, dy)
		if b == NoPixel || !m.Includes(b) || !m.cell(b).Filled() {
			continue
		}
		m.MergePixels(a, b)
	}
	m.sel.clear()
	return true
}

// UnmergePoints dissolves every merge pair that involves a selected cell
// and clears the selection. It reports false when nothing is selected.
func (m *PointMap) UnmergePoints() bool {
	sel := m.Selection()
	if len(sel) == 0 {
		return false
	}
	m.beginUndo()
	for _, r := range sel {
		m.unmergePixel(r)
	}
	m.sel.clear()
	return true
}

// MergeLines merges the cells under the two ends of every line. Either all
// links are made or, on error, none are.
func (m *PointMap) MergeLines(lines []geom.Line) error {
	pairs := make([]Pair, 0, len(lines))
	used := make(map[PixelRef]bool, 2*len(lines))
	for i, l := range lines {
		a, b := m.Pixelate(l.A, false), m.Pixelate(l.B, false)
		if a == NoPixel || b == NoPixel || !m.cell(a).Filled() || !m.cell(b).Filled() {
			return fmt.Errorf("link %d: %w", i, ErrNotOnGrid)
		}
		if used[a] || used[b] {
			return fmt.Errorf("link %d: %w", i, ErrOverlappingLink)
		}
		if m.IsPixelMerged(a) || m.IsPixelMerged(b) {
			return fmt.Errorf("link %d: %w", i, ErrAlreadyMerged)
		}
		used[a], used[b] = true, true
		pairs = append(pairs, Pair{A: a, B: b})
	}
	m.beginUndo()
	for _, p := range pairs {
		m.MergePixels(p.A, p.B)
	}
	return nil
}

// MergeLineGeometry returns each merge pair as a line between cell centres.
func (m *PointMap) MergeLineGeometry() []geom.Line {
	out := make([]geom.Line, len(m.merges))
	for i, p := range m.merges {
		out[i] = geom.Line{A: m.Depixelate(p.A), B: m.Depixelate(p.B)}
	}
	return out
}

// MergeLinks returns each merge pair once, ordered by the lower ref, as
// (lower, higher).
func (m *PointMap) MergeLinks() []Pair {
	var out []Pair
	for i, c := range m.cells {
		r := Ref(i/m.rows, i%m.rows)
		if c.Merge != NoPixel && r < c.Merge {
			out = append(out, Pair{A: r, B: c.Merge})
		}
	}
	return out
}
