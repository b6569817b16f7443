package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
)

var (
	// ErrInvalidSpacing is returned by [PointMap.SetGrid] for a spacing that
	// is not a positive number.
	ErrInvalidSpacing = errors.New("grid spacing must be positive")

	// ErrGridTooLarge is returned by [PointMap.SetGrid] when the region
	// needs more columns or rows than a PixelRef can address.
	ErrGridTooLarge = errors.New("grid too large")

	// ErrNoGrid is returned by operations that need [PointMap.SetGrid] to
	// have been called first.
	ErrNoGrid = errors.New("grid not set")
)

// maxCells bounds the allocation made by SetGrid.
const maxCells = 1 << 26

// PointMap is a grid of cells over a plan region. It is not safe for
// concurrent use.
type PointMap struct {
	Name string

	region     geom.Region // area the grid must cover
	gridRegion geom.Region // outer corners of the corner cells
	spacing    float64
	offset     geom.Point
	cols, rows int

	cells  []Cell
	filled int
	merges []Pair

	table *attr.Table
	sel   selection
	undo  *undoRecord
}

// New returns a map that will cover region once SetGrid is called.
func New(name string, region geom.Region) *PointMap {
	return &PointMap{
		Name:   name,
		region: region,
		table:  attr.New(),
		sel:    newSelection(),
	}
}

// SetGrid lays out cells of the given spacing over the map's region,
// discarding every fill, block, merge and attribute row. Cell centres sit on
// multiples of spacing (shifted by offset), so a cell is always centred on
// the origin.
func (m *PointMap) SetGrid(spacing float64, offset geom.Point) error {
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return fmt.Errorf("spacing %v: %w", spacing, ErrInvalidSpacing)
	}
	index := func(c, o float64) int { return int(math.Floor((c-o)/spacing-0.5)) + 1 }
	blx, bly := index(m.region.Min.X, offset.X), index(m.region.Min.Y, offset.Y)
	trx, try := index(m.region.Max.X, offset.X), index(m.region.Max.Y, offset.Y)
	cols, rows := trx-blx+1, try-bly+1
	if cols > 0x7fff || rows > 0xffff || cols*rows > maxCells {
		return fmt.Errorf("%d x %d cells: %w", cols, rows, ErrGridTooLarge)
	}

	bl := geom.Pt(float64(blx)*spacing-0.5*spacing+offset.X, float64(bly)*spacing-0.5*spacing+offset.Y)
	m.spacing, m.offset = spacing, offset
	m.cols, m.rows = cols, rows
	m.gridRegion = geom.Rect(bl, geom.Pt(bl.X+float64(cols)*spacing, bl.Y+float64(rows)*spacing))
	m.cells = make([]Cell, cols*rows)
	for i := range m.cells {
		m.cells[i].Merge = NoPixel
	}
	m.filled = 0
	m.merges = nil
	m.table.Clear()
	m.sel.clear()
	m.undo = nil
	return nil
}

// HasGrid reports whether SetGrid has been called.
func (m *PointMap) HasGrid() bool { return m.cells != nil }

// Region returns the area covered by the cells, or the requested region
// before SetGrid.
func (m *PointMap) Region() geom.Region {
	if m.cells == nil {
		return m.region
	}
	return m.gridRegion
}

// Spacing returns the cell size.
func (m *PointMap) Spacing() float64 { return m.spacing }

// Offset returns the grid offset passed to SetGrid.
func (m *PointMap) Offset() geom.Point { return m.offset }

// Cols returns the number of columns.
func (m *PointMap) Cols() int { return m.cols }

// Rows returns the number of rows.
func (m *PointMap) Rows() int { return m.rows }

// Table returns the attribute table. Rows are keyed by int(PixelRef).
func (m *PointMap) Table() *attr.Table { return m.table }

// FilledCount returns the number of filled cells.
func (m *PointMap) FilledCount() int { return m.filled }

// HasPoints reports whether any cell is filled.
func (m *PointMap) HasPoints() bool { return m.filled > 0 }

// Includes reports whether ref addresses a cell of this grid.
func (m *PointMap) Includes(ref PixelRef) bool {
	return ref >= 0 && ref.X() < m.cols && ref.Y() < m.rows
}

func (m *PointMap) cell(ref PixelRef) *Cell {
	return &m.cells[ref.X()*m.rows+ref.Y()]
}

// Cell returns the state of the cell at ref.
func (m *PointMap) Cell(ref PixelRef) (Cell, bool) {
	if !m.Includes(ref) {
		return Cell{Merge: NoPixel}, false
	}
	return *m.cell(ref), true
}

// Pixelate returns the cell containing p. Points off the grid yield
// NoPixel, or the nearest cell when constrain is set.
func (m *PointMap) Pixelate(p geom.Point, constrain bool) PixelRef {
	if m.cells == nil {
		return NoPixel
	}
	x := int(math.Floor((p.X - m.gridRegion.Min.X) / m.spacing))
	y := int(math.Floor((p.Y - m.gridRegion.Min.Y) / m.spacing))
	if constrain {
		x = min(max(x, 0), m.cols-1)
		y = min(max(y, 0), m.rows-1)
	} else if x < 0 || y < 0 || x >= m.cols || y >= m.rows {
		return NoPixel
	}
	return Ref(x, y)
}

// Depixelate returns the centre of the cell at ref.
func (m *PointMap) Depixelate(ref PixelRef) geom.Point {
	return geom.Pt(
		m.gridRegion.Min.X+(float64(ref.X())+0.5)*m.spacing,
		m.gridRegion.Min.Y+(float64(ref.Y())+0.5)*m.spacing,
	)
}

// CellRegion returns the square covered by the cell at ref.
func (m *PointMap) CellRegion(ref PixelRef) geom.Region {
	c := m.Depixelate(ref)
	h := m.spacing / 2
	return geom.Rect(geom.Pt(c.X-h, c.Y-h), geom.Pt(c.X+h, c.Y+h))
}

// FilledRefs returns every filled cell in ascending ref order.
func (m *PointMap) FilledRefs() []PixelRef {
	refs := make([]PixelRef, 0, m.filled)
	for x := range m.cols {
		for y := range m.rows {
			if m.cells[x*m.rows+y].Filled() {
				refs = append(refs, Ref(x, y))
			}
		}
	}
	return refs
}

// BlockLines replaces the blocked state of the grid: every cell whose
// square a line touches, even at a corner, becomes blocked.
func (m *PointMap) BlockLines(lines []geom.Line) {
	for i := range m.cells {
		m.cells[i].State &^= Blocked
	}
	if m.cells == nil {
		return
	}
	for _, l := range lines {
		b := l.Bounds()
		lo, hi := m.Pixelate(b.Min, true), m.Pixelate(b.Max, true)
		for x := lo.X(); x <= hi.X(); x++ {
			for y := lo.Y(); y <= hi.Y(); y++ {
				ref := Ref(x, y)
				if m.CellRegion(ref).IntersectsLine(l) {
					m.cell(ref).State |= Blocked
				}
			}
		}
	}
}

// MakePoints flood-fills open space from the cell containing seed. It
// reports whether any cell was filled. Cancellation through c stops the
// fill early; the cells filled so far stay filled and the error is
// [comm.ErrCancelled].
func (m *PointMap) MakePoints(seed geom.Point, fill FillType, c comm.Communicator) (bool, error) {
	if m.cells == nil {
		return false, ErrNoGrid
	}
	start := m.Pixelate(seed, false)
	if start == NoPixel {
		return false, nil
	}
	if sc := m.cell(start); sc.Filled() || sc.Blocked() {
		return false, nil
	}

	rec := m.beginUndo()
	comm.SetTotal(c, len(m.cells)-m.filled)
	m.fill(start, fill, rec)
	queue := []PixelRef{start}
	var err error
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		for _, n := range m.spread(ref, fill) {
			if nc := m.cell(n); !nc.Filled() && !nc.Blocked() {
				m.fill(n, fill, rec)
				queue = append(queue, n)
			}
		}
		if err = comm.Step(c, 1); err != nil {
			break
		}
	}
	m.updateEdges()
	return true, err
}

// FillPoint fills (add) or clears the single cell containing p. It reports
// whether the cell changed.
func (m *PointMap) FillPoint(p geom.Point, add bool) bool {
	ref := m.Pixelate(p, false)
	if ref == NoPixel {
		return false
	}
	c := m.cell(ref)
	if add {
		if c.Filled() || c.Blocked() {
			return false
		}
		m.fill(ref, FillFull, m.beginUndo())
	} else {
		if !c.Filled() {
			return false
		}
		m.unfill(ref, m.beginUndo())
		m.table.RemoveRow(int(ref))
	}
	m.updateEdges()
	return true
}

// ClearPoints clears filled cells. With no selection every cell is cleared;
// after a single region selection the cells inside that region; after a
// compound selection the selected cells. The selection is cleared. It
// reports whether anything was cleared.
func (m *PointMap) ClearPoints() bool {
	var targets []PixelRef
	switch m.sel.mode {
	case selectNone:
		targets = m.FilledRefs()
	case selectSingle:
		for x := m.sel.bl.X(); x <= m.sel.tr.X(); x++ {
			for y := m.sel.bl.Y(); y <= m.sel.tr.Y(); y++ {
				if ref := Ref(x, y); m.cell(ref).Filled() {
					targets = append(targets, ref)
				}
			}
		}
	default:
		targets = m.Selection()
	}
	m.sel.clear()
	if len(targets) == 0 {
		return false
	}
	rec := m.beginUndo()
	keys := make([]int, 0, len(targets))
	for _, ref := range targets {
		if m.cell(ref).Filled() {
			m.unfill(ref, rec)
			keys = append(keys, int(ref))
		}
	}
	m.table.RemoveRows(keys)
	m.updateEdges()
	return true
}

// spread returns the cells a fill may step to from ref.
func (m *PointMap) spread(ref PixelRef, fill FillType) []PixelRef {
	out := make([]PixelRef, 0, 8)
	open := func(dx, dy int) bool {
		n := ref.Offset(dx, dy)
		return n != NoPixel && m.Includes(n) && !m.cell(n).Blocked()
	}
	for _, d := range [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
		if open(d[0], d[1]) {
			out = append(out, ref.Offset(d[0], d[1]))
		}
	}
	if fill == FillSemi {
		return out
	}
	for _, d := range [4][2]int{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}} {
		if open(d[0], d[1]) {
			out = append(out, ref.Offset(d[0], d[1]))
		}
	}
	return out
}

// Neighbours returns the filled cells adjacent to ref: orthogonal cells,
// diagonal cells whose two orthogonal cells are filled too, and the merge
// partner.
func (m *PointMap) Neighbours(ref PixelRef) []PixelRef {
	if !m.Includes(ref) {
		return nil
	}
	filled := func(dx, dy int) bool {
		n := ref.Offset(dx, dy)
		return n != NoPixel && m.Includes(n) && m.cell(n).Filled()
	}
	var out []PixelRef
	for _, d := range [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
		if filled(d[0], d[1]) {
			out = append(out, ref.Offset(d[0], d[1]))
		}
	}
	for _, d := range [4][2]int{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}} {
		if filled(d[0], d[1]) && filled(d[0], 0) && filled(0, d[1]) {
			out = append(out, ref.Offset(d[0], d[1]))
		}
	}
	if p := m.cell(ref).Merge; p != NoPixel {
		out = append(out, p)
	}
	return out
}

func (m *PointMap) fill(ref PixelRef, fill FillType, rec *undoRecord) {
	rec.record(m, ref)
	c := m.cell(ref)
	c.State |= Filled
	if fill == FillAugment {
		c.State |= ContextFilled
	}
	m.filled++
	m.table.AddRow(int(ref))
}

// unfill clears ref. The caller removes its attribute row.
func (m *PointMap) unfill(ref PixelRef, rec *undoRecord) {
	rec.record(m, ref)
	if p := m.cell(ref).Merge; p != NoPixel {
		rec.record(m, p)
		m.unmergePixel(ref)
	}
	m.cell(ref).State &^= Filled | Edge | ContextFilled
	m.filled--
	delete(m.sel.refs, ref)
}

// updateEdges recomputes the Edge flag of every cell.
func (m *PointMap) updateEdges() {
	for x := range m.cols {
		for y := range m.rows {
			c := &m.cells[x*m.rows+y]
			c.State &^= Edge
			if !c.Filled() {
				continue
			}
			if m.touchesUnfilled(x, y) {
				c.State |= Edge
			}
		}
	}
}

func (m *PointMap) touchesUnfilled(x, y int) bool {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= m.cols || ny >= m.rows {
				return true
			}
			if !m.cells[nx*m.rows+ny].Filled() {
				return true
			}
		}
	}
	return false
}
