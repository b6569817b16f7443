package analysis

import (
	"github.com/matzehuels/spacegraph/pkg/bsp"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
)

// GridStepDepth writes the number of cell steps from the nearest selected
// cell, moving between adjacent filled cells and across merge links.
type GridStepDepth struct{}

// Run implements [Kernel].
func (GridStepDepth) Run(c comm.Communicator, m *grid.PointMap, _ Options) (Result, error) {
	if !m.HasPoints() {
		return Result{}, ErrNoPoints
	}
	sel := m.Selection()
	if len(sel) == 0 {
		return Result{}, ErrNoSelection
	}

	comm.SetTotal(c, m.FilledCount())
	depth := make(map[grid.PixelRef]int, m.FilledCount())
	queue := make([]grid.PixelRef, 0, m.FilledCount())
	for _, ref := range sel {
		if cell, ok := m.Cell(ref); ok && cell.Filled() {
			if _, seen := depth[ref]; !seen {
				depth[ref] = 0
				queue = append(queue, ref)
			}
		}
	}
	for head := 0; head < len(queue); head++ {
		ref := queue[head]
		for _, n := range m.Neighbours(ref) {
			if _, seen := depth[n]; !seen {
				depth[n] = depth[ref] + 1
				queue = append(queue, n)
			}
		}
		if err := comm.Step(c, 1); err != nil {
			return Result{}, err
		}
	}

	out := &output{}
	col := out.column(ColStepDepth)
	for ref, d := range depth {
		col.values[int(ref)] = float64(d)
	}
	if err := out.write(m.Table()); err != nil {
		return Result{}, err
	}
	return Result{Completed: true, DisplayColumn: ColStepDepth}, nil
}

// GridIsovist writes the isovist measures of every filled cell, seen from
// the cell centre. Tree must be built from the walls of the plan; Region
// bounds rays that escape the walls.
type GridIsovist struct {
	Tree   *bsp.Tree
	Region geom.Region
}

// Run implements [Kernel].
func (k GridIsovist) Run(c comm.Communicator, m *grid.PointMap, opts Options) (Result, error) {
	if k.Tree == nil || !k.Tree.Built() {
		return Result{}, bsp.ErrNotBuilt
	}
	if !m.HasPoints() {
		return Result{}, ErrNoPoints
	}
	refs := m.FilledRefs()
	if opts.SelectionOnly {
		if refs = m.Selection(); len(refs) == 0 {
			return Result{}, ErrNoSelection
		}
	}
	region := k.Region
	if region.Empty() {
		region = m.Region()
	}

	out := &output{}
	cols := make([]*columnBuffer, len(bsp.Columns))
	for i, name := range bsp.Columns {
		cols[i] = out.column(name)
	}
	comm.SetTotal(c, len(refs))
	for _, ref := range refs {
		iso, err := k.Tree.Isovist(m.Depixelate(ref), region, 0, 0)
		if err != nil {
			return Result{}, err
		}
		for i, v := range iso.Values() {
			cols[i].values[int(ref)] = v
		}
		if err := comm.Step(c, 1); err != nil {
			return Result{}, err
		}
	}
	if err := out.write(m.Table()); err != nil {
		return Result{}, err
	}
	return Result{Completed: true, DisplayColumn: bsp.ColArea}, nil
}
