package analysis

import (
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// ColStepDepth is written by [StepDepth] and [GridStepDepth].
const ColStepDepth = "Step Depth"

// StepDepth writes the number of topological steps from the nearest
// selected shape. Unreachable shapes stay unset.
type StepDepth struct{}

// Run implements [Kernel].
func (StepDepth) Run(c comm.Communicator, m *shape.Map, _ Options) (Result, error) {
	g, err := newDenseGraph(m)
	if err != nil {
		return Result{}, err
	}
	sel := m.Selection()
	if len(sel) == 0 {
		return Result{}, ErrNoSelection
	}
	sources := make([]int, len(sel))
	for i, k := range sel {
		sources[i] = g.pos[k]
	}

	comm.SetTotal(c, len(g.keys))
	s := bfs(g.adj, sources...)
	out := &output{}
	col := out.column(ColStepDepth)
	for _, v := range s.order {
		col.values[g.keys[v]] = float64(s.depth[v])
		if err := comm.Step(c, 1); err != nil {
			return Result{}, err
		}
	}
	if err := out.write(m.Table()); err != nil {
		return Result{}, err
	}
	return Result{Completed: true, DisplayColumn: ColStepDepth}, nil
}
