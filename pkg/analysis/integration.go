package analysis

import (
	"math"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// Column names written by [Integration].
const (
	ColMeanDepth       = "Mean Depth"
	ColIntegration     = "Integration [HH]"
	ColNodeCount       = "Node Count"
	ColChoice          = "Choice"
	ColControl         = "Control"
	ColControllability = "Controllability"
	totalPrefix        = "Total "
)

// Integration computes topological measures on shape graphs: mean depth,
// integration and node count per radius when Global is set, choice when
// Choice is set, control and controllability when Local is set.
type Integration struct{}

// Run implements [Kernel].
func (Integration) Run(c comm.Communicator, m *shape.Map, opts Options) (Result, error) {
	g, err := newDenseGraph(m)
	if err != nil {
		return Result{}, err
	}
	origins := m.Keys()
	if opts.SelectionOnly {
		if origins = m.Selection(); len(origins) == 0 {
			return Result{}, ErrNoSelection
		}
	}
	weightCol := -1
	if opts.WeightColumn != "" {
		if weightCol, err = m.Table().ColumnIndex(opts.WeightColumn); err != nil {
			return Result{}, err
		}
	}
	weights := make([]float64, len(g.keys))
	if weightCol >= 0 {
		for i, k := range g.keys {
			weights[i], _ = m.Table().Value(k, weightCol)
		}
	}

	out := &output{}
	choice := make(map[int][]float64, len(opts.Radii))
	for _, r := range opts.Radii {
		choice[r] = make([]float64, len(g.keys))
	}

	comm.SetTotal(c, len(origins))
	for _, k := range origins {
		src := g.pos[k]
		s := bfs(g.adj, src)
		if opts.Global {
			for _, r := range opts.Radii {
				g.global(out, s, src, r, weights, weightCol >= 0, opts.WeightColumn)
			}
		}
		if opts.Choice {
			for _, r := range opts.Radii {
				accumulate(s, src, r, choice[r])
			}
		}
		if opts.Local {
			g.local(out, s, src)
		}
		if err := comm.Step(c, 1); err != nil {
			return Result{}, err
		}
	}
	if opts.Choice {
		for _, r := range opts.Radii {
			col := out.column(columnName(ColChoice, r))
			for i, k := range g.keys {
				col.values[k] = choice[r][i] / 2
			}
		}
	}
	if err := out.write(m.Table()); err != nil {
		return Result{}, err
	}

	res := Result{Completed: true}
	switch {
	case opts.Global && len(opts.Radii) > 0:
		res.DisplayColumn = columnName(ColIntegration, opts.Radii[len(opts.Radii)-1])
	case opts.Local:
		res.DisplayColumn = ColControl
	}
	return res, nil
}

func (g *denseGraph) global(out *output, s search, src, radius int, weights []float64, weighted bool, weightName string) {
	key := g.keys[src]
	var total, count int
	var weight float64
	for _, v := range s.order {
		d := s.depth[v]
		if !within(d, radius) {
			break
		}
		total += d
		count++
		if weighted && weights[v] != attr.Unset {
			weight += weights[v]
		}
	}
	out.column(columnName(ColNodeCount, radius)).values[key] = float64(count)
	if weighted {
		out.column(columnName(totalPrefix+weightName, radius)).values[key] = weight
	}
	md := out.column(columnName(ColMeanDepth, radius))
	hh := out.column(columnName(ColIntegration, radius))
	if count < 2 {
		return
	}
	meanDepth := float64(total) / float64(count-1)
	md.values[key] = meanDepth
	if count < 3 {
		return
	}
	ra := 2 * (meanDepth - 1) / float64(count-2)
	if ra <= 0 {
		return
	}
	hh.values[key] = dValue(count) / ra
}

// dValue is the relative asymmetry of the root of a diamond shaped graph
// of k nodes, used to normalise integration across graph sizes.
func dValue(k int) float64 {
	n := float64(k)
	return 2 * (n*(math.Log2((n+2)/3)-1) + 1) / ((n - 1) * (n - 2))
}

// accumulate adds the pair dependencies of src within radius to choice.
func accumulate(s search, src, radius int, choice []float64) {
	delta := make([]float64, len(s.depth))
	for i := len(s.order) - 1; i >= 0; i-- {
		w := s.order[i]
		if !within(s.depth[w], radius) {
			continue
		}
		for _, v := range s.preds[w] {
			delta[v] += s.sigma[v] / s.sigma[w] * (1 + delta[w])
		}
		if w != src {
			choice[w] += delta[w]
		}
	}
}

func (g *denseGraph) local(out *output, s search, src int) {
	key := g.keys[src]
	var control float64
	var near, second int
	for _, v := range s.order {
		switch s.depth[v] {
		case 0:
			continue
		case 1:
			near++
			if deg := len(g.adj[v]); deg > 0 {
				control += 1 / float64(deg)
			}
		case 2:
			second++
		}
		if s.depth[v] > 2 {
			break
		}
	}
	out.column(ColControl).values[key] = control
	if near+second > 0 {
		out.column(ColControllability).values[key] = float64(near) / float64(near+second)
	} else {
		out.column(ColControllability)
	}
}
