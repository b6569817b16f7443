package analysis

import (
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// denseGraph is a shape graph with keys mapped to consecutive indices.
type denseGraph struct {
	keys []int
	pos  map[int]int
	adj  [][]int
}

func newDenseGraph(m *shape.Map) (*denseGraph, error) {
	if !m.Type().IsGraph() || !m.HasConnections() {
		return nil, ErrNotAGraph
	}
	keys := m.Keys()
	g := &denseGraph{keys: keys, pos: make(map[int]int, len(keys)), adj: make([][]int, len(keys))}
	for i, k := range keys {
		g.pos[k] = i
	}
	for i, k := range keys {
		for _, n := range m.Connections(k) {
			if j, ok := g.pos[n]; ok {
				g.adj[i] = append(g.adj[i], j)
			}
		}
	}
	return g, nil
}

// search is the result of a breadth first search. Unreached nodes have
// depth -1.
type search struct {
	order []int
	depth []int
	sigma []float64
	preds [][]int
}

// bfs searches from every source at depth zero.
func bfs(adj [][]int, sources ...int) search {
	n := len(adj)
	s := search{
		order: make([]int, 0, n),
		depth: make([]int, n),
		sigma: make([]float64, n),
		preds: make([][]int, n),
	}
	for i := range s.depth {
		s.depth[i] = -1
	}
	for _, src := range sources {
		if s.depth[src] < 0 {
			s.depth[src] = 0
			s.sigma[src] = 1
			s.order = append(s.order, src)
		}
	}
	for head := 0; head < len(s.order); head++ {
		v := s.order[head]
		for _, w := range adj[v] {
			if s.depth[w] < 0 {
				s.depth[w] = s.depth[v] + 1
				s.order = append(s.order, w)
			}
			if s.depth[w] == s.depth[v]+1 {
				s.sigma[w] += s.sigma[v]
				s.preds[w] = append(s.preds[w], v)
			}
		}
	}
	return s
}

// within reports whether depth d lies inside radius r.
func within(d, r int) bool { return d >= 0 && (r == RadiusN || d <= r) }
