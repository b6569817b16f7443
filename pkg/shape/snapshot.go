package shape

import (
	"fmt"
	"slices"

	"github.com/matzehuels/spacegraph/pkg/attr"
)

// Snapshot is the serialisable form of a [Map].
type Snapshot struct {
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Editable bool          `json:"editable,omitempty"`
	Hidden   bool          `json:"hidden,omitempty"`
	NextKey  int           `json:"next_key"`
	Shapes   []KeyedShape  `json:"shapes"`
	Links    []Link        `json:"links,omitempty"`
	Unlinks  []Link        `json:"unlinks,omitempty"`
	Graph    bool          `json:"graph,omitempty"`
	Conns    []Link        `json:"connections,omitempty"`
	Table    attr.Snapshot `json:"table"`
}

// KeyedShape is a shape with its key.
type KeyedShape struct {
	Key int `json:"key"`
	Shape
}

// Snapshot captures the map. sorted is passed on to [attr.Table.Snapshot].
func (m *Map) Snapshot(sorted bool) Snapshot {
	s := Snapshot{
		Name:     m.Name,
		Type:     m.typ.String(),
		Editable: m.editable,
		Hidden:   !m.shown,
		NextKey:  m.nextKey,
		Shapes:   make([]KeyedShape, 0, len(m.keys)),
		Links:    m.Links(),
		Unlinks:  m.Unlinks(),
		Graph:    m.conns != nil,
		Conns:    m.ConnectionPairs(),
		Table:    m.table.Snapshot(sorted),
	}
	for _, k := range m.keys {
		s.Shapes = append(s.Shapes, KeyedShape{Key: k, Shape: m.shapes[k].clone()})
	}
	return s
}

// FromSnapshot rebuilds a map written by Snapshot.
func FromSnapshot(s Snapshot) (*Map, error) {
	t, err := ParseType(s.Type)
	if err != nil {
		return nil, err
	}
	m := New(s.Name, t)
	m.editable = s.Editable
	m.shown = !s.Hidden
	for _, ks := range s.Shapes {
		if m.HasShape(ks.Key) || ks.Key < 0 {
			return nil, fmt.Errorf("shape %d: %w", ks.Key, ErrKeyInUse)
		}
		sh := ks.Shape.clone()
		m.shapes[ks.Key] = &sh
		m.keys = append(m.keys, ks.Key)
		m.nextKey = max(m.nextKey, ks.Key+1)
	}
	slices.Sort(m.keys)
	m.nextKey = max(m.nextKey, s.NextKey)
	for _, l := range append(slices.Clone(s.Links), s.Unlinks...) {
		if !m.HasShape(l.A) || !m.HasShape(l.B) {
			return nil, fmt.Errorf("link %d-%d: %w", l.A, l.B, ErrUnknownShape)
		}
	}
	m.links, m.unlinks = s.Links, s.Unlinks
	tb, err := attr.FromSnapshot(s.Table)
	if err != nil {
		return nil, err
	}
	for _, k := range m.keys {
		if !tb.HasRow(k) {
			return nil, fmt.Errorf("shape %d: %w", k, attr.ErrUnknownRow)
		}
	}
	m.table = tb
	if s.Graph {
		m.conns = make(map[int][]int, len(m.keys))
		for _, l := range s.Conns {
			if !m.HasShape(l.A) || !m.HasShape(l.B) {
				return nil, fmt.Errorf("connection %d-%d: %w", l.A, l.B, ErrUnknownShape)
			}
			m.conns[l.A] = append(m.conns[l.A], l.B)
			m.conns[l.B] = append(m.conns[l.B], l.A)
		}
		for k := range m.conns {
			slices.Sort(m.conns[k])
		}
	}
	return m, nil
}
