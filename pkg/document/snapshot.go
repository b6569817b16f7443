package document

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// Snapshot is the serialisable form of a [Document].
type Snapshot struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Region    geom.Region      `json:"region"`
	Drawings  []GroupSnapshot  `json:"drawings,omitempty"`
	Grids     []grid.Snapshot  `json:"grids,omitempty"`
	Graphs    []shape.Snapshot `json:"graphs,omitempty"`
	Data      []shape.Snapshot `json:"data,omitempty"`
	Displayed DisplaySnapshot  `json:"displayed"`
	View      ViewSnapshot     `json:"view"`
	State     State            `json:"state"`
}

// GroupSnapshot is a stored drawing group.
type GroupSnapshot struct {
	Name string           `json:"name"`
	Maps []shape.Snapshot `json:"maps"`
}

// DisplaySnapshot holds the displayed member of each family.
type DisplaySnapshot struct {
	Grid  int `json:"grid"`
	Axial int `json:"axial"`
	Data  int `json:"data"`
}

// ViewSnapshot is a stored view class.
type ViewSnapshot struct {
	Front string `json:"front"`
	Back  string `json:"back,omitempty"`
}

// Snapshot captures the document. With sorted set every table is written
// with its columns in name order.
func (d *Document) Snapshot(sorted bool) Snapshot {
	s := Snapshot{
		ID:     d.ID.String(),
		Name:   d.Name,
		Region: d.region,
		Displayed: DisplaySnapshot{
			Grid:  d.Displayed(FamilyGrid),
			Axial: d.Displayed(FamilyAxial),
			Data:  d.Displayed(FamilyData),
		},
		View:  ViewSnapshot{Front: d.view.front.String()},
		State: d.state,
	}
	if d.view.back != FamilyNone {
		s.View.Back = d.view.back.String()
	}
	for _, g := range d.drawings {
		gs := GroupSnapshot{Name: g.Name}
		for _, m := range g.Maps {
			gs.Maps = append(gs.Maps, m.Snapshot(sorted))
		}
		s.Drawings = append(s.Drawings, gs)
	}
	for _, m := range d.grids {
		s.Grids = append(s.Grids, m.Snapshot(sorted))
	}
	for _, m := range d.graphs {
		s.Graphs = append(s.Graphs, m.Snapshot(sorted))
	}
	for _, m := range d.data {
		s.Data = append(s.Data, m.Snapshot(sorted))
	}
	return s
}

// FromSnapshot rebuilds a document. Displayed indices and the view are
// checked against the maps read.
func FromSnapshot(s Snapshot) (*Document, error) {
	d := New(s.Name)
	if s.ID != "" {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("document id: %w", err)
		}
		d.ID = id
	}
	d.region = s.Region
	d.state = s.State

	for _, gs := range s.Drawings {
		g := &DrawingGroup{Name: gs.Name}
		for _, ms := range gs.Maps {
			m, err := shape.FromSnapshot(ms)
			if err != nil {
				return nil, fmt.Errorf("drawing %q: %w", ms.Name, err)
			}
			g.Maps = append(g.Maps, m)
		}
		d.drawings = append(d.drawings, g)
	}
	for _, gs := range s.Grids {
		m, err := grid.FromSnapshot(gs)
		if err != nil {
			return nil, fmt.Errorf("grid %q: %w", gs.Name, err)
		}
		d.grids = append(d.grids, m)
	}
	for _, ms := range s.Graphs {
		m, err := shape.FromSnapshot(ms)
		if err != nil {
			return nil, fmt.Errorf("graph %q: %w", ms.Name, err)
		}
		d.graphs = append(d.graphs, m)
	}
	for _, ms := range s.Data {
		m, err := shape.FromSnapshot(ms)
		if err != nil {
			return nil, fmt.Errorf("data map %q: %w", ms.Name, err)
		}
		d.data = append(d.data, m)
	}

	for f, i := range map[Family]int{
		FamilyGrid:  s.Displayed.Grid,
		FamilyAxial: s.Displayed.Axial,
		FamilyData:  s.Displayed.Data,
	} {
		if i < -1 || i >= d.count(f) || (i == -1 && d.count(f) > 0) {
			return nil, fmt.Errorf("displayed %s map %d: %w", f, i, ErrUnknownMap)
		}
		d.displayed[f] = i
	}

	front, err := parseViewFamily(s.View.Front)
	if err != nil {
		return nil, err
	}
	back, err := parseViewFamily(s.View.Back)
	if err != nil {
		return nil, err
	}
	for _, f := range []Family{front, back} {
		if f != FamilyNone && d.count(f) == 0 {
			return nil, fmt.Errorf("view shows empty %s family: %w", f, ErrUnknownMap)
		}
	}
	d.view = makeView(front, back)
	return d, nil
}

func parseViewFamily(s string) (Family, error) {
	if s == "" || s == FamilyNone.String() {
		return FamilyNone, nil
	}
	return ParseFamily(s)
}
