package document

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/matzehuels/spacegraph/pkg/bsp"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

var (
	// ErrNoDisplayedMap is returned by operations on the displayed map of
	// a family that displays nothing.
	ErrNoDisplayedMap = errors.New("no map displayed")

	// ErrUnknownMap is returned when a map index is out of range.
	ErrUnknownMap = errors.New("unknown map")

	// ErrWrongFamily is returned when the front family cannot serve the
	// operation, such as [Document.MakeIsovistPath] with a grid in front.
	ErrWrongFamily = errors.New("operation not available for the displayed map family")
)

// State records which kinds of content the document holds.
type State uint8

const (
	// LineData is set once drawing geometry has been imported.
	LineData State = 1 << iota
	// PointMaps is set while the document holds a grid map.
	PointMaps
	// ShapeGraphs is set while the document holds a shape graph.
	ShapeGraphs
	// DataMaps is set while the document holds a data map.
	DataMaps
)

// Has reports whether every flag in f is set.
func (s State) Has(f State) bool { return s&f == f }

// familyState maps a family to the state flag that says it has members.
func familyState(f Family) State {
	switch f {
	case FamilyGrid:
		return PointMaps
	case FamilyAxial:
		return ShapeGraphs
	case FamilyData:
		return DataMaps
	}
	return 0
}

// MapRef addresses a map by family and index.
type MapRef struct {
	Family Family
	Index  int
}

func (r MapRef) String() string { return fmt.Sprintf("%s[%d]", r.Family, r.Index) }

// DrawingGroup is a named set of drawing layers, usually one imported
// file.
type DrawingGroup struct {
	Name string
	Maps []*shape.Map
}

// Document owns every map of one plan: drawing groups, grid maps, shape
// graphs and data maps, and the partition built from the shown drawings.
// Maps are addressed by index within their family. A Document is not safe
// for concurrent use.
type Document struct {
	ID   uuid.UUID
	Name string

	region   geom.Region
	drawings []*DrawingGroup
	grids    []*grid.PointMap
	graphs   []*shape.Map
	data     []*shape.Map

	displayed map[Family]int
	view      View
	state     State

	tree *bsp.Tree
}

// New returns an empty document.
func New(name string) *Document {
	return &Document{
		ID:        uuid.New(),
		Name:      name,
		displayed: map[Family]int{FamilyGrid: -1, FamilyAxial: -1, FamilyData: -1},
		tree:      bsp.New(),
	}
}

// Region returns the union of every drawing layer's extent.
func (d *Document) Region() geom.Region { return d.region }

// State returns the content flags.
func (d *Document) State() State { return d.state }

// View returns the view class.
func (d *Document) View() View { return d.view }

// ===== Drawings =====

// DrawingGroups returns the drawing groups in import order.
func (d *Document) DrawingGroups() []*DrawingGroup { return slices.Clone(d.drawings) }

// drawingGroup returns the named group, creating it if needed.
func (d *Document) drawingGroup(name string) *DrawingGroup {
	for _, g := range d.drawings {
		if g.Name == name {
			return g
		}
	}
	g := &DrawingGroup{Name: name}
	d.drawings = append(d.drawings, g)
	return g
}

// ImportShapes adds a drawing layer called name holding shapes to the
// named drawing group, creating the group if needed. It returns the layer's
// index within the group.
func (d *Document) ImportShapes(group, name string, shapes []shape.Shape) (int, error) {
	m := shape.New(name, shape.Drawing)
	for _, s := range shapes {
		if _, err := m.MakeShape(s, m.NextKey()); err != nil {
			return -1, err
		}
	}
	return d.addDrawing(group, m), nil
}

func (d *Document) addDrawing(group string, m *shape.Map) int {
	g := d.drawingGroup(group)
	g.Maps = append(g.Maps, m)
	d.state |= LineData
	d.updateRegion()
	d.InvalidateBSP()
	return len(g.Maps) - 1
}

// SetDrawingShown shows or hides one drawing layer. Hidden layers take no
// part in the partition or in conversions.
func (d *Document) SetDrawingShown(group, layer int, shown bool) error {
	if group < 0 || group >= len(d.drawings) {
		return fmt.Errorf("drawing group %d: %w", group, ErrUnknownMap)
	}
	g := d.drawings[group]
	if layer < 0 || layer >= len(g.Maps) {
		return fmt.Errorf("drawing layer %d of %q: %w", layer, g.Name, ErrUnknownMap)
	}
	if g.Maps[layer].Shown() != shown {
		g.Maps[layer].SetShown(shown)
		d.InvalidateBSP()
	}
	return nil
}

// shownDrawings returns every shown drawing layer.
func (d *Document) shownDrawings() []*shape.Map {
	var out []*shape.Map
	for _, g := range d.drawings {
		for _, m := range g.Maps {
			if m.Shown() {
				out = append(out, m)
			}
		}
	}
	return out
}

// ShownLines returns the segments of every shown drawing layer.
func (d *Document) ShownLines() []geom.Line {
	var lines []geom.Line
	for _, m := range d.shownDrawings() {
		lines = append(lines, m.Lines()...)
	}
	return lines
}

func (d *Document) updateRegion() {
	var r geom.Region
	for _, g := range d.drawings {
		for _, m := range g.Maps {
			r = r.Union(m.Region())
		}
	}
	d.region = r
}

// ===== Maps =====

func (d *Document) count(f Family) int {
	switch f {
	case FamilyGrid:
		return len(d.grids)
	case FamilyAxial:
		return len(d.graphs)
	case FamilyData:
		return len(d.data)
	}
	return 0
}

// Count returns the number of maps in family f.
func (d *Document) Count(f Family) int { return d.count(f) }

// Grids returns the grid maps.
func (d *Document) Grids() []*grid.PointMap { return slices.Clone(d.grids) }

// Graphs returns the shape graphs.
func (d *Document) Graphs() []*shape.Map { return slices.Clone(d.graphs) }

// DataMaps returns the data maps.
func (d *Document) DataMaps() []*shape.Map { return slices.Clone(d.data) }

// Grid returns grid map i.
func (d *Document) Grid(i int) (*grid.PointMap, error) {
	if i < 0 || i >= len(d.grids) {
		return nil, fmt.Errorf("grid map %d: %w", i, ErrUnknownMap)
	}
	return d.grids[i], nil
}

// ShapeMap returns shape graph or data map i.
func (d *Document) ShapeMap(f Family, i int) (*shape.Map, error) {
	var maps []*shape.Map
	switch f {
	case FamilyAxial:
		maps = d.graphs
	case FamilyData:
		maps = d.data
	default:
		return nil, fmt.Errorf("%s maps hold no shapes: %w", f, ErrWrongFamily)
	}
	if i < 0 || i >= len(maps) {
		return nil, fmt.Errorf("%s map %d: %w", f, i, ErrUnknownMap)
	}
	return maps[i], nil
}

// FindMap returns the first map of family f called name.
func (d *Document) FindMap(f Family, name string) (MapRef, bool) {
	var i int
	switch f {
	case FamilyGrid:
		i = slices.IndexFunc(d.grids, func(m *grid.PointMap) bool { return m.Name == name })
	case FamilyAxial:
		i = slices.IndexFunc(d.graphs, func(m *shape.Map) bool { return m.Name == name })
	case FamilyData:
		i = slices.IndexFunc(d.data, func(m *shape.Map) bool { return m.Name == name })
	default:
		i = -1
	}
	return MapRef{Family: f, Index: i}, i >= 0
}

// AddGrid adds an empty grid map over the document region, displays it and
// brings grids to the front. The caller lays out the grid with
// [grid.PointMap.SetGrid].
func (d *Document) AddGrid(name string) int {
	d.grids = append(d.grids, grid.New(name, d.region))
	return d.added(FamilyGrid)
}

// AddDataMap adds an empty, editable data map and displays it.
func (d *Document) AddDataMap(name string) int {
	m := shape.New(name, shape.Data)
	_ = m.SetEditable(true)
	return d.AddShapeMap(m)
}

// AddShapeMap adds m to the family its type belongs to and displays it.
// Drawing maps go to a drawing group named after the map instead.
func (d *Document) AddShapeMap(m *shape.Map) int {
	switch {
	case m.Type() == shape.Drawing:
		return d.addDrawing(m.Name, m)
	case m.Type().IsGraph():
		d.graphs = append(d.graphs, m)
		return d.added(FamilyAxial)
	default:
		d.data = append(d.data, m)
		return d.added(FamilyData)
	}
}

// added displays the last member of f and brings f to the front.
func (d *Document) added(f Family) int {
	i := d.count(f) - 1
	d.state |= familyState(f)
	_ = d.SetDisplayed(f, i)
	d.view = d.view.Apply(ShowTop(f))
	return i
}

// ===== Display =====

// Displayed returns the index of the displayed member of f, or -1.
func (d *Document) Displayed(f Family) int {
	if i, ok := d.displayed[f]; ok {
		return i
	}
	return -1
}

// SetDisplayed displays member i of f. The previously displayed member
// loses its selection.
func (d *Document) SetDisplayed(f Family, i int) error {
	if i < 0 || i >= d.count(f) {
		return fmt.Errorf("%s map %d: %w", f, i, ErrUnknownMap)
	}
	if prev := d.Displayed(f); prev >= 0 && prev != i && prev < d.count(f) {
		d.clearSelection(MapRef{Family: f, Index: prev})
	}
	d.displayed[f] = i
	return nil
}

func (d *Document) clearSelection(r MapRef) {
	switch r.Family {
	case FamilyGrid:
		d.grids[r.Index].ClearSel()
	case FamilyAxial:
		d.graphs[r.Index].ClearSel()
	case FamilyData:
		d.data[r.Index].ClearSel()
	}
}

// DisplayedGrid returns the displayed grid map.
func (d *Document) DisplayedGrid() (*grid.PointMap, error) {
	i := d.Displayed(FamilyGrid)
	if i < 0 {
		return nil, fmt.Errorf("grid: %w", ErrNoDisplayedMap)
	}
	return d.grids[i], nil
}

// DisplayedShapeMap returns the displayed member of FamilyAxial or
// FamilyData.
func (d *Document) DisplayedShapeMap(f Family) (*shape.Map, error) {
	i := d.Displayed(f)
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", f, ErrNoDisplayedMap)
	}
	return d.ShapeMap(f, i)
}

// frontShapeMap returns the displayed map of the front family when that
// family holds shapes.
func (d *Document) frontShapeMap() (*shape.Map, error) {
	f := d.view.Front()
	if f != FamilyAxial && f != FamilyData {
		return nil, ErrWrongFamily
	}
	return d.DisplayedShapeMap(f)
}

// SetViewClass applies a view class command. It reports false, leaving the
// view unchanged, when the family has no members.
func (d *Document) SetViewClass(c Command) bool {
	if d.count(c.Family()) == 0 {
		return false
	}
	d.view = d.view.Apply(c)
	return true
}

// RemoveDisplayedMap deletes the displayed member of the front family and
// displays the member before it. Removing the last member clears the
// family from the view and from the state.
func (d *Document) RemoveDisplayedMap() error {
	f := d.view.Front()
	i := d.Displayed(f)
	if f == FamilyNone || i < 0 {
		return ErrNoDisplayedMap
	}
	d.removeMap(MapRef{Family: f, Index: i})
	return nil
}

// removeMap deletes a map and fixes the displayed index of its family.
func (d *Document) removeMap(r MapRef) {
	switch r.Family {
	case FamilyGrid:
		d.grids = slices.Delete(d.grids, r.Index, r.Index+1)
	case FamilyAxial:
		d.graphs = slices.Delete(d.graphs, r.Index, r.Index+1)
	case FamilyData:
		d.data = slices.Delete(d.data, r.Index, r.Index+1)
	}
	n := d.count(r.Family)
	if n == 0 {
		d.displayed[r.Family] = -1
		d.state &^= familyState(r.Family)
		d.view = d.view.drop(r.Family)
		return
	}
	switch shown := d.Displayed(r.Family); {
	case shown == r.Index:
		d.displayed[r.Family] = max(0, r.Index-1)
	case shown > r.Index:
		d.displayed[r.Family] = shown - 1
	}
}

// ===== Undo =====

// CanUndo reports whether the displayed map of the front family can undo
// its last edit.
func (d *Document) CanUndo() bool {
	switch f := d.view.Front(); f {
	case FamilyGrid:
		m, err := d.DisplayedGrid()
		return err == nil && m.CanUndo()
	case FamilyAxial, FamilyData:
		m, err := d.DisplayedShapeMap(f)
		return err == nil && m.CanUndo()
	}
	return false
}

// Undo reverts the last edit of the displayed map of the front family.
func (d *Document) Undo() bool {
	if !d.CanUndo() {
		return false
	}
	switch f := d.view.Front(); f {
	case FamilyGrid:
		m, _ := d.DisplayedGrid()
		return m.Undo()
	case FamilyAxial, FamilyData:
		m, _ := d.DisplayedShapeMap(f)
		return m.Undo()
	}
	return false
}

// IsEditable reports whether the displayed map of the front family accepts
// edits. Segment graphs are derived and never editable; grids are editable
// once laid out.
func (d *Document) IsEditable() bool {
	switch f := d.view.Front(); f {
	case FamilyGrid:
		m, err := d.DisplayedGrid()
		return err == nil && m.HasGrid()
	case FamilyAxial, FamilyData:
		m, err := d.DisplayedShapeMap(f)
		return err == nil && m.Type() != shape.Segment && m.Editable()
	}
	return false
}
