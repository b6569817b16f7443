package document

import (
	"fmt"

	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// ConvertedGroup is the drawing group that receives maps converted to
// drawings.
const ConvertedGroup = "Converted Maps"

// ConvertOptions configures [Document.Convert].
type ConvertOptions struct {
	// Name of the new map. Defaults to the target type's name.
	Name string
	To   shape.Type
	// From is the family whose displayed map is converted. FamilyNone
	// converts the shown drawing layers.
	From Family
	// CopyAttributes copies attribute values between attribute-bearing
	// maps.
	CopyAttributes bool
	// RemoveSource deletes the converted map afterwards. Drawing layers
	// are never removed.
	RemoveSource bool
	// StubRemoval drops line ends shorter than this fraction of their line
	// when an axial graph is cut into segments.
	StubRemoval float64
}

// Convert makes a new map from the shown drawings or from the displayed
// map of a family, adds it to the document and displays it. On error or
// cancellation the document is unchanged. It returns where the new map
// went; converted drawings report FamilyNone and their index in
// [ConvertedGroup].
func (d *Document) Convert(c comm.Communicator, opts ConvertOptions) (MapRef, error) {
	name := opts.Name
	if name == "" {
		name = opts.To.String() + " map"
	}

	var sources []*shape.Map
	src := MapRef{Family: opts.From, Index: d.Displayed(opts.From)}
	if opts.From == FamilyNone {
		sources = d.shownDrawings()
		if len(sources) == 0 {
			return MapRef{}, fmt.Errorf("no shown drawing layers: %w", shape.ErrNothingToConvert)
		}
	} else {
		m, err := d.DisplayedShapeMap(opts.From)
		if err != nil {
			return MapRef{}, err
		}
		sources = []*shape.Map{m}
	}

	var (
		m   *shape.Map
		err error
	)
	switch opts.To {
	case shape.Axial:
		m, err = shape.ToAxial(c, name, sources, opts.CopyAttributes)
	case shape.Segment:
		if len(sources) == 1 && sources[0].Type() == shape.Axial {
			m, err = shape.AxialToSegment(c, name, sources[0], opts.CopyAttributes, opts.StubRemoval)
		} else {
			m, err = shape.ToSegment(c, name, sources, opts.CopyAttributes)
		}
	case shape.Convex:
		m, err = shape.ToConvex(c, name, sources, opts.CopyAttributes)
	case shape.Data:
		m, err = shape.ToData(c, name, sources, opts.CopyAttributes)
	case shape.Drawing:
		if opts.From == FamilyNone {
			return MapRef{}, fmt.Errorf("drawings are already drawings: %w", ErrWrongFamily)
		}
		m, err = shape.ToDrawing(c, name, sources[0])
	default:
		return MapRef{}, fmt.Errorf("cannot convert to %s", opts.To)
	}
	if err != nil {
		return MapRef{}, err
	}

	if opts.RemoveSource && opts.From != FamilyNone {
		d.removeMap(src)
	}
	switch {
	case opts.To == shape.Drawing:
		return MapRef{Family: FamilyNone, Index: d.addDrawing(ConvertedGroup, m)}, nil
	case opts.To == shape.Data && opts.From == FamilyNone:
		for _, s := range sources {
			s.SetShown(false)
		}
		d.InvalidateBSP()
		return MapRef{Family: FamilyData, Index: d.AddShapeMap(m)}, nil
	case opts.To == shape.Data:
		return MapRef{Family: FamilyData, Index: d.AddShapeMap(m)}, nil
	}
	return MapRef{Family: FamilyAxial, Index: d.AddShapeMap(m)}, nil
}
