package grid

import "fmt"

// PixelRef identifies a grid cell as x<<16 | y.
type PixelRef int

// NoPixel is the ref of no cell.
const NoPixel PixelRef = -1

// Ref packs cell coordinates into a PixelRef.
func Ref(x, y int) PixelRef { return PixelRef(x<<16 | y) }

// X returns the cell column.
func (r PixelRef) X() int { return int(r) >> 16 }

// Y returns the cell row.
func (r PixelRef) Y() int { return int(r) & 0xffff }

// Offset returns the ref moved by dx columns and dy rows, or NoPixel when
// the result has a negative coordinate.
func (r PixelRef) Offset(dx, dy int) PixelRef {
	x, y := r.X()+dx, r.Y()+dy
	if x < 0 || y < 0 || x > 0x7fff || y > 0xffff {
		return NoPixel
	}
	return Ref(x, y)
}

func (r PixelRef) String() string {
	if r == NoPixel {
		return "none"
	}
	return fmt.Sprintf("(%d,%d)", r.X(), r.Y())
}

// State is a set of cell flags.
type State uint8

const (
	// Filled cells are part of the analysed space.
	Filled State = 1 << iota
	// Blocked cells are touched by a wall line.
	Blocked
	// Edge cells are filled cells next to an unfilled cell or the grid
	// boundary.
	Edge
	// ContextFilled cells were added by an augmenting fill.
	ContextFilled
)

// Has reports whether every flag in f is set.
func (s State) Has(f State) bool { return s&f == f }

// Cell is the state of one grid cell.
type Cell struct {
	State State
	// Merge is the partner cell, or NoPixel.
	Merge PixelRef
}

// Filled reports whether the cell is part of the analysed space.
func (c Cell) Filled() bool { return c.State.Has(Filled) }

// Blocked reports whether a wall touches the cell.
func (c Cell) Blocked() bool { return c.State.Has(Blocked) }

// FillType selects the neighbourhood and bookkeeping of [PointMap.MakePoints].
type FillType int

const (
	// FillFull spreads to all eight neighbours, so it slips through a gap
	// where two blocked cells meet only at a corner.
	FillFull FillType = iota
	// FillSemi spreads to the four orthogonal neighbours only.
	FillSemi
	// FillAugment spreads like FillFull and marks every new cell
	// ContextFilled.
	FillAugment
)

// ParseFillType maps "full", "semi" and "augment" to a FillType.
func ParseFillType(s string) (FillType, error) {
	switch s {
	case "full", "":
		return FillFull, nil
	case "semi":
		return FillSemi, nil
	case "augment":
		return FillAugment, nil
	}
	return FillFull, fmt.Errorf("unknown fill type %q", s)
}

func (f FillType) String() string {
	switch f {
	case FillSemi:
		return "semi"
	case FillAugment:
		return "augment"
	default:
		return "full"
	}
}

// Pair is an ordered merge pair.
type Pair struct {
	A, B PixelRef
}
