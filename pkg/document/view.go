package document

import "fmt"

// Family is a kind of map the document can display.
type Family int

const (
	FamilyNone Family = iota
	FamilyGrid
	FamilyAxial
	FamilyData
)

// families lists the displayable families.
var families = [...]Family{FamilyGrid, FamilyAxial, FamilyData}

func (f Family) String() string {
	switch f {
	case FamilyNone:
		return "none"
	case FamilyGrid:
		return "grid"
	case FamilyAxial:
		return "axial"
	case FamilyData:
		return "data"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily maps a family name back to a Family.
func ParseFamily(s string) (Family, error) {
	for _, f := range families {
		if f.String() == s {
			return f, nil
		}
	}
	if s == "shape" {
		return FamilyData, nil
	}
	return FamilyNone, fmt.Errorf("unknown map family %q", s)
}

// View says which family is drawn in front and which, if any, behind it.
// The zero View shows nothing. A View never has a back family without a
// front one, and never the same family in both places.
type View struct {
	front, back Family
}

// Front returns the front family, or FamilyNone.
func (v View) Front() Family { return v.front }

// Back returns the back family, or FamilyNone.
func (v View) Back() Family { return v.back }

// Shows reports whether f is drawn at all.
func (v View) Shows(f Family) bool { return f != FamilyNone && (v.front == f || v.back == f) }

func (v View) String() string {
	switch {
	case v.front == FamilyNone:
		return "none"
	case v.back == FamilyNone:
		return v.front.String()
	}
	return v.front.String() + " over " + v.back.String()
}

// makeView builds a view from two families, dropping a back family that
// cannot be shown.
func makeView(front, back Family) View {
	if front == FamilyNone || back == front {
		back = FamilyNone
	}
	if front == FamilyNone {
		return View{}
	}
	return View{front: front, back: back}
}

// Command is a view class transition.
type Command int

const (
	// ShowHide commands toggle a family: the front family is removed and
	// the back family promoted; any other family comes to the front and
	// the previous front moves back.
	ShowHideGrid Command = iota
	ShowHideAxial
	ShowHideData

	// ShowTop commands bring a family to the front. The previous front
	// moves back.
	ShowGridTop
	ShowAxialTop
	ShowDataTop
)

// Family returns the family a command acts on.
func (c Command) Family() Family {
	switch c {
	case ShowHideGrid, ShowGridTop:
		return FamilyGrid
	case ShowHideAxial, ShowAxialTop:
		return FamilyAxial
	case ShowHideData, ShowDataTop:
		return FamilyData
	}
	return FamilyNone
}

func (c Command) top() bool { return c >= ShowGridTop }

// ShowTop returns the command bringing f to the front.
func ShowTop(f Family) Command {
	switch f {
	case FamilyGrid:
		return ShowGridTop
	case FamilyAxial:
		return ShowAxialTop
	}
	return ShowDataTop
}

// Apply returns the view after command c.
//
//	view          | ShowHide X          | ShowTop X
//	--------------+---------------------+-----------
//	none          | X                   | X
//	X             | none                | X
//	X over Y      | Y                   | X over Y
//	Y             | X over Y            | X over Y
//	Y over X      | X over Y            | X over Y
//	Y over Z      | X over Y            | X over Y
func (v View) Apply(c Command) View {
	f := c.Family()
	if f == FamilyNone {
		return v
	}
	if v.front == f {
		if c.top() {
			return v
		}
		return makeView(v.back, FamilyNone)
	}
	return makeView(f, v.front)
}

// drop removes f from the view, promoting the back family if f was in
// front.
func (v View) drop(f Family) View {
	switch f {
	case v.front:
		return makeView(v.back, FamilyNone)
	case v.back:
		return makeView(v.front, FamilyNone)
	}
	return v
}
