package analysis

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
)

// Mode selects a kernel.
type Mode string

const (
	ModeIntegration   Mode = "integration"
	ModeStepDepth     Mode = "stepdepth"
	ModeGridStepDepth Mode = "grid-stepdepth"
	ModeIsovist       Mode = "isovist"
)

// ValidModes is the set of supported modes.
var ValidModes = map[Mode]bool{
	ModeIntegration:   true,
	ModeStepDepth:     true,
	ModeGridStepDepth: true,
	ModeIsovist:       true,
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !ValidModes[m] {
		return "", sgerrors.New(sgerrors.ErrCodeInvalidOptions,
			"invalid mode: %q (must be one of: integration, stepdepth, grid-stepdepth, isovist)", s)
	}
	return m, nil
}

// OnGrid reports whether the mode runs on grid maps rather than shape
// graphs.
func (m Mode) OnGrid() bool { return m == ModeGridStepDepth || m == ModeIsovist }

// RadiusN is the unrestricted radius.
const RadiusN = -1

// Options configures a kernel run. Use SetDefaults and Validate before
// handing Options to a kernel.
type Options struct {
	Mode Mode `json:"mode" yaml:"mode" toml:"mode"`

	// Radii restricts measures to shapes within the given step counts.
	// RadiusN is the whole graph.
	Radii []int `json:"radii,omitempty" yaml:"radii" toml:"radii"`

	Choice bool `json:"choice,omitempty" yaml:"choice" toml:"choice"`
	Local  bool `json:"local,omitempty" yaml:"local" toml:"local"`
	Global bool `json:"global,omitempty" yaml:"global" toml:"global"`

	// SelectionOnly computes measures for the selected records only.
	SelectionOnly bool `json:"selection_only,omitempty" yaml:"selection_only" toml:"selection_only"`

	// WeightColumn names a column whose values are totalled over every
	// record reached.
	WeightColumn string `json:"weight_column,omitempty" yaml:"weight_column" toml:"weight_column"`
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if len(o.Radii) == 0 {
		o.Radii = []int{RadiusN}
	}
	if !o.Local && !o.Global {
		o.Global = true
	}
}

// Validate checks the flag combination. Errors carry
// [sgerrors.ErrCodeInvalidInput].
func (o Options) Validate() error {
	if !ValidModes[o.Mode] {
		return invalid("unknown analysis mode %q", o.Mode)
	}
	seen := make(map[int]bool, len(o.Radii))
	for _, r := range o.Radii {
		if r != RadiusN && r < 1 {
			return invalid("radius %d must be positive or n", r)
		}
		if seen[r] {
			return invalid("radius %s given twice", FormatRadius(r))
		}
		seen[r] = true
	}
	if o.Choice && !o.Global {
		return invalid("choice needs global measures")
	}
	switch o.Mode {
	case ModeStepDepth, ModeGridStepDepth:
		if o.Choice || o.Local || o.WeightColumn != "" {
			return invalid("%s takes no choice, local or weight options", o.Mode)
		}
		if o.SelectionOnly {
			return invalid("%s always starts from the selection", o.Mode)
		}
	case ModeIsovist:
		if o.Choice || o.WeightColumn != "" || slices.ContainsFunc(o.Radii, func(r int) bool { return r != RadiusN }) {
			return invalid("isovist takes no radius, choice or weight options")
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return sgerrors.New(sgerrors.ErrCodeInvalidInput, format, args...)
}

// ParseRadii parses a comma separated radius list such as "3,5,n".
func ParseRadii(s string) ([]int, error) {
	var radii []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if f == "n" || f == "N" {
			radii = append(radii, RadiusN)
			continue
		}
		r, err := strconv.Atoi(f)
		if err != nil || r < 1 {
			return nil, invalid("invalid radius %q", f)
		}
		radii = append(radii, r)
	}
	if len(radii) == 0 {
		return nil, invalid("no radius in %q", s)
	}
	return radii, nil
}

// FormatRadius renders r the way ParseRadii reads it.
func FormatRadius(r int) string {
	if r == RadiusN {
		return "n"
	}
	return strconv.Itoa(r)
}

// columnName appends a radius suffix to name for restricted radii.
func columnName(name string, radius int) string {
	if radius == RadiusN {
		return name
	}
	return fmt.Sprintf("%s R%d", name, radius)
}
