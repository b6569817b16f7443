package cache

// Keyer derives cache keys. Every option that changes a result must be
// part of its key.
type Keyer interface {
	// AnalysisKey keys the attribute columns an analysis writes into the
	// map of a graph file with content hash inputHash.
	AnalysisKey(inputHash string, opts AnalysisKeyOpts) string
	// RenderKey keys a rendered connectivity drawing.
	RenderKey(inputHash string, opts RenderKeyOpts) string
}

// AnalysisKeyOpts lists the inputs of an analysis beyond the file itself.
type AnalysisKeyOpts struct {
	Map           string `json:"map"`
	Mode          string `json:"mode"`
	Radii         []int  `json:"radii,omitempty"`
	Choice        bool   `json:"choice,omitempty"`
	Local         bool   `json:"local,omitempty"`
	Global        bool   `json:"global,omitempty"`
	SelectionOnly bool   `json:"selection_only,omitempty"`
	WeightColumn  string `json:"weight_column,omitempty"`
	Selection     []int  `json:"selection,omitempty"`
}

// RenderKeyOpts lists the inputs of a render.
type RenderKeyOpts struct {
	Map    string `json:"map"`
	Format string `json:"format"`
	Column string `json:"column,omitempty"`
}

// DefaultKeyer produces "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// AnalysisKey implements [Keyer].
func (DefaultKeyer) AnalysisKey(inputHash string, opts AnalysisKeyOpts) string {
	return hashKey("analysis", inputHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(inputHash string, opts RenderKeyOpts) string {
	return hashKey("render", inputHash, opts)
}
