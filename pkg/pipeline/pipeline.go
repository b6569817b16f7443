// Package pipeline provides the analysis pipeline shared by the CLI
// commands and the HTTP server.
//
// This package implements the load → analyse → export sequence that every
// entry point runs. By centralizing it, the analyse command, watch mode and
// the server select maps, cache results and report progress the same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a graph file and pick the map to work on
//  2. Analyse: Run the kernel for the requested mode on that map
//  3. Export: Write the document back and produce artifacts (TSV, DOT, SVG)
//
// Analysis results and rendered drawings are cached, keyed by the content
// hash of the input file and every option that changes the output.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:    "plan.graph",
//	    Analysis: analysis.Options{Mode: analysis.ModeIntegration},
//	    Formats:  []string{"tsv", "svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	"github.com/matzehuels/spacegraph/pkg/cache"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, Server, and Watch Mode
// =============================================================================

// DefaultMode is the analysis run when none is given.
const DefaultMode = analysis.ModeIntegration

// DefaultPNGScale is the resolution multiplier for PNG artifacts.
const DefaultPNGScale = 2.0

// Format constants for artifacts.
const (
	FormatTSV   = "tsv"
	FormatLinks = "links"
	FormatDOT   = "dot"
	FormatSVG   = "svg"
	FormatPNG   = "png"
	FormatPDF   = "pdf"
)

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	FormatTSV:   true,
	FormatLinks: true,
	FormatDOT:   true,
	FormatSVG:   true,
	FormatPNG:   true,
	FormatPDF:   true,
}

// graphFormats need a map with connectivity.
var graphFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Load options
	Input string `json:"input"`
	Map   string `json:"map,omitempty"` // Map name; empty uses the displayed member

	// Target picks the map family when no analysis mode implies one, as
	// for plain exports. FamilyNone follows the mode.
	Target document.Family `json:"target,omitempty"`

	// Selection holds the record keys (shape keys or pixel refs) selected
	// before the run. Step depth measures start from it.
	Selection []int `json:"selection,omitempty"`

	// Analysis options
	Analysis analysis.Options `json:"analysis"`
	Refresh  bool             `json:"refresh,omitempty"` // Ignore cached results

	// Export options
	Output   string   `json:"output,omitempty"` // Graph file to write; empty rewrites Input
	NoWrite  bool     `json:"no_write,omitempty"`
	Legacy   bool     `json:"legacy,omitempty"` // Sorted columns, reproducible bytes
	Formats  []string `json:"formats,omitempty"`
	Column   string   `json:"column,omitempty"` // Column colouring rendered drawings
	PNGScale float64  `json:"png_scale,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger         `json:"-"`
	Progress func(comm.Progress) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the analysed document.
	Document *document.Document

	// InputHash is the content hash of the input file.
	InputHash string

	// Map is the analysed map and MapName its name.
	Map     document.MapRef
	MapName string

	// Analysis reports how the kernel run ended.
	Analysis analysis.Result

	// Artifacts contains exported outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Maps         int
	Records      int
	LoadTime     time.Duration
	AnalysisTime time.Duration
	ExportTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	AnalysisHit bool // Whether the analysed columns came from cache
	RenderHit   bool // Whether every rendered drawing came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return sgerrors.New(sgerrors.ErrCodeInvalidOptions,
			"invalid format: %q (must be one of: tsv, links, dot, svg, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForAnalysis(); err != nil {
		return err
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the input fields.
func (o *Options) ValidateForLoad() error {
	if o.Input == "" {
		return sgerrors.New(sgerrors.ErrCodeInvalidInput, "input file is required")
	}
	if err := sgerrors.ValidateFilePath(o.Input); err != nil {
		return err
	}
	if o.Map != "" {
		if err := sgerrors.ValidateMapName(o.Map); err != nil {
			return err
		}
	}
	o.setLoggerDefault()
	return nil
}

// SetAnalysisDefaults sets default values for the analysis stage.
func (o *Options) SetAnalysisDefaults() {
	if o.Analysis.Mode == "" {
		o.Analysis.Mode = DefaultMode
	}
	o.Analysis.SetDefaults()
	o.setLoggerDefault()
}

// ValidateForAnalysis applies analysis defaults and checks the flag
// combination before anything is loaded.
func (o *Options) ValidateForAnalysis() error {
	o.SetAnalysisDefaults()
	return o.Analysis.Validate()
}

// SetExportDefaults sets default values for the export stage.
func (o *Options) SetExportDefaults() {
	if o.Output == "" {
		o.Output = o.Input
	}
	if o.PNGScale == 0 {
		o.PNGScale = DefaultPNGScale
	}
	o.setLoggerDefault()
}

// ValidateForExport validates and sets defaults for exporting.
func (o *Options) ValidateForExport() error {
	o.SetExportDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Family() == document.FamilyGrid && o.NeedsGraph() {
		return sgerrors.New(sgerrors.ErrCodeInvalidOptions,
			"grids have no connectivity drawing; use a shape graph")
	}
	if o.wants(FormatLinks) && o.Family() != document.FamilyGrid {
		return sgerrors.New(sgerrors.ErrCodeInvalidOptions, "merge links are exported from grids only")
	}
	return nil
}

func (o *Options) setLoggerDefault() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

func (o *Options) wants(format string) bool {
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// NeedsGraph returns true if any requested format draws connectivity.
func (o *Options) NeedsGraph() bool {
	for _, f := range o.Formats {
		if graphFormats[f] {
			return true
		}
	}
	return false
}

// Family returns Target when set, else the map family the analysis mode
// runs on.
func (o *Options) Family() document.Family {
	if o.Target != document.FamilyNone {
		return o.Target
	}
	if o.Analysis.Mode.OnGrid() {
		return document.FamilyGrid
	}
	return document.FamilyAxial
}

// AnalysisKeyOpts returns cache key options for the analysis stage.
func (o *Options) AnalysisKeyOpts(mapName string) cache.AnalysisKeyOpts {
	a := o.Analysis
	return cache.AnalysisKeyOpts{
		Map:           mapName,
		Mode:          string(a.Mode),
		Radii:         a.Radii,
		Choice:        a.Choice,
		Local:         a.Local,
		Global:        a.Global,
		SelectionOnly: a.SelectionOnly,
		WeightColumn:  a.WeightColumn,
		Selection:     o.Selection,
	}
}

// RenderKeyOpts returns cache key options for a rendered drawing.
func (o *Options) RenderKeyOpts(mapName, format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{Map: mapName, Format: format, Column: o.Column}
}
