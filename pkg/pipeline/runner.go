package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/cache"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/grid"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
	"github.com/matzehuels/spacegraph/pkg/observability"
	"github.com/matzehuels/spacegraph/pkg/render/nodelink"
)

// Runner encapsulates pipeline execution with caching.
// The CLI, watch mode and the server all use it.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options, as long as each works on its own file.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → analyse → export pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	d, hash, err := r.Load(ctx, opts.Input)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	ref, name, err := SelectMap(d, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Document = d
	result.InputHash = hash
	result.Map, result.MapName = ref, name
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Maps = countMaps(d)
	if t, err := d.Table(ref); err == nil {
		result.Stats.Records = t.NumRows()
	}

	r.Logger.Info("loaded document",
		"maps", result.Stats.Maps,
		"map", name,
		"records", result.Stats.Records,
		"duration", result.Stats.LoadTime)

	// Stage 2: Analyse
	analysisStart := time.Now()
	key := r.Keyer.AnalysisKey(hash, opts.AnalysisKeyOpts(name))
	res, hit, err := r.AnalyseWithCacheInfo(ctx, d, ref, key, opts)
	if err != nil {
		return nil, fmt.Errorf("analyse %s: %w", name, err)
	}
	result.Analysis = res
	result.Stats.AnalysisTime = time.Since(analysisStart)
	result.CacheInfo.AnalysisHit = hit

	r.Logger.Info("analysed map",
		"mode", opts.Analysis.Mode,
		"column", res.DisplayColumn,
		"cached", hit,
		"duration", result.Stats.AnalysisTime)

	// Stage 3: Export
	exportStart := time.Now()
	artifacts, renderHit, err := r.ExportWithCacheInfo(ctx, d, ref, key, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if !opts.NoWrite {
		if err := sgio.ExportGraph(d, opts.Output, opts.Legacy); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("exported outputs",
		"formats", opts.Formats,
		"written", !opts.NoWrite,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Export loads the input and produces the requested artifacts from the
// selected map as it stands, without running an analysis. The document is
// not written back.
func (r *Runner) Export(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := opts.ValidateForExport(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	loadStart := time.Now()
	d, hash, err := r.Load(ctx, opts.Input)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return r.exportDocument(ctx, d, hash, time.Since(loadStart), opts)
}

// ExportBytes is [Runner.Export] for a graph file already in memory, such
// as one read from a store. opts.Input only names it in logs and errors.
func (r *Runner) ExportBytes(ctx context.Context, data []byte, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForExport(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, opts.Input)
	loadStart := time.Now()
	d, status, err := sgio.ReadGraph(bytes.NewReader(data))
	maps := 0
	if d != nil {
		maps = countMaps(d)
	}
	hooks.OnLoadComplete(ctx, opts.Input, maps, time.Since(loadStart), err)
	if err != nil {
		return nil, fmt.Errorf("load: %s (%s): %w", opts.Input, status, err)
	}
	return r.exportDocument(ctx, d, cache.Hash(data), time.Since(loadStart), opts)
}

func (r *Runner) exportDocument(ctx context.Context, d *document.Document, hash string, loadTime time.Duration, opts Options) (*Result, error) {
	ref, name, err := SelectMap(d, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result := &Result{Document: d, InputHash: hash, Map: ref, MapName: name}
	result.Stats.LoadTime = loadTime
	result.Stats.Maps = countMaps(d)
	if t, err := d.Table(ref); err == nil {
		result.Stats.Records = t.NumRows()
	}

	exportStart := time.Now()
	key := r.Keyer.AnalysisKey(hash, cache.AnalysisKeyOpts{Map: name, Selection: opts.Selection})
	artifacts, hit, err := r.ExportWithCacheInfo(ctx, d, ref, key, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("exported outputs",
		"map", name,
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.ExportTime)
	return result, nil
}

// Load reads the graph file at path and returns the document with the
// content hash of the file.
func (r *Runner) Load(ctx context.Context, path string) (*document.Document, string, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, path)
	start := time.Now()

	d, hash, err := load(path)
	maps := 0
	if d != nil {
		maps = countMaps(d)
	}
	hooks.OnLoadComplete(ctx, path, maps, time.Since(start), err)
	return d, hash, err
}

func load(path string) (*document.Document, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", sgerrors.Wrap(sgerrors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	d, status, err := sgio.ReadGraph(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%s (%s): %w", path, status, err)
	}
	return d, cache.Hash(data), nil
}

func countMaps(d *document.Document) int {
	return d.Count(document.FamilyGrid) + d.Count(document.FamilyAxial) + d.Count(document.FamilyData)
}

// SelectMap displays the map the options name, or the displayed member of
// the mode's family, brings its family to the front and applies the
// selection.
func SelectMap(d *document.Document, opts Options) (document.MapRef, string, error) {
	f := opts.Family()
	var ref document.MapRef
	if opts.Map != "" {
		found, ok := d.FindMap(f, opts.Map)
		if !ok {
			return ref, "", sgerrors.New(sgerrors.ErrCodeMapNotFound, "no %s map named %q", f, opts.Map)
		}
		ref = found
	} else {
		i := d.Displayed(f)
		if i < 0 {
			if d.Count(f) == 0 {
				return ref, "", sgerrors.New(sgerrors.ErrCodeMapNotFound, "document has no %s map", f)
			}
			i = 0
		}
		ref = document.MapRef{Family: f, Index: i}
	}
	if err := d.SetDisplayed(f, ref.Index); err != nil {
		return ref, "", err
	}
	d.SetViewClass(document.ShowTop(f))

	if f == document.FamilyGrid {
		m, err := d.Grid(ref.Index)
		if err != nil {
			return ref, "", err
		}
		if len(opts.Selection) > 0 {
			refs := make([]grid.PixelRef, len(opts.Selection))
			for i, k := range opts.Selection {
				refs[i] = grid.PixelRef(k)
			}
			m.SetCurSelRefs(refs, false)
		}
		return ref, m.Name, nil
	}
	m, err := d.ShapeMap(f, ref.Index)
	if err != nil {
		return ref, "", err
	}
	if len(opts.Selection) > 0 {
		m.SetCurSel(opts.Selection, false)
	}
	return ref, m.Name, nil
}

// =============================================================================
// Analysis
// =============================================================================

// analysisEntry is the cached outcome of an analysis: every unlocked
// column of the analysed map after the run.
type analysisEntry struct {
	Display string        `json:"display"`
	Columns []columnEntry `json:"columns"`
}

type columnEntry struct {
	Name   string    `json:"name"`
	Keys   []int     `json:"keys"`
	Values []float64 `json:"values"`
}

func captureEntry(t *attr.Table, display string) (analysisEntry, bool) {
	e := analysisEntry{Display: display}
	keys := t.Keys()
	for i := range t.NumColumns() {
		col, err := t.Column(i)
		if err != nil || col.Locked {
			continue
		}
		ce := columnEntry{Name: col.Name}
		for _, k := range keys {
			v, err := t.Value(k, i)
			if err != nil || v == attr.Unset {
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return e, false
			}
			ce.Keys = append(ce.Keys, k)
			ce.Values = append(ce.Values, v)
		}
		e.Columns = append(e.Columns, ce)
	}
	return e, true
}

// apply writes the cached columns into t. Nothing is written unless every
// key and column fits.
func (e analysisEntry) apply(t *attr.Table) error {
	for _, c := range e.Columns {
		if len(c.Keys) != len(c.Values) {
			return fmt.Errorf("column %q: %d keys for %d values", c.Name, len(c.Keys), len(c.Values))
		}
		if i, err := t.ColumnIndex(c.Name); err == nil {
			if col, _ := t.Column(i); col.Locked {
				return fmt.Errorf("column %q: %w", c.Name, attr.ErrColumnLocked)
			}
		}
		for _, k := range c.Keys {
			if !t.HasRow(k) {
				return fmt.Errorf("column %q: %w", c.Name, attr.ErrUnknownRow)
			}
		}
	}
	for _, c := range e.Columns {
		idx := t.InsertOrResetColumn(c.Name)
		for n, k := range c.Keys {
			if err := t.SetValue(k, idx, c.Values[n]); err != nil {
				return err
			}
		}
	}
	display := attr.DisplayNone
	if i, err := t.ColumnIndex(e.Display); err == nil {
		display = i
	}
	return t.SetDisplayColumn(display)
}

// AnalyseWithCacheInfo runs the analysis for opts on the displayed map at
// ref, or restores its columns from the cache entry at key. It reports
// whether the cache served the result.
func (r *Runner) AnalyseWithCacheInfo(ctx context.Context, d *document.Document, ref document.MapRef, key string, opts Options) (analysis.Result, bool, error) {
	if err := opts.ValidateForAnalysis(); err != nil {
		return analysis.Result{}, false, err
	}
	t, err := d.Table(ref)
	if err != nil {
		return analysis.Result{}, false, err
	}

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		var entry analysisEntry
		if err := cache.GetJSON(ctx, r.Cache, key, &entry); err == nil {
			if err := entry.apply(t); err == nil {
				observability.Cache().OnCacheHit(ctx, "analysis")
				return analysis.Result{Completed: true, DisplayColumn: entry.Display}, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "analysis")
	}

	mode := string(opts.Analysis.Mode)
	name := mapName(d, ref)
	hooks := observability.Pipeline()
	hooks.OnAnalysisStart(ctx, mode, name, t.NumRows())
	start := time.Now()
	c := comm.FromContext(ctx, opts.Progress)
	res, err := Analyse(c, d, opts.Analysis)
	hooks.OnAnalysisComplete(ctx, mode, name, time.Since(start), err)
	if err != nil {
		return res, false, err
	}

	if res.Completed {
		if entry, ok := captureEntry(t, res.DisplayColumn); ok {
			if data, err := json.Marshal(entry); err == nil {
				if err := r.Cache.Set(ctx, key, data, cache.TTLAnalysis); err == nil {
					observability.Cache().OnCacheSet(ctx, "analysis", len(data))
				}
			}
		}
	}
	return res, false, nil
}

// Analyse dispatches opts to the kernel for its mode, run on the displayed
// map of the front family.
func Analyse(c comm.Communicator, d *document.Document, opts analysis.Options) (analysis.Result, error) {
	switch opts.Mode {
	case analysis.ModeIntegration:
		return d.RunShapeAnalysis(c, analysis.Integration{}, opts)
	case analysis.ModeStepDepth:
		return d.RunShapeAnalysis(c, analysis.StepDepth{}, opts)
	case analysis.ModeGridStepDepth:
		return d.RunGridAnalysis(c, analysis.GridStepDepth{}, opts)
	case analysis.ModeIsovist:
		tree, err := d.BSPTree(c)
		if err != nil {
			return analysis.Result{}, err
		}
		return d.RunGridAnalysis(c, analysis.GridIsovist{Tree: tree, Region: d.Region()}, opts)
	}
	return analysis.Result{}, sgerrors.New(sgerrors.ErrCodeInvalidOptions, "unknown analysis mode %q", opts.Mode)
}

func mapName(d *document.Document, ref document.MapRef) string {
	if ref.Family == document.FamilyGrid {
		if m, err := d.Grid(ref.Index); err == nil {
			return m.Name
		}
		return ""
	}
	if m, err := d.ShapeMap(ref.Family, ref.Index); err == nil {
		return m.Name
	}
	return ""
}

// =============================================================================
// Export
// =============================================================================

// ExportWithCacheInfo produces the requested artifacts for the map at ref.
// Drawings rendered with Graphviz are cached under keys derived from the
// analysis key; it reports whether every one of them came from cache.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, d *document.Document, ref document.MapRef, analysisKey string, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, err
	}
	artifacts := make(map[string][]byte, len(opts.Formats))
	if len(opts.Formats) == 0 {
		return artifacts, false, nil
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	allCached, rendered := true, 0
	err := func() error {
		name := mapName(d, ref)
		for _, format := range opts.Formats {
			if !needsRender(format) {
				data, err := exportPlain(d, ref, format, opts)
				if err != nil {
					return err
				}
				artifacts[format] = data
				continue
			}
			rendered++
			key := r.Keyer.RenderKey(analysisKey, opts.RenderKeyOpts(name, format))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "render")
				artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, "render")
			allCached = false
			data, err := renderGraph(d, ref, format, opts)
			if err != nil {
				return err
			}
			if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err == nil {
				observability.Cache().OnCacheSet(ctx, "render", len(data))
			}
			artifacts[format] = data
		}
		return nil
	}()
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	return artifacts, rendered > 0 && allCached, nil
}

func needsRender(format string) bool {
	return format == FormatSVG || format == FormatPNG || format == FormatPDF
}

// exportPlain writes the formats that need no Graphviz run.
func exportPlain(d *document.Document, ref document.MapRef, format string, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatTSV:
		t, err := d.Table(ref)
		if err != nil {
			return nil, err
		}
		if err := sgio.WriteTable(&buf, t); err != nil {
			return nil, err
		}
	case FormatLinks:
		m, err := d.Grid(ref.Index)
		if err != nil {
			return nil, err
		}
		if err := sgio.WriteMergeLinks(&buf, m.MergedPairs()); err != nil {
			return nil, err
		}
	case FormatDOT:
		dot, err := toDOT(d, ref, opts)
		if err != nil {
			return nil, err
		}
		buf.WriteString(dot)
	}
	return buf.Bytes(), nil
}

func toDOT(d *document.Document, ref document.MapRef, opts Options) (string, error) {
	m, err := d.ShapeMap(ref.Family, ref.Index)
	if err != nil {
		return "", err
	}
	return nodelink.ToDOT(m, nodelink.Options{Column: opts.Column})
}

func renderGraph(d *document.Document, ref document.MapRef, format string, opts Options) ([]byte, error) {
	dot, err := toDOT(d, ref, opts)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPNG:
		return nodelink.RenderPNG(dot, opts.PNGScale)
	case FormatPDF:
		return nodelink.RenderPDF(dot)
	}
	return nodelink.RenderSVG(dot)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
