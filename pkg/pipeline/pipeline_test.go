package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/bsp"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// writePlan saves an H of three walls with an axial graph and a filled
// grid, and returns the file path.
func writePlan(t *testing.T) string {
	t.Helper()
	d := document.New("h")
	_, err := d.ImportShapes("plan.dxf", "walls", []shape.Shape{
		shape.Line(geom.Ln(0, 0, 0, 4)),
		shape.Line(geom.Ln(0, 2, 4, 2)),
		shape.Line(geom.Ln(4, 0, 4, 4)),
	})
	require.NoError(t, err)
	_, err = d.Convert(nil, document.ConvertOptions{Name: "axial", To: shape.Axial})
	require.NoError(t, err)

	pm, err := d.Grid(d.AddGrid("grid"))
	require.NoError(t, err)
	require.NoError(t, pm.SetGrid(1, geom.Point{}))
	_, err = pm.MakePoints(geom.Pt(2, 2), grid.FillFull, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plan.graph")
	require.NoError(t, sgio.ExportGraph(d, path, false))
	return path
}

func quietRunner(c *memCache) *Runner {
	return NewRunner(c, nil, log.NewWithOptions(io.Discard, log.Options{}))
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"tsv", false},
		{"links", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
	assert.NoError(t, ValidateFormats(nil))
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Input: "plan.graph"}
	require.NoError(t, opts.ValidateAndSetDefaults())
	assert.Equal(t, analysis.ModeIntegration, opts.Analysis.Mode)
	assert.Equal(t, []int{analysis.RadiusN}, opts.Analysis.Radii)
	assert.True(t, opts.Analysis.Global)
	assert.Equal(t, "plan.graph", opts.Output)
	assert.Equal(t, DefaultPNGScale, opts.PNGScale)
	assert.NotNil(t, opts.Logger)
	assert.Equal(t, document.FamilyAxial, opts.Family())

	tests := []struct {
		name string
		opts Options
		code sgerrors.Code
	}{
		{"no input", Options{}, sgerrors.ErrCodeInvalidInput},
		{"bad map name", Options{Input: "a.graph", Map: "a/b"}, sgerrors.ErrCodeInvalidName},
		{"bad format", Options{Input: "a.graph", Formats: []string{"gif"}}, sgerrors.ErrCodeInvalidOptions},
		{"choice without global", Options{Input: "a.graph", Analysis: analysis.Options{Choice: true, Local: true}}, sgerrors.ErrCodeInvalidInput},
		{"drawing a grid", Options{Input: "a.graph", Analysis: analysis.Options{Mode: analysis.ModeIsovist}, Formats: []string{"svg"}}, sgerrors.ErrCodeInvalidOptions},
		{"links from a graph", Options{Input: "a.graph", Formats: []string{"links"}}, sgerrors.ErrCodeInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			require.Error(t, err)
			assert.Equal(t, tt.code, sgerrors.GetCode(err), "%v", err)
		})
	}
}

func TestExecuteIntegrationUsesCache(t *testing.T) {
	path := writePlan(t)
	out := filepath.Join(filepath.Dir(path), "out.graph")
	mc := newMemCache()
	r := quietRunner(mc)
	opts := Options{Input: path, Output: out, Formats: []string{FormatTSV, FormatDOT}}

	first, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "axial", first.MapName)
	assert.Equal(t, document.MapRef{Family: document.FamilyAxial, Index: 0}, first.Map)
	assert.True(t, first.Analysis.Completed)
	assert.Equal(t, analysis.ColIntegration, first.Analysis.DisplayColumn)
	assert.False(t, first.CacheInfo.AnalysisHit)
	assert.False(t, first.CacheInfo.RenderHit)
	assert.Equal(t, 2, first.Stats.Maps)
	assert.Equal(t, 3, first.Stats.Records)
	assert.True(t, strings.HasPrefix(string(first.Artifacts[FormatTSV]), "Ref\t"))
	assert.Contains(t, string(first.Artifacts[FormatDOT]), "0 -- 1;")
	assert.Equal(t, 1, mc.sets)

	saved, status, err := sgio.ImportGraph(out)
	require.NoError(t, err)
	assert.Equal(t, sgio.StatusOK, status)
	m, err := saved.ShapeMap(document.FamilyAxial, 0)
	require.NoError(t, err)
	col, err := m.Table().ColumnIndex(analysis.ColIntegration)
	require.NoError(t, err)
	want, err := m.Table().Value(0, col)
	require.NoError(t, err)
	assert.InDelta(t, 0.2109, want, 1e-4)

	second, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.AnalysisHit)
	assert.Equal(t, analysis.ColIntegration, second.Analysis.DisplayColumn)
	m2, err := second.Document.ShapeMap(document.FamilyAxial, 0)
	require.NoError(t, err)
	col2, err := m2.Table().ColumnIndex(analysis.ColIntegration)
	require.NoError(t, err)
	got, err := m2.Table().Value(0, col2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, col2, m2.Table().DisplayColumn())

	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, third.CacheInfo.AnalysisHit)
}

func TestExecuteGridIsovist(t *testing.T) {
	path := writePlan(t)
	r := quietRunner(newMemCache())

	res, err := r.Execute(context.Background(), Options{
		Input:    path,
		Map:      "grid",
		NoWrite:  true,
		Analysis: analysis.Options{Mode: analysis.ModeIsovist},
		Formats:  []string{FormatLinks},
	})
	require.NoError(t, err)
	assert.Equal(t, document.FamilyGrid, res.Map.Family)
	assert.Equal(t, bsp.ColArea, res.Analysis.DisplayColumn)
	assert.Equal(t, 25, res.Stats.Records)
	assert.Equal(t, "RefFrom,RefTo\n", string(res.Artifacts[FormatLinks]))
	assert.Equal(t, document.FamilyGrid, res.Document.View().Front())

	reloaded, _, err := sgio.ImportGraph(path)
	require.NoError(t, err)
	pm, err := reloaded.Grid(0)
	require.NoError(t, err)
	assert.False(t, pm.Table().HasColumn(bsp.ColArea))
}

func TestExecuteStepDepthFromSelection(t *testing.T) {
	path := writePlan(t)
	r := quietRunner(newMemCache())
	opts := Options{
		Input:    path,
		NoWrite:  true,
		Analysis: analysis.Options{Mode: analysis.ModeStepDepth},
	}

	_, err := r.Execute(context.Background(), opts)
	assert.ErrorIs(t, err, analysis.ErrNoSelection)

	opts.Selection = []int{0}
	res, err := r.Execute(context.Background(), opts)
	require.NoError(t, err)
	m, err := res.Document.ShapeMap(document.FamilyAxial, 0)
	require.NoError(t, err)
	col, err := m.Table().ColumnIndex(analysis.ColStepDepth)
	require.NoError(t, err)
	for k, want := range map[int]float64{0: 0, 1: 1, 2: 2} {
		v, err := m.Table().Value(k, col)
		require.NoError(t, err)
		assert.Equal(t, want, v, "key %d", k)
	}
}

func TestExecuteCancelled(t *testing.T) {
	path := writePlan(t)
	out := filepath.Join(filepath.Dir(path), "out.graph")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietRunner(newMemCache()).Execute(ctx, Options{Input: path, Output: out})
	assert.ErrorIs(t, err, comm.ErrCancelled)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadErrors(t *testing.T) {
	r := quietRunner(newMemCache())
	dir := t.TempDir()

	_, _, err := r.Load(context.Background(), filepath.Join(dir, "missing.graph"))
	assert.Equal(t, sgerrors.ErrCodeFileNotFound, sgerrors.GetCode(err))

	junk := filepath.Join(dir, "junk.graph")
	require.NoError(t, os.WriteFile(junk, []byte("not a graph"), 0o644))
	_, _, err = r.Load(context.Background(), junk)
	assert.Equal(t, sgerrors.ErrCodeNotAGraph, sgerrors.GetCode(err))
}

func TestSelectMapErrors(t *testing.T) {
	d := document.New("empty")
	_, _, err := SelectMap(d, Options{})
	assert.Equal(t, sgerrors.ErrCodeMapNotFound, sgerrors.GetCode(err))

	d.AddGrid("grid")
	opts := Options{Map: "other", Analysis: analysis.Options{Mode: analysis.ModeGridStepDepth}}
	_, _, err = SelectMap(d, opts)
	assert.Equal(t, sgerrors.ErrCodeMapNotFound, sgerrors.GetCode(err))

	opts.Map = ""
	ref, name, err := SelectMap(d, opts)
	require.NoError(t, err)
	assert.Equal(t, "grid", name)
	assert.Equal(t, 0, ref.Index)
}

func TestAnalysisEntryRoundTrip(t *testing.T) {
	src := attr.New()
	for _, k := range []int{4, 7} {
		src.AddRow(k)
	}
	locked := src.InsertOrResetLockedColumn("Connectivity")
	flow := src.InsertOrResetColumn("Flow")
	src.InsertOrResetColumn("Empty")
	require.NoError(t, src.SetValue(4, locked, 2))
	require.NoError(t, src.SetValue(4, flow, 0.5))
	require.NoError(t, src.SetValue(7, flow, 3))

	entry, ok := captureEntry(src, "Flow")
	require.True(t, ok)
	require.Len(t, entry.Columns, 2)
	assert.Equal(t, columnEntry{Name: "Flow", Keys: []int{4, 7}, Values: []float64{0.5, 3}}, entry.Columns[0])
	assert.Equal(t, columnEntry{Name: "Empty"}, entry.Columns[1])

	dst := attr.New()
	dst.AddRow(4)
	dst.AddRow(7)
	require.NoError(t, entry.apply(dst))
	i, err := dst.ColumnIndex("Flow")
	require.NoError(t, err)
	assert.Equal(t, i, dst.DisplayColumn())
	v, err := dst.Value(7, i)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	short := attr.New()
	short.AddRow(4)
	assert.ErrorIs(t, entry.apply(short), attr.ErrUnknownRow)
	assert.Equal(t, 0, short.NumColumns())
}

// memCache is an in-memory cache.Cache that counts writes.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func TestExportWithoutAnalysis(t *testing.T) {
	path := writePlan(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	r := quietRunner(newMemCache())

	res, err := r.Export(context.Background(), Options{
		Input:   path,
		Target:  document.FamilyGrid,
		Formats: []string{FormatTSV, FormatLinks},
	})
	require.NoError(t, err)
	assert.Equal(t, "grid", res.MapName)
	assert.Equal(t, 25, res.Stats.Records)
	assert.Equal(t, 26, strings.Count(string(res.Artifacts[FormatTSV]), "\n"))
	assert.Equal(t, "RefFrom,RefTo\n", string(res.Artifacts[FormatLinks]))
	assert.False(t, res.Analysis.Completed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "export never rewrites the input")

	_, err = r.Export(context.Background(), Options{
		Input:   path,
		Target:  document.FamilyGrid,
		Formats: []string{FormatDOT},
	})
	assert.Equal(t, sgerrors.ErrCodeInvalidOptions, sgerrors.GetCode(err))
}

func TestExportBytesMatchesExport(t *testing.T) {
	path := writePlan(t)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	r := quietRunner(newMemCache())

	fromFile, err := r.Export(context.Background(), Options{Input: path, Formats: []string{FormatTSV, FormatDOT}})
	require.NoError(t, err)
	fromBytes, err := r.ExportBytes(context.Background(), data, Options{Input: "plan", Formats: []string{FormatTSV, FormatDOT}})
	require.NoError(t, err)

	assert.Equal(t, fromFile.InputHash, fromBytes.InputHash)
	assert.Equal(t, fromFile.MapName, fromBytes.MapName)
	assert.Equal(t, fromFile.Artifacts, fromBytes.Artifacts)

	_, err = r.ExportBytes(context.Background(), []byte("not a graph"), Options{Input: "junk", Formats: []string{FormatTSV}})
	assert.Error(t, err)
}
