package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// newPlan runs new on the H drawing and returns the graph path.
func newPlan(t *testing.T, c *CLI) string {
	t.Helper()
	dir := t.TempDir()
	csv := writeFile(t, dir, "plan.csv", []byte(hPlan))
	path := filepath.Join(dir, "plan.graph")
	require.NoError(t, c.run(t, "new", path, "-d", csv))
	return path
}

func axialMap(t *testing.T, path string) *shape.Map {
	t.Helper()
	d, _, err := sgio.ImportGraph(path)
	require.NoError(t, err)
	ref, ok := d.FindMap(document.FamilyAxial, "axial")
	require.True(t, ok, "no axial map in %s", path)
	m, err := d.ShapeMap(ref.Family, ref.Index)
	require.NoError(t, err)
	return m
}

func TestNewCreatesDrawing(t *testing.T) {
	c := testCLI(t)
	path := newPlan(t, c)

	d, _, err := sgio.ImportGraph(path)
	require.NoError(t, err)
	assert.Equal(t, "plan", d.Name)
	assert.Len(t, d.ShownLines(), 3)

	err = c.run(t, "new", path, "-d", filepath.Join(filepath.Dir(path), "plan.csv"))
	assert.Equal(t, ExitUsage, ExitCode(err))
	require.NoError(t, c.run(t, "new", path, "--force", "--name", "renamed"))
}

func TestGridCommand(t *testing.T) {
	c := testCLI(t)
	path := newPlan(t, c)
	out := filepath.Join(filepath.Dir(path), "grid.graph")

	require.NoError(t, c.run(t, "grid", path, "--spacing", "1", "--seed", "2,2", "--block=false", "-o", out))

	d, _, err := sgio.ImportGraph(out)
	require.NoError(t, err)
	require.Len(t, d.Grids(), 1)
	assert.Equal(t, 25, d.Grids()[0].FilledCount())

	src, _, err := sgio.ImportGraph(path)
	require.NoError(t, err)
	assert.Empty(t, src.Grids(), "input rewritten despite -o")

	err = c.run(t, "grid", path, "--fill", "sideways")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestConvertAnalyseExport(t *testing.T) {
	c := testCLI(t)
	path := newPlan(t, c)
	dir := filepath.Dir(path)

	require.NoError(t, c.run(t, "convert", path, "--to", "axial", "--name", "axial"))
	m := axialMap(t, path)
	assert.Equal(t, 3, m.Len())
	assert.Len(t, m.ConnectionPairs(), 2)

	require.NoError(t, c.run(t, "analyse", path, "-m", "integration", "--map", "axial", "-f", "tsv,dot"))
	m = axialMap(t, path)
	assert.True(t, m.Table().HasColumn(analysis.ColIntegration))

	tsv, err := os.ReadFile(filepath.Join(dir, "plan_axial.tsv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(tsv), sgio.RefColumn+"\t"))
	assert.Contains(t, string(tsv), analysis.ColIntegration)
	assert.FileExists(t, filepath.Join(dir, "plan_axial.dot"))

	out := filepath.Join(dir, "h.dot")
	require.NoError(t, c.run(t, "export", path, "-f", "dot", "--map", "axial", "-o", out))
	dot, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "0 -- 1;")

	err = c.run(t, "export", path, "--map", "nowhere")
	assert.Equal(t, string(sgerrors.ErrCodeMapNotFound), string(sgerrors.GetCode(sgerrors.FromDomain(err, ""))))
}

func TestAnalyseNoWriteKeepsInput(t *testing.T) {
	c := testCLI(t)
	path := newPlan(t, c)
	require.NoError(t, c.run(t, "convert", path, "--to", "axial", "--name", "axial"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, c.run(t, "analyze", path, "--no-write", "-m", "integration"))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	err = c.run(t, "analyse", filepath.Join(t.TempDir(), "missing.graph"))
	assert.Equal(t, ExitError, ExitCode(err))
}

func TestLayerCommands(t *testing.T) {
	c := testCLI(t)
	path := newPlan(t, c)
	require.NoError(t, c.run(t, "convert", path, "--to", "axial", "--name", "axial"))

	t.Run("select", func(t *testing.T) {
		require.NoError(t, c.run(t, "layer", "select", path, "--keys", "0,2", "--name", "ends"))
		idx, err := axialMap(t, path).Table().Layers().LayerIndex("ends")
		require.NoError(t, err)
		assert.Equal(t, 1, idx)

		err = c.run(t, "layer", "select", path, "--keys", "1", "--name", "ends")
		assert.Equal(t, ExitError, ExitCode(err))
	})

	t.Run("column", func(t *testing.T) {
		require.NoError(t, c.run(t, "layer", "column", path, "--add", "Footfall"))
		require.NoError(t, c.run(t, "layer", "column", path, "--rename", "Footfall,Visitors"))
		tbl := axialMap(t, path).Table()
		assert.True(t, tbl.HasColumn("Visitors"))
		assert.False(t, tbl.HasColumn("Footfall"))

		assert.Error(t, c.run(t, "layer", "column", path))
		require.NoError(t, c.run(t, "layer", "column", path, "--remove", "Visitors"))
		assert.False(t, axialMap(t, path).Table().HasColumn("Visitors"))
	})

	t.Run("import", func(t *testing.T) {
		table := writeFile(t, t.TempDir(), "flow.tsv", []byte("Ref\tFlow\n0\t1\n1\t2\n2\t3\n"))
		require.NoError(t, c.run(t, "layer", "import", path, table))
		tbl := axialMap(t, path).Table()
		col, err := tbl.ColumnIndex("Flow")
		require.NoError(t, err)
		v, err := tbl.Value(1, col)
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)

		short := writeFile(t, t.TempDir(), "short.csv", []byte("Flow\n1\n"))
		assert.Error(t, c.run(t, "layer", "import", path, short))
	})
}

func TestStoreCommands(t *testing.T) {
	c := testCLI(t)
	path := newPlan(t, c)
	dir := t.TempDir()

	require.NoError(t, c.run(t, "store", "put", path, "--name", "office"))
	require.NoError(t, c.run(t, "store", "ls"))

	out := filepath.Join(dir, "copy.graph")
	require.NoError(t, c.run(t, "store", "get", "office", "-o", out))
	want, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	junk := writeFile(t, dir, "junk.graph", []byte("not a graph"))
	assert.Error(t, c.run(t, "store", "put", junk))

	require.NoError(t, c.run(t, "store", "rm", "office"))
	err = c.run(t, "store", "get", "office", "-o", out)
	assert.Equal(t, "NOT_FOUND: get office: office: graph not found", Describe(err))
}

func TestCacheCommandsWithoutCache(t *testing.T) {
	c := testCLI(t)
	require.NoError(t, c.run(t, "cache", "clear"))
	require.NoError(t, c.run(t, "cache", "path"))
}
