package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/spacegraph/pkg/config"
	"github.com/matzehuels/spacegraph/pkg/document"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	sgio "github.com/matzehuels/spacegraph/pkg/io"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// hPlan is an H of three walls.
const hPlan = `x1,y1,x2,y2,layer
0,0,0,4,walls
0,2,4,2,walls
4,0,4,4,walls
`

// planDocument returns the H plan with an axial graph and a grid filled
// from its centre.
func planDocument(t *testing.T) *document.Document {
	t.Helper()
	d := document.New("h")
	_, err := d.ImportShapes("plan.csv", "walls", []shape.Shape{
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
	return d
}

func planBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, sgio.WriteGraph(&buf, planDocument(t), sgio.WriteOptions{}))
	return buf.Bytes()
}

// writeFile writes data under dir and returns its path.
func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// testCLI returns a CLI that logs nowhere, caches nothing and keeps its
// store and config under t's temp directory.
func testCLI(t *testing.T) *CLI {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	c := New(io.Discard, LogInfo)
	c.Config = config.DefaultConfig()
	c.Config.Cache.Backend = config.CacheNone
	c.Config.Store.Dir = filepath.Join(dir, "store")
	return c
}

// run executes the root command with args.
func (c *CLI) run(t *testing.T, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}
