package io

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/spacegraph/pkg/attr"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

func TestReadLines(t *testing.T) {
	in := `x1,y1,x2,y2,layer
0,0,0,4,walls
# furniture follows
1, 1, 2, 1, desks
4,0,4,4,walls
0,2,4,2
`
	layers, err := ReadLines(strings.NewReader(in))
	require.NoError(t, err)

	want := []Layer{
		{Name: "walls", Shapes: []shape.Shape{shape.Line(geom.Ln(0, 0, 0, 4)), shape.Line(geom.Ln(4, 0, 4, 4))}},
		{Name: "desks", Shapes: []shape.Shape{shape.Line(geom.Ln(1, 1, 2, 1))}},
		{Name: DefaultLayer, Shapes: []shape.Shape{shape.Line(geom.Ln(0, 2, 4, 2))}},
	}
	if diff := cmp.Diff(want, layers); diff != "" {
		t.Errorf("ReadLines() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLinesErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":        "",
		"header only":  "x1,y1,x2,y2\n",
		"short":        "0,0,1\n",
		"not a number": "0,0,1,a\n",
		"nan":          "0,0,1,NaN\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadLines(strings.NewReader(in))
			assert.True(t, sgerrors.Is(err, sgerrors.ErrCodeInvalidFormat), "got %v", err)
		})
	}
}

func TestReadTable(t *testing.T) {
	header, rows, err := ReadTable(strings.NewReader("Ref\tFlow\tCount\n0\t1.5\t\n1\t\t3\n"), '\t')
	require.NoError(t, err)
	assert.Equal(t, []string{"Flow", "Count"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.5, rows[0][0])
	assert.True(t, math.IsNaN(rows[0][1]))
	assert.True(t, math.IsNaN(rows[1][0]))
	assert.Equal(t, 3.0, rows[1][1])

	_, _, err = ReadTable(strings.NewReader("Flow\nlots\n"), ',')
	assert.True(t, sgerrors.Is(err, sgerrors.ErrCodeInvalidFormat))
	_, _, err = ReadTable(strings.NewReader("Flow, \n1,2\n"), ',')
	assert.True(t, sgerrors.Is(err, sgerrors.ErrCodeInvalidName))
	_, _, err = ReadTable(strings.NewReader(""), ',')
	assert.Error(t, err)
}

func TestSeparator(t *testing.T) {
	assert.Equal(t, '\t', Separator("table.TSV"))
	assert.Equal(t, '\t', Separator("table.txt"))
	assert.Equal(t, ',', Separator("table.csv"))
	assert.Equal(t, ',', Separator("table"))
}

func TestWriteTableRoundTrip(t *testing.T) {
	tbl := attr.New()
	flow := tbl.InsertOrResetColumn("Flow")
	tbl.InsertOrResetColumn("Empty")
	for _, k := range []int{4, 2} {
		tbl.AddRow(k)
	}
	require.NoError(t, tbl.SetValue(4, flow, 0.25))
	require.NoError(t, tbl.SetValue(2, flow, 12))

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, tbl))
	assert.Equal(t, "Ref\tFlow\tEmpty\n4\t0.25\t-1\n2\t12\t-1\n", buf.String())

	header, rows, err := ReadTable(&buf, '\t')
	require.NoError(t, err)
	assert.Equal(t, []string{"Flow", "Empty"}, header)
	assert.Equal(t, [][]float64{{0.25, -1}, {12, -1}}, rows)
}

func TestMergeLinksRoundTrip(t *testing.T) {
	pairs := []grid.Pair{{A: grid.Ref(0, 1), B: grid.Ref(4, 1)}, {A: grid.Ref(2, 2), B: grid.Ref(2, 5)}}
	var buf bytes.Buffer
	require.NoError(t, WriteMergeLinks(&buf, pairs))
	assert.Equal(t, "RefFrom,RefTo\n1,262145\n131074,131077\n", buf.String())

	back, err := ReadMergeLinks(&buf)
	require.NoError(t, err)
	assert.Equal(t, pairs, back)

	_, err = ReadMergeLinks(strings.NewReader("From,To\n1,2\n"))
	assert.True(t, sgerrors.Is(err, sgerrors.ErrCodeInvalidFormat))
	_, err = ReadMergeLinks(strings.NewReader("RefFrom,RefTo\n1,-2\n"))
	assert.True(t, sgerrors.Is(err, sgerrors.ErrCodeInvalidFormat))
}
