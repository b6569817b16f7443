package nodelink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/render"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// ErrNotAGraph is returned by [ToDOT] for maps without connectivity.
var ErrNotAGraph = errors.New("map keeps no connectivity")

// DefaultScale is the number of plan units drawn per inch.
const DefaultScale = 10.0

// Options configures node-link diagram rendering.
type Options struct {
	// Column colours nodes by its normalised value. Empty uses the map's
	// display column; unset values are drawn grey.
	Column string

	// Labels shows each shape's key on its node.
	Labels bool

	// Scale is plan units per inch. Zero uses DefaultScale.
	Scale float64
}

// ToDOT converts the connectivity of m to Graphviz DOT format. Nodes are
// pinned at shape centroids, so the diagram keeps the plan's geometry.
func ToDOT(m *shape.Map, opts Options) (string, error) {
	if !m.HasConnections() {
		return "", fmt.Errorf("%s: %w", m.Name, ErrNotAGraph)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	col, err := colourColumn(m.Table(), opts.Column)
	if err != nil {
		return "", err
	}
	if col >= 0 {
		m.Table().EnsureStats()
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "graph %q {\n", m.Name)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [shape=circle, style=filled, width=0.15, fixedsize=true, fontsize=8, penwidth=0.5];\n")
	buf.WriteString("  edge [color=\"#555555\", penwidth=0.5];\n")
	buf.WriteString("\n")

	for k, s := range m.All() {
		attrs := []string{
			fmt.Sprintf("pos=\"%s,%s!\"", fmtCoord(s.Centroid.X/scale), fmtCoord(s.Centroid.Y/scale)),
			fmt.Sprintf("fillcolor=%q", fillColour(m.Table(), k, col)),
		}
		label := ""
		if opts.Labels {
			label = strconv.Itoa(k)
		}
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
		fmt.Fprintf(&buf, "  %d [%s];\n", k, joinAttrs(attrs))
	}

	buf.WriteString("\n")
	for _, l := range m.ConnectionPairs() {
		fmt.Fprintf(&buf, "  %d -- %d;\n", l.A, l.B)
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

// colourColumn resolves the column to colour by, or -1 for none.
func colourColumn(t *attr.Table, name string) (int, error) {
	if name == "" {
		if i := t.DisplayColumn(); i >= 0 {
			return i, nil
		}
		return -1, nil
	}
	return t.ColumnIndex(name)
}

func fillColour(t *attr.Table, key, col int) string {
	if col < 0 {
		return "white"
	}
	v, err := t.NormalisedValue(key, col)
	if err != nil || v < 0 {
		return "lightgrey"
	}
	return rampColour(v)
}

// rampColour maps v in [0,1] onto the blue to red hue ramp, as a Graphviz
// "H S V" colour.
func rampColour(v float64) string {
	v = min(max(v, 0), 1)
	return fmt.Sprintf("%.3f 0.850 0.950", (1-v)*2.0/3.0)
}

func fmtCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func joinAttrs(attrs []string) string {
	var b bytes.Buffer
	for i, a := range attrs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a)
	}
	return b.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz's neato engine.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
