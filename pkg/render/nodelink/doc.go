// Package nodelink renders the connectivity of shape graphs as node-link
// diagrams.
//
// # Overview
//
// Every shape of an axial, segment or convex map becomes a node pinned at
// the shape's centroid, and every connection becomes an undirected edge.
// Nodes can be coloured by an attribute column so that an integration or
// step depth run reads at a glance.
//
// # Usage
//
// Convert a graph map to DOT format, then render to SVG:
//
//	dot, err := nodelink.ToDOT(m, nodelink.Options{Column: "Integration [HH]"})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(dot)
//	png, err := nodelink.RenderPNG(dot, 2.0)  // 2x scale
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Column: attribute colouring nodes, blue (low) to red (high)
//   - Labels: show shape keys on nodes
//   - Scale: plan units per inch
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering with the neato engine, which honours pinned positions. PDF and
// PNG conversion requires librsvg (rsvg-convert).
package nodelink
