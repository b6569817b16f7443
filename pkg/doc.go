// Package pkg provides the core libraries for Spacegraph spatial analysis.
//
// # Overview
//
// Spacegraph reads line drawings of building plans and derives the
// representations used in space syntax: a regular point grid of
// accessible cells, axial and segment line graphs, convex maps and
// isovists. Each representation carries an attribute table, and the
// analyses write their measures back into it. The pkg directory is
// organised in three layers:
//
//  1. Geometry and data - [geom], [bsp], [attr] and [comm]
//  2. Maps and analysis - [grid], [shape], [analysis] and [document]
//  3. Infrastructure - [io], [cache], [store], [config], [render],
//     [observability] and [pipeline]
//
// # Architecture
//
// The typical data flow:
//
//	CSV drawing / .graph file
//	         ↓
//	    [document] (drawing layers, grid, shape maps)
//	         ↓
//	    [grid] fill, [document] convert (axial, segment, convex)
//	         ↓
//	    [analysis] (integration, step depth, isovists)
//	         ↓
//	    [io] tables / [render] DOT, SVG, PNG, PDF
//
// # Quick Start
//
// Load a plan, analyse its axial map and export the results:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/spacegraph/pkg/analysis"
//	    "github.com/matzehuels/spacegraph/pkg/cache"
//	    "github.com/matzehuels/spacegraph/pkg/pipeline"
//	)
//
//	r := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := r.Execute(context.Background(), pipeline.Options{
//	    Input:    "plan.graph",
//	    Analysis: analysis.Options{Mode: analysis.ModeIntegration},
//	    Formats:  []string{"tsv", "svg"},
//	})
//
// Every long-running operation takes a [comm.Communicator] which reports
// progress and can cancel the work.
//
// [geom]: github.com/matzehuels/spacegraph/pkg/geom
// [bsp]: github.com/matzehuels/spacegraph/pkg/bsp
// [attr]: github.com/matzehuels/spacegraph/pkg/attr
// [comm]: github.com/matzehuels/spacegraph/pkg/comm
// [comm.Communicator]: github.com/matzehuels/spacegraph/pkg/comm#Communicator
// [grid]: github.com/matzehuels/spacegraph/pkg/grid
// [shape]: github.com/matzehuels/spacegraph/pkg/shape
// [analysis]: github.com/matzehuels/spacegraph/pkg/analysis
// [document]: github.com/matzehuels/spacegraph/pkg/document
// [io]: github.com/matzehuels/spacegraph/pkg/io
// [cache]: github.com/matzehuels/spacegraph/pkg/cache
// [store]: github.com/matzehuels/spacegraph/pkg/store
// [config]: github.com/matzehuels/spacegraph/pkg/config
// [render]: github.com/matzehuels/spacegraph/pkg/render
// [observability]: github.com/matzehuels/spacegraph/pkg/observability
// [pipeline]: github.com/matzehuels/spacegraph/pkg/pipeline
package pkg
