// Package io reads and writes spacegraph files and the tabular formats
// that travel with them.
//
// # Graph Files
//
// A graph file holds one [document.Document] as JSON inside a small
// envelope:
//
//	{
//	  "format": "spacegraph",
//	  "version": 1,
//	  "document": { ... }
//	}
//
// Files whose name ends in ".zst" are zstd-compressed. [ReadGraph] also
// recognises compressed input by its magic number, so the suffix only
// matters when writing.
//
// Reading never panics. [ReadGraph] returns a [Status] alongside the error:
//
//   - [StatusOK]: the document was read
//   - [StatusNotAGraph]: the input is not a spacegraph file at all
//   - [StatusMalformed]: the envelope is right but the document is broken
//
// # Legacy Layout
//
// With [WriteOptions.Legacy] every attribute table is written with its
// columns in name order, and each table's display column is remapped to
// match. Two documents with equal content then produce identical bytes
// whatever order their columns were created in.
//
// # Tables
//
// [ReadLines] parses drawing lines from CSV ("x1,y1,x2,y2[,layer]") for
// [document.Document.ImportShapes]. [ReadTable] parses a CSV or TSV table
// of numbers for [document.Document.ImportTable]. [WriteTable] exports an
// attribute table as TSV, and [WriteMergeLinks] exports a grid's merged
// cell pairs as CSV.
package io
