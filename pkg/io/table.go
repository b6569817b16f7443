package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/spacegraph/pkg/attr"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	"github.com/matzehuels/spacegraph/pkg/shape"
)

// RefColumn heads the key column of exported tables. [ReadTable] drops a
// leading column of that name.
const RefColumn = "Ref"

// DefaultLayer names lines that carry no layer field.
const DefaultLayer = "0"

// Separator returns the field separator for a table file: tab for ".tsv"
// and ".txt", comma otherwise.
func Separator(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return '\t'
	}
	return ','
}

// Layer is a named set of drawing shapes.
type Layer struct {
	Name   string
	Shapes []shape.Shape
}

// ReadLines parses drawing lines, one "x1,y1,x2,y2[,layer]" record per
// row, grouped into layers in order of first appearance. A first row that
// does not start with a number is taken as a header. Zero-length lines are
// kept; the partition discards them.
func ReadLines(r io.Reader) ([]Layer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var (
		layers []Layer
		index  = map[string]int{}
	)
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "line %d", n)
		}
		if n == 1 && !isNumber(rec[0]) {
			continue
		}
		if len(rec) < 4 || len(rec) > 5 {
			return nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "line %d: want x1,y1,x2,y2[,layer], got %d fields", n, len(rec))
		}
		var c [4]float64
		for i := range c {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "line %d: field %d: %q is not a coordinate", n, i+1, rec[i])
			}
			c[i] = v
		}
		name := DefaultLayer
		if len(rec) == 5 && strings.TrimSpace(rec[4]) != "" {
			name = strings.TrimSpace(rec[4])
		}
		i, ok := index[name]
		if !ok {
			i = len(layers)
			index[name] = i
			layers = append(layers, Layer{Name: name})
		}
		layers[i].Shapes = append(layers[i].Shapes, shape.Line(geom.Ln(c[0], c[1], c[2], c[3])))
	}
	if len(layers) == 0 {
		return nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "no lines")
	}
	return layers, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// ReadTable parses a table of numbers with a header row. Empty cells read
// as NaN, which [document.Document.ImportTable] leaves unset. A leading
// "Ref" column is dropped, since rows are matched by position.
func ReadTable(r io.Reader, sep rune) (header []string, rows [][]float64, err error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.TrimLeadingSpace = true

	header, err = cr.Read()
	if err != nil {
		return nil, nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "header")
	}
	skip := 0
	if len(header) > 0 && strings.EqualFold(strings.TrimSpace(header[0]), RefColumn) {
		skip = 1
	}
	header = header[skip:]
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if err := sgerrors.ValidateColumnName(header[i]); err != nil {
			return nil, nil, fmt.Errorf("column %d: %w", i+1+skip, err)
		}
	}

	for n := 2; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "row %d", n)
		}
		row := make([]float64, len(header))
		for i, cell := range rec[skip:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				row[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "row %d, column %q: %q is not a number", n, header[i], cell)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// WriteTable exports t as TSV: a "Ref" column of row keys followed by
// every column, rows in table order. Unset values are written as -1.
func WriteTable(w io.Writer, t *attr.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(append([]string{RefColumn}, t.ColumnNames()...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.NumColumns()+1)
	for r := range t.Rows() {
		rec[0] = strconv.Itoa(r.Key())
		for i := range t.NumColumns() {
			rec[i+1] = strconv.FormatFloat(r.Value(i), 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r.Key(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// mergeHeader heads merge link files.
var mergeHeader = []string{"RefFrom", "RefTo"}

// WriteMergeLinks exports merged cell pairs as CSV.
func WriteMergeLinks(w io.Writer, pairs []grid.Pair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(mergeHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range pairs {
		if err := cw.Write([]string{strconv.Itoa(int(p.A)), strconv.Itoa(int(p.B))}); err != nil {
			return fmt.Errorf("write link: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMergeLinks parses a file written by [WriteMergeLinks].
func ReadMergeLinks(r io.Reader) ([]grid.Pair, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true
	head, err := cr.Read()
	if err != nil {
		return nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "header")
	}
	if !strings.EqualFold(head[0], mergeHeader[0]) || !strings.EqualFold(head[1], mergeHeader[1]) {
		return nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "header %v is not %v", head, mergeHeader)
	}
	var pairs []grid.Pair
	for n := 2; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return pairs, nil
		}
		if err != nil {
			return nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "row %d", n)
		}
		a, errA := strconv.Atoi(rec[0])
		b, errB := strconv.Atoi(rec[1])
		if errA != nil || errB != nil || a < 0 || b < 0 {
			return nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "row %d: %v is not a pair of refs", n, rec)
		}
		pairs = append(pairs, grid.Pair{A: grid.PixelRef(a), B: grid.PixelRef(b)})
	}
}
