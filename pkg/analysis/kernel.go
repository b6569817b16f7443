package analysis

import (
	"errors"
	"fmt"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/comm"
)

var (
	// ErrNoSelection is returned by kernels that start from a selection
	// when nothing is selected.
	ErrNoSelection = errors.New("nothing selected")

	// ErrNotAGraph is returned when a graph kernel gets a map that keeps no
	// connectivity.
	ErrNotAGraph = errors.New("map is not a graph")

	// ErrNoPoints is returned by grid kernels on a map without filled
	// cells.
	ErrNoPoints = errors.New("grid has no filled cells")
)

// Result reports how a kernel run ended.
type Result struct {
	// Completed is false when the run stopped before writing.
	Completed bool
	// DisplayColumn names the column the caller should display.
	DisplayColumn string
}

// Kernel computes measures over maps of type M.
type Kernel[M any] interface {
	Run(c comm.Communicator, m M, opts Options) (Result, error)
}

// KernelFunc adapts a function to a Kernel.
type KernelFunc[M any] func(c comm.Communicator, m M, opts Options) (Result, error)

// Run implements Kernel.
func (f KernelFunc[M]) Run(c comm.Communicator, m M, opts Options) (Result, error) {
	return f(c, m, opts)
}

// columnBuffer holds values for one column until the run completes.
type columnBuffer struct {
	name   string
	values map[int]float64
}

// output collects buffered columns in creation order.
type output struct {
	cols []*columnBuffer
}

func (o *output) column(name string) *columnBuffer {
	for _, c := range o.cols {
		if c.name == name {
			return c
		}
	}
	c := &columnBuffer{name: name, values: make(map[int]float64)}
	o.cols = append(o.cols, c)
	return c
}

// write resets each buffered column on t and stores its values. Keys never
// set in a buffer keep the unset value. Every key is checked before any
// column is touched.
func (o *output) write(t *attr.Table) error {
	for _, c := range o.cols {
		for k := range c.values {
			if !t.HasRow(k) {
				return fmt.Errorf("column %q row %d: %w", c.name, k, attr.ErrUnknownRow)
			}
		}
	}
	for _, c := range o.cols {
		idx := t.InsertOrResetColumn(c.name)
		for k, v := range c.values {
			if err := t.SetValue(k, idx, v); err != nil {
				return err
			}
		}
	}
	return nil
}
