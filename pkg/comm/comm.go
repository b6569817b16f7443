// Package comm carries progress and cancellation between long-running map
// operations and whoever started them.
//
// Builders in this module (grid fills, partition trees, graph construction,
// analysis kernels) take a [Communicator], report how much work they expect
// with SetTotal and call Step after every finished record. Step returns
// [ErrCancelled] once the caller has asked to stop; the builder must then
// return that error without committing half-written state. A nil
// Communicator is valid everywhere and never cancels.
//
// # Adapters
//
// [FromContext] turns a context.Context into a Communicator so that Ctrl-C in
// the CLI reaches a running flood fill. [Func] adapts a plain progress
// callback.
package comm

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrCancelled is returned by [Communicator.Step] and by every cancellable
// operation once the caller has requested cancellation.
var ErrCancelled = errors.New("operation cancelled")

// Communicator receives progress from a long-running operation and decides
// whether it may continue.
type Communicator interface {
	// SetTotal announces the number of records the current stage will process.
	SetTotal(n int)
	// Step records that n more records are complete. It returns ErrCancelled
	// when the operation should stop.
	Step(n int) error
}

// SetTotal calls c.SetTotal when c is non-nil.
func SetTotal(c Communicator, n int) {
	if c != nil {
		c.SetTotal(n)
	}
}

// Step calls c.Step when c is non-nil.
func Step(c Communicator, n int) error {
	if c == nil {
		return nil
	}
	return c.Step(n)
}

// Progress is a snapshot of a communicator's counters.
type Progress struct {
	Done  int
	Total int
}

// Counter is a Communicator that counts progress and can be cancelled
// explicitly. It is safe to read Progress and call Cancel from another
// goroutine while the operation runs.
type Counter struct {
	done      atomic.Int64
	total     atomic.Int64
	cancelled atomic.Bool
	onStep    func(Progress)
}

// NewCounter returns a Counter that invokes onStep (if non-nil) after every
// step.
func NewCounter(onStep func(Progress)) *Counter {
	return &Counter{onStep: onStep}
}

// SetTotal implements Communicator.
func (c *Counter) SetTotal(n int) {
	c.total.Store(int64(n))
	c.done.Store(0)
}

// Step implements Communicator.
func (c *Counter) Step(n int) error {
	d := c.done.Add(int64(n))
	if c.onStep != nil {
		c.onStep(Progress{Done: int(d), Total: int(c.total.Load())})
	}
	if c.cancelled.Load() {
		return ErrCancelled
	}
	return nil
}

// Cancel makes the next Step return ErrCancelled.
func (c *Counter) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called.
func (c *Counter) Cancelled() bool { return c.cancelled.Load() }

// Progress returns the current counters.
func (c *Counter) Progress() Progress {
	return Progress{Done: int(c.done.Load()), Total: int(c.total.Load())}
}

// contextComm cancels when its context is done.
type contextComm struct {
	ctx context.Context
	*Counter
}

// FromContext returns a Communicator that reports ErrCancelled once ctx is
// done. onStep may be nil.
func FromContext(ctx context.Context, onStep func(Progress)) Communicator {
	return &contextComm{ctx: ctx, Counter: NewCounter(onStep)}
}

func (c *contextComm) Step(n int) error {
	if err := c.Counter.Step(n); err != nil {
		return err
	}
	if c.ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// Func adapts a progress callback into a Communicator. The callback returns
// false to cancel.
type Func func(p Progress) bool

type funcComm struct {
	fn    Func
	done  int
	total int
}

// FromFunc wraps fn.
func FromFunc(fn Func) Communicator { return &funcComm{fn: fn} }

func (f *funcComm) SetTotal(n int) { f.total, f.done = n, 0 }

func (f *funcComm) Step(n int) error {
	f.done += n
	if !f.fn(Progress{Done: f.done, Total: f.total}) {
		return ErrCancelled
	}
	return nil
}
