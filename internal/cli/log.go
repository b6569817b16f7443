// Package cli implements the spacegraph command-line interface.
//
// Commands work on graph files: new creates one from a line drawing, grid,
// isovist, convert and layer edit it, analyse runs measures through the
// cached pipeline, export writes tables and drawings. store, serve and
// watch cover persistence, the HTTP API and re-analysis on change; inspect
// browses a file interactively.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context; long operations report their progress to
// the logger at debug level and to the spinner.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spacegraph/pkg/comm"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
// The returned progress should call done when the operation completes.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// The duration is rounded to the nearest millisecond.
// Example output: "Filled 1024 cells (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// reportInterval throttles progress output from tight loops.
const reportInterval = 100 * time.Millisecond

// newCommunicator returns a communicator that cancels with ctx and reports
// progress under label to the logger and, when s is non-nil, the spinner.
func newCommunicator(ctx context.Context, l *log.Logger, s *Spinner, label string) comm.Communicator {
	return comm.FromContext(ctx, progressReporter(l, s, label))
}

// progressReporter returns a throttled progress callback. The final step of
// a stage is always reported.
func progressReporter(l *log.Logger, s *Spinner, label string) func(comm.Progress) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(p comm.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Done < p.Total && time.Since(last) < reportInterval {
			return
		}
		last = time.Now()
		l.Debug(label, "done", p.Done, "total", p.Total)
		if s != nil {
			s.SetMessage(fmt.Sprintf("%s %d/%d", label, p.Done, p.Total))
		}
	}
}

// ctxKey is the type for context keys used in this package.
// Using a distinct type prevents collisions with other packages.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
// The logger can be retrieved later with loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
// This ensures commands always have a valid logger even if context setup fails.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
