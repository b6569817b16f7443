package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests may finish.
const shutdownTimeout = 10 * time.Second

// serveOpts holds options for the serve command.
type serveOpts struct {
	addr      string
	noMetrics bool
	noCache   bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := &serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored graphs over HTTP",
		Long: `Serve a read-only HTTP API over the configured graph store.

Routes:
  GET /healthz                        build information
  GET /graphs                         stored graph entries
  GET /graphs/{name}                  the graph file
  GET /graphs/{name}/summary          maps, records and columns
  GET /graphs/{name}/export/{format}  tsv, links, dot, svg, png or pdf
  GET /metrics                        Prometheus metrics

Exports take family, map, column and select query parameters.`,
		Example: `  spacegraph serve --addr :8080
  curl localhost:8080/graphs/office/export/tsv?family=grid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "do not serve /metrics")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	addr := opts.addr
	if addr == "" {
		addr = c.Config.Server.Addr
	}

	hooks, err := c.installHooks(c.Config.Server.Metrics && !opts.noMetrics)
	if err != nil {
		return err
	}
	defer hooks.Close()

	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	s := &server{store: st, runner: runner, logger: c.Logger}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:      s.routes(hooks.metrics),
		ReadTimeout:  c.Config.Server.ReadTimeout,
		WriteTimeout: c.Config.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	printSuccess("Serving on http://%s", ln.Addr())
	if hooks.metrics != nil {
		printDetail("Metrics: http://%s/metrics", ln.Addr())
	}
	c.Logger.Info("server started", "addr", ln.Addr().String())
	return serveUntilDone(ctx, srv, ln)
}

// serveUntilDone serves on ln until ctx ends, then shuts srv down.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
