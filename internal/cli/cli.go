package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spacegraph/pkg/attr"
	"github.com/matzehuels/spacegraph/pkg/bsp"
	"github.com/matzehuels/spacegraph/pkg/buildinfo"
	"github.com/matzehuels/spacegraph/pkg/cache"
	"github.com/matzehuels/spacegraph/pkg/comm"
	"github.com/matzehuels/spacegraph/pkg/config"
	"github.com/matzehuels/spacegraph/pkg/document"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/geom"
	"github.com/matzehuels/spacegraph/pkg/grid"
	"github.com/matzehuels/spacegraph/pkg/pipeline"
	"github.com/matzehuels/spacegraph/pkg/shape"
	"github.com/matzehuels/spacegraph/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

func init() {
	registerDomainErrors()
}

// registerDomainErrors maps the library sentinels onto error codes so
// that command errors print with a stable code.
func registerDomainErrors() {
	sgerrors.Register(comm.ErrCancelled, sgerrors.ErrCodeCancelled)
	sgerrors.Register(attr.ErrColumnLocked, sgerrors.ErrCodeColumnLocked)
	sgerrors.Register(attr.ErrDuplicateName, sgerrors.ErrCodeDuplicateName)
	sgerrors.Register(attr.ErrUnknownColumn, sgerrors.ErrCodeNotFound)
	sgerrors.Register(attr.ErrUnknownRow, sgerrors.ErrCodeNotFound)
	sgerrors.Register(attr.ErrUnknownLayer, sgerrors.ErrCodeNotFound)
	sgerrors.Register(shape.ErrNotEditable, sgerrors.ErrCodeNotEditable)
	sgerrors.Register(shape.ErrUnknownShape, sgerrors.ErrCodeNotFound)
	sgerrors.Register(bsp.ErrEmpty, sgerrors.ErrCodeInvalidInput)
	sgerrors.Register(document.ErrNoDisplayedMap, sgerrors.ErrCodeMapNotFound)
	sgerrors.Register(document.ErrUnknownMap, sgerrors.ErrCodeMapNotFound)
	sgerrors.Register(document.ErrNoSelection, sgerrors.ErrCodeInvalidInput)
	sgerrors.Register(store.ErrNotFound, sgerrors.ErrCodeNotFound)
	sgerrors.Register(grid.ErrNoGrid, sgerrors.ErrCodeInvalidInput)
	sgerrors.Register(shape.ErrNothingToConvert, sgerrors.ErrCodeInvalidInput)
	sgerrors.Register(document.ErrWrongFamily, sgerrors.ErrCodeInvalidInput)
	sgerrors.Register(document.ErrSelfPush, sgerrors.ErrCodeInvalidInput)
	sgerrors.Register(document.ErrRowCount, sgerrors.ErrCodeInvalidInput)
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *config.Config

	// configPath is set by --config; empty means the default location,
	// which may be missing.
	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Spacegraph analyses the spatial structure of building plans",
		Long: `Spacegraph turns line drawings of plans into grids, axial and segment graphs and
isovists, runs space syntax measures on them and exports the results.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (.toml, .yaml or .yml)")

	root.AddCommand(c.newCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.gridCommand())
	root.AddCommand(c.isovistCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.analyseCommand())
	root.AddCommand(c.layerCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.completionCommand())
	registerFlagCompletions(root)

	return root
}

// =============================================================================
// Factories
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ac, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if ns := c.Config.Cache.Namespace; ns != "" {
		keyer = cache.NewScopedKeyer(nil, ns+":")
	}
	return pipeline.NewRunner(ac, keyer, c.Logger), nil
}

// newCache opens the configured analysis cache. A file cache that cannot
// find a home directory degrades to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr: c.Config.Cache.RedisAddr,
			DB:   c.Config.Cache.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return rc, nil
	}
	dir, err := c.Config.CacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newStore opens the configured graph store.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.Config.Store.Backend == config.StoreMongo {
		return store.NewMongoStore(ctx, c.Config.Store.MongoURI, c.Config.Store.Database)
	}
	return store.NewFileStore(c.Config.Store.Dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the default cache directory (~/.cache/spacegraph/).
func cacheDir() (string, error) {
	return config.DefaultCacheDir()
}

// =============================================================================
// Flag Parsing Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parsePoint parses "x,y".
func parsePoint(s string) (geom.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geom.Point{}, sgerrors.New(sgerrors.ErrCodeInvalidInput, "point %q must be x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geom.Point{}, sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "point %q", s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geom.Point{}, sgerrors.Wrap(sgerrors.ErrCodeInvalidInput, err, "point %q", s)
	}
	return geom.Pt(x, y), nil
}

// parseKeys parses a comma-separated list of record keys. Grid cells may
// also be written as x:y.
func parseKeys(s string) ([]int, error) {
	var keys []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if xs, ys, ok := strings.Cut(f, ":"); ok {
			x, errX := strconv.Atoi(xs)
			y, errY := strconv.Atoi(ys)
			if errX != nil || errY != nil || x < 0 || y < 0 {
				return nil, sgerrors.New(sgerrors.ErrCodeInvalidInput, "cell %q must be x:y", f)
			}
			keys = append(keys, int(grid.Ref(x, y)))
			continue
		}
		k, err := strconv.Atoi(f)
		if err != nil || k < 0 {
			return nil, sgerrors.New(sgerrors.ErrCodeInvalidInput, "key %q must be a non-negative integer", f)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
