// Package config loads spacegraph settings from TOML or YAML files.
//
// A file only needs the keys it changes; everything else keeps the value
// from [DefaultConfig]. Command-line flags override the loaded values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/spacegraph/pkg/analysis"
	sgerrors "github.com/matzehuels/spacegraph/pkg/errors"
	"github.com/matzehuels/spacegraph/pkg/observability"
)

// AppName names the XDG directories.
const AppName = "spacegraph"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Store backends.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

// Grid fill names accepted by GridConfig.Fill.
var validFills = map[string]bool{"full": true, "semi": true, "augment": true}

// Config is the complete spacegraph configuration.
type Config struct {
	Grid     GridConfig       `toml:"grid" yaml:"grid"`
	Analysis analysis.Options `toml:"analysis" yaml:"analysis"`
	Cache    CacheConfig      `toml:"cache" yaml:"cache"`
	Store    StoreConfig      `toml:"store" yaml:"store"`
	Server   ServerConfig     `toml:"server" yaml:"server"`
	Events   EventsConfig     `toml:"events" yaml:"events"`
	Watch    WatchConfig      `toml:"watch" yaml:"watch"`
}

// GridConfig holds defaults for new grid maps.
type GridConfig struct {
	Spacing float64 `toml:"spacing" yaml:"spacing"`
	Fill    string  `toml:"fill" yaml:"fill"`
}

// CacheConfig selects the analysis result cache.
type CacheConfig struct {
	// Backend is one of "file", "redis" or "none".
	Backend string `toml:"backend" yaml:"backend"`
	// Dir is the file cache directory (default: ~/.cache/spacegraph).
	Dir       string `toml:"dir" yaml:"dir"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `toml:"redis_db" yaml:"redis_db"`
	// Namespace prefixes every key, so projects can share one Redis.
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// StoreConfig selects where stored graphs live.
type StoreConfig struct {
	// Backend is "file" or "mongo".
	Backend  string `toml:"backend" yaml:"backend"`
	Dir      string `toml:"dir" yaml:"dir"`
	MongoURI string `toml:"mongo_uri" yaml:"mongo_uri"`
	Database string `toml:"database" yaml:"database"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `toml:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	Metrics      bool          `toml:"metrics" yaml:"metrics"`
}

// EventsConfig configures analysis event publishing. An empty URL
// disables it.
type EventsConfig struct {
	NATSURL string `toml:"nats_url" yaml:"nats_url"`
	Subject string `toml:"subject" yaml:"subject"`
}

// WatchConfig lists the files the watch command re-analyses.
type WatchConfig struct {
	Inputs   []string      `toml:"inputs" yaml:"inputs"`
	Formats  []string      `toml:"formats" yaml:"formats"`
	Debounce time.Duration `toml:"debounce" yaml:"debounce"`
}

// DefaultConfig returns a Config with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			Spacing: 1,
			Fill:    "full",
		},
		Analysis: analysis.Options{
			Mode:   analysis.ModeIntegration,
			Radii:  []int{analysis.RadiusN},
			Global: true,
		},
		Cache: CacheConfig{
			Backend:   CacheFile,
			RedisAddr: "localhost:6379",
		},
		Store: StoreConfig{
			Backend:  StoreFile,
			Database: AppName,
		},
		Server: ServerConfig{
			Addr:         "localhost:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			Metrics:      true,
		},
		Events: EventsConfig{
			Subject: observability.DefaultSubject,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is usable. Errors carry
// [sgerrors.ErrCodeInvalidOptions] unless the analysis options reject
// themselves.
func (c *Config) Validate() error {
	if !(c.Grid.Spacing > 0) {
		return invalid("grid.spacing must be positive")
	}
	if !validFills[c.Grid.Fill] {
		return invalid("grid.fill must be one of full, semi, augment (got %q)", c.Grid.Fill)
	}
	a := c.Analysis
	a.SetDefaults()
	if err := a.Validate(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr is required for the redis backend")
		}
	default:
		return invalid("cache.backend must be one of file, redis, none (got %q)", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case StoreFile:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return invalid("store.mongo_uri is required for the mongo backend")
		}
		if c.Store.Database == "" {
			return invalid("store.database is required for the mongo backend")
		}
	default:
		return invalid("store.backend must be file or mongo (got %q)", c.Store.Backend)
	}
	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if c.Events.NATSURL != "" && c.Events.Subject == "" {
		return invalid("events.subject is required when events.nats_url is set")
	}
	if c.Watch.Debounce < 0 {
		return invalid("watch.debounce cannot be negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return sgerrors.New(sgerrors.ErrCodeInvalidOptions, format, args...)
}

// Load reads the file at path over the defaults and validates the result.
// The format follows the extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sgerrors.Wrap(sgerrors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext over the defaults and
// validates the result.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "parse toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "unknown key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, sgerrors.Wrap(sgerrors.ErrCodeInvalidFormat, err, "parse yaml")
		}
	default:
		return nil, sgerrors.New(sgerrors.ErrCodeInvalidFormat, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to path in the format its extension names.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.NewEncoder(f).Encode(c)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err = enc.Encode(c); err == nil {
			err = enc.Close()
		}
	default:
		return sgerrors.New(sgerrors.ErrCodeInvalidFormat, "unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}

// =============================================================================
// Paths
// =============================================================================

// CacheDir returns the cache directory: Cache.Dir when set, else
// $XDG_CACHE_HOME/spacegraph or ~/.cache/spacegraph.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return DefaultCacheDir()
}

// DefaultCacheDir returns the XDG cache directory for spacegraph.
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// DefaultPath returns the config file consulted when none is given:
// $XDG_CONFIG_HOME/spacegraph/config.toml or ~/.config/spacegraph/config.toml.
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, "config.toml")
}
