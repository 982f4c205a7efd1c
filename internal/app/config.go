package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultConfigFile is looked up in the build directory when no config file
// is given explicitly.
const DefaultConfigFile = "buildgrid.toml"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// BuildPath is the build file or directory. Set from the command line.
	BuildPath string   `toml:"-"`
	Requested []string `toml:"-"`
	Excluded  []string `toml:"-"`
	DryRun    bool     `toml:"-"`
	Watch     bool     `toml:"-"`

	Build     BuildConfig     `toml:"build"`
	Store     StoreConfig     `toml:"store"`
	Resources map[string]int  `toml:"resources"`
	Log       LogConfig       `toml:"log"`
	Events    EventsConfig    `toml:"events"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Server    ServerConfig    `toml:"server"`
	Watcher   WatchConfig     `toml:"watch"`
}

// BuildConfig controls scheduling and up-to-date checks.
type BuildConfig struct {
	Parallelism       int  `toml:"parallelism"`
	Continue          bool `toml:"continue"`
	RerunTasks        bool `toml:"rerun_tasks"`
	CleanStaleOutputs bool `toml:"clean_stale_outputs"`
}

// StoreConfig selects the fingerprint store backend.
type StoreConfig struct {
	// Backend is one of memory, file, sqlite or postgres.
	Backend string `toml:"backend"`
	// Path is the directory (file) or database file (sqlite). Relative paths
	// resolve against the build directory.
	Path string `toml:"path"`
	DSN  string `toml:"dsn"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// EventsConfig configures the live event publisher.
type EventsConfig struct {
	SocketIOURL string `toml:"socketio_url"`
	Namespace   string `toml:"namespace"`
	Event       string `toml:"event"`
}

// TelemetryConfig toggles OpenTelemetry export to stderr.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
}

// ServerConfig configures the health check server. Port 0 disables it.
type ServerConfig struct {
	HealthcheckPort int `toml:"healthcheck_port"`
}

// WatchConfig configures continuous build mode.
type WatchConfig struct {
	Debounce time.Duration `toml:"debounce"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Build:     BuildConfig{Parallelism: 4},
		Store:     StoreConfig{Backend: "sqlite", Path: ".buildgrid/fingerprints.db"},
		Resources: map[string]int{},
		Log:       LogConfig{Level: "info", Format: "text"},
		Watcher:   WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

// LoadConfigFile decodes a TOML file over cfg. A missing file is an error
// only when required is set.
func LoadConfigFile(cfg *Config, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays BUILDGRID_* variables. Values from dotenvPath fill in
// variables the process environment does not set.
func (c *Config) ApplyEnv(dotenvPath string) error {
	vars := map[string]string{}
	if dotenvPath != "" {
		fileVars, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", dotenvPath, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}

	var errs []error
	setInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setInt("BUILDGRID_PARALLELISM", &c.Build.Parallelism)
	setBool("BUILDGRID_CONTINUE", &c.Build.Continue)
	setBool("BUILDGRID_RERUN_TASKS", &c.Build.RerunTasks)
	setBool("BUILDGRID_CLEAN_STALE_OUTPUTS", &c.Build.CleanStaleOutputs)
	setString("BUILDGRID_STORE_BACKEND", &c.Store.Backend)
	setString("BUILDGRID_STORE_PATH", &c.Store.Path)
	setString("BUILDGRID_STORE_DSN", &c.Store.DSN)
	setString("BUILDGRID_LOG_LEVEL", &c.Log.Level)
	setString("BUILDGRID_LOG_FORMAT", &c.Log.Format)
	setString("BUILDGRID_SOCKETIO_URL", &c.Events.SocketIOURL)
	setBool("BUILDGRID_TELEMETRY", &c.Telemetry.Enabled)
	setInt("BUILDGRID_HEALTHCHECK_PORT", &c.Server.HealthcheckPort)
	if v, ok := lookup("BUILDGRID_WATCH_DEBOUNCE"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BUILDGRID_WATCH_DEBOUNCE: %w", err))
		} else {
			c.Watcher.Debounce = d
		}
	}
	return errors.Join(errs...)
}

// BuildDir returns the directory holding the build files.
func (c *Config) BuildDir() string {
	if info, err := os.Stat(c.BuildPath); err == nil && !info.IsDir() {
		return filepath.Dir(c.BuildPath)
	}
	return c.BuildPath
}

// StorePath resolves Store.Path against the build directory.
func (c *Config) StorePath() string {
	if c.Store.Path == "" || filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.BuildDir(), c.Store.Path)
}

// NewConfig validates cfg and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.BuildPath == "" {
		return nil, errors.New("BuildPath is a required configuration field and cannot be empty")
	}
	if cfg.Build.Parallelism < 1 {
		return nil, fmt.Errorf("parallelism must be at least 1, got %d", cfg.Build.Parallelism)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Log.Level)
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.Log.Format)
	}

	switch cfg.Store.Backend {
	case "memory":
	case "file", "sqlite":
		if cfg.Store.Path == "" {
			return nil, fmt.Errorf("store backend %q requires a path", cfg.Store.Backend)
		}
	case "postgres":
		if cfg.Store.DSN == "" {
			return nil, errors.New("store backend \"postgres\" requires a dsn")
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q: must be memory, file, sqlite or postgres", cfg.Store.Backend)
	}

	for name, capacity := range cfg.Resources {
		if capacity < 1 {
			return nil, fmt.Errorf("resource %q must have a capacity of at least 1, got %d", name, capacity)
		}
	}
	if cfg.Watcher.Debounce < 0 {
		return nil, fmt.Errorf("watch debounce must not be negative, got %s", cfg.Watcher.Debounce)
	}
	return &cfg, nil
}
