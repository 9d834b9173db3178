// Package config loads the viewer configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geoview/internal/geodata"
	"github.com/joeblew999/geoview/internal/session"
)

// Session store backends.
const (
	BackendFile   = "file"
	BackendDuckDB = "duckdb"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultMaxFileSize is the upload cap when none is configured.
const DefaultMaxFileSize int64 = 50 << 20

// Config represents the root configuration file structure.
type Config struct {
	Viewer  Viewer  `yaml:"viewer" json:"viewer"`
	Ingest  Ingest  `yaml:"ingest" json:"ingest"`
	Session Session `yaml:"session" json:"session"`
}

// Viewer describes the map the layers are shown on.
type Viewer struct {
	Center  geodata.LatLon `yaml:"center" json:"center"`
	Zoom    int            `yaml:"zoom" json:"zoom"`
	Width   int            `yaml:"width,omitempty" json:"width"`
	Height  int            `yaml:"height,omitempty" json:"height"`
	Padding int            `yaml:"padding,omitempty" json:"padding"`
	MaxZoom int            `yaml:"max_zoom,omitempty" json:"maxZoom"`
}

// Ingest limits uploads.
type Ingest struct {
	MaxFileSize int64 `yaml:"max_file_size,omitempty" json:"maxFileSize"`
}

// Session selects where the snapshot slot lives.
type Session struct {
	Backend string `yaml:"backend,omitempty" json:"backend"`
	Key     string `yaml:"key,omitempty" json:"key"`

	// duckdb
	DBName string `yaml:"db_name,omitempty" json:"-"`

	// redis
	RedisAddr     string `yaml:"redis_addr,omitempty" json:"-"`
	RedisPassword string `yaml:"redis_password,omitempty" json:"-"`
	RedisDB       int    `yaml:"redis_db,omitempty" json:"-"`
	RedisPrefix   string `yaml:"redis_prefix,omitempty" json:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
// An empty path yields the defaults; unset fields are filled with them.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	v := &c.Viewer
	if v.Center == (geodata.LatLon{}) && v.Zoom == 0 {
		v.Center = geodata.LatLon{Lat: 30.0444, Lon: 31.2357}
		v.Zoom = 5
	}
	if v.Width <= 0 {
		v.Width = geodata.DefaultFitOptions.Width
	}
	if v.Height <= 0 {
		v.Height = geodata.DefaultFitOptions.Height
	}
	if v.Padding <= 0 {
		v.Padding = geodata.DefaultFitOptions.Padding
	}
	if v.MaxZoom <= 0 {
		v.MaxZoom = geodata.DefaultFitOptions.MaxZoom
	}
	if c.Ingest.MaxFileSize <= 0 {
		c.Ingest.MaxFileSize = DefaultMaxFileSize
	}
	if c.Session.Backend == "" {
		c.Session.Backend = BackendFile
	}
	if c.Session.Key == "" {
		c.Session.Key = session.DefaultKey
	}
	if c.Session.DBName == "" {
		c.Session.DBName = "geoview"
	}
	if c.Session.RedisPrefix == "" {
		c.Session.RedisPrefix = "geoview:"
	}
}

// Validate rejects values the viewer cannot run with.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendFile, BackendDuckDB, BackendMemory:
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("session: redis backend needs redis_addr")
		}
	default:
		return fmt.Errorf("session: unknown backend %q", c.Session.Backend)
	}
	if c.Viewer.Zoom < 0 || c.Viewer.Zoom > 22 {
		return fmt.Errorf("viewer: zoom %d out of range", c.Viewer.Zoom)
	}
	return nil
}

// DefaultViewport is the view shown before any layer is fitted.
func (c *Config) DefaultViewport() geodata.Viewport {
	return geodata.Viewport{Center: c.Viewer.Center, Zoom: c.Viewer.Zoom}
}

// FitOptions describes the map used when fitting the view to a layer.
func (c *Config) FitOptions() geodata.FitOptions {
	return geodata.FitOptions{
		Width:   c.Viewer.Width,
		Height:  c.Viewer.Height,
		Padding: c.Viewer.Padding,
		MaxZoom: c.Viewer.MaxZoom,
	}
}

// OpenStore opens the configured session backend. File and DuckDB stores
// live under dataDir.
func (s Session) OpenStore(dataDir string) (session.Store, error) {
	switch s.Backend {
	case BackendMemory:
		return session.NewMemStore(), nil
	case BackendFile, "":
		return session.NewFileStore(filepath.Join(dataDir, "sessions")), nil
	case BackendDuckDB:
		return session.OpenDuckDB(session.DuckDBConfig{DataDir: dataDir, DBName: s.DBName})
	case BackendRedis:
		rs := session.OpenRedis(s.RedisAddr, s.RedisPassword, s.RedisDB, s.RedisPrefix)
		if rs == nil {
			return nil, errors.New("session: redis backend needs redis_addr")
		}
		return rs, nil
	}
	return nil, fmt.Errorf("session: unknown backend %q", s.Backend)
}
