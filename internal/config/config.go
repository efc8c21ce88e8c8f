// Package config provides configuration management for the ClipForge Agent.
// Defaults are overridden by an optional TOML file, which is in turn
// overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// Default values
	DefaultPort         = 8790
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".clipforge"
	DefaultOracleModel  = "gpt-4o-mini"
	DefaultOracleDriver = "stub"

	// Environment variable names
	EnvPort       = "CLIPFORGE_PORT"
	EnvLogLevel   = "CLIPFORGE_LOG_LEVEL"
	EnvDataDir    = "CLIPFORGE_DATA_DIR"
	EnvMediaDir   = "CLIPFORGE_MEDIA_DIR"
	EnvConfigFile = "CLIPFORGE_CONFIG"
	EnvHeadless   = "CLIPFORGE_HEADLESS"

	// Oracle environment variable names
	EnvOracleDriver  = "CLIPFORGE_ORACLE_DRIVER"
	EnvOracleAPIKey  = "CLIPFORGE_ORACLE_API_KEY"
	EnvOracleBaseURL = "CLIPFORGE_ORACLE_BASE_URL"
	EnvOracleModel   = "CLIPFORGE_ORACLE_MODEL"

	// Database filename
	DBFilename = "clipforge.db"

	// Config filename looked up under the data dir when CLIPFORGE_CONFIG
	// is not set.
	ConfigFilename = "config.toml"

	// Export defaults
	DefaultExportTimeout = 30 * time.Minute
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	ArtifactsDir() string
	Headless() bool
	OracleDriver() string
	OracleAPIKey() string
	OracleBaseURL() string
	OracleModel() string
	ExportTimeout() time.Duration
}

// fileConfig mirrors the TOML file layout. All fields are optional.
type fileConfig struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	DataDir  string `toml:"data_dir"`
	MediaDir string `toml:"media_dir"`
	Headless bool   `toml:"headless"`

	Oracle struct {
		Driver  string `toml:"driver"`
		APIKey  string `toml:"api_key"`
		BaseURL string `toml:"base_url"`
		Model   string `toml:"model"`
	} `toml:"oracle"`

	Export struct {
		TimeoutMinutes int `toml:"timeout_minutes"`
	} `toml:"export"`
}

// EnvConfig layers environment variables over the optional config file.
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	mediaDir string
	headless bool

	oracleDriver  string
	oracleAPIKey  string
	oracleBaseURL string
	oracleModel   string

	exportTimeout time.Duration
}

// New builds the effective configuration: defaults, then the TOML file if
// one exists, then environment overrides.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		oracleDriver:  DefaultOracleDriver,
		oracleModel:   DefaultOracleModel,
		exportTimeout: DefaultExportTimeout,
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if md := os.Getenv(EnvMediaDir); md != "" {
		cfg.mediaDir = md
	}
	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if d := os.Getenv(EnvOracleDriver); d != "" {
		cfg.oracleDriver = d
	}
	if k := os.Getenv(EnvOracleAPIKey); k != "" {
		cfg.oracleAPIKey = k
	}
	if u := os.Getenv(EnvOracleBaseURL); u != "" {
		cfg.oracleBaseURL = u
	}
	if m := os.Getenv(EnvOracleModel); m != "" {
		cfg.oracleModel = m
	}

	return cfg, nil
}

// loadFile merges the TOML config file into cfg. A missing file is not an
// error; a malformed one is.
func (c *EnvConfig) loadFile() error {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = filepath.Join(c.dataDir, ConfigFilename)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		if fc.Port < 1 || fc.Port > 65535 {
			return fmt.Errorf("config file %s: port must be between 1 and 65535", path)
		}
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.MediaDir != "" {
		c.mediaDir = fc.MediaDir
	}
	if fc.Headless {
		c.headless = true
	}
	if fc.Oracle.Driver != "" {
		c.oracleDriver = fc.Oracle.Driver
	}
	if fc.Oracle.APIKey != "" {
		c.oracleAPIKey = fc.Oracle.APIKey
	}
	if fc.Oracle.BaseURL != "" {
		c.oracleBaseURL = fc.Oracle.BaseURL
	}
	if fc.Oracle.Model != "" {
		c.oracleModel = fc.Oracle.Model
	}
	if fc.Export.TimeoutMinutes > 0 {
		c.exportTimeout = time.Duration(fc.Export.TimeoutMinutes) * time.Minute
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir returns the watched media directory, empty when watching is
// disabled.
func (c *EnvConfig) MediaDir() string {
	return c.mediaDir
}

// ArtifactsDir returns where exported clips are written
func (c *EnvConfig) ArtifactsDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) OracleDriver() string {
	return c.oracleDriver
}

func (c *EnvConfig) OracleAPIKey() string {
	return c.oracleAPIKey
}

func (c *EnvConfig) OracleBaseURL() string {
	return c.oracleBaseURL
}

func (c *EnvConfig) OracleModel() string {
	return c.oracleModel
}

func (c *EnvConfig) ExportTimeout() time.Duration {
	return c.exportTimeout
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
