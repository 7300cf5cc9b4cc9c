// Package config provides configuration for the agent. Values come from
// built-in defaults, then an optional YAML config file, then environment
// variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort      = 8591
	DefaultLogLevel  = "info"
	DefaultDataDir   = ".reelcut"
	DefaultFrameRate = 30.0

	EnvPort       = "REELCUT_PORT"
	EnvLogLevel   = "REELCUT_LOG_LEVEL"
	EnvDataDir    = "REELCUT_DATA_DIR"
	EnvConfigFile = "REELCUT_CONFIG"
	EnvFrameRate  = "REELCUT_FRAME_RATE"
	EnvWatchDir   = "REELCUT_WATCH_DIR"
	EnvTray       = "REELCUT_TRAY"

	DBFilename = "reelcut.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	FrameRate() float64
	WatchDir() string
	TrayEnabled() bool
}

// fileConfig is the YAML config file shape.
type fileConfig struct {
	Port      int     `yaml:"port"`
	LogLevel  string  `yaml:"log_level"`
	DataDir   string  `yaml:"data_dir"`
	FrameRate float64 `yaml:"frame_rate"`
	WatchDir  string  `yaml:"watch_dir"`
	Tray      *bool   `yaml:"tray"`
}

// EnvConfig reads configuration from an optional file plus environment
// variables.
type EnvConfig struct {
	port      int
	logLevel  string
	dataDir   string
	frameRate float64
	watchDir  string
	tray      bool
}

// New creates an EnvConfig with defaults, file values (when REELCUT_CONFIG
// points at a YAML file or config.yaml exists in the data dir), and
// environment overrides applied in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:      DefaultPort,
		logLevel:  DefaultLogLevel,
		dataDir:   defaultDataDir(),
		frameRate: DefaultFrameRate,
		tray:      false,
	}

	if err := cfg.applyFile(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) applyFile() error {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		candidate := filepath.Join(c.dataDir, "config.yaml")
		if _, err := os.Stat(candidate); err != nil {
			return nil
		}
		path = candidate
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.FrameRate > 0 {
		c.frameRate = fc.FrameRate
	}
	if fc.WatchDir != "" {
		c.watchDir = fc.WatchDir
	}
	if fc.Tray != nil {
		c.tray = *fc.Tray
	}
	return nil
}

func (c *EnvConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}
	if fr := os.Getenv(EnvFrameRate); fr != "" {
		rate, err := strconv.ParseFloat(fr, 64)
		if err != nil || rate <= 0 {
			return fmt.Errorf("invalid %s: must be a positive number", EnvFrameRate)
		}
		c.frameRate = rate
	}
	if wd := os.Getenv(EnvWatchDir); wd != "" {
		c.watchDir = wd
	}
	if tr := os.Getenv(EnvTray); tr != "" {
		c.tray = tr == "1" || tr == "true"
	}
	return nil
}

// Port returns the HTTP server port.
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error).
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path.
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file.
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// FrameRate returns the framerate assumed for clips that do not declare
// their own.
func (c *EnvConfig) FrameRate() float64 {
	return c.frameRate
}

// WatchDir returns the directory watched for project documents; empty
// disables watching.
func (c *EnvConfig) WatchDir() string {
	return c.watchDir
}

// TrayEnabled reports whether the system tray menu should run.
func (c *EnvConfig) TrayEnabled() bool {
	return c.tray
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}
