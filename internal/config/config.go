// Package config loads and validates the optional .bashdisplay YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".bashdisplay"

// Default values for runner and history configuration.
const (
	DefaultHistorySize = 20
	DefaultRedisPrefix = "bashdisplay:run:"
)

// Config holds the parsed .bashdisplay configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int           `yaml:"version"`
	RawMaxOutput int           `yaml:"max_output"` // bytes per stream; unset or <= 0 captures everything
	LogLevel     string        `yaml:"log_level"`  // debug, info, warn, error
	History      HistoryConfig `yaml:"history"`
}

// HistoryConfig controls where run records are kept.
type HistoryConfig struct {
	Disabled bool        `yaml:"disabled"`
	Size     int         `yaml:"size"` // in-memory LRU capacity
	Dir      string      `yaml:"dir"`  // on-disk JSON records
	Redis    RedisConfig `yaml:"redis"`
}

// RedisConfig selects the Redis history backend when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	RawTTL   string `yaml:"ttl"` // e.g. "24h"; empty keeps records forever
}

// MaxOutputBytes returns the per-stream capture cap. Zero, the default,
// means unlimited.
func (c *Config) MaxOutputBytes() int {
	return max(c.RawMaxOutput, 0)
}

// HistorySize returns the configured LRU capacity or the default.
func (c *Config) HistorySize() int {
	if c.History.Size > 0 {
		return c.History.Size
	}
	return DefaultHistorySize
}

// HistoryDir returns the directory for on-disk run records, defaulting to
// the user cache directory.
func (c *Config) HistoryDir() string {
	if c.History.Dir != "" {
		return c.History.Dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "bashdisplay", "runs")
}

// UseRedis reports whether run records go to Redis.
func (c *Config) UseRedis() bool {
	return c.History.Redis.Addr != ""
}

// RedisPrefix returns the key prefix for Redis run records.
func (c *Config) RedisPrefix() string {
	if c.History.Redis.Prefix != "" {
		return c.History.Redis.Prefix
	}
	return DefaultRedisPrefix
}

// RedisTTL returns the expiry of Redis run records. Zero means no expiry.
func (c *Config) RedisTTL() time.Duration {
	if c.History.Redis.RawTTL != "" {
		d, err := time.ParseDuration(c.History.Redis.RawTTL)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// LoadResult holds the parsed config and where it was found.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .bashdisplay; falls back to workspace
	Path   string // path of the file read; empty when defaults are used
}

// Load reads the .bashdisplay file found by walking upward from workspace.
// If no file exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findConfigRoot(workspace)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, Root: root, Path: path}, nil
}

// findConfigRoot walks upward from dir looking for a directory containing
// a .bashdisplay file.
func findConfigRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
