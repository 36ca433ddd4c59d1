// Package config loads and validates strukindex configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sa-retail/strukindex/internal/errors"
)

// Config represents the complete strukindex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Normalize NormalizeConfig `yaml:"normalize" json:"normalize"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// StorageConfig locates the receipt tree and the engine's own data.
// BasePath is always explicit configuration, never ambient state.
type StorageConfig struct {
	// BasePath is the root holding the live/ and archive-<year>/ receipt
	// directories.
	BasePath string `yaml:"base_path" json:"base_path"`

	// DataDir holds the SQLite index, watermark and status files.
	// Defaults to <BasePath>/.strukindex.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// IndexConfig tunes the incremental builder.
type IndexConfig struct {
	// Cooldown is the minimum interval between incremental runs for a
	// year (e.g. "1h"). One hour in production; shrunk in tests.
	Cooldown string `yaml:"cooldown" json:"cooldown"`

	// BatchSize is the number of rows per upsert transaction.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// ProgressEvery is how many processed files between status snapshots.
	ProgressEvery int `yaml:"progress_every" json:"progress_every"`
}

// NormalizeConfig tunes the content normalizer.
type NormalizeConfig struct {
	// BatchSize is the number of rows fetched per chunk.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// WatchConfig tunes the live-directory watcher.
type WatchConfig struct {
	// Debounce is how long a burst of file events must settle before a
	// build is triggered (e.g. "2s").
	Debounce string `yaml:"debounce" json:"debounce"`

	// PollInterval is the scan interval for the polling fallback.
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
}

// LoggingConfig configures the structured log output.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{},
		Index: IndexConfig{
			Cooldown:      "1h",
			BatchSize:     1000,
			ProgressEvery: 500,
		},
		Normalize: NormalizeConfig{
			BatchSize: 200,
		},
		Watch: WatchConfig{
			Debounce:     "2s",
			PollInterval: "30s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (optional), applies env overrides,
// fills defaults, and validates. An empty path uses defaults + env only.
func Load(path string) (*Config, error) {
	cfg := New()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Newf(errors.ErrCodeConfigNotFound, "config file not found: %s", path)
			}
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies STRUKINDEX_* environment overrides. Env vars take
// precedence over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("STRUKINDEX_BASE_PATH"); v != "" {
		c.Storage.BasePath = v
	}
	if v := os.Getenv("STRUKINDEX_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("STRUKINDEX_COOLDOWN"); v != "" {
		c.Index.Cooldown = v
	}
	if v := os.Getenv("STRUKINDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.BatchSize = n
		}
	}
	if v := os.Getenv("STRUKINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// applyDefaults fills derived values that depend on other fields.
func (c *Config) applyDefaults() {
	if c.Storage.DataDir == "" && c.Storage.BasePath != "" {
		c.Storage.DataDir = filepath.Join(c.Storage.BasePath, ".strukindex")
	}
	if c.Index.Cooldown == "" {
		c.Index.Cooldown = "1h"
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 1000
	}
	if c.Index.ProgressEvery <= 0 {
		c.Index.ProgressEvery = 500
	}
	if c.Normalize.BatchSize <= 0 {
		c.Normalize.BatchSize = 200
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = "2s"
	}
	if c.Watch.PollInterval == "" {
		c.Watch.PollInterval = "30s"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for fatal problems. The base path
// must exist before any indexing or querying can happen.
func (c *Config) Validate() error {
	if c.Storage.BasePath == "" {
		return errors.Newf(errors.ErrCodeBasePathAbsent, "storage.base_path is required (or set STRUKINDEX_BASE_PATH)")
	}
	info, err := os.Stat(c.Storage.BasePath)
	if err != nil {
		return errors.Newf(errors.ErrCodeBasePathAbsent, "storage.base_path not found: %s", c.Storage.BasePath)
	}
	if !info.IsDir() {
		return errors.Newf(errors.ErrCodeBasePathAbsent, "storage.base_path is not a directory: %s", c.Storage.BasePath)
	}
	if _, err := time.ParseDuration(c.Index.Cooldown); err != nil {
		return errors.Newf(errors.ErrCodeConfigInvalid, "index.cooldown is not a duration: %s", c.Index.Cooldown)
	}
	return nil
}

// CooldownDuration returns the parsed incremental-build cooldown.
func (c *Config) CooldownDuration() time.Duration {
	d, err := time.ParseDuration(c.Index.Cooldown)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// DebounceDuration returns the parsed watch debounce window.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// PollIntervalDuration returns the parsed polling fallback interval.
func (c *Config) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// IndexDBPath returns the path of the SQLite index database.
func (c *Config) IndexDBPath() string {
	return filepath.Join(c.Storage.DataDir, "index.db")
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, err)
	}
	return os.WriteFile(path, data, 0o644)
}
