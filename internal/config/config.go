// Package config loads the tally CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines CLI configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig selects where and how tables are stored.
type StoreConfig struct {
	Dir         string        `yaml:"dir"`
	Backend     string        `yaml:"backend"`
	Format      string        `yaml:"format"`
	Lock        bool          `yaml:"lock"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// Database is the SQLite file, relative to Dir.
	Database string `yaml:"database"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Dir:         ".",
			Backend:     "file",
			Format:      "json",
			LockTimeout: 2 * time.Second,
			Database:    "tally.db",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
// An explicit path must exist; the default location may be missing.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("TALLY_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = defaultPath()
	}

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			if explicit || !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	}

	if dir := os.Getenv("TALLY_STORE_DIR"); dir != "" {
		cfg.Store.Dir = dir
	}
	if backend := os.Getenv("TALLY_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if format := os.Getenv("TALLY_FORMAT"); format != "" {
		cfg.Store.Format = format
	}
	if lockStr := os.Getenv("TALLY_LOCK"); lockStr != "" {
		lock, err := strconv.ParseBool(lockStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TALLY_LOCK: %w", err)
		}
		cfg.Store.Lock = lock
	}
	if level := os.Getenv("TALLY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func defaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tally", "config.yaml")
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
