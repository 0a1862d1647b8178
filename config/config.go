// Package config loads nanovdb settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Backend names accepted in Config.Backend.
const (
	BackendFile   = "file"
	BackendMmap   = "mmap"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Defaults applied to empty fields.
const (
	DefaultMetric           = "cosine"
	DefaultMaxCachedTenants = 1000
	DefaultStorageRoot      = "./nano_multi_tenant_storage"
	DefaultBackend          = BackendFile
	DefaultCodec            = "go-json"
	DefaultCompression      = "none"
	DefaultSaveConcurrency  = 1
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Config holds the complete nanovdb configuration.
type Config struct {
	Dimension          int       `koanf:"dimension"`
	Metric             string    `koanf:"metric"`
	MaxCachedTenants   int       `koanf:"max_cached_tenants"`
	StorageRoot        string    `koanf:"storage_root"`
	Backend            string    `koanf:"backend"`
	Codec              string    `koanf:"codec"`
	Compression        string    `koanf:"compression"`
	IOLimitBytesPerSec int       `koanf:"io_limit_bytes_per_sec"`
	SaveConcurrency    int       `koanf:"save_concurrency"`
	Log                LogConfig `koanf:"log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

func applyDefaults(cfg *Config) {
	if cfg.Metric == "" {
		cfg.Metric = DefaultMetric
	}
	if cfg.MaxCachedTenants == 0 {
		cfg.MaxCachedTenants = DefaultMaxCachedTenants
	}
	if cfg.StorageRoot == "" {
		cfg.StorageRoot = DefaultStorageRoot
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if cfg.Codec == "" {
		cfg.Codec = DefaultCodec
	}
	if cfg.Compression == "" {
		cfg.Compression = DefaultCompression
	}
	if cfg.SaveConcurrency == 0 {
		cfg.SaveConcurrency = DefaultSaveConcurrency
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Validate checks field ranges and enumerations. Names of metrics, codecs
// and compressions are resolved by their packages when the config is used.
func (c *Config) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("invalid dimension: %d (must be positive)", c.Dimension)
	}
	if c.MaxCachedTenants <= 0 {
		return fmt.Errorf("invalid max_cached_tenants: %d (must be positive)", c.MaxCachedTenants)
	}
	if c.StorageRoot == "" {
		return errors.New("storage_root must not be empty")
	}
	if !slices.Contains([]string{BackendFile, BackendMmap, BackendMemory, BackendSQLite, BackendBadger}, c.Backend) {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.IOLimitBytesPerSec < 0 {
		return fmt.Errorf("invalid io_limit_bytes_per_sec: %d", c.IOLimitBytesPerSec)
	}
	if c.SaveConcurrency < 0 {
		return fmt.Errorf("invalid save_concurrency: %d", c.SaveConcurrency)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
