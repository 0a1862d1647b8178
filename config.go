package nanovdb

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/codec"
	"github.com/hupe1980/nanovdb/config"
	"github.com/hupe1980/nanovdb/distance"
	"github.com/hupe1980/nanovdb/recordstore/badger"
	"github.com/hupe1980/nanovdb/recordstore/sqlite"
)

// NewMultiTenantFromConfig builds a MultiTenant from a loaded configuration.
// optFns are applied after the options derived from cfg.
func NewMultiTenantFromConfig(cfg *config.Config, optFns ...Option) (*MultiTenant, error) {
	metric, err := distance.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, invalidConfig("metric", "%v", err)
	}

	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, invalidConfig("codec", "unknown codec %q", cfg.Codec)
	}

	logger, err := loggerFromConfig(cfg.Log)
	if err != nil {
		return nil, err
	}

	root := cfg.StorageRoot
	if root == "" {
		root = DefaultStorageRoot
	}

	opts := []Option{
		WithCodec(c),
		WithLogger(logger),
		WithSaveConcurrency(cfg.SaveConcurrency),
	}

	var backend io.Closer
	switch cfg.Backend {
	case config.BackendSQLite:
		rs := sqlite.NewStore("")
		opts = append(opts, WithRecordStore(rs))
		backend = rs
	case config.BackendBadger:
		bs, err := badger.NewStore(badger.Options{Dir: filepath.Join(root, "badger"), Logger: logger.Logger})
		if err != nil {
			return nil, fmt.Errorf("open badger backend: %w", err)
		}
		opts = append(opts, WithRecordStore(bs))
		backend = bs
	default:
		bs, err := blobStoreFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithBlobStore(bs))
	}

	mt, err := NewMultiTenant(cfg.Dimension, metric, cfg.MaxCachedTenants, root, append(opts, optFns...)...)
	if err != nil {
		if backend != nil {
			_ = backend.Close()
		}
		return nil, err
	}
	return mt, nil
}

// blobStoreFromConfig wraps the base store in a rate limiter and that in
// compression, so limits apply to the compressed bytes that reach the medium.
func blobStoreFromConfig(cfg *config.Config) (blobstore.BlobStore, error) {
	var bs blobstore.BlobStore
	switch cfg.Backend {
	case config.BackendFile, "":
		bs = blobstore.NewLocalStore("")
	case config.BackendMmap:
		bs = blobstore.NewMmapStore("")
	case config.BackendMemory:
		bs = blobstore.NewMemoryStore()
	default:
		return nil, invalidConfig("backend", "unknown backend %q", cfg.Backend)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		bs = blobstore.NewRateLimitedStore(bs, cfg.IOLimitBytesPerSec)
	}

	compression, err := blobstore.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, invalidConfig("compression", "%v", err)
	}
	if compression != blobstore.CompressionNone {
		bs = blobstore.NewCompressedStore(bs, compression)
	}
	return bs, nil
}

func loggerFromConfig(cfg config.LogConfig) (*Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil && cfg.Level != "" {
		return nil, invalidConfig("log.level", "%v", err)
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return NewJSONLogger(level), nil
	case "text", "":
		return NewTextLogger(level), nil
	default:
		return nil, invalidConfig("log.format", "unknown format %q", cfg.Format)
	}
}
