package nanovdb

import (
	"github.com/hupe1980/nanovdb/blobstore"
	"github.com/hupe1980/nanovdb/codec"
	"github.com/hupe1980/nanovdb/recordstore"
)

// IDGenerator produces identifiers for new tenants.
type IDGenerator func() (string, error)

type options struct {
	blobStore        blobstore.BlobStore
	recordStore      recordstore.RecordStore
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	idGenerator      IDGenerator
	saveConcurrency  int
	fileExtension    string
}

// Option configures Store and MultiTenant behavior.
type Option func(*options)

// WithBlobStore persists documents through bs.
//
// Stores default to a local file store rooted at the working directory;
// a MultiTenant defaults to a local file store rooted at its storage root.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = bs
	}
}

// WithRecordStore persists records through rs instead of encoding a
// document. It takes precedence over WithBlobStore.
func WithRecordStore(rs recordstore.RecordStore) Option {
	return func(o *options) {
		o.recordStore = rs
	}
}

// WithCodec configures the codec used for persisted documents.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &nanovdb.BasicMetricsCollector{}
//	db, _ := nanovdb.Open(ctx, 128, distance.MetricCosine, "db.json", nanovdb.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := nanovdb.NewJSONLogger(slog.LevelInfo)
//	db, _ := nanovdb.Open(ctx, 128, distance.MetricCosine, "db.json", nanovdb.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithIDGenerator replaces the random UUID generator used for new tenants.
func WithIDGenerator(gen IDGenerator) Option {
	return func(o *options) {
		o.idGenerator = gen
	}
}

// WithSaveConcurrency bounds how many tenants MultiTenant.Save persists in
// parallel. Values below 1 mean 1.
func WithSaveConcurrency(n int) Option {
	return func(o *options) {
		o.saveConcurrency = max(n, 1)
	}
}

// WithFileExtension overrides the suffix of tenant storage locations.
// By default it is taken from the record store, or else from the codec.
func WithFileExtension(ext string) Option {
	return func(o *options) {
		o.fileExtension = ext
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		idGenerator:      newUUID,
		saveConcurrency:  1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// extension reports the storage suffix implied by o.
func (o *options) extension() string {
	if o.fileExtension != "" {
		return o.fileExtension
	}
	if o.recordStore != nil {
		if e, ok := o.recordStore.(interface{ Extension() string }); ok {
			return e.Extension()
		}
		return ""
	}
	return o.codec.Extension()
}
