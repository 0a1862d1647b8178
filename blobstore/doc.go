// Package blobstore provides the byte-oriented persistence backends for
// vector stores.
//
// A BlobStore reads and writes whole named objects. The store that owns the
// object decides how its state is encoded; the backend only moves bytes.
// Implementations must be safe for concurrent use and must report absent
// objects with an error satisfying errors.Is(err, ErrNotFound).
//
// # Built-in Implementations
//
//   - LocalStore: local file system, atomic temp-file-and-rename writes
//   - MmapStore: local file system through memory-mapped I/O
//   - MemoryStore: in-process map, for tests and ephemeral tenants
//   - CompressedStore: wraps another store with zstd or lz4 compression
//   - RateLimitedStore: wraps another store with a bytes-per-second budget
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Read(ctx, name) ([]byte, error)
//	    Write(ctx, name, data) error
//	    Delete(ctx, name) error
//	    Exists(ctx, name) (bool, error)
//	}
package blobstore
