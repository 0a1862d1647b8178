package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction over named, whole-object byte storage.
type BlobStore interface {
	// Read returns the full contents of the named blob.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write replaces the named blob with data.
	Write(ctx context.Context, name string, data []byte) error
	// Delete removes the named blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, name string) error
	// Exists reports whether the named blob is present.
	Exists(ctx context.Context, name string) (bool, error)
}
