package blobstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hupe1980/nanovdb/internal/mmap"
)

// MmapStore implements BlobStore on the local file system using
// memory-mapped reads and writes.
//
// Unlike LocalStore, writes go straight to the target file; a crash during a
// write can leave a truncated file behind, which the next load reports as
// corrupt.
type MmapStore struct {
	root string
}

// NewMmapStore creates a new MmapStore rooted at the given directory.
func NewMmapStore(root string) *MmapStore {
	return &MmapStore{root: root}
}

// Read maps the file and returns a copy of its contents.
func (s *MmapStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mmap.ReadFile(resolve(s.root, name))
}

// Write maps the file read-write and copies data into it.
func (s *MmapStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := resolve(s.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return mmap.WriteFile(path, data, 0o644)
}

// Delete removes the file.
func (s *MmapStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return removeFile(resolve(s.root, name))
}

// Exists reports whether the file exists.
func (s *MmapStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return fileExists(resolve(s.root, name))
}
