package blobstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore implements BlobStore using the local file system.
//
// Names are slash-separated paths resolved against the root. An empty root
// resolves names against the working directory, so absolute names are used
// as-is.
type LocalStore struct {
	root string
	perm os.FileMode
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
// The directory is created lazily on the first write.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, perm: 0o644}
}

func (s *LocalStore) path(name string) string {
	return resolve(s.root, name)
}

// Read reads the whole file.
func (s *LocalStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path(name))
}

// Write atomically replaces the file: data is written to a temporary file in
// the same directory, synced, and renamed over the target.
func (s *LocalStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.path(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(s.perm)

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	syncDir(dir)

	return nil
}

// Delete removes the file.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return removeFile(s.path(name))
}

// Exists reports whether the file exists.
func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return fileExists(s.path(name))
}

func resolve(root, name string) string {
	name = filepath.FromSlash(name)
	if root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, name)
}

func removeFile(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// syncDir makes a rename durable on POSIX. Best-effort.
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}
