//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}

// WriteFile replaces the contents of path with data through a shared
// read-write mapping. The mapping is synced with msync before it is released.
func WriteFile(path string, data []byte, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if len(data) == 0 {
		return nil
	}

	if err := f.Truncate(int64(len(data))); err != nil {
		return err
	}

	m, err := unix.Mmap(int(f.Fd()), 0, len(data), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}

	copy(m, data)

	if err := unix.Msync(m, unix.MS_SYNC); err != nil {
		_ = unix.Munmap(m)
		return err
	}

	return unix.Munmap(m)
}
