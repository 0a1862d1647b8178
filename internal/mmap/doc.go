// Package mmap provides memory-mapped whole-file reads and writes.
//
// # Usage
//
//	m, err := mmap.Open("store.json")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes() // valid until Close
//
//	err = mmap.WriteFile("store.json", payload, 0o644)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) via golang.org/x/sys/unix; writes are
//     flushed with msync(2) before the mapping is released
//   - Other platforms: plain buffered file I/O with the same API
package mmap
