package testutil

import (
	"io"
	"math/rand"
	"sync"
)

// Reader is a deterministic io.Reader producing pseudo-random bytes.
// It is thread-safe.
type Reader struct {
	mu   sync.Mutex
	rand *rand.Rand
}

var _ io.Reader = (*Reader)(nil)

// NewReader returns a Reader seeded with seed.
func NewReader(seed int64) *Reader {
	return &Reader{rand: rand.New(rand.NewSource(seed))} //nolint:gosec // deterministic test data
}

// Read fills p and never fails.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Read(p)
}
