package blobstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// RateLimitedStore wraps a BlobStore and limits read and write throughput
// to a fixed number of bytes per second.
//
// Large blobs are charged in burst-sized chunks, so a blob bigger than one
// second of budget is still admitted.
type RateLimitedStore struct {
	inner   BlobStore
	limiter *rate.Limiter
}

// NewRateLimitedStore wraps inner with a bytesPerSec budget.
// A non-positive budget disables limiting.
func NewRateLimitedStore(inner BlobStore, bytesPerSec int) *RateLimitedStore {
	var limiter *rate.Limiter
	if bytesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
	}
	return &RateLimitedStore{inner: inner, limiter: limiter}
}

// Read reads the blob and then waits for its size in budget.
func (s *RateLimitedStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.inner.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// Write waits for len(data) bytes of budget and then writes.
func (s *RateLimitedStore) Write(ctx context.Context, name string, data []byte) error {
	if err := s.wait(ctx, len(data)); err != nil {
		return err
	}
	return s.inner.Write(ctx, name, data)
}

// Delete removes the named blob. Deletes are not charged.
func (s *RateLimitedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// Exists reports whether the named blob is present.
func (s *RateLimitedStore) Exists(ctx context.Context, name string) (bool, error) {
	return s.inner.Exists(ctx, name)
}

// Close closes the inner store if it holds resources.
func (s *RateLimitedStore) Close() error {
	return closeInner(s.inner)
}

func (s *RateLimitedStore) wait(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}
	burst := s.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := s.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

func closeInner(inner BlobStore) error {
	if c, ok := inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
