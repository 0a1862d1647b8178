package blobstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/nanovdb/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the compression algorithm used by CompressedStore.
type Compression uint8

const (
	// CompressionNone stores payloads as-is inside the frame.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression resolves a compression algorithm by name.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// ErrCorruptFrame is returned when a compressed blob fails validation.
var ErrCorruptFrame = errors.New("blobstore: corrupt compressed frame")

// Frame layout:
//
//	[magic "NVZ\x01"][algo uint8][uncompressed len uint64][crc32c uint32][payload]
var frameMagic = []byte{'N', 'V', 'Z', 0x01}

const (
	frameHeaderSize = 4 + 1 + 8 + 4
	maxFrameSize    = 1 << 32

	// lz4MaxRatio is the largest expansion an LZ4 block can encode.
	lz4MaxRatio = 255
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxFrameSize))
	return dec
}

// CompressedStore wraps a BlobStore and compresses every blob it writes.
//
// Reads accept both framed and unframed blobs, so compression can be switched
// on for a store that already holds uncompressed data.
type CompressedStore struct {
	inner BlobStore
	algo  Compression
}

// NewCompressedStore wraps inner with the given algorithm.
func NewCompressedStore(inner BlobStore, algo Compression) *CompressedStore {
	return &CompressedStore{inner: inner, algo: algo}
}

// Read reads and decompresses the named blob.
func (s *CompressedStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := s.inner.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, frameMagic) {
		return data, nil
	}
	return decompressFrame(data)
}

// Write compresses data and writes it to the inner store.
func (s *CompressedStore) Write(ctx context.Context, name string, data []byte) error {
	frame, err := compressFrame(data, s.algo)
	if err != nil {
		return err
	}
	return s.inner.Write(ctx, name, frame)
}

// Delete removes the named blob.
func (s *CompressedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// Exists reports whether the named blob is present.
func (s *CompressedStore) Exists(ctx context.Context, name string) (bool, error) {
	return s.inner.Exists(ctx, name)
}

// Close closes the inner store if it holds resources.
func (s *CompressedStore) Close() error {
	return closeInner(s.inner)
}

func compressFrame(data []byte, algo Compression) ([]byte, error) {
	var payload []byte

	switch algo {
	case CompressionNone:
		payload = data
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible.
			algo = CompressionNone
			payload = data
		} else {
			payload = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unsupported compression: %v", algo)
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	copy(frame, frameMagic)
	frame[4] = byte(algo)
	binary.LittleEndian.PutUint64(frame[5:], uint64(len(data)))
	binary.LittleEndian.PutUint32(frame[13:], hash.CRC32C(data))
	return append(frame, payload...), nil
}

func decompressFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: short header", ErrCorruptFrame)
	}

	algo := Compression(frame[4])
	size := binary.LittleEndian.Uint64(frame[5:])
	sum := binary.LittleEndian.Uint32(frame[13:])
	payload := frame[frameHeaderSize:]

	if size > maxFrameSize {
		return nil, fmt.Errorf("%w: implausible size %d", ErrCorruptFrame, size)
	}

	var out []byte
	switch algo {
	case CompressionNone:
		out = payload
	case CompressionLZ4:
		if size > uint64(len(payload))*lz4MaxRatio {
			return nil, fmt.Errorf("%w: size %d exceeds lz4 bound for %d payload bytes", ErrCorruptFrame, size, len(payload))
		}
		out = make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptFrame, err)
		}
		out = out[:n]
	case CompressionZSTD:
		dec := getZstdDecoder()
		var err error
		// Output grows with the decoded data, never with the header.
		out, err = dec.DecodeAll(payload, nil)
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptFrame, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %d", ErrCorruptFrame, algo)
	}

	if uint64(len(out)) != size {
		return nil, fmt.Errorf("%w: size mismatch: header %d, got %d", ErrCorruptFrame, size, len(out))
	}
	if hash.CRC32C(out) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptFrame)
	}
	return out, nil
}
