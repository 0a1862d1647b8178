package hash

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/cespare/xxhash/v2"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli checksum of data. Compressed frames and S3
// uploads carry it.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// ContentID returns a deterministic id derived from the vector's bytes.
func ContentID(v []float32) string {
	d := xxhash.New()

	var buf [4]byte
	for _, f := range v {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		_, _ = d.Write(buf[:])
	}

	return fmt.Sprintf("%016x", d.Sum64())
}
