package conv

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Float32Size is the encoded width of one vector component.
const Float32Size = 4

// Float32sToBytes packs v as little-endian IEEE-754 float32 values.
func Float32sToBytes(v []float32) []byte {
	return AppendFloat32s(make([]byte, 0, len(v)*Float32Size), v)
}

// AppendFloat32s appends the little-endian encoding of v to dst.
func AppendFloat32s(dst []byte, v []float32) []byte {
	for _, f := range v {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// BytesToFloat32s unpacks little-endian float32 values.
// The length of b must be a multiple of Float32Size.
func BytesToFloat32s(b []byte) ([]float32, error) {
	if len(b)%Float32Size != 0 {
		return nil, fmt.Errorf("vector byte length %d is not a multiple of %d", len(b), Float32Size)
	}
	out := make([]float32, len(b)/Float32Size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*Float32Size:]))
	}
	return out, nil
}
