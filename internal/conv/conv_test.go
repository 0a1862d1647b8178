//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := IntToUint32(123)
		assert.NoError(t, err)
		assert.Equal(t, uint32(123), got)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		assert.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := IntToUint32(math.MaxUint32 + 1)
		assert.Error(t, err)
	})
}

func TestFloat32Packing(t *testing.T) {
	in := []float32{1, -2.5, float32(math.Pi), 0}
	b := Float32sToBytes(in)
	require.Len(t, b, 16)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, b[:4], "1.0 little-endian")

	out, err := BytesToFloat32s(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = BytesToFloat32s([]byte{1, 2, 3})
	assert.Error(t, err)

	empty, err := BytesToFloat32s(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
