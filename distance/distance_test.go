package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Unrolled", []float32{1, 1, 1, 1, 1, 1, 1}, []float32{2, 2, 2, 2, 2, 2, 2}, 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-5)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Empty", []float32{}, []float32{}, 0},
		{"Unrolled", []float32{0, 0, 0, 0, 0}, []float32{1, 1, 1, 1, 2}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-5)
			assert.InDelta(t, SquaredL2(tt.a, tt.b), SquaredL2(tt.b, tt.a), 1e-6)
		})
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Same", []float32{1, 0, 0}, []float32{3, 0, 0}, 0},
		{"Orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"Opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"ZeroLeft", []float32{0, 0}, []float32{1, 0}, 1},
		{"ZeroBoth", []float32{0, 0}, []float32{0, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineDistance(tt.a, tt.b), 1e-5)
			assert.InDelta(t, CosineDistance(tt.a, tt.b), CosineDistance(tt.b, tt.a), 1e-6)
		})
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	require.True(t, NormalizeL2InPlace(v))
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Norm(v), 1e-6)

	zero := []float32{0, 0, 0}
	assert.False(t, NormalizeL2InPlace(zero))
	assert.Equal(t, []float32{0, 0, 0}, zero)

	src := []float32{0, 2}
	dst, ok := NormalizeL2Copy(src)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 2}, src, "source must not be modified")
	assert.Equal(t, []float32{0, 1}, dst)

	_, ok = NormalizeL2Copy([]float32{})
	assert.False(t, ok)
}

func TestMetric(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "l2", MetricL2.String())
		assert.Equal(t, "cosine", MetricCosine.String())
		assert.Equal(t, "unknown(9)", Metric(9).String())
	})

	t.Run("Parse", func(t *testing.T) {
		for name, want := range map[string]Metric{"l2": MetricL2, "Euclidean": MetricL2, " COSINE ": MetricCosine} {
			got, err := ParseMetric(name)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		_, err := ParseMetric("hamming")
		assert.Error(t, err)
	})

	t.Run("Score", func(t *testing.T) {
		assert.InDelta(t, 1.0, MetricCosine.Score(0), 1e-6)
		assert.InDelta(t, -2.5, MetricL2.Score(2.5), 1e-6)
		assert.True(t, MetricCosine.Normalizes())
		assert.False(t, MetricL2.Normalizes())
	})

	t.Run("Provider", func(t *testing.T) {
		fn, err := Provider(MetricL2)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, fn([]float32{1, 0}, []float32{0, 1}), 1e-6)

		fn, err = Provider(MetricCosine)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, fn([]float32{1, 0}, []float32{0, 1}), 1e-6)

		_, err = Provider(Metric(42))
		assert.Error(t, err)
		assert.False(t, Metric(42).Valid())
	})
}

