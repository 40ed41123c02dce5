package distance

import (
	"math"
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
		{"Single", []float32{2}, []float32{3}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dot(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestCosine(t *testing.T) {
	t.Run("IdenticalUnitVectors", func(t *testing.T) {
		v, ok := NormalizeL2Copy([]float32{3, 4})
		require.True(t, ok)
		assert.InDelta(t, 0, Cosine(v, v), 1e-6)
	})

	t.Run("OrthogonalVectors", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.InDelta(t, 1, Cosine(a, b), 1e-6)
	})

	t.Run("OppositeVectors", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{-1, 0}
		assert.InDelta(t, 2, Cosine(a, b), 1e-6)
	})
}

func TestSimilarity(t *testing.T) {
	// similarity = 1 - distance must hold exactly
	for _, d := range []float32{0, 0.25, 1, 1.75, 2} {
		assert.Equal(t, 1-d, Similarity(d))
	}
}

func TestNormalizeL2InPlace(t *testing.T) {
	t.Run("UnitNorm", func(t *testing.T) {
		v := []float32{3, 4}
		ok := NormalizeL2InPlace(v)
		require.True(t, ok)

		var norm2 float64
		for _, x := range v {
			norm2 += float64(x) * float64(x)
		}
		assert.InDelta(t, 1, math.Sqrt(norm2), 1e-6)
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("ZeroVector", func(t *testing.T) {
		v := []float32{0, 0, 0}
		assert.False(t, NormalizeL2InPlace(v))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.False(t, NormalizeL2InPlace(nil))
	})
}

func TestNormalizeL2Copy(t *testing.T) {
	src := []float32{0, 5}
	dst, ok := NormalizeL2Copy(src)
	require.True(t, ok)

	// Source must be untouched.
	assert.Equal(t, []float32{0, 5}, src)
	assert.InDelta(t, 1, dst[1], 1e-6)

	_, ok = NormalizeL2Copy([]float32{0, 0})
	assert.False(t, ok)
}
