// Package distance provides the vector math used by the similarity engine.
//
// All stored vectors and query vectors are L2-normalized, so cosine
// similarity reduces to a dot product and cosine distance to 1 - dot.
package distance

import (
	"math"
	"slices"
)

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Cosine calculates the cosine distance (1 - cosine similarity) between two
// unit-norm vectors. Assumes vectors are the same length and normalized.
func Cosine(a, b []float32) float32 {
	return 1 - Dot(a, b)
}

// Similarity converts a cosine distance back to cosine similarity.
// Callers rely on the exact relation similarity = 1 - distance.
func Similarity(d float32) float32 {
	return 1 - d
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm2 := Dot(v, v)
	if norm2 == 0 {
		return false
	}
	inv := 1 / float32(math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}
