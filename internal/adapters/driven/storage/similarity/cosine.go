// Package similarity scores embedding vectors for the vector stores that
// rank in process.
package similarity

import (
	"fmt"
	"math"

	"github.com/viant/vec/search"
)

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float32 {
	return search.Float32s(v).Magnitude()
}

// Score returns the cosine similarity of a and b clamped to [0,1]. The
// precomputed magnitudes let zero vectors score 0 without a distance call.
func Score(a, b []float32, magA, magB float32) float64 {
	if magA == 0 || magB == 0 {
		return 0
	}
	distance := search.Float32s(a).CosineDistance(b)
	return Clamp(1 - float64(distance))
}

// Cosine computes the clamped cosine similarity of two vectors.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("similarity: dimension mismatch %d != %d", len(a), len(b))
	}
	return Score(a, b, Magnitude(a), Magnitude(b)), nil
}

// Clamp limits a similarity to [0,1]. NaN maps to 0.
func Clamp(s float64) float64 {
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
