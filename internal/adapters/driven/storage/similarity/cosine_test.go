package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled", a: []float32{1, 0}, b: []float32{5, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite clamps to zero", a: []float32{1, 0}, b: []float32{-1, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "45 degrees", a: []float32{1, 0}, b: []float32{1, 1}, want: 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-5)
		})
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	a := []float32{3, 4}
	b := []float32{4, 3}

	assert.InDelta(t, 24.0/25.0, Score(a, b, Magnitude(a), Magnitude(b)), 1e-5)
	assert.Equal(t, 0.0, Score(a, []float32{0, 0}, Magnitude(a), 0))
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, float64(Magnitude([]float32{3, 4})), 1e-6)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.0000001))
	assert.Equal(t, 0.42, Clamp(0.42))
}
