package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
	}{
		{
			name:     "identical direction",
			a:        Vector{1, 0},
			b:        Vector{1, 0},
			expected: 1.0,
		},
		{
			name:     "orthogonal",
			a:        Vector{1, 0},
			b:        Vector{0, 1},
			expected: 0.0,
		},
		{
			name:     "opposite",
			a:        Vector{1, 2},
			b:        Vector{-1, -2},
			expected: -1.0,
		},
		{
			name:     "scale invariant",
			a:        Vector{1, 0},
			b:        Vector{0.9, 0.1},
			expected: 0.9 / math.Sqrt(0.82),
		},
		{
			name:     "zero vector",
			a:        Vector{0, 0},
			b:        Vector{1, 0},
			expected: 0.0,
		},
		{
			name:     "length mismatch",
			a:        Vector{1, 0, 0},
			b:        Vector{1, 0},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-6)
			assert.GreaterOrEqual(t, got, -1.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestCosineWithNorms_MatchesCosineSimilarity(t *testing.T) {
	a := Vector{0.3, -0.2, 0.9}
	b := Vector{0.1, 0.4, 0.7}

	got := CosineWithNorms(a, b, Norm(a), Norm(b))
	assert.InDelta(t, CosineSimilarity(a, b), got, 1e-12)
}

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    Vector
		expected Vector
	}{
		{
			name:     "unit vector remains unchanged",
			input:    Vector{1.0, 0.0, 0.0},
			expected: Vector{1.0, 0.0, 0.0},
		},
		{
			name:     "scale non-unit vector",
			input:    Vector{3.0, 4.0},
			expected: Vector{0.6, 0.8},
		},
		{
			name:     "negative values",
			input:    Vector{-1.0, 1.0},
			expected: Vector{-1.0 / float32(math.Sqrt(2)), 1.0 / float32(math.Sqrt(2))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Equal(t, len(tt.expected), len(result), "vector length mismatch")

			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
			assert.InDelta(t, 1.0, Norm(result), 1e-6, "magnitude should be 1.0")
		})
	}
}

func TestNormalizeVector_ZeroVector(t *testing.T) {
	result := NormalizeVector(Vector{0.0, 0.0, 0.0})

	for i, v := range result {
		assert.Equal(t, float32(0.0), v, "element %d should be 0", i)
	}
}

func TestNormalizeVector_EmptyVector(t *testing.T) {
	result := NormalizeVector(Vector{})
	assert.Empty(t, result, "empty vector should return empty vector")
}
