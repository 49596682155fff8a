package core

import "math"

// Norm returns the Euclidean length of v.
func Norm(v Vector) float64 {
	var sum float64
	for _, val := range v {
		f := float64(val)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of a and b computed in float64.
// Vectors of different length are compared over their common prefix.
func Dot(a, b Vector) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// Returns 0 when the lengths differ or either vector has zero magnitude.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return clampUnit(Dot(a, b) / (na * nb))
}

// CosineWithNorms is CosineSimilarity with precomputed magnitudes, for scoring
// one query against many rows.
func CosineWithNorms(a, b Vector, normA, normB float64) float64 {
	if len(a) != len(b) || normA == 0 || normB == 0 {
		return 0
	}
	return clampUnit(Dot(a, b) / (normA * normB))
}

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v Vector) Vector {
	if len(v) == 0 {
		return v
	}

	magnitude := Norm(v)
	result := make(Vector, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// clampUnit absorbs rounding that would push a cosine outside [-1, 1].
func clampUnit(f float64) float64 {
	if f > 1 {
		return 1
	}
	if f < -1 {
		return -1
	}
	return f
}
