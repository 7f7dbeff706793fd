// Package vector provides cosine similarity and top-K ranking over embedding vectors.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different length are compared.
// It indicates a generator/model mismatch and is not retryable.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Cosine returns dot(a,b) / (|a|*|b|) in [-1, 1]. Vectors need not be normalized.
// If either vector has zero norm, or a component is NaN or infinite, the result is 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, mismatch(len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	s := dot / math.Sqrt(na*nb)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, nil
	}
	return math.Max(-1, math.Min(1, s)), nil
}

func mismatch(a, b int) error {
	return fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, a, b)
}
