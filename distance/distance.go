// Package distance provides Euclidean distance calculations over float64
// feature vectors.
package distance

import "math"

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// L2 calculates the L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func L2(a, b []float64) float64 {
	return math.Sqrt(SquaredL2(a, b))
}
