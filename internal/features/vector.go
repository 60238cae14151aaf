package features

import "math"

// Vector is a sparse TF-IDF row. Indices are strictly increasing; absent indices weigh zero.
type Vector struct {
	Indices []int
	Values  []float64
	Dim     int
}

// At returns the weight at index i
func (v Vector) At(i int) float64 {
	for k, idx := range v.Indices {
		if idx == i {
			return v.Values[k]
		}
		if idx > i {
			break
		}
	}
	return 0
}

// NNZ returns the number of stored non-zero weights
func (v Vector) NNZ() int {
	return len(v.Indices)
}

// Dot returns the inner product with a dense weight slice of length Dim
func (v Vector) Dot(dense []float64) float64 {
	var sum float64
	for k, idx := range v.Indices {
		sum += v.Values[k] * dense[idx]
	}
	return sum
}

// Norm returns the Euclidean norm
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dense expands the vector to a full slice
func (v Vector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for k, idx := range v.Indices {
		out[idx] = v.Values[k]
	}
	return out
}
