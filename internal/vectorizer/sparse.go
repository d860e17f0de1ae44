// Package vectorizer turns tokenized documents into TF-IDF feature matrices
// and provides the sparse row view the linear solvers iterate over.
package vectorizer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SparseVector represents a sparse float64 vector.
type SparseVector struct {
	Indices []int
	Values  []float64
	Dim     int
}

// NewSparseVector creates a sparse vector with given dimension.
func NewSparseVector(dim int) SparseVector {
	return SparseVector{Dim: dim}
}

// Set adds or updates a value at the given index.
func (sv *SparseVector) Set(idx int, val float64) {
	for i, existingIdx := range sv.Indices {
		if existingIdx == idx {
			sv.Values[i] = val
			return
		}
	}
	sv.Indices = append(sv.Indices, idx)
	sv.Values = append(sv.Values, val)
}

// Dot computes the dot product with a dense vector.
func (sv SparseVector) Dot(dense []float64) float64 {
	var sum float64
	for i, idx := range sv.Indices {
		if idx < len(dense) {
			sum += sv.Values[i] * dense[idx]
		}
	}
	return sum
}

// AddTo adds alpha*sv to dst in place.
func (sv SparseVector) AddTo(dst []float64, alpha float64) {
	for i, idx := range sv.Indices {
		if idx < len(dst) {
			dst[idx] += alpha * sv.Values[i]
		}
	}
}

// ToDense converts to a dense float64 slice.
func (sv SparseVector) ToDense() []float64 {
	dense := make([]float64, sv.Dim)
	for i, idx := range sv.Indices {
		if idx < sv.Dim {
			dense[idx] = sv.Values[i]
		}
	}
	return dense
}

// Nnz returns the number of non-zero entries.
func (sv SparseVector) Nnz() int {
	return len(sv.Indices)
}

// SqNorm returns the squared L2 norm.
func (sv SparseVector) SqNorm() float64 {
	var sum float64
	for _, v := range sv.Values {
		sum += v * v
	}
	return sum
}

// L2Norm returns the L2 norm of the sparse vector.
func (sv SparseVector) L2Norm() float64 {
	return math.Sqrt(sv.SqNorm())
}

// SparseRows returns the rows of m as sparse vectors, dropping zeros.
// A non-zero bias appends a constant feature at index cols.
func SparseRows(m mat.Matrix, bias float64) []SparseVector {
	r, c := m.Dims()
	dim := c
	if bias != 0 {
		dim++
	}
	rows := make([]SparseVector, r)
	for i := range r {
		sv := NewSparseVector(dim)
		for j := range c {
			if v := m.At(i, j); v != 0 {
				sv.Indices = append(sv.Indices, j)
				sv.Values = append(sv.Values, v)
			}
		}
		if bias != 0 {
			sv.Indices = append(sv.Indices, c)
			sv.Values = append(sv.Values, bias)
		}
		rows[i] = sv
	}
	return rows
}
