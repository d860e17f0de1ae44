package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// isNil reports whether X is nil, including a nil *mat.Dense boxed in the
// interface, as returned by Transform on an empty corpus.
func isNil(X mat.Matrix) bool {
	if X == nil {
		return true
	}
	d, ok := X.(*mat.Dense)
	return ok && d == nil
}

// CheckXY validates a training pair: X must be non-empty with finite
// entries, y must have one label per row and contain both classes 0 and 1
// and nothing else.
func CheckXY(X mat.Matrix, y []int) error {
	if isNil(X) {
		return fmt.Errorf("%w: nil feature matrix", ErrValidation)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("%w: empty feature matrix (%dx%d)", ErrValidation, r, c)
	}
	if len(y) != r {
		return fmt.Errorf("%w: %d labels for %d rows", ErrValidation, len(y), r)
	}
	for i := range r {
		for j := range c {
			if v := X.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value %v at row %d, column %d", ErrValidation, v, i, j)
			}
		}
	}
	var seen [2]bool
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: label %d at row %d is not binary (0 or 1)", ErrValidation, v, i)
		}
		seen[v] = true
	}
	if !seen[0] || !seen[1] {
		return fmt.Errorf("%w: labels must contain both classes 0 and 1", ErrValidation)
	}
	return nil
}

// CheckCols validates that X has the number of columns a fitted estimator expects.
func CheckCols(X mat.Matrix, want int) error {
	if isNil(X) {
		return fmt.Errorf("%w: nil feature matrix", ErrValidation)
	}
	r, c := X.Dims()
	if r == 0 {
		return fmt.Errorf("%w: feature matrix has no rows", ErrValidation)
	}
	if c != want {
		return fmt.Errorf("%w: matrix has %d columns, want %d", ErrValidation, c, want)
	}
	return nil
}
