package optim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxCond is the largest 2-norm condition number accepted for a
// standardized design matrix.
const DefaultMaxCond = 1e10

// CheckConditioning returns ErrSingular when X is rank-deficient or so
// ill-conditioned that its information matrix cannot be trusted.
func CheckConditioning(X mat.Matrix, maxCond float64) error {
	r, c := X.Dims()
	if c == 0 {
		return nil
	}
	if r < c {
		return fmt.Errorf("%d rows for %d columns: %w", r, c, ErrSingular)
	}
	if k := mat.Cond(X, 2); k > maxCond {
		return fmt.Errorf("condition number %.3g: %w", k, ErrSingular)
	}
	return nil
}
