package optim

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrSingular     = errors.New("information matrix is singular")
	ErrNotConverged = errors.New("newton-raphson did not converge")
	ErrNonFinite    = errors.New("objective is not finite")
)

// Objective is a concave function to maximize, typically a log-likelihood.
// Eval returns the value, the gradient and the Hessian at beta.
type Objective interface {
	Eval(beta []float64) (value float64, grad []float64, hess *mat.SymDense, err error)
}

// ObjectiveFunc adapts a plain function to Objective.
type ObjectiveFunc func(beta []float64) (float64, []float64, *mat.SymDense, error)

func (f ObjectiveFunc) Eval(beta []float64) (float64, []float64, *mat.SymDense, error) {
	return f(beta)
}

// Newton maximizes an Objective by Newton-Raphson with step halving.
type Newton struct {
	MaxIter     int
	Tol         float64
	MaxHalvings int
}

// NewNewton returns a solver with the default bounds: 1000 iterations,
// tolerance 1e-9, and up to 30 halvings per iteration.
func NewNewton() *Newton {
	return &Newton{MaxIter: 1000, Tol: 1e-9, MaxHalvings: 30}
}

// Result is the solution found by Newton.
type Result struct {
	Beta       []float64
	Value      float64
	Gradient   []float64
	Iterations int
	// Information is the negative Hessian at Beta.
	Information *mat.SymDense
}

// Step moves beta in place by scale*delta.
func (o *Newton) Step(beta, delta []float64, scale float64) {
	for i := range beta {
		beta[i] += scale * delta[i]
	}
}

// Maximize runs the solver from beta0. beta0 is not modified.
func (o *Newton) Maximize(f Objective, beta0 []float64) (*Result, error) {
	beta := make([]float64, len(beta0))
	copy(beta, beta0)

	val, grad, hess, err := f.Eval(beta)
	if err != nil {
		return nil, err
	}
	if !isFinite(val) {
		return nil, ErrNonFinite
	}

	p := len(beta)
	info := mat.NewSymDense(p, nil)
	delta := mat.NewVecDense(p, nil)
	trial := make([]float64, p)

	for it := 1; it <= o.MaxIter; it++ {
		negate(info, hess)
		var chol mat.Cholesky
		if ok := chol.Factorize(info); !ok {
			return nil, fmt.Errorf("iteration %d: %w", it, ErrSingular)
		}
		if err := chol.SolveVecTo(delta, mat.NewVecDense(p, grad)); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", it, ErrSingular)
		}
		d := delta.RawVector().Data

		// Halve the step until the objective does not decrease.
		scale := 1.0
		var (
			nVal  float64
			nGrad []float64
			nHess *mat.SymDense
		)
		for h := 0; ; h++ {
			copy(trial, beta)
			o.Step(trial, d, scale)
			nVal, nGrad, nHess, err = f.Eval(trial)
			if err != nil && !errors.Is(err, ErrNonFinite) {
				return nil, err
			}
			if err == nil && isFinite(nVal) && nVal >= val-o.Tol*math.Max(1, math.Abs(val)) {
				break
			}
			if h >= o.MaxHalvings {
				return nil, fmt.Errorf("iteration %d: step halving failed: %w", it, ErrNotConverged)
			}
			scale /= 2
		}

		change := math.Abs(nVal - val)
		stepNorm := scale * floats.Norm(d, math.Inf(1))
		copy(beta, trial)
		val, grad, hess = nVal, nGrad, nHess

		if stepNorm < o.Tol || (change < o.Tol*math.Max(1, math.Abs(val)) && stepNorm < math.Sqrt(o.Tol)) {
			negate(info, hess)
			return &Result{
				Beta:        beta,
				Value:       val,
				Gradient:    grad,
				Iterations:  it,
				Information: info,
			}, nil
		}
	}
	return nil, fmt.Errorf("after %d iterations: %w", o.MaxIter, ErrNotConverged)
}

func negate(dst, src *mat.SymDense) {
	p := src.SymmetricDim()
	for i := range p {
		for j := i; j < p; j++ {
			dst.SetSym(i, j, -src.At(i, j))
		}
	}
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
