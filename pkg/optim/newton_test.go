package optim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"pharmacoepi/pkg/link"
)

func quadratic(beta []float64) (float64, []float64, *mat.SymDense, error) {
	b0, b1 := beta[0]-1, beta[1]+3
	val := -b0*b0 - 2*b1*b1
	grad := []float64{-2 * b0, -4 * b1}
	hess := mat.NewSymDense(2, []float64{-2, 0, 0, -4})
	return val, grad, hess, nil
}

func TestNewtonQuadratic(t *testing.T) {
	t.Parallel()

	res, err := NewNewton().Maximize(ObjectiveFunc(quadratic), []float64{10, 10})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Beta[0], 1e-12)
	assert.InDelta(t, -3.0, res.Beta[1], 1e-12)
	assert.InDelta(t, 0.0, res.Value, 1e-12)
	assert.LessOrEqual(t, res.Iterations, 3)
	assert.InDelta(t, 2.0, res.Information.At(0, 0), 1e-12)
	assert.InDelta(t, 4.0, res.Information.At(1, 1), 1e-12)
}

func TestNewtonDoesNotModifyStart(t *testing.T) {
	t.Parallel()

	start := []float64{5, 5}
	_, err := NewNewton().Maximize(ObjectiveFunc(quadratic), start)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, start)
}

func TestNewtonSingular(t *testing.T) {
	t.Parallel()

	// Flat along b0 = -b1.
	f := ObjectiveFunc(func(beta []float64) (float64, []float64, *mat.SymDense, error) {
		s := beta[0] + beta[1]
		return -s * s, []float64{-2 * s, -2 * s}, mat.NewSymDense(2, []float64{-2, -2, -2, -2}), nil
	})
	_, err := NewNewton().Maximize(f, []float64{1, 1})
	assert.ErrorIs(t, err, ErrSingular)
}

func TestNewtonNotConverged(t *testing.T) {
	t.Parallel()

	// log(logistic(b)) increases without bound in b.
	f := ObjectiveFunc(func(beta []float64) (float64, []float64, *mat.SymDense, error) {
		b := beta[0]
		p, q := link.Logistic(b), link.Logistic(-b)
		return link.BernoulliLogLik(1, b), []float64{q}, mat.NewSymDense(1, []float64{-p * q}), nil
	})
	solver := NewNewton()
	solver.MaxIter = 50
	_, err := solver.Maximize(f, []float64{0})
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestNewtonNonFiniteStart(t *testing.T) {
	t.Parallel()

	f := ObjectiveFunc(func(beta []float64) (float64, []float64, *mat.SymDense, error) {
		return math.NaN(), []float64{0}, mat.NewSymDense(1, []float64{-1}), nil
	})
	_, err := NewNewton().Maximize(f, []float64{0})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestNewtonHalvesPastNonFiniteTrial(t *testing.T) {
	t.Parallel()

	// log(b) - b is maximized at 1 and undefined for b <= 0. The first full
	// step from 3 lands on -3.
	f := ObjectiveFunc(func(beta []float64) (float64, []float64, *mat.SymDense, error) {
		b := beta[0]
		if b <= 0 {
			return math.NaN(), nil, nil, ErrNonFinite
		}
		return math.Log(b) - b, []float64{1/b - 1}, mat.NewSymDense(1, []float64{-1 / (b * b)}), nil
	})
	res, err := NewNewton().Maximize(f, []float64{3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Beta[0], 1e-6)
}

func TestCheckConditioning(t *testing.T) {
	t.Parallel()

	good := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	assert.NoError(t, CheckConditioning(good, DefaultMaxCond))

	collinear := mat.NewDense(3, 2, []float64{1, 2, 2, 4, 3, 6})
	assert.ErrorIs(t, CheckConditioning(collinear, DefaultMaxCond), ErrSingular)

	zeroCol := mat.NewDense(3, 2, []float64{1, 0, 2, 0, 3, 0})
	assert.ErrorIs(t, CheckConditioning(zeroCol, DefaultMaxCond), ErrSingular)

	wide := mat.NewDense(1, 2, []float64{1, 2})
	assert.ErrorIs(t, CheckConditioning(wide, DefaultMaxCond), ErrSingular)
}
