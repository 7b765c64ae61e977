package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// StandardScaler centers each column to zero mean and scales it to unit
// (population) standard deviation.
type StandardScaler struct {
	Mean []float64
	Std  []float64
	fit  bool
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fit learns the column means and standard deviations of X. A constant
// column keeps a scale of 1.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 {
		return errors.New("cannot fit scaler on empty matrix")
	}
	s.Mean = make([]float64, c)
	s.Std = make([]float64, c)
	for j := range c {
		for i := range r {
			s.Mean[j] += X.At(i, j)
		}
		s.Mean[j] /= float64(r)
		v := 0.0
		for i := range r {
			d := X.At(i, j) - s.Mean[j]
			v += d * d
		}
		v /= float64(r)
		s.Std[j] = math.Sqrt(v)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	s.fit = true
	return nil
}

// Transform returns a standardized copy of X. Before Fit it returns a plain copy.
func (s *StandardScaler) Transform(X mat.Matrix) *mat.Dense {
	Y := mat.DenseCopyOf(X)
	if !s.fit {
		return Y
	}
	r, c := Y.Dims()
	for i := range r {
		for j := range c {
			Y.Set(i, j, (Y.At(i, j)-s.Mean[j])/s.Std[j])
		}
	}
	return Y
}

func (s *StandardScaler) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X), nil
}

// Unscale maps slopes fitted on standardized columns back to the original
// scale. The returned offset must be added to an intercept fitted on the
// standardized data.
func (s *StandardScaler) Unscale(coef []float64) (orig []float64, offset float64) {
	orig = make([]float64, len(coef))
	for j, b := range coef {
		orig[j] = b / s.Std[j]
		offset -= orig[j] * s.Mean[j]
	}
	return orig, offset
}

// UnscaleCov maps a covariance matrix of standardized slopes back to the
// original scale.
func (s *StandardScaler) UnscaleCov(cov mat.Symmetric) *mat.SymDense {
	p := cov.SymmetricDim()
	out := mat.NewSymDense(p, nil)
	for i := range p {
		for j := i; j < p; j++ {
			out.SetSym(i, j, cov.At(i, j)/(s.Std[i]*s.Std[j]))
		}
	}
	return out
}
