package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"pharmacoepi/pkg/link"
	"pharmacoepi/pkg/optim"
	"pharmacoepi/pkg/stats"
)

// LogisticRegression is a binary logistic model fitted by maximum likelihood
// with Newton-Raphson (IRLS). Features are standardized during fitting and
// the coefficients are reported on the original scale.
type LogisticRegression struct {
	W          []float64 // weights
	b          float64   // bias
	MaxIter    int
	Tol        float64
	L2         float64 // ridge penalty on standardized slopes, 0 for plain MLE
	Iterations int
	LogLik     float64
	fitted     bool
}

var _ Classifier = (*LogisticRegression)(nil)

// Option configures a LogisticRegression.
type Option func(*LogisticRegression)

// WithMaxIter bounds the number of Newton iterations.
func WithMaxIter(n int) Option { return func(m *LogisticRegression) { m.MaxIter = n } }

// WithTol sets the convergence tolerance.
func WithTol(tol float64) Option { return func(m *LogisticRegression) { m.Tol = tol } }

// WithL2 adds a ridge penalty lambda/2*||w||^2 on the standardized slopes.
func WithL2(lambda float64) Option { return func(m *LogisticRegression) { m.L2 = lambda } }

// NewLogisticRegression returns an unpenalized model bounded to 1000 iterations.
func NewLogisticRegression(opts ...Option) *LogisticRegression {
	m := &LogisticRegression{MaxIter: 1000, Tol: 1e-9}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fit estimates the coefficients from X (rows = observations) and 0/1 labels y.
func (m *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	r, c := X.Dims()
	if r == 0 {
		return ErrEmpty
	}
	if r != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrDimMismatch, r, len(y))
	}
	if err := checkBinary(y); err != nil {
		return err
	}

	scaler := stats.NewStandardScaler()
	Z, err := scaler.FitTransform(X)
	if err != nil {
		return err
	}
	if err := optim.CheckConditioning(Z, optim.DefaultMaxCond); err != nil {
		return fmt.Errorf("design matrix: %w", err)
	}

	p := c + 1 // intercept first
	lambda := m.L2
	obj := optim.ObjectiveFunc(func(beta []float64) (float64, []float64, *mat.SymDense, error) {
		ll := 0.0
		grad := make([]float64, p)
		hess := mat.NewSymDense(p, nil)
		row := make([]float64, p)
		row[0] = 1
		for i := range r {
			eta := beta[0]
			for j := range c {
				row[j+1] = Z.At(i, j)
				eta += beta[j+1] * row[j+1]
			}
			ll += link.BernoulliLogLik(y[i], eta)
			w := link.LogisticPrime(eta)
			resid := y[i] - link.Logistic(eta)
			for a := range p {
				grad[a] += resid * row[a]
				for b := a; b < p; b++ {
					hess.SetSym(a, b, hess.At(a, b)-w*row[a]*row[b])
				}
			}
		}
		for j := 1; j < p; j++ {
			ll -= 0.5 * lambda * beta[j] * beta[j]
			grad[j] -= lambda * beta[j]
			hess.SetSym(j, j, hess.At(j, j)-lambda)
		}
		return ll, grad, hess, nil
	})

	solver := optim.NewNewton()
	solver.MaxIter = m.MaxIter
	solver.Tol = m.Tol

	// Start from the marginal log-odds.
	beta0 := make([]float64, p)
	beta0[0] = link.Logit(stats.Mean(y))

	res, err := solver.Maximize(obj, beta0)
	if err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}

	w, offset := scaler.Unscale(res.Beta[1:])
	m.W = w
	m.b = res.Beta[0] + offset
	m.Iterations = res.Iterations
	m.LogLik = res.Value
	m.fitted = true
	return nil
}

// PredictProba returns the probability of the positive class for each row of X.
func (m *LogisticRegression) PredictProba(X mat.Matrix) []float64 {
	if !m.fitted || X == nil {
		return nil
	}
	r, c := X.Dims()
	out := make([]float64, r)
	for i := range r {
		sum := m.b
		for j := range c {
			sum += m.W[j] * X.At(i, j)
		}
		out[i] = link.Logistic(sum)
	}
	return out
}

// Predict returns the class labels (0 or 1) based on a 0.5 probability threshold.
func (m *LogisticRegression) Predict(X mat.Matrix) []float64 {
	proba := m.PredictProba(X)
	out := make([]float64, len(proba))
	for i, p := range BinaryPredFromProba(proba, 0.5) {
		out[i] = float64(p)
	}
	return out
}

// Coefficients returns the fitted slopes on the original feature scale.
func (m *LogisticRegression) Coefficients() []float64 {
	out := make([]float64, len(m.W))
	copy(out, m.W)
	return out
}

// Intercept returns the fitted bias on the original feature scale.
func (m *LogisticRegression) Intercept() float64 { return m.b }

// Fitted reports whether Fit has succeeded.
func (m *LogisticRegression) Fitted() bool { return m.fitted }
