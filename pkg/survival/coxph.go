// Package survival fits weighted Cox proportional hazards models and
// Kaplan-Meier survival curves for right-censored data.
package survival

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/optim"
	"pharmacoepi/pkg/stats"
)

var (
	ErrNonPositiveDuration = errors.New("durations must be positive and finite")
	ErrInvalidWeight       = errors.New("weights must be positive and finite")
	ErrCollinear           = errors.New("design matrix is collinear")
	ErrNoEvents            = errors.New("no events observed")
	ErrInvalidEvent        = errors.New("event indicator must be 0 or 1")
	ErrNoCovariates        = errors.New("no covariates")
	ErrMonotoneLikelihood  = errors.New("partial likelihood has no finite maximum")
)

// TieMethod selects how tied event times enter the partial likelihood.
type TieMethod int

const (
	Efron TieMethod = iota
	Breslow
)

func (m TieMethod) String() string {
	switch m {
	case Efron:
		return "efron"
	case Breslow:
		return "breslow"
	default:
		return fmt.Sprintf("TieMethod(%d)", int(m))
	}
}

// ParseTieMethod maps "efron" or "breslow" to a TieMethod.
func ParseTieMethod(s string) (TieMethod, error) {
	switch s {
	case "", "efron":
		return Efron, nil
	case "breslow":
		return Breslow, nil
	}
	return 0, fmt.Errorf("unknown tie method %q", s)
}

// CoxSpec names the columns used by FitWeightedCox. Empty names fall back to
// the cohort defaults.
type CoxSpec struct {
	DurationCol  string
	EventCol     string
	TreatmentCol string
	WeightCol    string
	Covariates   []string // adjustment covariates, after treatment
}

// DefaultCoxSpec uses time, event, treatment and ip_weight with no
// adjustment covariates.
func DefaultCoxSpec() CoxSpec {
	return CoxSpec{
		DurationCol:  data.ColTime,
		EventCol:     data.ColEvent,
		TreatmentCol: data.ColTreatment,
		WeightCol:    data.ColWeight,
	}
}

func (s CoxSpec) withDefaults() CoxSpec {
	d := DefaultCoxSpec()
	if s.DurationCol != "" {
		d.DurationCol = s.DurationCol
	}
	if s.EventCol != "" {
		d.EventCol = s.EventCol
	}
	if s.TreatmentCol != "" {
		d.TreatmentCol = s.TreatmentCol
	}
	if s.WeightCol != "" {
		d.WeightCol = s.WeightCol
	}
	d.Covariates = s.Covariates
	return d
}

// Terms returns the covariates of the model in fit order.
func (s CoxSpec) Terms() []string {
	s = s.withDefaults()
	return append([]string{s.TreatmentCol}, s.Covariates...)
}

type coxConfig struct {
	ties    TieMethod
	robust  bool
	alpha   float64
	maxIter int
	tol     float64
}

// CoxOption configures a Cox fit.
type CoxOption func(*coxConfig)

// WithTies selects the tie handling method. The default is Efron.
func WithTies(m TieMethod) CoxOption { return func(c *coxConfig) { c.ties = m } }

// WithRobust requests the Lin-Wei sandwich variance instead of the inverse
// observed information.
func WithRobust() CoxOption { return func(c *coxConfig) { c.robust = true } }

// WithAlpha sets the significance level of the reported confidence
// intervals. The default is 0.05.
func WithAlpha(alpha float64) CoxOption { return func(c *coxConfig) { c.alpha = alpha } }

// WithMaxIter bounds the number of Newton iterations.
func WithMaxIter(n int) CoxOption { return func(c *coxConfig) { c.maxIter = n } }

// FitWeightedCox fits a Cox model of the duration and event columns on the
// treatment column plus spec.Covariates, weighting each subject by the
// weight column.
func FitWeightedCox(t *data.Table, spec CoxSpec, opts ...CoxOption) (*CoxModel, error) {
	spec = spec.withDefaults()
	durations, err := t.Column(spec.DurationCol)
	if err != nil {
		return nil, fmt.Errorf("cox: %w", err)
	}
	events, err := t.Column(spec.EventCol)
	if err != nil {
		return nil, fmt.Errorf("cox: %w", err)
	}
	weights, err := t.Column(spec.WeightCol)
	if err != nil {
		return nil, fmt.Errorf("cox: %w", err)
	}
	terms := spec.Terms()
	X, err := t.Matrix(terms...)
	if err != nil {
		return nil, fmt.Errorf("cox: %w", err)
	}
	if X == nil {
		return nil, fmt.Errorf("cox: %w", ErrNoEvents)
	}
	return FitCox(X, terms, durations, events, weights, opts...)
}

// FitCox fits a Cox model on an explicit design matrix. A nil weights slice
// gives every subject weight 1.
func FitCox(X mat.Matrix, names []string, durations, events, weights []float64, opts ...CoxOption) (*CoxModel, error) {
	cfg := coxConfig{ties: Efron, alpha: 0.05, maxIter: 1000, tol: 1e-9}
	for _, opt := range opts {
		opt(&cfg)
	}

	n, p := X.Dims()
	if p == 0 || len(names) != p {
		return nil, fmt.Errorf("cox: %w", ErrNoCovariates)
	}
	if len(durations) != n || len(events) != n || (weights != nil && len(weights) != n) {
		return nil, fmt.Errorf("cox: %w", data.ErrLengthMismatch)
	}
	if weights == nil {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	}
	if err := validate(durations, events, weights); err != nil {
		return nil, fmt.Errorf("cox: %w", err)
	}

	scaler := stats.NewStandardScaler()
	Z, err := scaler.FitTransform(X)
	if err != nil {
		return nil, fmt.Errorf("cox: %w", err)
	}
	if err := optim.CheckConditioning(Z, optim.DefaultMaxCond); err != nil {
		return nil, fmt.Errorf("cox: %w: %w", ErrCollinear, err)
	}

	pl := newPartialLikelihood(Z, durations, events, weights, cfg.ties)
	solver := optim.NewNewton()
	solver.MaxIter = cfg.maxIter
	solver.Tol = cfg.tol

	null, _, _, err := pl.Eval(make([]float64, p))
	if err != nil {
		return nil, fmt.Errorf("cox: %w", err)
	}
	res, err := solver.Maximize(pl, make([]float64, p))
	if err != nil {
		// The design passed the conditioning check, so a Newton failure means
		// a coefficient is running off to infinity, e.g. when every event
		// falls in one level of a binary covariate.
		if errors.Is(err, optim.ErrSingular) || errors.Is(err, optim.ErrNotConverged) {
			return nil, fmt.Errorf("cox: %w: %w", ErrMonotoneLikelihood, err)
		}
		return nil, fmt.Errorf("cox: %w", err)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(res.Information); !ok {
		return nil, fmt.Errorf("cox: %w: %w", ErrCollinear, optim.ErrSingular)
	}
	// A coefficient that drifted far enough to flatten the likelihood leaves
	// a near-zero direction in the information matrix.
	if k := chol.Cond(); k > optim.DefaultMaxCond {
		return nil, fmt.Errorf("cox: %w: information condition number %.3g", ErrMonotoneLikelihood, k)
	}
	covZ := mat.NewSymDense(p, nil)
	if err := chol.InverseTo(covZ); err != nil {
		return nil, fmt.Errorf("cox: %w: %w", ErrCollinear, err)
	}
	if cfg.robust {
		meat := pl.scoreResidualCrossProduct(res.Beta)
		var tmp, sand mat.Dense
		tmp.Mul(covZ, meat)
		sand.Mul(&tmp, covZ)
		covZ = symmetrize(&sand)
	}

	beta, _ := scaler.Unscale(res.Beta)
	cov := scaler.UnscaleCov(covZ)

	m := &CoxModel{
		Covariates:        append([]string(nil), names...),
		Params:            beta,
		Cov:               cov,
		LogLikelihood:     res.Value,
		LogLikelihoodNull: null,
		Iterations:        res.Iterations,
		NumObs:            n,
		Ties:              cfg.ties,
		Robust:            cfg.robust,
		Alpha:             cfg.alpha,
	}
	for i := range events {
		if events[i] == 1 {
			m.NumEvents++
			m.WeightedEvents += weights[i]
		}
	}
	m.StandardErrors = make([]float64, p)
	for j := range p {
		m.StandardErrors[j] = math.Sqrt(cov.At(j, j))
	}
	m.Concordance = ConcordanceIndex(durations, events, m.linearPredictor(X))
	return m, nil
}

func validate(durations, events, weights []float64) error {
	nEvents := 0
	for i := range durations {
		if !(durations[i] > 0) || math.IsInf(durations[i], 0) {
			return fmt.Errorf("%w: row %d has %v", ErrNonPositiveDuration, i, durations[i])
		}
		if !(weights[i] > 0) || math.IsInf(weights[i], 0) {
			return fmt.Errorf("%w: row %d has %v", ErrInvalidWeight, i, weights[i])
		}
		switch events[i] {
		case 1:
			nEvents++
		case 0:
		default:
			return fmt.Errorf("%w: row %d has %v", ErrInvalidEvent, i, events[i])
		}
	}
	if nEvents == 0 {
		return ErrNoEvents
	}
	return nil
}

func symmetrize(a *mat.Dense) *mat.SymDense {
	p, _ := a.Dims()
	s := mat.NewSymDense(p, nil)
	for i := range p {
		for j := i; j < p; j++ {
			s.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	return s
}

// partialLikelihood evaluates the weighted Cox log partial likelihood on a
// standardized design. Rows are visited in decreasing time so that risk set
// sums accumulate.
type partialLikelihood struct {
	Z       *mat.Dense
	time    []float64
	event   []float64
	weight  []float64
	ties    TieMethod
	order   []int   // row indices by decreasing time
	buckets [][]int // runs of order sharing one time
}

func newPartialLikelihood(Z *mat.Dense, time, event, weight []float64, ties TieMethod) *partialLikelihood {
	n := len(time)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return time[order[a]] > time[order[b]] })

	var buckets [][]int
	for i := 0; i < n; {
		j := i
		for j < n && time[order[j]] == time[order[i]] {
			j++
		}
		buckets = append(buckets, order[i:j])
		i = j
	}
	return &partialLikelihood{Z: Z, time: time, event: event, weight: weight, ties: ties, order: order, buckets: buckets}
}

func (pl *partialLikelihood) Eval(beta []float64) (float64, []float64, *mat.SymDense, error) {
	_, p := pl.Z.Dims()
	ll := 0.0
	grad := make([]float64, p)
	hess := make([]float64, p*p)

	riskPhi := 0.0
	riskPhiX := make([]float64, p)
	riskPhiXX := make([]float64, p*p)
	tiePhiX := make([]float64, p)
	tiePhiXX := make([]float64, p*p)
	xDeath := make([]float64, p)
	summand := make([]float64, p)
	sumSummand := make([]float64, p)
	a1 := make([]float64, p*p)
	a2 := make([]float64, p*p)

	for _, bucket := range pl.buckets {
		tiePhi, weightCount := 0.0, 0.0
		deaths := 0
		clear(tiePhiX)
		clear(tiePhiXX)
		clear(xDeath)

		for _, i := range bucket {
			z := pl.Z.RawRowView(i)
			w := pl.weight[i]
			phi := w * math.Exp(dot(z, beta))
			riskPhi += phi
			addOuter(riskPhiX, riskPhiXX, z, phi)
			if pl.event[i] == 1 {
				deaths++
				tiePhi += phi
				addOuter(tiePhiX, tiePhiXX, z, phi)
				for a := range p {
					xDeath[a] += w * z[a]
				}
				weightCount += w
			}
		}
		if deaths == 0 {
			continue
		}

		avg := weightCount / float64(deaths)
		clear(sumSummand)
		clear(a1)
		clear(a2)
		logDenom := 0.0
		for l := range deaths {
			c := 0.0
			if pl.ties == Efron {
				c = float64(l) / float64(deaths)
			}
			denom := 1 / (riskPhi - c*tiePhi)
			logDenom += math.Log(denom)
			for a := range p {
				summand[a] = (riskPhiX[a] - c*tiePhiX[a]) * denom
				sumSummand[a] += summand[a]
			}
			for k := range a1 {
				a1[k] += denom*riskPhiXX[k] - c*denom*tiePhiXX[k]
			}
			for a := range p {
				for b := range p {
					a2[a*p+b] += summand[a] * summand[b]
				}
			}
		}
		ll += dot(xDeath, beta) + avg*logDenom
		for a := range p {
			grad[a] += xDeath[a] - avg*sumSummand[a]
		}
		for k := range hess {
			hess[k] += avg * (a2[k] - a1[k])
		}
	}
	if math.IsNaN(ll) || math.IsInf(ll, 0) {
		return ll, grad, nil, optim.ErrNonFinite
	}
	return ll, grad, mat.NewSymDense(p, hess), nil
}

// scoreResidualCrossProduct returns sum_i (w_i r_i)(w_i r_i)' where r_i is the
// Breslow-type score residual of subject i at beta.
func (pl *partialLikelihood) scoreResidualCrossProduct(beta []float64) *mat.SymDense {
	_, p := pl.Z.Dims()
	nb := len(pl.buckets)

	// Risk set mean of z at each distinct time, in decreasing time order.
	s0 := make([]float64, nb)
	zbar := make([][]float64, nb)
	riskPhi := 0.0
	riskPhiX := make([]float64, p)
	phi := make([]float64, len(pl.time))
	for k, bucket := range pl.buckets {
		for _, i := range bucket {
			z := pl.Z.RawRowView(i)
			phi[i] = math.Exp(dot(z, beta))
			riskPhi += pl.weight[i] * phi[i]
			for a := range p {
				riskPhiX[a] += pl.weight[i] * phi[i] * z[a]
			}
		}
		s0[k] = riskPhi
		zbar[k] = make([]float64, p)
		for a := range p {
			zbar[k][a] = riskPhiX[a] / riskPhi
		}
	}

	// Walk forward in time accumulating the compensator terms
	// A(t) = sum dN/S0 and B(t) = sum zbar dN/S0 over event times <= t.
	meat := mat.NewSymDense(p, nil)
	A := 0.0
	B := make([]float64, p)
	r := make([]float64, p)
	for k := nb - 1; k >= 0; k-- {
		bucket := pl.buckets[k]
		for _, i := range bucket {
			if pl.event[i] == 1 {
				A += pl.weight[i] / s0[k]
				for a := range p {
					B[a] += pl.weight[i] * zbar[k][a] / s0[k]
				}
			}
		}
		for _, i := range bucket {
			z := pl.Z.RawRowView(i)
			for a := range p {
				r[a] = -phi[i] * (z[a]*A - B[a])
				if pl.event[i] == 1 {
					r[a] += z[a] - zbar[k][a]
				}
				r[a] *= pl.weight[i]
			}
			for a := range p {
				for b := a; b < p; b++ {
					meat.SetSym(a, b, meat.At(a, b)+r[a]*r[b])
				}
			}
		}
	}
	return meat
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func addOuter(v, m, z []float64, scale float64) {
	p := len(z)
	for a := range p {
		v[a] += scale * z[a]
		for b := range p {
			m[a*p+b] += scale * z[a] * z[b]
		}
	}
}
