package survival

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CoxModel is a fitted proportional hazards model. Params are log hazard
// ratios on the original covariate scale, in the order of Covariates.
type CoxModel struct {
	Covariates        []string
	Params            []float64
	StandardErrors    []float64
	Cov               *mat.SymDense
	LogLikelihood     float64
	LogLikelihoodNull float64
	Iterations        int
	NumObs            int
	NumEvents         int
	WeightedEvents    float64
	Concordance       float64
	Ties              TieMethod
	Robust            bool
	Alpha             float64
}

// SummaryRow is one line of the coefficient table.
type SummaryRow struct {
	Covariate string
	Coef      float64 // log hazard ratio
	HR        float64 // exp(coef)
	SE        float64
	Lower     float64 // lower confidence bound of coef
	Upper     float64
	HRLower   float64
	HRUpper   float64
	Z         float64
	P         float64
	Log2P     float64 // -log2(p)
}

// Summary returns one row per covariate, in fit order.
func (m *CoxModel) Summary() []SummaryRow {
	q := distuv.UnitNormal.Quantile(1 - m.Alpha/2)
	rows := make([]SummaryRow, len(m.Params))
	for j, b := range m.Params {
		se := m.StandardErrors[j]
		z := b / se
		p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))
		rows[j] = SummaryRow{
			Covariate: m.Covariates[j],
			Coef:      b,
			HR:        math.Exp(b),
			SE:        se,
			Lower:     b - q*se,
			Upper:     b + q*se,
			HRLower:   math.Exp(b - q*se),
			HRUpper:   math.Exp(b + q*se),
			Z:         z,
			P:         p,
			Log2P:     -math.Log2(p),
		}
	}
	return rows
}

// Coef returns the summary row of the named covariate.
func (m *CoxModel) Coef(name string) (SummaryRow, bool) {
	for _, r := range m.Summary() {
		if r.Covariate == name {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// HazardRatios returns exp(Params).
func (m *CoxModel) HazardRatios() []float64 {
	out := make([]float64, len(m.Params))
	for j, b := range m.Params {
		out[j] = math.Exp(b)
	}
	return out
}

// LikelihoodRatioTest compares the fitted model with the null model. With
// non-unit weights the statistic is only approximately chi-squared.
func (m *CoxModel) LikelihoodRatioTest() (stat float64, df int, p float64) {
	stat = 2 * (m.LogLikelihood - m.LogLikelihoodNull)
	df = len(m.Params)
	p = distuv.ChiSquared{K: float64(df)}.Survival(stat)
	return stat, df, p
}

// PredictPartialHazard returns exp(x.beta) for each row of X, whose columns
// follow Covariates.
func (m *CoxModel) PredictPartialHazard(X mat.Matrix) []float64 {
	lp := m.linearPredictor(X)
	for i := range lp {
		lp[i] = math.Exp(lp[i])
	}
	return lp
}

func (m *CoxModel) linearPredictor(X mat.Matrix) []float64 {
	r, c := X.Dims()
	out := make([]float64, r)
	for i := range r {
		for j := range c {
			out[i] += m.Params[j] * X.At(i, j)
		}
	}
	return out
}
