package causal

import (
	"math"

	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/stats"
)

// CovariateBalance compares one covariate between treatment arms before and
// after weighting.
type CovariateBalance struct {
	Covariate   string
	MeanTreated float64
	MeanControl float64
	SMD         float64 // unweighted standardized mean difference
	WeightedSMD float64
}

// Balance computes standardized mean differences of each covariate between
// treated and untreated subjects, unweighted and weighted by w. The
// denominator is the pooled unweighted standard deviation for both, so the
// two values are directly comparable.
func Balance(t *data.Table, covariates []string, treatmentCol string, w []float64) ([]CovariateBalance, error) {
	treatment, err := t.Column(treatmentCol)
	if err != nil {
		return nil, err
	}
	if len(w) != len(treatment) {
		return nil, ErrLengthMismatch
	}
	var treatedRows, controlRows []int
	for i, v := range treatment {
		if v == 1 {
			treatedRows = append(treatedRows, i)
		} else {
			controlRows = append(controlRows, i)
		}
	}
	wT := data.Select(w, treatedRows)
	wC := data.Select(w, controlRows)

	out := make([]CovariateBalance, 0, len(covariates))
	for _, name := range covariates {
		x, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		xT := data.Select(x, treatedRows)
		xC := data.Select(x, controlRows)

		sd := math.Sqrt((stats.Variance(xT) + stats.Variance(xC)) / 2)
		b := CovariateBalance{
			Covariate:   name,
			MeanTreated: stats.Mean(xT),
			MeanControl: stats.Mean(xC),
		}
		if sd > 0 {
			b.SMD = (b.MeanTreated - b.MeanControl) / sd
			b.WeightedSMD = (stats.WeightedMean(xT, wT) - stats.WeightedMean(xC, wC)) / sd
		}
		out = append(out, b)
	}
	return out, nil
}
