package causal

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"pharmacoepi/pkg/stats"
)

var ErrLengthMismatch = errors.New("treatment and propensity lengths differ")

// IPWeights returns inverse-probability-of-treatment weights: 1/p for treated
// subjects and 1/(1-p) for untreated ones, aligned with the inputs. Scores
// are not clipped, so a score of exactly 0 or 1 gives an infinite weight.
func IPWeights(treatment, propensity []float64) ([]float64, error) {
	if len(treatment) != len(propensity) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(treatment), len(propensity))
	}
	w := make([]float64, len(treatment))
	for i, p := range propensity {
		if treatment[i] == 1 {
			w[i] = 1 / p
		} else {
			w[i] = 1 / (1 - p)
		}
	}
	return w, nil
}

// StabilizedWeights multiplies IP weights by the marginal probability of the
// treatment each subject actually received.
func StabilizedWeights(treatment, propensity []float64) ([]float64, error) {
	w, err := IPWeights(treatment, propensity)
	if err != nil {
		return nil, err
	}
	pt := stats.Proportion(treatment)
	for i := range w {
		if treatment[i] == 1 {
			w[i] *= pt
		} else {
			w[i] *= 1 - pt
		}
	}
	return w, nil
}

// TrimWeights truncates weights to their lower and upper percentiles
// (0..100). It is never applied unless called explicitly.
func TrimWeights(w []float64, lowerPct, upperPct float64) ([]float64, error) {
	if lowerPct < 0 || upperPct > 100 || lowerPct >= upperPct {
		return nil, fmt.Errorf("invalid trim percentiles [%v, %v]", lowerPct, upperPct)
	}
	return stats.ClipPercentile(w, lowerPct, upperPct), nil
}

// EffectiveSampleSize is Kish's (sum w)^2 / sum w^2.
func EffectiveSampleSize(w []float64) float64 {
	s, s2 := stats.Sum(w), floats.Dot(w, w)
	if s2 == 0 {
		return 0
	}
	return s * s / s2
}
