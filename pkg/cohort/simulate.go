// Package cohort simulates a synthetic observational cohort with confounded
// treatment assignment and a right-censored time-to-event outcome.
//
// Older subjects and men are both more likely to be treated and more likely
// to have the event, so a naive comparison of treated and untreated subjects
// is biased against the treatment. The true treatment hazard ratio is
// TreatmentHR.
package cohort

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/link"
)

// Fixed generating model.
const (
	AgeMean = 50.0
	AgeSD   = 10.0

	TreatIntercept = -3.0
	TreatAge       = 0.05
	TreatSex       = 0.3

	HazardIntercept = -7.0
	HazardAge       = 0.06
	HazardSex       = 0.5

	// TreatmentHR < 1 means the treatment is protective.
	TreatmentHR = 0.7

	CensorMin = 0.5
	CensorMax = 3.0
)

var ErrInvalidSize = errors.New("cohort size must be non-negative")

type config struct {
	seed   uint64
	seeded bool
}

// Option configures Simulate.
type Option func(*config)

// WithSeed makes the simulation reproducible: the same (n, seed) always
// yields the same cohort.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed, c.seeded = seed, true }
}

// Simulate generates n subjects with the columns age, sex, treatment, time
// and event. Without WithSeed the draws are not reproducible.
func Simulate(n int, opts ...Option) (*data.Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	if cfg.seeded {
		rng = rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15))
	}

	age := make([]float64, n)
	sex := make([]float64, n)
	treatment := make([]float64, n)
	timeCol := make([]float64, n)
	event := make([]float64, n)

	// Each column is drawn as a whole vector, in column order.
	for i := range n {
		age[i] = AgeMean + AgeSD*rng.NormFloat64()
	}
	for i := range n {
		sex[i] = float64(rng.IntN(2))
	}
	for i := range n {
		if rng.Float64() < TreatmentProbability(age[i], sex[i]) {
			treatment[i] = 1
		}
	}
	eventTime := make([]float64, n)
	for i := range n {
		eventTime[i] = rng.ExpFloat64() / Hazard(age[i], sex[i], treatment[i])
	}
	for i := range n {
		censor := CensorMin + (CensorMax-CensorMin)*rng.Float64()
		timeCol[i] = math.Min(eventTime[i], censor)
		if eventTime[i] <= censor {
			event[i] = 1
		}
	}

	t := data.NewTable(n)
	for _, col := range []struct {
		name   string
		values []float64
	}{
		{data.ColAge, age},
		{data.ColSex, sex},
		{data.ColTreatment, treatment},
		{data.ColTime, timeCol},
		{data.ColEvent, event},
	} {
		if err := t.AddColumn(col.name, col.values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// TreatmentProbability is the true probability of treatment for a subject.
func TreatmentProbability(age, sex float64) float64 {
	return link.Logistic(TreatIntercept + TreatAge*age + TreatSex*sex)
}

// Hazard is the true constant event rate for a subject.
func Hazard(age, sex, treatment float64) float64 {
	h := math.Exp(HazardIntercept + HazardAge*age + HazardSex*sex)
	if treatment == 1 {
		h *= TreatmentHR
	}
	return h
}
