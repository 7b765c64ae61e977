package pipeline

import (
	"context"
	"fmt"

	"pharmacoepi/pkg/causal"
	"pharmacoepi/pkg/cohort"
	"pharmacoepi/pkg/config"
	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/resample"
	"pharmacoepi/pkg/stats"
	"pharmacoepi/pkg/survival"
)

func simulate(_ context.Context, r *Result) error {
	t, err := cohort.Simulate(r.Config.N, cohort.WithSeed(r.Config.Seed))
	if err != nil {
		return err
	}
	if err := data.CohortSchema.Check(t); err != nil {
		return err
	}
	r.Cohort = t
	return nil
}

func scorePropensity(_ context.Context, r *Result) error {
	pm, err := causal.FitPropensityModel(r.Cohort, r.Config.Covariates, data.ColTreatment)
	if err != nil {
		return err
	}
	r.Propensity = pm
	return putColumn(r.Cohort, data.ColPropensity, pm.Scores)
}

func computeWeights(_ context.Context, r *Result) error {
	w, err := weigh(r.Cohort, r.Config)
	if err != nil {
		return err
	}
	if err := data.CheckFinite(data.ColWeight, w); err != nil {
		return err
	}
	r.Weights = w
	r.ESS = causal.EffectiveSampleSize(w)
	return putColumn(r.Cohort, data.ColWeight, w)
}

func checkBalance(_ context.Context, r *Result) error {
	b, err := causal.Balance(r.Cohort, r.Config.Covariates, data.ColTreatment, r.Weights)
	if err != nil {
		return err
	}
	r.Balance = b
	return nil
}

func fitCox(_ context.Context, r *Result) error {
	opts, err := coxOptions(r.Config)
	if err != nil {
		return err
	}
	m, err := survival.FitWeightedCox(r.Cohort, coxSpec(r.Config), opts...)
	if err != nil {
		return err
	}
	r.Cox = m
	return nil
}

// Interval is a percentile bootstrap confidence interval for the treatment
// hazard ratio.
type Interval struct {
	Replicates int
	Level      float64
	Lower      float64
	Upper      float64
	Estimates  []float64
}

// bootstrap resamples subjects with replacement and repeats the scoring,
// weighting and Cox stages on every replicate.
func bootstrap(ctx context.Context, r *Result) error {
	cfg := r.Config
	base, err := baseCohort(r.Cohort)
	if err != nil {
		return err
	}
	opts, err := coxOptions(cfg)
	if err != nil {
		return err
	}

	sampler := resample.NewSampler(cfg.Seed)
	hrs := make([]float64, 0, cfg.Bootstrap)
	for b := range cfg.Bootstrap {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("replicate %d: %w", b, err)
		}
		rep, err := base.Take(sampler.Bootstrap(base.NumRows()))
		if err != nil {
			return err
		}
		hr, err := hazardRatio(rep, cfg, opts)
		if err != nil {
			return fmt.Errorf("replicate %d: %w", b, err)
		}
		hrs = append(hrs, hr)
	}

	r.Bootstrap = &Interval{
		Replicates: cfg.Bootstrap,
		Level:      1 - cfg.Alpha,
		Lower:      stats.Percentile(hrs, 100*cfg.Alpha/2),
		Upper:      stats.Percentile(hrs, 100*(1-cfg.Alpha/2)),
		Estimates:  hrs,
	}
	return nil
}

// hazardRatio runs propensity scoring, weighting and the Cox fit on t.
func hazardRatio(t *data.Table, cfg *config.Config, opts []survival.CoxOption) (float64, error) {
	ps, err := causal.FitPropensityScore(t, cfg.Covariates, data.ColTreatment)
	if err != nil {
		return 0, err
	}
	if err := t.AddColumn(data.ColPropensity, ps); err != nil {
		return 0, err
	}
	w, err := weigh(t, cfg)
	if err != nil {
		return 0, err
	}
	if err := t.AddColumn(data.ColWeight, w); err != nil {
		return 0, err
	}
	m, err := survival.FitWeightedCox(t, coxSpec(cfg), opts...)
	if err != nil {
		return 0, err
	}
	row, _ := m.Coef(data.ColTreatment)
	return row.HR, nil
}

// weigh derives IP weights from the propensity_score column, stabilizing
// and trimming them as cfg requests.
func weigh(t *data.Table, cfg *config.Config) ([]float64, error) {
	treatment, err := t.Column(data.ColTreatment)
	if err != nil {
		return nil, err
	}
	ps, err := t.Column(data.ColPropensity)
	if err != nil {
		return nil, err
	}
	var w []float64
	if cfg.Stabilized {
		w, err = causal.StabilizedWeights(treatment, ps)
	} else {
		w, err = causal.IPWeights(treatment, ps)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Trimmed() {
		return causal.TrimWeights(w, cfg.TrimLower, cfg.TrimUpper)
	}
	return w, nil
}

// coxSpec adjusts the outcome model for the propensity covariates as well.
func coxSpec(cfg *config.Config) survival.CoxSpec {
	spec := survival.DefaultCoxSpec()
	spec.Covariates = cfg.Covariates
	return spec
}

func coxOptions(cfg *config.Config) ([]survival.CoxOption, error) {
	ties, err := cfg.TieMethod()
	if err != nil {
		return nil, err
	}
	opts := []survival.CoxOption{survival.WithTies(ties), survival.WithAlpha(cfg.Alpha)}
	if cfg.Robust {
		opts = append(opts, survival.WithRobust())
	}
	return opts, nil
}

// baseCohort returns the simulated columns of t without the derived ones.
func baseCohort(t *data.Table) (*data.Table, error) {
	out := data.NewTable(t.NumRows())
	for _, name := range data.CohortColumns {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if err := out.AddColumn(name, c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// putColumn adds the column, or overwrites it when a previous run of the
// stage already added one.
func putColumn(t *data.Table, name string, values []float64) error {
	if t.Has(name) {
		return t.SetColumn(name, values)
	}
	return t.AddColumn(name, values)
}
