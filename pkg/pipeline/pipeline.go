// Package pipeline chains the stages of an IPTW survival analysis: cohort
// simulation, propensity scoring, weighting, balance diagnostics, the
// weighted Cox fit and an optional bootstrap of the hazard ratio.
package pipeline

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"pharmacoepi/pkg/causal"
	"pharmacoepi/pkg/config"
	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/logging"
	"pharmacoepi/pkg/survival"
)

// Stage is one step of the pipeline. A stage reads what earlier stages left
// in the Result and adds its own output to it.
type Stage interface {
	Name() string
	Apply(ctx context.Context, r *Result) error
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context, r *Result) error
}

func (s stageFunc) Name() string                               { return s.name }
func (s stageFunc) Apply(ctx context.Context, r *Result) error { return s.fn(ctx, r) }

// NewStage wraps a function as a Stage.
func NewStage(name string, fn func(ctx context.Context, r *Result) error) Stage {
	return stageFunc{name: name, fn: fn}
}

// Result accumulates the outputs of every stage.
type Result struct {
	Config *config.Config

	// Cohort holds the simulated subjects plus the propensity_score and
	// ip_weight columns once those stages have run.
	Cohort *data.Table

	Propensity *causal.PropensityModel
	Weights    []float64
	ESS        float64
	Balance    []causal.CovariateBalance
	Cox        *survival.CoxModel

	// Bootstrap is nil unless bootstrap replicates were requested.
	Bootstrap *Interval
}

// HazardRatio returns the estimated treatment hazard ratio, or NaN before
// the Cox stage has run.
func (r *Result) HazardRatio() float64 {
	if r.Cox == nil {
		return math.NaN()
	}
	row, ok := r.Cox.Coef(data.ColTreatment)
	if !ok {
		return math.NaN()
	}
	return row.HR
}

// Pipeline chains multiple stages.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
	steps  []Stage
}

// NewPipeline returns a pipeline running steps in order.
func NewPipeline(cfg *config.Config, logger *zap.Logger, steps ...Stage) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logging.OrNop(logger), steps: steps}
}

// New returns the standard analysis pipeline for cfg.
func New(cfg *config.Config, logger *zap.Logger) *Pipeline {
	steps := []Stage{
		NewStage("simulate", simulate),
		NewStage("propensity", scorePropensity),
		NewStage("weights", computeWeights),
		NewStage("balance", checkBalance),
		NewStage("cox", fitCox),
	}
	if cfg.Bootstrap > 0 {
		steps = append(steps, NewStage("bootstrap", bootstrap))
	}
	return NewPipeline(cfg, logger, steps...)
}

// Run validates cfg and executes the standard pipeline.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return New(cfg, logger).Run(ctx)
}

// Run executes the stages in order. The context is checked before each
// stage; the first failure aborts the run and no partial result is returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	r := &Result{Config: p.cfg}
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("before %s: %w", step.Name(), err)
		}
		if err := step.Apply(ctx, r); err != nil {
			p.logger.Error("stage failed", zap.String("stage", step.Name()), zap.Error(err))
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
		p.logger.Info("stage done", append([]zap.Field{zap.String("stage", step.Name())}, stageFields(step.Name(), r)...)...)
	}
	return r, nil
}

// stageFields summarizes what a standard stage added to r.
func stageFields(name string, r *Result) []zap.Field {
	switch {
	case name == "simulate" && r.Cohort != nil:
		return []zap.Field{zap.Int("rows", r.Cohort.NumRows())}
	case name == "propensity" && r.Propensity != nil:
		return []zap.Field{
			zap.Int("iterations", r.Propensity.Model.Iterations),
			zap.Float64("auc", r.Propensity.AUC),
			zap.Float64("brier", r.Propensity.Brier),
		}
	case name == "weights":
		return []zap.Field{zap.Float64("ess", r.ESS)}
	case name == "balance":
		fields := make([]zap.Field, 0, len(r.Balance))
		for _, b := range r.Balance {
			fields = append(fields, zap.Float64("wsmd_"+b.Covariate, b.WeightedSMD))
		}
		return fields
	case name == "cox" && r.Cox != nil:
		return []zap.Field{
			zap.Int("iterations", r.Cox.Iterations),
			zap.Float64("hr", r.HazardRatio()),
		}
	case name == "bootstrap" && r.Bootstrap != nil:
		return []zap.Field{
			zap.Int("replicates", r.Bootstrap.Replicates),
			zap.Float64("lower", r.Bootstrap.Lower),
			zap.Float64("upper", r.Bootstrap.Upper),
		}
	}
	return nil
}
