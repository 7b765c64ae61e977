package causal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacoepi/pkg/cohort"
	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/model"
	"pharmacoepi/pkg/optim"
)

func TestFitPropensityScore(t *testing.T) {
	t.Parallel()

	c, err := cohort.Simulate(2000, cohort.WithSeed(42))
	require.NoError(t, err)
	before := c.Names()

	ps, err := FitPropensityScore(c, []string{data.ColAge, data.ColSex}, data.ColTreatment)
	require.NoError(t, err)
	require.Len(t, ps, c.NumRows())
	for _, p := range ps {
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
	assert.Equal(t, before, c.Names(), "table must not be modified")

	// Scores follow the true assignment model closely.
	age, _ := c.Column(data.ColAge)
	sex, _ := c.Column(data.ColSex)
	for i := 0; i < len(ps); i += 97 {
		assert.InDelta(t, cohort.TreatmentProbability(age[i], sex[i]), ps[i], 0.1)
	}
}

func TestFitPropensityModelDiagnostics(t *testing.T) {
	t.Parallel()

	c, err := cohort.Simulate(2000, cohort.WithSeed(5))
	require.NoError(t, err)
	pm, err := FitPropensityModel(c, []string{data.ColAge, data.ColSex}, data.ColTreatment)
	require.NoError(t, err)

	assert.Greater(t, pm.AUC, 0.55)
	assert.Less(t, pm.AUC, 0.9)
	assert.Positive(t, pm.Brier)
	// an in-sample fit with an intercept does no worse than a coin flip
	assert.Less(t, pm.LogLoss, math.Ln2)
	assert.Greater(t, pm.Accuracy, 0.5)
	assert.LessOrEqual(t, pm.Accuracy, 1.0)
	assert.InDelta(t, cohort.TreatAge, pm.Model.Coefficients()[0], 0.02)
}

func TestFitPropensityScoreErrors(t *testing.T) {
	t.Parallel()

	c, err := cohort.Simulate(200, cohort.WithSeed(1))
	require.NoError(t, err)
	age, _ := c.Column(data.ColAge)
	require.NoError(t, c.AddColumn("age_copy", age))
	require.NoError(t, c.AddColumn("dose", age))

	_, err = FitPropensityScore(c, []string{"bmi"}, data.ColTreatment)
	assert.ErrorIs(t, err, data.ErrMissingColumn)

	_, err = FitPropensityScore(c, []string{data.ColAge}, "arm")
	assert.ErrorIs(t, err, data.ErrMissingColumn)

	_, err = FitPropensityScore(c, []string{data.ColAge}, "dose")
	assert.ErrorIs(t, err, model.ErrNotBinary)

	_, err = FitPropensityScore(c, []string{data.ColAge, "age_copy"}, data.ColTreatment)
	assert.ErrorIs(t, err, optim.ErrSingular)

	_, err = FitPropensityScore(c, nil, data.ColTreatment)
	assert.ErrorIs(t, err, ErrNoCovariates)

	empty, err := cohort.Simulate(0)
	require.NoError(t, err)
	_, err = FitPropensityScore(empty, []string{data.ColAge}, data.ColTreatment)
	assert.ErrorIs(t, err, model.ErrEmpty)
}
