// Package causal estimates propensity scores and derives inverse probability
// of treatment weights from them.
package causal

import (
	"errors"
	"fmt"

	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/model"
)

var ErrNoCovariates = errors.New("no covariates")

// PropensityModel is a fitted treatment model with its scores.
type PropensityModel struct {
	Covariates []string
	Model      *model.LogisticRegression
	Scores     []float64
	AUC        float64
	Brier      float64
	LogLoss    float64
	// Accuracy classifies subjects as treated when their score is at least 0.5.
	Accuracy float64
}

// FitPropensityScore fits a logistic regression of treatmentCol on the given
// covariates and returns the estimated probability of treatment for every
// row, aligned with the table's row order. The table is not modified.
func FitPropensityScore(t *data.Table, covariates []string, treatmentCol string, opts ...model.Option) ([]float64, error) {
	pm, err := FitPropensityModel(t, covariates, treatmentCol, opts...)
	if err != nil {
		return nil, err
	}
	return pm.Scores, nil
}

// FitPropensityModel is FitPropensityScore keeping the fitted model and its
// discrimination diagnostics.
func FitPropensityModel(t *data.Table, covariates []string, treatmentCol string, opts ...model.Option) (*PropensityModel, error) {
	if len(covariates) == 0 {
		return nil, fmt.Errorf("propensity model: %w", ErrNoCovariates)
	}
	X, err := t.Matrix(covariates...)
	if err != nil {
		return nil, fmt.Errorf("propensity model: %w", err)
	}
	y, err := t.Column(treatmentCol)
	if err != nil {
		return nil, fmt.Errorf("propensity model: %w", err)
	}
	if X == nil {
		return nil, fmt.Errorf("propensity model: %w", model.ErrEmpty)
	}

	m := model.NewLogisticRegression(opts...)
	if err := m.Fit(X, y); err != nil {
		return nil, fmt.Errorf("propensity model: %w", err)
	}
	scores := m.PredictProba(X)
	return &PropensityModel{
		Covariates: append([]string(nil), covariates...),
		Model:      m,
		Scores:     scores,
		AUC:        model.AUC(y, scores),
		Brier:      model.Brier(y, scores),
		LogLoss:    model.LogLoss(y, scores),
		Accuracy:   model.Accuracy(y, m.Predict(X)),
	}, nil
}
