package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAUC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		y     []float64
		proba []float64
		want  float64
	}{
		{"perfect", []float64{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}, 1},
		{"reversed", []float64{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}, 0},
		{"all tied", []float64{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5}, 0.5},
		{"one swap", []float64{0, 1, 0, 1}, []float64{0.1, 0.2, 0.3, 0.4}, 0.75},
		{"single class", []float64{1, 1}, []float64{0.2, 0.3}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, AUC(tt.y, tt.proba), 1e-12)
		})
	}
}

func TestBrierAndLogLoss(t *testing.T) {
	t.Parallel()

	y := []float64{1, 0}
	p := []float64{0.8, 0.4}
	assert.InDelta(t, (0.04+0.16)/2, Brier(y, p), 1e-12)
	assert.InDelta(t, -(math.Log(0.8)+math.Log(0.6))/2, LogLoss(y, p), 1e-12)
	assert.Equal(t, 0.0, Brier(nil, nil))
}

func TestAccuracy(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, Accuracy([]float64{1, 0, 1, 0}, []float64{1, 1, 0, 0}), 1e-12)
	assert.Equal(t, []int{0, 1, 1}, BinaryPredFromProba([]float64{0.2, 0.5, 0.9}, 0.5))
}
