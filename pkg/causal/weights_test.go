package causal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPWeights(t *testing.T) {
	t.Parallel()

	w, err := IPWeights([]float64{1, 0, 1, 0}, []float64{0.25, 0.25, 0.5, 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, w[0], 1e-12)
	assert.InDelta(t, 1/0.75, w[1], 1e-12)
	assert.InDelta(t, 2.0, w[2], 1e-12)
	assert.InDelta(t, 10.0, w[3], 1e-9)
}

func TestIPWeightsDegenerate(t *testing.T) {
	t.Parallel()

	w, err := IPWeights([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.True(t, math.IsInf(w[0], 1))
	assert.True(t, math.IsInf(w[1], 1))
}

func TestIPWeightsLengthMismatch(t *testing.T) {
	t.Parallel()

	_, err := IPWeights([]float64{1, 0}, []float64{0.5})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestStabilizedWeights(t *testing.T) {
	t.Parallel()

	treatment := []float64{1, 0, 0, 0}
	w, err := StabilizedWeights(treatment, []float64{0.25, 0.25, 0.25, 0.25})
	require.NoError(t, err)
	assert.InDelta(t, 4.0*0.25, w[0], 1e-12)
	assert.InDelta(t, 0.75/0.75, w[1], 1e-12)
}

func TestTrimWeights(t *testing.T) {
	t.Parallel()

	w := []float64{1, 1.2, 1.5, 2, 50}
	got, err := TrimWeights(w, 0, 75)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.2, 1.5, 2, 2}, got)
	assert.Equal(t, 50.0, w[4])

	_, err = TrimWeights(w, 60, 40)
	assert.Error(t, err)
	_, err = TrimWeights(w, -1, 99)
	assert.Error(t, err)
}

func TestEffectiveSampleSize(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 4.0, EffectiveSampleSize([]float64{2, 2, 2, 2}), 1e-12)
	assert.InDelta(t, 25.0/13.0, EffectiveSampleSize([]float64{2, 3}), 1e-12)
	assert.Equal(t, 0.0, EffectiveSampleSize(nil))
}
