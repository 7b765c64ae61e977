package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMoments(t *testing.T) {
	t.Parallel()

	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(x), 1e-12)
	assert.InDelta(t, 32.0/7.0, Variance(x), 1e-12)
	assert.InDelta(t, 40.0, Sum(x), 1e-12)
	assert.InDelta(t, 4.5, Median(x), 1e-12)

	lo, hi := MinMax(x)
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 9.0, hi)

	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Variance([]float64{3}))
}

func TestWeightedMoments(t *testing.T) {
	t.Parallel()

	x := []float64{1, 2, 3}
	assert.InDelta(t, Mean(x), WeightedMean(x, nil), 1e-12)

	// Integer weights behave like repeated observations.
	w := []float64{1, 2, 1}
	rep := []float64{1, 2, 2, 3}
	assert.InDelta(t, Mean(rep), WeightedMean(x, w), 1e-12)
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	x := []float64{5, 1, 4, 2, 3}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{90, 4.6},
		{100, 5},
		{-3, 1},
		{150, 5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentile(x, tt.p), 1e-12, "p=%v", tt.p)
	}
	// Input is left untouched.
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, x)
}

func TestClipPercentile(t *testing.T) {
	t.Parallel()

	x := []float64{1, 2, 3, 4, 100}
	got := ClipPercentile(x, 0, 75)
	assert.Equal(t, []float64{1, 2, 3, 4, 4}, got)
	assert.Equal(t, 100.0, x[4])
}

func TestProportion(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, Proportion([]float64{0, 1, 1, 0}), 1e-12)
	assert.Equal(t, 0.0, Proportion(nil))
}

func TestStandardScaler(t *testing.T) {
	t.Parallel()

	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScaler()
	Z, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, 1.0, s.Std[1], 1e-12, "constant column keeps unit scale")
	col := mat.Col(nil, 0, Z)
	assert.InDelta(t, 0.0, Mean(col), 1e-12)
	assert.InDelta(t, 0.0, Z.At(0, 1), 1e-12)

	// Slopes on the standardized scale map back to the raw scale.
	orig, offset := s.Unscale([]float64{2, 0})
	assert.InDelta(t, 2/s.Std[0], orig[0], 1e-12)
	assert.InDelta(t, -2/s.Std[0]*2.5, offset, 1e-12)

	cov := s.UnscaleCov(mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	assert.InDelta(t, 1/(s.Std[0]*s.Std[0]), cov.At(0, 0), 1e-12)

	_, err = NewStandardScaler().FitTransform(&mat.Dense{})
	assert.Error(t, err)
}
