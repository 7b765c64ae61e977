package survival

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcordanceIndex(t *testing.T) {
	t.Parallel()

	time := []float64{1, 2, 3, 4}
	event := []float64{1, 1, 1, 1}

	assert.InDelta(t, 1.0, ConcordanceIndex(time, event, []float64{4, 3, 2, 1}), 1e-12)
	assert.InDelta(t, 0.0, ConcordanceIndex(time, event, []float64{1, 2, 3, 4}), 1e-12)
	assert.InDelta(t, 0.5, ConcordanceIndex(time, event, []float64{1, 1, 1, 1}), 1e-12)

	// Censored first subject: only pairs anchored on events count.
	got := ConcordanceIndex(time, []float64{0, 1, 1, 0}, []float64{0, 3, 2, 1})
	assert.InDelta(t, 1.0, got, 1e-12)

	assert.Equal(t, 0.5, ConcordanceIndex([]float64{1}, []float64{0}, []float64{1}))
}
