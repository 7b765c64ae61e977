package model

import (
	"sort"

	"pharmacoepi/pkg/link"
)

// LogLoss is the mean binary cross-entropy of predicted probabilities.
func LogLoss(yTrue, proba []float64) float64 {
	l, _ := link.LogLoss(yTrue, proba)
	return l
}

// Brier is the mean squared difference between probabilities and 0/1 labels.
func Brier(yTrue, proba []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		d := proba[i] - yTrue[i]
		s += d * d
	}
	return s / float64(len(yTrue))
}

// AUC is the area under the ROC curve (the c-statistic): the probability
// that a random positive scores above a random negative, ties counting half.
// It returns 0.5 when either class is absent.
func AUC(yTrue, proba []float64) float64 {
	n := len(yTrue)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return proba[idx[a]] < proba[idx[b]] })

	// Midranks of the scores, summed over positives.
	var rankSum float64
	var nPos int
	for i := 0; i < n; {
		j := i
		for j < n && proba[idx[j]] == proba[idx[i]] {
			j++
		}
		mid := float64(i+j+1) / 2 // ranks i+1..j
		for k := i; k < j; k++ {
			if yTrue[idx[k]] == 1 {
				rankSum += mid
				nPos++
			}
		}
		i = j
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	u := rankSum - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg)
}

func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}

// Accuracy is the share of labels predicted correctly.
func Accuracy(yTrue []float64, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}
