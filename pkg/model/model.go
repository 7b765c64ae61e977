package model

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmpty       = errors.New("no observations")
	ErrDimMismatch = errors.New("rows of X do not match length of y")
	ErrNotBinary   = errors.New("labels must be 0 or 1")
	ErrSingleClass = errors.New("labels contain a single class")
)

// Model is a generic supervised learning interface.
type Model interface {
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) []float64
}

// Classifier optionally exposes probabilities.
type Classifier interface {
	Model
	PredictProba(X mat.Matrix) []float64 // returns p(y=1) for binary classifiers
}

// checkBinary validates a 0/1 label vector with both classes present.
func checkBinary(y []float64) error {
	var n1 int
	for _, v := range y {
		switch v {
		case 1:
			n1++
		case 0:
		default:
			return ErrNotBinary
		}
	}
	if n1 == 0 || n1 == len(y) {
		return ErrSingleClass
	}
	return nil
}
