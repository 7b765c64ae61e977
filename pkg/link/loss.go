package link

import "math"

// LogLoss is the binary cross-entropy of predicted probabilities against 0/1
// labels, averaged over rows, together with its gradient with respect to the
// linear predictor of each row. Probabilities are clamped away from 0 and 1.
func LogLoss(yTrue, yPred []float64) (float64, []float64) {
	n := len(yTrue)
	if n == 0 {
		return 0, nil
	}
	s := 0.0
	grad := make([]float64, n)

	for i := range n {
		p := math.Min(math.Max(yPred[i], 1e-12), 1-1e-12)
		y := yTrue[i]
		s += -(y*math.Log(p) + (1-y)*math.Log(1-p))
		grad[i] = (p - y) / float64(n)
	}
	return s / float64(n), grad
}

// BernoulliLogLik is the log-likelihood of one 0/1 observation with linear predictor eta,
// written to stay finite for large |eta|.
func BernoulliLogLik(y, eta float64) float64 {
	// log(1+e^eta) computed stably
	var l1p float64
	if eta > 0 {
		l1p = eta + math.Log1p(math.Exp(-eta))
	} else {
		l1p = math.Log1p(math.Exp(eta))
	}
	return y*eta - l1p
}
