// Package link holds the logistic link function and the Bernoulli
// likelihood pieces built on it.
package link

import "math"

// Logistic is the inverse logit, 1/(1+e^-x). It is evaluated so that large
// |x| does not overflow.
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

// LogisticPrime is the derivative of Logistic, p(1-p).
func LogisticPrime(x float64) float64 {
	p := Logistic(x)
	return p * (1 - p)
}

// Logit is log(p/(1-p)).
func Logit(p float64) float64 { return math.Log(p / (1 - p)) }
