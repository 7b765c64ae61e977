package survival

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// SurvivalFunction is a Kaplan-Meier step function. Entry k holds the
// estimate on [Time[k], Time[k+1]). Time[0] is 0 with survival 1.
type SurvivalFunction struct {
	Time     []float64
	Survival []float64
	Lower    []float64 // pointwise confidence band
	Upper    []float64
	AtRisk   []float64 // (weighted) number at risk just before Time[k]
	Events   []float64
	Censored []float64
}

// KaplanMeier computes the product-limit estimate from durations and 0/1
// event indicators. weights may be nil; otherwise each subject counts with
// its weight. The band is the 95% log(-log) Greenwood interval.
func KaplanMeier(time, event, weights []float64) (*SurvivalFunction, error) {
	return KaplanMeierAlpha(time, event, weights, 0.05)
}

// KaplanMeierAlpha is KaplanMeier with a (1-alpha) confidence band.
func KaplanMeierAlpha(time, event, weights []float64, alpha float64) (*SurvivalFunction, error) {
	n := len(time)
	if len(event) != n || (weights != nil && len(weights) != n) {
		return nil, fmt.Errorf("kaplan-meier: input lengths differ")
	}
	for i := range time {
		if !(time[i] >= 0) || math.IsInf(time[i], 0) {
			return nil, fmt.Errorf("kaplan-meier: row %d: negative or non-finite time %v", i, time[i])
		}
		if event[i] != 0 && event[i] != 1 {
			return nil, fmt.Errorf("kaplan-meier: row %d: %w", i, ErrInvalidEvent)
		}
		if weights != nil && (!(weights[i] > 0) || math.IsInf(weights[i], 0)) {
			return nil, fmt.Errorf("kaplan-meier: row %d: %w", i, ErrInvalidWeight)
		}
	}
	w := func(i int) float64 {
		if weights == nil {
			return 1
		}
		return weights[i]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return time[order[a]] < time[order[b]] })

	atRisk := 0.0
	for i := range n {
		atRisk += w(i)
	}
	z := distuv.UnitNormal.Quantile(1 - alpha/2)

	sf := &SurvivalFunction{
		Time:     []float64{0},
		Survival: []float64{1},
		Lower:    []float64{1},
		Upper:    []float64{1},
		AtRisk:   []float64{atRisk},
		Events:   []float64{0},
		Censored: []float64{0},
	}
	s, greenwood := 1.0, 0.0
	for k := 0; k < n; {
		t := time[order[k]]
		d, c := 0.0, 0.0
		j := k
		for j < n && time[order[j]] == t {
			i := order[j]
			if event[i] == 1 {
				d += w(i)
			} else {
				c += w(i)
			}
			j++
		}
		if d > 0 {
			if d < atRisk {
				greenwood += d / (atRisk * (atRisk - d))
			}
			s *= 1 - d/atRisk
		}
		lo, hi := logLogBand(s, greenwood, z)

		// Subjects at time zero update the origin instead of adding a step.
		last := len(sf.Time) - 1
		if t == 0 {
			sf.Survival[last], sf.Lower[last], sf.Upper[last] = s, lo, hi
			sf.Events[last] += d
			sf.Censored[last] += c
		} else {
			sf.Time = append(sf.Time, t)
			sf.Survival = append(sf.Survival, s)
			sf.Lower = append(sf.Lower, lo)
			sf.Upper = append(sf.Upper, hi)
			sf.AtRisk = append(sf.AtRisk, atRisk)
			sf.Events = append(sf.Events, d)
			sf.Censored = append(sf.Censored, c)
		}
		atRisk -= d + c
		k = j
	}
	return sf, nil
}

// logLogBand is the exponential Greenwood interval S^exp(±z*sigma/|log S|).
func logLogBand(s, greenwood, z float64) (float64, float64) {
	if s <= 0 {
		return 0, 0
	}
	if s >= 1 {
		return 1, 1
	}
	ls := math.Log(s)
	half := z * math.Sqrt(greenwood) / math.Abs(ls)
	return math.Pow(s, math.Exp(half)), math.Pow(s, math.Exp(-half))
}

// At evaluates the survival function at t.
func (sf *SurvivalFunction) At(t float64) float64 {
	k := sort.Search(len(sf.Time), func(i int) bool { return sf.Time[i] > t }) - 1
	if k < 0 {
		return 1
	}
	return sf.Survival[k]
}

// MedianSurvival is the earliest time at which survival drops to 0.5 or
// below, or +Inf if it never does.
func (sf *SurvivalFunction) MedianSurvival() float64 {
	for k, s := range sf.Survival {
		if s <= 0.5 {
			return sf.Time[k]
		}
	}
	return math.Inf(1)
}
