package stats

// ClipPercentile clamps x to its lower and upper percentiles and returns a
// new slice. lower and upper are in [0, 100].
func ClipPercentile(x []float64, lower, upper float64) []float64 {
	lo := Percentile(x, lower)
	hi := Percentile(x, upper)
	out := make([]float64, len(x))
	for i, v := range x {
		switch {
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}
