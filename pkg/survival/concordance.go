package survival

// ConcordanceIndex is Harrell's C: among comparable pairs, the share in
// which the subject with the earlier observed event has the higher risk
// score. A pair is comparable when the shorter time is an event. Tied risk
// scores count one half. It returns 0.5 when no pair is comparable.
func ConcordanceIndex(time, event, risk []float64) float64 {
	var concordant, comparable float64
	for i := range time {
		if event[i] != 1 {
			continue
		}
		for j := range time {
			if time[j] <= time[i] {
				continue
			}
			comparable++
			switch {
			case risk[i] > risk[j]:
				concordant++
			case risk[i] == risk[j]:
				concordant += 0.5
			}
		}
	}
	if comparable == 0 {
		return 0.5
	}
	return concordant / comparable
}
