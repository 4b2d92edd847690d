package services

import "math"

// roundTo rounds half away from zero to the given number of decimal places,
// matching how the result sheets publish scores.
func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// percentile converts a top-counted position into a 1-100 tier. Position 1 is
// always tier 1 no matter how small the pool is.
func percentile(position, total int) int {
	if position == 1 || total <= 0 {
		return 1
	}
	tier := int(math.Round(float64(position) / float64(total) * 100))
	return clampInt(tier, 1, 100)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
