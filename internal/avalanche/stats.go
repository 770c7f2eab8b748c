package avalanche

import "math"

// Summary describes a trial result set.
type Summary struct {
	N      int     `json:"n" yaml:"n"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summarize computes the mean, sample standard deviation and range of values.
func Summarize(values []float64) Summary {
	s := Summary{N: len(values)}
	if s.N == 0 {
		return s
	}
	s.Min, s.Max = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	s.Mean = sum / float64(s.N)
	if s.N > 1 {
		var ss float64
		for _, v := range values {
			d := v - s.Mean
			ss += d * d
		}
		s.StdDev = math.Sqrt(ss / float64(s.N-1))
	}
	return s
}

// Histogram counts values in bins equal-width buckets over [0, 100].
// 100 falls into the last bucket; values outside the range are clamped.
func Histogram(values []float64, bins int) []int {
	if bins <= 0 {
		return nil
	}
	counts := make([]int, bins)
	for _, v := range values {
		i := int(v / 100 * float64(bins))
		i = max(0, min(i, bins-1))
		counts[i]++
	}
	return counts
}
