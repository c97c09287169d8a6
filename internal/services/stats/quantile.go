package stats

import (
	"math"
	"sort"
)

// QuantileSorted returns the q-quantile of an ascending slice using linear
// interpolation between closest ranks: position (n-1)*q.
// Returns NaN for an empty slice.
func QuantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Quantile copies and sorts values before computing the q-quantile.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	return QuantileSorted(s, q)
}

// Median is the 0.5 quantile; even-length inputs average the two middle values.
func Median(values []float64) float64 { return Quantile(values, 0.5) }

// MedianPtr returns nil for an empty input, otherwise a pointer to the median.
func MedianPtr(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := Median(values)
	return &m
}
