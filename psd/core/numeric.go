package core

import "math"

// Fill sets all values in buf to v.
func Fill(buf []float64, v float64) {
	for i := range buf {
		buf[i] = v
	}
}

// Ones returns a new slice of length n filled with 1.
func Ones(n int) []float64 {
	out := make([]float64, n)
	Fill(out, 1)
	return out
}

// NaNs returns a new slice of length n filled with NaN.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	Fill(out, math.NaN())
	return out
}

// AllNaN reports whether every value in xs is NaN. An empty slice counts
// as all-NaN, since it holds no observation.
func AllNaN(xs []float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}

// NaNSum returns the sum of all non-NaN values in xs. If every value is
// NaN the result is NaN.
func NaNSum(xs []float64) float64 {
	sum := 0.0
	seen := false
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		seen = true
	}
	if !seen {
		return math.NaN()
	}
	return sum
}

// NaNMean returns the arithmetic mean of all non-NaN values in xs, or NaN
// if there are none.
func NaNMean(xs []float64) float64 {
	sum := 0.0
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
