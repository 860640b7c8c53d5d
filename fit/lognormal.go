// Package fit fits multi-modal lognormal models to measured size
// distributions. The X array is bin midpoint diameter in micrometers, the
// Y array any log-density histogram (typically dN/dlogDp averaged over
// time); both are treated as opaque numeric arrays.
package fit

import "math"

// Weighting selects which lognormal density family the model uses.
type Weighting int

const (
	WeightNumber Weighting = iota
	WeightSurface
	WeightVolume
)

// DNdlogDp is the number-weighted lognormal probability density in log10
// diameter space for a single mode with number concentration n, geometric
// mean diameter gm, and geometric standard deviation gsd.
func DNdlogDp(dp, n, gm, gsd float64) float64 {
	lgsd := math.Log10(gsd)
	d := math.Log10(dp) - math.Log10(gm)
	return n / (math.Sqrt(2*math.Pi) * lgsd) * math.Exp(-d*d/(2*lgsd*lgsd))
}

// DSdlogDp is the surface-weighted counterpart of DNdlogDp.
func DSdlogDp(dp, n, gm, gsd float64) float64 {
	return math.Pi * dp * dp * DNdlogDp(dp, n, gm, gsd)
}

// DVdlogDp is the volume-weighted counterpart of DNdlogDp.
func DVdlogDp(dp, n, gm, gsd float64) float64 {
	return math.Pi / 6 * dp * dp * dp * DNdlogDp(dp, n, gm, gsd)
}

func (w Weighting) pdf() func(dp, n, gm, gsd float64) float64 {
	switch w {
	case WeightSurface:
		return DSdlogDp
	case WeightVolume:
		return DVdlogDp
	default:
		return DNdlogDp
	}
}

// evalModel evaluates the additive multi-mode model at dp. params holds
// (n, gm, gsd) triples.
func evalModel(w Weighting, params []float64, dp float64) float64 {
	pdf := w.pdf()
	sum := 0.0
	for m := 0; m+2 < len(params); m += 3 {
		sum += pdf(dp, params[m], params[m+1], params[m+2])
	}
	return sum
}
