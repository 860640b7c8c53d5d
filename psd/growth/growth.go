// Package growth implements single-parameter (kappa) hygroscopic growth:
// the diameter a dry particle swells to at a given relative humidity.
package growth

import "math"

// Stability bounds for the growth-factor formula, in percent relative
// humidity. Outside this range the formula is still evaluated but becomes
// numerically unstable as rh approaches 100.
const (
	StableRHMin = 1.0
	StableRHMax = 95.0
)

// KappaFunc maps a dry particle diameter (micrometers) to the kappa
// hygroscopicity parameter. Kappa is evaluated at dry midpoints only.
type KappaFunc func(dp float64) float64

// Constant returns a KappaFunc that ignores diameter.
func Constant(k float64) KappaFunc {
	return func(float64) float64 { return k }
}

// Factor returns the wet-diameter growth factor for a dry particle with
// hygroscopicity kappa at relative humidity rh (percent, 0-100):
//
//	f = (1 + kappa * rh / (100 - rh))^(1/3)
//
// The dry diameter times f gives the equilibrium wet diameter.
func Factor(kappa, rh float64) float64 {
	return math.Cbrt(1 + kappa*rh/(100-rh))
}

// Factors fills dst with the per-bin growth factor for the given dry
// diameters. dst and dry must have equal length.
func Factors(dst, dry []float64, kappa KappaFunc, rh float64) {
	for i, dp := range dry {
		dst[i] = Factor(kappa(dp), rh)
	}
}

// StableRH reports whether rh lies inside the numerically stable range of
// the growth formula.
func StableRH(rh float64) bool {
	return rh > StableRHMin && rh < StableRHMax
}
