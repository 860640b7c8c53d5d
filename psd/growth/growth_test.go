package growth

import (
	"math"
	"testing"
)

const tolerance = 1e-12

func TestFactor(t *testing.T) {
	// kappa = 0 means no water uptake at any humidity.
	if got := Factor(0, 80); got != 1 {
		t.Errorf("Factor(0, 80) = %g, want 1", got)
	}

	// kappa = 1, rh = 80: f = (1 + 80/20)^(1/3) = 5^(1/3).
	want := math.Cbrt(5)
	if got := Factor(1, 80); math.Abs(got-want) > tolerance {
		t.Errorf("Factor(1, 80) = %g, want %g", got, want)
	}

	// Dry air: no growth regardless of kappa.
	if got := Factor(0.6, 0); got != 1 {
		t.Errorf("Factor(0.6, 0) = %g, want 1", got)
	}
}

func TestFactor_MonotonicInKappa(t *testing.T) {
	prev := 0.0
	for _, k := range []float64{0.1, 0.3, 0.6, 1.0, 1.4} {
		f := Factor(k, 80)
		if f <= prev {
			t.Fatalf("Factor not increasing in kappa: Factor(%g, 80) = %g", k, f)
		}
		prev = f
	}
}

func TestFactors(t *testing.T) {
	dry := []float64{0.1, 0.5, 2.0}
	dst := make([]float64, len(dry))

	// Size-dependent kappa: smaller particles more hygroscopic.
	kappa := func(dp float64) float64 {
		if dp < 1 {
			return 0.6
		}
		return 0.2
	}

	Factors(dst, dry, kappa, 50)

	if dst[0] != dst[1] {
		t.Errorf("equal-kappa bins differ: %g vs %g", dst[0], dst[1])
	}
	if dst[2] >= dst[0] {
		t.Errorf("low-kappa bin grew more: %g vs %g", dst[2], dst[0])
	}
}

func TestStableRH(t *testing.T) {
	cases := []struct {
		rh   float64
		want bool
	}{
		{0, false},
		{1, false},
		{1.5, true},
		{50, true},
		{94.9, true},
		{95, false},
		{99, false},
		{math.NaN(), false},
	}
	for _, tc := range cases {
		if got := StableRH(tc.rh); got != tc.want {
			t.Errorf("StableRH(%g) = %v, want %v", tc.rh, got, tc.want)
		}
	}
}
