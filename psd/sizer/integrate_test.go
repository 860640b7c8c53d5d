package sizer

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/algo-psd/psd/bins"
	"github.com/cwbudde/algo-psd/psd/core"
	"github.com/cwbudde/algo-psd/psd/table"
)

func TestIntegrate_BadWeight(t *testing.T) {
	s := newTestSizer(t, FormatPerBin, [][]float64{{1, 2, 3, 2, 1}}, nil)

	if _, err := s.Integrate(Weight(42), 0, 1); !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestIntegrate_NumberFullRange(t *testing.T) {
	rows := [][]float64{
		{10, 20, 40, 20, 10},
		{5, 15, 30, 15, 5},
	}
	s := newTestSizer(t, FormatPerBin, rows, nil)

	series, err := s.Integrate(Number, 0, 1e3)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	want := []float64{100, 70}
	for r := range want {
		if !relEqual(series.Values[r], want[r], 1e-9) {
			t.Errorf("row %d = %g, want %g", r, series.Values[r], want[r])
		}
	}
	if series.Name != "number" {
		t.Errorf("series name = %q, want number", series.Name)
	}
	if len(series.Index) != s.Len() {
		t.Errorf("index length = %d, want %d", len(series.Index), s.Len())
	}
}

func TestIntegrate_PartialBin(t *testing.T) {
	rows := [][]float64{{10, 20, 40, 20, 10}}
	s := newTestSizer(t, FormatPerBin, rows, nil)

	// dmax = 0.6 cuts bin 2 (0.4-0.8) in half.
	series, err := s.Integrate(Number, 0, 0.6)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	want := 10 + 20 + 40*0.5
	if !relEqual(series.Values[0], want, 1e-9) {
		t.Errorf("got %g, want %g", series.Values[0], want)
	}
}

// Widening the window never decreases the integral of a non-negative
// histogram.
func TestIntegrate_WindowMonotonic(t *testing.T) {
	rows := [][]float64{
		{10, 20, 40, 20, 10},
		{1, 1, 1, 1, 1},
	}
	s := newTestSizer(t, FormatPerBin, rows, nil)

	narrow, err := s.Integrate(Number, 0.15, 1.5)
	if err != nil {
		t.Fatalf("narrow: %v", err)
	}
	wide, err := s.Integrate(Number, 0.15, 2.5)
	if err != nil {
		t.Fatalf("wide: %v", err)
	}

	for r := range narrow.Values {
		if narrow.Values[r] > wide.Values[r]+tolerance {
			t.Errorf("row %d: narrow %g > wide %g", r, narrow.Values[r], wide.Values[r])
		}
	}
}

// Mass scales linearly with density.
func TestIntegrate_MassDensityOrdering(t *testing.T) {
	rows := [][]float64{
		{10, 20, 40, 20, 10},
		{5, 15, 30, 15, 5},
	}
	s := newTestSizer(t, FormatPerBin, rows, nil)

	m1, err := s.Integrate(Mass, 0, 1e3, WithDensity(1))
	if err != nil {
		t.Fatalf("rho=1: %v", err)
	}
	m2, err := s.Integrate(Mass, 0, 1e3, WithDensity(2))
	if err != nil {
		t.Fatalf("rho=2: %v", err)
	}

	for r := range m1.Values {
		if m2.Values[r] < m1.Values[r] {
			t.Errorf("row %d: rho=2 mass %g < rho=1 mass %g", r, m2.Values[r], m1.Values[r])
		}
		if !relEqual(m2.Values[r], 2*m1.Values[r], 1e-12) {
			t.Errorf("row %d: mass not linear in density: %g vs %g", r, m2.Values[r], m1.Values[r])
		}
	}
}

func TestIntegrate_DensityFunc(t *testing.T) {
	rows := [][]float64{{10, 20, 40, 20, 10}}
	s := newTestSizer(t, FormatPerBin, rows, nil)

	constant, err := s.Integrate(Mass, 0, 1e3, WithDensity(2))
	if err != nil {
		t.Fatalf("constant: %v", err)
	}
	fn, err := s.Integrate(Mass, 0, 1e3, WithDensityFunc(func(float64) float64 { return 2 }))
	if err != nil {
		t.Fatalf("func: %v", err)
	}

	if !relEqual(constant.Values[0], fn.Values[0], 1e-12) {
		t.Errorf("constant %g != func %g", constant.Values[0], fn.Values[0])
	}
}

func TestIntegrate_VolumeMatchesView(t *testing.T) {
	rows := [][]float64{{10, 20, 40, 20, 10}}
	s := newTestSizer(t, FormatPerBin, rows, nil)

	series, err := s.Integrate(Volume, 0, 1e3)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}

	sum := 0.0
	for _, v := range s.DV()[0] {
		sum += v
	}
	if !relEqual(series.Values[0], sum, 1e-12) {
		t.Errorf("integrated %g, view sum %g", series.Values[0], sum)
	}
}

func TestIntegrate_NaNBinSkipped(t *testing.T) {
	rows := [][]float64{{10, math.NaN(), 40, 20, 10}}
	s := newTestSizer(t, FormatPerBin, rows, nil)

	series, err := s.Integrate(Number, 0, 1e3)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if !relEqual(series.Values[0], 80, 1e-9) {
		t.Errorf("got %g, want 80", series.Values[0])
	}
}

func TestIntegrate_KappaRequiresRH(t *testing.T) {
	s := newTestSizer(t, FormatPerBin, [][]float64{{1, 2, 3, 2, 1}}, nil)

	_, err := s.Integrate(Mass, 0, 2.5, WithKappa(0.3))
	if !errors.Is(err, ErrRHRequired) {
		t.Fatalf("err = %v, want ErrRHRequired", err)
	}
	if !errors.Is(err, core.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration kind", err)
	}
}

func TestIntegrate_MissingRHColumn(t *testing.T) {
	s := newTestSizer(t, FormatPerBin, [][]float64{{1, 2, 3, 2, 1}}, nil)

	_, err := s.Integrate(Mass, 0, 2.5, WithKappa(0.3), WithRHColumn("rh"))
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestIntegrate_ZeroKappaMatchesDry(t *testing.T) {
	rows := [][]float64{
		{10, 20, 40, 20, 10},
		{5, 15, 30, 15, 5},
	}
	rh := []float64{50, 70}
	s := newTestSizer(t, FormatPerBin, rows, map[string][]float64{"rh": rh})

	for _, weight := range []Weight{Number, Surface, Volume, Mass} {
		dry, err := s.Integrate(weight, 0.15, 2.5)
		if err != nil {
			t.Fatalf("%v dry: %v", weight, err)
		}
		wet, err := s.Integrate(weight, 0.15, 2.5, WithKappa(0), WithRHColumn("rh"))
		if err != nil {
			t.Fatalf("%v wet: %v", weight, err)
		}
		for r := range dry.Values {
			if !relEqual(dry.Values[r], wet.Values[r], 1e-12) {
				t.Errorf("%v row %d: dry %g != kappa=0 %g", weight, r, dry.Values[r], wet.Values[r])
			}
		}
	}
}

// Larger kappa grows particles past the upper cutoff, so the mass inside
// a fixed window drops: kappa=1.0 must integrate less than kappa=0.3 at
// rh=80 with dmax=2.5, given concentration near the cutoff.
func TestIntegrate_GrowthMonotonicity(t *testing.T) {
	tab, err := bins.FromBoundaries([]float64{1.0, 1.4, 2.0, 2.8}, bins.WithMidpointMode(bins.MidpointGeometric))
	if err != nil {
		t.Fatalf("FromBoundaries: %v", err)
	}

	start := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	index := []time.Time{start, start.Add(time.Minute)}
	f := table.New(index)
	_ = f.AddColumn("bin0", []float64{1, 2})
	_ = f.AddColumn("bin1", []float64{10, 20})
	_ = f.AddColumn("bin2", []float64{0, 0})
	_ = f.AddColumn("rh", []float64{80, 80})

	s, err := New(f, tab)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	low, err := s.Integrate(Mass, 0, 2.5, WithKappa(0.3), WithRHColumn("rh"))
	if err != nil {
		t.Fatalf("kappa=0.3: %v", err)
	}
	high, err := s.Integrate(Mass, 0, 2.5, WithKappa(1.0), WithRHColumn("rh"))
	if err != nil {
		t.Fatalf("kappa=1.0: %v", err)
	}

	if !(high.Mean() < low.Mean()) {
		t.Errorf("mass(kappa=1.0) mean %g not below mass(kappa=0.3) mean %g", high.Mean(), low.Mean())
	}
}

func TestIntegrate_KappaFunc(t *testing.T) {
	rows := [][]float64{{10, 20, 40, 20, 10}}
	rh := []float64{80}
	s := newTestSizer(t, FormatPerBin, rows, map[string][]float64{"rh": rh})

	constant, err := s.Integrate(Volume, 0, 2.5, WithKappa(0.3), WithRHColumn("rh"))
	if err != nil {
		t.Fatalf("constant: %v", err)
	}
	fn, err := s.Integrate(Volume, 0, 2.5, WithKappaFunc(func(float64) float64 { return 0.3 }), WithRHColumn("rh"))
	if err != nil {
		t.Fatalf("func: %v", err)
	}

	if !relEqual(constant.Values[0], fn.Values[0], 1e-12) {
		t.Errorf("constant %g != func %g", constant.Values[0], fn.Values[0])
	}
}

// warnCapture counts slog warnings.
type warnCapture struct {
	mu    sync.Mutex
	warns int
}

func (h *warnCapture) Enabled(context.Context, slog.Level) bool { return true }

func (h *warnCapture) Handle(_ context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		h.mu.Lock()
		h.warns++
		h.mu.Unlock()
	}
	return nil
}

func (h *warnCapture) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *warnCapture) WithGroup(string) slog.Handler      { return h }

func TestIntegrate_UnstableRHWarnsButSucceeds(t *testing.T) {
	capture := &warnCapture{}
	SetLogger(slog.New(capture))
	defer SetLogger(nil)

	rows := [][]float64{
		{10, 20, 40, 20, 10},
		{10, 20, 40, 20, 10},
		{10, 20, 40, 20, 10},
	}
	rh := []float64{0.5, 50, 99}
	s := newTestSizer(t, FormatPerBin, rows, map[string][]float64{"rh": rh})

	series, err := s.Integrate(Number, 0, 1e3, WithKappa(0.3), WithRHColumn("rh"))
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if len(series.Values) != 3 {
		t.Fatalf("len = %d, want 3", len(series.Values))
	}

	capture.mu.Lock()
	warns := capture.warns
	capture.mu.Unlock()
	if warns == 0 {
		t.Error("expected a warning for rh outside the stable range")
	}

	// Stable humidities must not warn.
	stable := newTestSizer(t, FormatPerBin, rows, map[string][]float64{"rh": {50, 60, 70}})
	quiet := &warnCapture{}
	SetLogger(slog.New(quiet))
	if _, err := stable.Integrate(Number, 0, 1e3, WithKappa(0.3), WithRHColumn("rh")); err != nil {
		t.Fatalf("stable Integrate: %v", err)
	}
	quiet.mu.Lock()
	defer quiet.mu.Unlock()
	if quiet.warns != 0 {
		t.Errorf("stable humidities warned %d times", quiet.warns)
	}
}
