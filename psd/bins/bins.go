// Package bins models the diameter-bin geometry of particle sizing
// instruments: an ordered set of (lower, midpoint, upper) diameter triples
// in micrometers.
//
// A bin table is built once from instrument metadata and is immutable
// afterwards; derived geometries (unit conversion, hygroscopic growth) are
// returned as new tables.
package bins

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-psd/psd/core"
)

// Errors returned by bin construction and validation.
var (
	ErrTooFewBoundaries = fmt.Errorf("bins: need at least two boundaries: %w", core.ErrConfiguration)
	ErrLengthMismatch   = fmt.Errorf("bins: input arrays have mismatched lengths: %w", core.ErrConfiguration)
	ErrNotIncreasing    = fmt.Errorf("bins: boundaries must be strictly increasing: %w", core.ErrConfiguration)
	ErrNoMidpoints      = fmt.Errorf("bins: midpoints are required: %w", core.ErrConfiguration)
	ErrBadSpacing       = fmt.Errorf("bins: channels per decade must be positive: %w", core.ErrConfiguration)
	ErrBadBounds        = fmt.Errorf("bins: bounds must be positive with lower < upper: %w", core.ErrConfiguration)
	ErrEdgeOrder        = fmt.Errorf("bins: bin edges must satisfy lower <= mid <= upper: %w", core.ErrValidation)
	ErrOverlap          = fmt.Errorf("bins: consecutive bins overlap: %w", core.ErrValidation)
)

// Bin is a single diameter bin. All diameters are in micrometers.
type Bin struct {
	Lower float64
	Mid   float64
	Upper float64
}

// Table is an ordered, contiguous (gaps tolerated) set of diameter bins.
type Table []Bin

// MidpointMode selects how midpoints are derived when not supplied.
type MidpointMode int

const (
	// MidpointArithmetic uses (lower + upper) / 2.
	MidpointArithmetic MidpointMode = iota
	// MidpointGeometric uses sqrt(lower * upper), the natural center of a
	// log-spaced bin.
	MidpointGeometric
)

// Unit identifies the diameter unit of constructor inputs. Tables always
// store micrometers.
type Unit int

const (
	Micrometers Unit = iota
	Nanometers
)

// Option configures bin construction.
type Option func(*config)

type config struct {
	midMode   MidpointMode
	midpoints []float64
	unit      Unit
}

func defaultConfig() config {
	return config{midMode: MidpointArithmetic, unit: Micrometers}
}

// WithMidpointMode selects arithmetic or geometric midpoint derivation.
func WithMidpointMode(m MidpointMode) Option {
	return func(c *config) {
		c.midMode = m
	}
}

// WithMidpoints supplies explicit midpoints instead of deriving them.
func WithMidpoints(mids []float64) Option {
	return func(c *config) {
		c.midpoints = mids
	}
}

// WithUnit declares the unit of the constructor inputs. Nanometer inputs
// are converted to micrometers at construction.
func WithUnit(u Unit) Option {
	return func(c *config) {
		c.unit = u
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// FromBoundaries builds a table of n bins from n+1 strictly increasing
// boundary diameters. Bin i spans (boundaries[i], boundaries[i+1]).
func FromBoundaries(boundaries []float64, opts ...Option) (Table, error) {
	cfg := applyOptions(opts)

	if len(boundaries) < 2 {
		return nil, ErrTooFewBoundaries
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, ErrNotIncreasing
		}
	}

	n := len(boundaries) - 1
	t := make(Table, n)
	for i := range t {
		t[i] = Bin{Lower: boundaries[i], Upper: boundaries[i+1]}
	}

	if err := fillMidpoints(t, cfg); err != nil {
		return nil, err
	}

	return finish(t, cfg)
}

// FromEdges builds a table from separate lower-edge and upper-edge arrays
// of equal length. Unlike FromBoundaries, the bins need not be contiguous.
func FromEdges(left, right []float64, opts ...Option) (Table, error) {
	cfg := applyOptions(opts)

	if len(left) == 0 || len(left) != len(right) {
		return nil, ErrLengthMismatch
	}

	t := make(Table, len(left))
	for i := range t {
		t[i] = Bin{Lower: left[i], Upper: right[i]}
	}

	if err := fillMidpoints(t, cfg); err != nil {
		return nil, err
	}

	return finish(t, cfg)
}

// FromMidpoints builds a table from channel midpoints plus the overall
// diameter bounds and the instrument's channel density (bins per decade of
// log10 diameter). This is the shape SMPS exports describe their geometry
// in: edges are derived by stepping 1/channelsPerDecade decades from the
// lower bound, and the final upper edge is forced to the upper bound.
func FromMidpoints(midpoints []float64, lower, upper, channelsPerDecade float64, opts ...Option) (Table, error) {
	cfg := applyOptions(opts)

	if len(midpoints) == 0 {
		return nil, ErrNoMidpoints
	}
	if channelsPerDecade <= 0 {
		return nil, ErrBadSpacing
	}
	if lower <= 0 || upper <= lower {
		return nil, ErrBadBounds
	}

	t := make(Table, len(midpoints))
	lo := lower
	for i := range t {
		up := math.Pow(10, math.Log10(lo)+1/channelsPerDecade)
		t[i] = Bin{Lower: lo, Mid: midpoints[i], Upper: up}
		lo = up
	}
	t[len(t)-1].Upper = upper

	return finish(t, cfg)
}

// fillMidpoints writes explicit or derived midpoints into t.
func fillMidpoints(t Table, cfg config) error {
	if cfg.midpoints != nil {
		if len(cfg.midpoints) != len(t) {
			return ErrLengthMismatch
		}
		for i := range t {
			t[i].Mid = cfg.midpoints[i]
		}
		return nil
	}

	for i := range t {
		switch cfg.midMode {
		case MidpointGeometric:
			t[i].Mid = math.Sqrt(t[i].Lower * t[i].Upper)
		default:
			t[i].Mid = (t[i].Lower + t[i].Upper) / 2
		}
	}
	return nil
}

// finish applies unit conversion and validates the assembled table.
func finish(t Table, cfg config) (Table, error) {
	if cfg.unit == Nanometers {
		t = t.Scale(1e-3)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the geometric invariants: lower <= mid <= upper for
// every bin and no overlap between consecutive bins. Gaps between bins
// are legal.
func (t Table) Validate() error {
	for i, b := range t {
		if b.Lower > b.Mid || b.Mid > b.Upper {
			return fmt.Errorf("bin %d (%g, %g, %g): %w", i, b.Lower, b.Mid, b.Upper, ErrEdgeOrder)
		}
		if i > 0 && t[i-1].Upper > b.Lower {
			return fmt.Errorf("bins %d/%d: %w", i-1, i, ErrOverlap)
		}
	}
	return nil
}

// Len returns the number of bins.
func (t Table) Len() int { return len(t) }

// Lower returns the smallest diameter covered by the table.
func (t Table) Lower() float64 {
	if len(t) == 0 {
		return math.NaN()
	}
	return t[0].Lower
}

// Upper returns the largest diameter covered by the table.
func (t Table) Upper() float64 {
	if len(t) == 0 {
		return math.NaN()
	}
	return t[len(t)-1].Upper
}

// Midpoints returns the bin midpoints as a new slice.
func (t Table) Midpoints() []float64 {
	out := make([]float64, len(t))
	for i, b := range t {
		out[i] = b.Mid
	}
	return out
}

// DlogDp returns, per bin, the width in decades of log10 diameter:
// log10(upper) - log10(lower).
func (t Table) DlogDp() []float64 {
	out := make([]float64, len(t))
	for i, b := range t {
		out[i] = math.Log10(b.Upper) - math.Log10(b.Lower)
	}
	return out
}

// Scale returns a derived table with every edge multiplied by f. The
// receiver is unchanged.
func (t Table) Scale(f float64) Table {
	out := make(Table, len(t))
	for i, b := range t {
		out[i] = Bin{Lower: b.Lower * f, Mid: b.Mid * f, Upper: b.Upper * f}
	}
	return out
}

// Grow returns a derived table with all three edges of bin i multiplied by
// factors[i]. It is the geometry step of hygroscopic growth correction:
// one factor per bin, one derived table per observation row. The receiver
// is unchanged.
func (t Table) Grow(factors []float64) (Table, error) {
	if len(factors) != len(t) {
		return nil, ErrLengthMismatch
	}
	out := make(Table, len(t))
	for i, b := range t {
		f := factors[i]
		out[i] = Bin{Lower: b.Lower * f, Mid: b.Mid * f, Upper: b.Upper * f}
	}
	return out, nil
}

// Clone returns a copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}
