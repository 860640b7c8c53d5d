// Package sizer implements the particle-size-distribution engine: it owns
// a time-indexed histogram table and its bin geometry, normalizes the
// histogram into a canonical log-density representation, and derives
// number-, surface-, volume- and mass-weighted quantities from it.
//
// The canonical stored histogram is always dN/dlogDp (concentration per
// decade of log10 diameter). Per-bin-total inputs are converted exactly
// once, at construction; every other representation is derived on demand
// and never stored.
package sizer

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-psd/psd/bins"
	"github.com/cwbudde/algo-psd/psd/core"
	"github.com/cwbudde/algo-psd/psd/table"
)

// Errors returned by engine construction.
var (
	ErrNoBinColumns     = fmt.Errorf("sizer: no bin columns found or specified: %w", core.ErrConfiguration)
	ErrBinCountMismatch = fmt.Errorf("sizer: bin column count does not match bin table: %w", core.ErrConfiguration)
	ErrBadBinWeights    = fmt.Errorf("sizer: bin weights length does not match bin table: %w", core.ErrConfiguration)
	ErrNilInput         = fmt.Errorf("sizer: frame and bin table are required: %w", core.ErrConfiguration)
)

var logger = slog.Default()

// SetLogger replaces the logger used for data-quality warnings. Passing
// nil restores the default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	logger = l
}

// Format identifies the normalization of histogram input data.
type Format int

const (
	// FormatPerBin means each bin column holds the amount contained in the
	// bin (dN). Converted to log density at construction.
	FormatPerBin Format = iota
	// FormatLogDensity means each bin column already holds dN/dlogDp.
	FormatLogDensity
)

// Sizer is the measurement engine for one instrument data set. It is
// immutable after construction; transforms return a new Sizer.
type Sizer struct {
	bins       bins.Table
	dlogdp     []float64
	frame      *table.Frame
	binCols    []string
	binWeights []float64
	meta       map[string]string
}

// Option configures engine construction.
type Option func(*config)

type config struct {
	format     Format
	binPrefix  string
	binLabels  []string
	binWeights []float64
	meta       map[string]string
}

func defaultConfig() config {
	return config{format: FormatPerBin, binPrefix: "bin"}
}

// WithFormat declares the normalization of the input histogram.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithBinPrefix sets the column-name prefix used to discover bin columns
// when no explicit labels are given (default "bin").
func WithBinPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.binPrefix = prefix
		}
	}
}

// WithBinLabels names the bin columns explicitly, in bin order.
func WithBinLabels(labels []string) Option {
	return func(c *config) {
		c.binLabels = labels
	}
}

// WithBinWeights supplies per-bin scalar weights (for example counting
// efficiency corrections). Applied multiplicatively to the log-density
// histogram once, right after format normalization. Default is 1 per bin.
func WithBinWeights(w []float64) Option {
	return func(c *config) {
		c.binWeights = w
	}
}

// WithMeta attaches instrument metadata (weight, units, and so on).
func WithMeta(meta map[string]string) Option {
	return func(c *config) {
		c.meta = meta
	}
}

// New builds an engine over a histogram frame and its bin geometry. The
// frame is cloned; the caller's copy stays untouched.
func New(frame *table.Frame, t bins.Table, opts ...Option) (*Sizer, error) {
	if frame == nil || len(t) == 0 {
		return nil, ErrNilInput
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	labels := cfg.binLabels
	if labels == nil {
		for _, name := range frame.Names() {
			if strings.HasPrefix(name, cfg.binPrefix) {
				labels = append(labels, name)
			}
		}
	}
	if len(labels) == 0 {
		return nil, ErrNoBinColumns
	}
	if len(labels) != t.Len() {
		return nil, fmt.Errorf("%d columns, %d bins: %w", len(labels), t.Len(), ErrBinCountMismatch)
	}

	weights := cfg.binWeights
	if weights == nil {
		weights = core.Ones(t.Len())
	}
	if len(weights) != t.Len() {
		return nil, ErrBadBinWeights
	}

	s := &Sizer{
		bins:       t.Clone(),
		dlogdp:     t.DlogDp(),
		frame:      frame.Clone(),
		binCols:    append([]string(nil), labels...),
		binWeights: append([]float64(nil), weights...),
		meta:       cfg.meta,
	}

	// Single deterministic entry transform: per-bin totals become log
	// density here and never again.
	for i, name := range s.binCols {
		col, err := s.frame.Column(name)
		if err != nil {
			return nil, fmt.Errorf("sizer: %w", err)
		}
		scale := s.binWeights[i]
		if cfg.format == FormatPerBin {
			scale /= s.dlogdp[i]
		}
		vecmath.ScaleBlockInPlace(col, scale)
	}

	return s, nil
}

// Bins returns a copy of the bin geometry.
func (s *Sizer) Bins() bins.Table { return s.bins.Clone() }

// Frame returns the underlying table, including auxiliary (non-bin)
// columns. The returned frame is shared; use Clone before modifying.
func (s *Sizer) Frame() *table.Frame { return s.frame }

// BinLabels returns the bin column names in bin order.
func (s *Sizer) BinLabels() []string {
	return append([]string(nil), s.binCols...)
}

// Meta returns the instrument metadata attached at construction.
func (s *Sizer) Meta() map[string]string { return s.meta }

// Midpoints returns the bin midpoint diameters in micrometers.
func (s *Sizer) Midpoints() []float64 { return s.bins.Midpoints() }

// Len returns the number of observation rows.
func (s *Sizer) Len() int { return s.frame.Len() }

// derive constructs a new engine sharing geometry with s over an already
// normalized frame. Used by the value-semantics transforms so the entry
// transform is never re-applied.
func (s *Sizer) derive(frame *table.Frame) *Sizer {
	return &Sizer{
		bins:       s.bins,
		dlogdp:     s.dlogdp,
		frame:      frame,
		binCols:    s.binCols,
		binWeights: s.binWeights,
		meta:       s.meta,
	}
}

// Clone returns a deep copy of the engine.
func (s *Sizer) Clone() *Sizer { return s.derive(s.frame.Clone()) }

// Slice returns a new engine restricted to rows in [start, end).
func (s *Sizer) Slice(start, end time.Time) *Sizer {
	return s.derive(s.frame.Slice(start, end))
}

// Resample returns a new engine with rows averaged into buckets of
// duration d.
func (s *Sizer) Resample(d time.Duration) (*Sizer, error) {
	f, err := s.frame.Resample(d)
	if err != nil {
		return nil, err
	}
	return s.derive(f), nil
}

// view assembles a row-major histogram view. mult is an optional per-bin
// multiplier; when perBin is true each value is additionally scaled by the
// bin's dlogdp, turning the log density into a per-bin total.
func (s *Sizer) view(mult []float64, perBin bool) [][]float64 {
	rows := s.frame.Len()
	n := len(s.binCols)

	out := make([][]float64, rows)
	for r := range out {
		out[r] = make([]float64, n)
	}

	for i, name := range s.binCols {
		col, _ := s.frame.Column(name)
		m := 1.0
		if mult != nil {
			m = mult[i]
		}
		if perBin {
			m *= s.dlogdp[i]
		}
		for r, v := range col {
			out[r][i] = v * m
		}
	}

	return out
}

// DNdlogDp returns the number log density, one row per observation.
func (s *Sizer) DNdlogDp() [][]float64 { return s.view(nil, false) }

// DN returns per-bin number concentrations (#/cm3).
func (s *Sizer) DN() [][]float64 { return s.view(nil, true) }

// DDdlogDp returns the diameter-weighted log density (um/cm3).
func (s *Sizer) DDdlogDp() [][]float64 { return s.view(s.bins.Midpoints(), false) }

// DD returns per-bin diameter-weighted concentrations.
func (s *Sizer) DD() [][]float64 { return s.view(s.bins.Midpoints(), true) }

// DSdlogDp returns the surface-area log density (um2/cm3).
func (s *Sizer) DSdlogDp() [][]float64 {
	return s.view(surfaceMultipliers(s.bins.Midpoints()), false)
}

// DS returns per-bin surface-area concentrations.
func (s *Sizer) DS() [][]float64 {
	return s.view(surfaceMultipliers(s.bins.Midpoints()), true)
}

// DVdlogDp returns the volume log density (um3/cm3).
func (s *Sizer) DVdlogDp() [][]float64 {
	return s.view(volumeMultipliers(s.bins.Midpoints()), false)
}

// DV returns per-bin volume concentrations.
func (s *Sizer) DV() [][]float64 {
	return s.view(volumeMultipliers(s.bins.Midpoints()), true)
}

// MeanDNdlogDp returns the time-averaged number log density per bin,
// skipping NaN observations. This is the Y array handed to the lognormal
// fitter, with Midpoints as X.
func (s *Sizer) MeanDNdlogDp() []float64 {
	out := make([]float64, len(s.binCols))
	for i, name := range s.binCols {
		col, _ := s.frame.Column(name)
		out[i] = core.NaNMean(col)
	}
	return out
}

// Grid returns the heatmap surface for plotting consumers: the time
// index, the bin midpoints, and the number log density rows.
func (s *Sizer) Grid() ([]time.Time, []float64, [][]float64) {
	return s.frame.Index(), s.bins.Midpoints(), s.DNdlogDp()
}

// Row returns the number log-density histogram of a single observation.
func (s *Sizer) Row(i int) []float64 {
	out := make([]float64, len(s.binCols))
	for j, name := range s.binCols {
		col, _ := s.frame.Column(name)
		out[j] = col[i]
	}
	return out
}

// Per-bin geometric multipliers, evaluated at bin midpoints under the
// spherical-particle approximation. The bin width is not integrated over.

func surfaceMultipliers(mids []float64) []float64 {
	out := make([]float64, len(mids))
	surfaceMultipliersInto(out, mids)
	return out
}

func surfaceMultipliersInto(dst, mids []float64) {
	for i, m := range mids {
		r := m / 2
		dst[i] = 4 * math.Pi * r * r
	}
}

func volumeMultipliers(mids []float64) []float64 {
	out := make([]float64, len(mids))
	volumeMultipliersInto(out, mids)
	return out
}

func volumeMultipliersInto(dst, mids []float64) {
	for i, m := range mids {
		r := m / 2
		dst[i] = 4.0 / 3.0 * math.Pi * r * r * r
	}
}
