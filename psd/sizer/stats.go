package sizer

import (
	"math"
	"time"

	"github.com/cwbudde/algo-psd/psd/core"
)

// StatsRow holds the per-observation summary of the weighted size
// distribution. Diameters follow the instrument convention of nanometers;
// GSD is dimensionless.
type StatsRow struct {
	Time  time.Time
	Total float64 // integrated concentration in the selected range
	AM    float64 // arithmetic mean diameter, nm
	GM    float64 // geometric mean diameter, nm
	Mode  float64 // midpoint of the peak bin, nm
	GSD   float64 // geometric standard deviation
}

// StatsOption configures a Stats call.
type StatsOption func(*statsConfig)

type statsConfig struct {
	dmin float64
	dmax float64
	rho  float64
}

func defaultStatsConfig() statsConfig {
	return statsConfig{dmin: 0, dmax: 1e3, rho: DefaultDensity}
}

// WithStatsRange restricts statistics to the diameter range [dmin, dmax]
// in micrometers. The default covers the whole table, [0, 1000].
func WithStatsRange(dmin, dmax float64) StatsOption {
	return func(c *statsConfig) {
		c.dmin = dmin
		c.dmax = dmax
	}
}

// WithStatsDensity sets the constant density used by mass weighting. The
// statistics path does not accept density functions; use Integrate for
// size-dependent densities.
func WithStatsDensity(rho float64) StatsOption {
	return func(c *statsConfig) {
		if rho > 0 {
			c.rho = rho
		}
	}
}

// Stats computes, per observation row, the total concentration and shape
// statistics (arithmetic mean, geometric mean, mode, geometric standard
// deviation) of the chosen weighting over the selected diameter range.
//
// Rows whose bin data is entirely missing after sub-selection are dropped
// rather than reported as NaN, so the GM/GSD formulas never divide by an
// empty total. Output order follows input order for the surviving rows.
func (s *Sizer) Stats(weight Weight, opts ...StatsOption) ([]StatsRow, error) {
	if !weight.valid() {
		return nil, ErrBadWeight
	}

	cfg := defaultStatsConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	n := s.bins.Len()
	mids := s.bins.Midpoints()

	lnMids := make([]float64, n)
	for i, m := range mids {
		lnMids[i] = math.Log(m)
	}

	// Fold fraction, bin width, and moment multiplier into one factor per
	// bin, as in the dry integration path.
	icfg := defaultIntegrateConfig()
	icfg.rho = cfg.rho
	comb := make([]float64, n)
	multipliersInto(comb, weight, mids, mids, icfg)
	for i, f := range s.bins.Fractions(cfg.dmin, cfg.dmax) {
		comb[i] *= f * s.dlogdp[i]
	}

	cols := make([][]float64, n)
	for i, name := range s.binCols {
		cols[i], _ = s.frame.Column(name)
	}

	index := s.frame.Index()
	out := make([]StatsRow, 0, s.frame.Len())
	x := make([]float64, n)

	for r := 0; r < s.frame.Len(); r++ {
		for i := range cols {
			x[i] = cols[i][r] * comb[i]
		}
		if core.AllNaN(x) {
			continue
		}

		var (
			total  float64
			sumXM  float64
			sumXLn float64
			peak   = math.Inf(-1)
			mode   = math.NaN()
		)
		for i, v := range x {
			if math.IsNaN(v) {
				continue
			}
			total += v
			sumXM += v * mids[i]
			sumXLn += v * lnMids[i]
			if v > peak {
				peak = v
				mode = mids[i]
			}
		}

		am := sumXM / total
		lnGM := sumXLn / total

		var spread float64
		for i, v := range x {
			if math.IsNaN(v) {
				continue
			}
			d := lnMids[i] - lnGM
			spread += v * d * d
		}
		gsd := math.Exp(math.Sqrt(spread / total))

		row := StatsRow{
			Time:  index[r],
			Total: total,
			AM:    1e3 * am,
			GM:    1e3 * math.Exp(lnGM),
			Mode:  1e3 * mode,
			GSD:   gsd,
		}
		if weight == Mass {
			row.AM *= cfg.rho
			row.GM *= cfg.rho
			row.Mode *= cfg.rho
		}

		out = append(out, row)
	}

	return out, nil
}
