package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/cwbudde/algo-psd/internal/texttab"
	"github.com/cwbudde/algo-psd/psd/core"
)

// Errors returned by Fit.
var (
	ErrBadModes       = fmt.Errorf("fit: modes must be between 1 and 3: %w", core.ErrConfiguration)
	ErrLengthMismatch = fmt.Errorf("fit: x and y must have equal length: %w", core.ErrConfiguration)
	ErrTooFewPoints   = fmt.Errorf("fit: not enough data points for the requested modes: %w", core.ErrValidation)
	ErrBadGuess       = fmt.Errorf("fit: initial guess must hold 3 positive values per mode: %w", core.ErrConfiguration)
	ErrNotFitted      = fmt.Errorf("fit: model has not been fitted: %w", core.ErrConfiguration)
)

// defaultGuess mirrors the instrument-typical starting point: a fine mode
// around 1.5 nm-scale, an accumulation mode near 5, and a coarse mode
// near 50, in (N, GM, GSD) triples.
var defaultGuess = []float64{1e5, 1.5, 2, 1e5, 5, 2.5, 1e3, 50, 2.5}

// Mode is one fitted lognormal mode.
type Mode struct {
	N   float64 // number concentration amplitude
	GM  float64 // geometric mean diameter, micrometers
	GSD float64 // geometric standard deviation
}

// Result holds the outcome of a fit.
type Result struct {
	Params    []float64 // (n, gm, gsd) per mode, flattened
	StdErrors []float64 // standard error per parameter
	Modes     []Mode
	Fitted    []float64 // model evaluated at the (subset) x used for fitting
	RSS       float64   // residual sum of squares at the optimum
	Summary   string    // human-readable per-mode table
}

// Option configures a LogNormal fitter.
type Option func(*config)

type config struct {
	modes     int
	weighting Weighting
	xmin      float64
	xmax      float64
	guess     []float64
}

func defaultConfig() config {
	return config{
		modes: 1,
		xmin:  math.Inf(-1),
		xmax:  math.Inf(1),
	}
}

// WithModes sets the number of additive lognormal modes (1-3).
func WithModes(n int) Option {
	return func(c *config) {
		c.modes = n
	}
}

// WithWeighting selects the density family fitted against.
func WithWeighting(w Weighting) Option {
	return func(c *config) {
		c.weighting = w
	}
}

// WithXRange restricts the fit to points with xmin <= x <= xmax.
func WithXRange(xmin, xmax float64) Option {
	return func(c *config) {
		c.xmin = xmin
		c.xmax = xmax
	}
}

// WithInitialGuess overrides the default starting parameters; 3 values
// per mode, all positive.
func WithInitialGuess(p0 []float64) Option {
	return func(c *config) {
		c.guess = p0
	}
}

// LogNormal fits 1-3 additive lognormal modes by least squares.
type LogNormal struct {
	cfg    config
	params []float64
}

// NewLogNormal creates a fitter.
func NewLogNormal(opts ...Option) *LogNormal {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &LogNormal{cfg: cfg}
}

// Fit estimates the mode parameters from midpoints x and histogram values
// y. Positivity of all parameters is enforced by optimizing in log space;
// standard errors come from the Gauss-Newton covariance approximation at
// the optimum.
func (l *LogNormal) Fit(x, y []float64) (*Result, error) {
	cfg := l.cfg

	if cfg.modes < 1 || cfg.modes > 3 {
		return nil, ErrBadModes
	}
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}

	np := 3 * cfg.modes

	guess := cfg.guess
	if guess == nil {
		guess = defaultGuess[:np]
	}
	if len(guess) != np {
		return nil, ErrBadGuess
	}
	for _, g := range guess {
		if g <= 0 || math.IsNaN(g) {
			return nil, ErrBadGuess
		}
	}

	// Subset to the requested diameter range, dropping NaN pairs.
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if x[i] < cfg.xmin || x[i] > cfg.xmax {
			continue
		}
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < np {
		return nil, fmt.Errorf("%d points, %d parameters: %w", len(xs), np, ErrTooFewPoints)
	}

	// Optimize theta = ln(params); exp keeps every parameter positive.
	theta0 := make([]float64, np)
	for i, g := range guess {
		theta0[i] = math.Log(g)
	}

	params := make([]float64, np)
	resid := make([]float64, len(xs))

	rss := func(theta []float64) float64 {
		for i, t := range theta {
			params[i] = math.Exp(t)
		}
		residuals(resid, cfg.weighting, params, xs, ys)
		return floats.Dot(resid, resid)
	}

	// BFGS needs an explicit gradient; finite-difference it from rss.
	problem := optimize.Problem{
		Func: rss,
		Grad: func(grad, theta []float64) {
			fd.Gradient(grad, rss, theta, nil)
		},
	}

	result, err := optimize.Minimize(problem, theta0, nil, &optimize.NelderMead{})
	if err != nil && result == nil {
		return nil, fmt.Errorf("fit: minimization failed: %w", err)
	}

	// Gradient-based polish from the simplex optimum.
	if polished, perr := optimize.Minimize(problem, result.X, nil, &optimize.BFGS{}); perr == nil && polished != nil && polished.F <= result.F {
		result = polished
	}

	final := make([]float64, np)
	for i, t := range result.X {
		final[i] = math.Exp(t)
	}
	l.params = final

	residuals(resid, cfg.weighting, final, xs, ys)
	finalRSS := floats.Dot(resid, resid)

	res := &Result{
		Params:    final,
		StdErrors: stdErrors(cfg.weighting, final, xs, finalRSS),
		Fitted:    make([]float64, len(xs)),
		RSS:       finalRSS,
	}
	for i, dp := range xs {
		res.Fitted[i] = evalModel(cfg.weighting, final, dp)
	}
	for m := 0; m < cfg.modes; m++ {
		res.Modes = append(res.Modes, Mode{
			N:   final[3*m],
			GM:  final[3*m+1],
			GSD: final[3*m+2],
		})
	}
	res.Summary = summarize(res.Modes)

	return res, nil
}

// Predict evaluates the fitted model at the given diameters.
func (l *LogNormal) Predict(x []float64) ([]float64, error) {
	if l.params == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(x))
	for i, dp := range x {
		out[i] = evalModel(l.cfg.weighting, l.params, dp)
	}
	return out, nil
}

// Params returns the fitted parameters, or nil before Fit.
func (l *LogNormal) Params() []float64 {
	return append([]float64(nil), l.params...)
}

func residuals(dst []float64, w Weighting, params, xs, ys []float64) {
	for i, dp := range xs {
		dst[i] = evalModel(w, params, dp) - ys[i]
	}
}

// stdErrors computes per-parameter standard errors from the Gauss-Newton
// approximation cov = s^2 (J^T J)^-1 with a forward-difference Jacobian,
// the same estimate a covariance-reporting curve fitter produces. Returns
// NaN errors if J^T J is singular.
func stdErrors(w Weighting, params, xs []float64, rss float64) []float64 {
	m := len(xs)
	np := len(params)

	if m <= np {
		return core.NaNs(np)
	}

	base := make([]float64, m)
	for i, dp := range xs {
		base[i] = evalModel(w, params, dp)
	}

	jac := mat.NewDense(m, np, nil)
	pert := append([]float64(nil), params...)
	for j := 0; j < np; j++ {
		h := 1e-6 * math.Max(math.Abs(params[j]), 1e-8)
		pert[j] = params[j] + h
		for i, dp := range xs {
			jac.Set(i, j, (evalModel(w, pert, dp)-base[i])/h)
		}
		pert[j] = params[j]
	}

	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	var inv mat.Dense
	if err := inv.Inverse(&jtj); err != nil {
		return core.NaNs(np)
	}

	s2 := rss / float64(m-np)
	out := make([]float64, np)
	for j := range out {
		out[j] = math.Sqrt(s2 * inv.At(j, j))
	}
	return out
}

// summarize renders the per-mode table, GM converted to nanometers per
// instrument convention.
func summarize(modes []Mode) string {
	tab := texttab.New("Mode", "N (#/cc)", "GM (nm)", "GSD")
	for i, m := range modes {
		tab.AddRow(
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%.2e", m.N),
			fmt.Sprintf("%.2f", m.GM*1e3),
			fmt.Sprintf("%.2f", m.GSD),
		)
	}
	return tab.String()
}
