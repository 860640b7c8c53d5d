package table

import (
	"time"

	"github.com/cwbudde/algo-psd/psd/core"
)

// Series is a single named value column over a time index. It is the
// result shape of row-wise reductions such as moment integration.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// Mean returns the arithmetic mean of all non-NaN values, or NaN when
// there are none.
func (s Series) Mean() float64 { return core.NaNMean(s.Values) }

// Sum returns the sum of all non-NaN values, or NaN when there are none.
func (s Series) Sum() float64 { return core.NaNSum(s.Values) }
