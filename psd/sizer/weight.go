package sizer

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-psd/psd/core"
)

// Weight selects the moment of the size distribution an operation works
// on: particle number, surface area, volume, or mass.
type Weight int

const (
	Number Weight = iota
	Surface
	Volume
	Mass
)

// ErrBadWeight is returned for weights outside the four recognized values.
var ErrBadWeight = fmt.Errorf("sizer: invalid weight: %w", core.ErrConfiguration)

// String returns the lower-case name of the weight.
func (w Weight) String() string {
	switch w {
	case Number:
		return "number"
	case Surface:
		return "surface"
	case Volume:
		return "volume"
	case Mass:
		return "mass"
	}
	return fmt.Sprintf("weight(%d)", int(w))
}

func (w Weight) valid() bool {
	return w >= Number && w <= Mass
}

// ParseWeight maps a case-insensitive name to a Weight.
func ParseWeight(s string) (Weight, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "number":
		return Number, nil
	case "surface":
		return Surface, nil
	case "volume":
		return Volume, nil
	case "mass":
		return Mass, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrBadWeight)
}
