// Package instrument maps instrument names to their default bin
// geometries and data formats. It replaces a per-instrument type
// hierarchy with a flat registry: every sizing instrument is the same
// engine parameterized by this table.
package instrument

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-psd/psd/bins"
	"github.com/cwbudde/algo-psd/psd/core"
)

// Errors returned by the registry.
var (
	ErrNoGeometry = fmt.Errorf("instrument: no default bin geometry; bins must be supplied: %w", core.ErrConfiguration)
	ErrBadSpec    = fmt.Errorf("instrument: invalid spec: %w", core.ErrConfiguration)
)

// Spec describes one instrument's defaults. Diameters are given in
// DpUnits ("um" or "nm"); geometry may come from explicit boundary
// triples, a shared boundary array, or midpoint metadata read from the
// instrument's export file (in which case no default geometry exists).
type Spec struct {
	Name       string       `yaml:"name"`
	DpUnits    string       `yaml:"dp_units"`
	Format     string       `yaml:"format"` // "dn" or "dndlogdp"
	Triples    [][3]float64 `yaml:"triples,omitempty"`
	Boundaries []float64    `yaml:"boundaries,omitempty"`
}

// HasGeometry reports whether the spec carries a default bin geometry.
func (s Spec) HasGeometry() bool {
	return len(s.Triples) > 0 || len(s.Boundaries) > 0
}

// BinTable builds the default bin table for the instrument. Instruments
// whose geometry lives in their export files (SMPS, POPS) return
// ErrNoGeometry.
func (s Spec) BinTable() (bins.Table, error) {
	var opts []bins.Option
	if strings.EqualFold(s.DpUnits, "nm") {
		opts = append(opts, bins.WithUnit(bins.Nanometers))
	}

	switch {
	case len(s.Triples) > 0:
		left := make([]float64, len(s.Triples))
		right := make([]float64, len(s.Triples))
		mids := make([]float64, len(s.Triples))
		for i, t := range s.Triples {
			left[i], mids[i], right[i] = t[0], t[1], t[2]
		}
		return bins.FromEdges(left, right, append(opts, bins.WithMidpoints(mids))...)
	case len(s.Boundaries) > 0:
		return bins.FromBoundaries(s.Boundaries, opts...)
	}

	return nil, fmt.Errorf("%s: %w", s.Name, ErrNoGeometry)
}

// Registry holds instrument specs keyed by lower-case name.
type Registry struct {
	specs map[string]Spec
}

// Default returns a registry preloaded with the built-in instruments:
//
//   - "smps": scanning mobility particle sizer; geometry comes from the
//     export file metadata, data format is dN/dlogDp.
//   - "opc-n2": Alphasense OPC-N2 optical particle counter with its
//     datasheet bin triples, per-bin counts.
//   - "pops": portable optical particle spectrometer; geometry is
//     calibration dependent and must be supplied.
//   - "generic": no defaults at all.
func Default() *Registry {
	r := &Registry{specs: make(map[string]Spec)}
	for _, s := range builtins {
		r.specs[strings.ToLower(s.Name)] = s
	}
	return r
}

var builtins = []Spec{
	{
		Name:    "smps",
		DpUnits: "nm",
		Format:  "dndlogdp",
	},
	{
		Name:    "opc-n2",
		DpUnits: "um",
		Format:  "dn",
		Triples: [][3]float64{
			{0.38, 0.46, 0.54},
			{0.54, 0.66, 0.78},
			{0.78, 0.915, 1.05},
		},
	},
	{
		Name:    "pops",
		DpUnits: "um",
		Format:  "dn",
	},
	{
		Name:    "generic",
		DpUnits: "um",
		Format:  "dn",
	},
}

// Lookup finds a spec by case-insensitive name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.specs[strings.ToLower(name)]
	return s, ok
}

// Names returns the registered instrument names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for name := range r.specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Register adds or replaces a spec.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" {
		return fmt.Errorf("empty name: %w", ErrBadSpec)
	}
	r.specs[strings.ToLower(s.Name)] = s
	return nil
}

// LoadYAML merges specs from a YAML document over the registry. The
// document is a list of Spec mappings; entries with the same name replace
// built-ins.
func (r *Registry) LoadYAML(rd io.Reader) error {
	raw, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("instrument: reading registry: %w", err)
	}

	var specs []Spec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return fmt.Errorf("instrument: parsing registry: %w", err)
	}

	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}
