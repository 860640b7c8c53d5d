// Package ingest parses instrument text exports into the engine's table
// shape. The only format implemented is the AIM export written by SMPS
// instruments: a metadata block, a transposed sample matrix (one variable
// per line, one sample per column), a histogram block with the channel
// midpoint in the first column, and a trailing block of per-scan summary
// statistics.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/cwbudde/algo-psd/psd/bins"
	"github.com/cwbudde/algo-psd/psd/core"
	"github.com/cwbudde/algo-psd/psd/table"
)

// Errors returned by the loader.
var (
	ErrTruncated  = fmt.Errorf("ingest: export file is truncated: %w", core.ErrValidation)
	ErrNoBins     = fmt.Errorf("ingest: no histogram rows found: %w", core.ErrValidation)
	ErrNoSamples  = fmt.Errorf("ingest: no parseable sample timestamps: %w", core.ErrValidation)
	ErrNoGeometry = fmt.Errorf("ingest: export metadata does not describe the bin geometry: %w", core.ErrValidation)
)

// statsColumns are the per-scan summary rows an AIM export appends after
// the histogram block, in file order.
var statsColumns = []string{
	"Scan Up Time",
	"Retrace Time",
	"Down Scan First",
	"Scans Per Sample",
	"Impactor Type",
	"Sheath Flow",
	"Aerosol Flow",
	"CPC Inlet Flow",
	"CPC Sample Flow",
	"Low Voltage",
	"High Voltage",
	"Lower Size",
	"Upper Size",
	"Density",
	"Title",
	"Status Flag",
	"td",
	"tf",
	"D50",
	"Median",
	"Mean",
	"Geo. Mean",
	"Mode",
	"Geo Std Dev",
	"Total Concentration",
	"Comment",
}

// timeLayouts tried, in order, for the concatenated date and time fields.
var timeLayouts = []string{
	"01/02/06 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
}

// Export is a parsed AIM file.
type Export struct {
	Frame     *table.Frame      // bin columns plus summary-statistic columns
	Midpoints []float64         // channel midpoints as written, nanometers
	BinLabels []string          // "bin0".."binN-1", bin order
	Meta      map[string]string // metadata block, key -> first value
}

// Option configures the loader.
type Option func(*config)

type config struct {
	delimiter rune
	encoding  encoding.Encoding
	metaRows  int
}

func defaultLoadConfig() config {
	return config{
		delimiter: ',',
		encoding:  charmap.ISO8859_1,
		metaRows:  15,
	}
}

// WithDelimiter overrides the field delimiter (default comma).
func WithDelimiter(r rune) Option {
	return func(c *config) {
		if r != 0 {
			c.delimiter = r
		}
	}
}

// WithEncoding overrides the character encoding (default ISO-8859-1, the
// encoding AIM writes). Pass nil for plain UTF-8.
func WithEncoding(enc encoding.Encoding) Option {
	return func(c *config) {
		c.encoding = enc
	}
}

// WithMetaRows overrides the number of leading metadata rows (default 15).
func WithMetaRows(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.metaRows = n
		}
	}
}

// LoadSMPS parses an AIM export. Unparseable numeric cells become NaN;
// sample columns without a parseable timestamp are dropped.
func LoadSMPS(r io.Reader, opts ...Option) (*Export, error) {
	cfg := defaultLoadConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.encoding != nil {
		r = cfg.encoding.NewDecoder().Reader(r)
	}

	cr := csv.NewReader(r)
	cr.Comma = cfg.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ingest: reading export: %w", err)
	}
	if len(records) <= cfg.metaRows {
		return nil, ErrTruncated
	}

	meta := make(map[string]string, cfg.metaRows)
	for _, rec := range records[:cfg.metaRows] {
		if len(rec) >= 2 && rec[0] != "" {
			meta[strings.TrimSpace(rec[0])] = strings.TrimSpace(rec[1])
		}
	}

	data := records[cfg.metaRows:]

	// The histogram rows are the ones whose first field is a nonzero
	// number: channel midpoints. Everything else in the block is text
	// labelled (dates, stats names).
	nbins := 0
	for _, rec := range data {
		if len(rec) == 0 {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64); err == nil && v != 0 {
			nbins++
		}
	}
	if nbins == 0 {
		return nil, ErrNoBins
	}
	if len(data) < 4+nbins {
		return nil, ErrTruncated
	}

	dates := data[1]
	times := data[2]

	// Sample columns start at field 1. Keep only columns with a
	// parseable Date + Start Time pair.
	ncols := len(dates)
	if len(times) < ncols {
		ncols = len(times)
	}

	var (
		index   []time.Time
		samples []int
	)
	for j := 1; j < ncols; j++ {
		ts, ok := parseTimestamp(dates[j], times[j])
		if !ok {
			continue
		}
		index = append(index, ts)
		samples = append(samples, j)
	}
	if len(index) == 0 {
		return nil, ErrNoSamples
	}

	frame := table.New(index)

	mids := make([]float64, nbins)
	labels := make([]string, nbins)
	for i := 0; i < nbins; i++ {
		rec := data[4+i]
		mids[i] = cell(rec, 0)
		labels[i] = fmt.Sprintf("bin%d", i)
		if err := frame.AddColumn(labels[i], column(rec, samples)); err != nil {
			return nil, fmt.Errorf("ingest: %w", err)
		}
	}

	for k, rec := range data[4+nbins:] {
		name := ""
		if k < len(statsColumns) {
			name = statsColumns[k]
		} else if len(rec) > 0 && strings.TrimSpace(rec[0]) != "" {
			name = strings.TrimSpace(rec[0])
		} else {
			name = fmt.Sprintf("extra%d", k)
		}
		if frame.Has(name) {
			continue
		}
		if err := frame.AddColumn(name, column(rec, samples)); err != nil {
			return nil, fmt.Errorf("ingest: %w", err)
		}
	}

	return &Export{
		Frame:     frame,
		Midpoints: mids,
		BinLabels: labels,
		Meta:      meta,
	}, nil
}

func parseTimestamp(date, clock string) (time.Time, bool) {
	joined := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, joined); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// cell parses field i of rec, NaN when missing or non-numeric.
func cell(rec []string, i int) float64 {
	if i >= len(rec) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// column extracts the given sample fields of rec as floats.
func column(rec []string, samples []int) []float64 {
	out := make([]float64, len(samples))
	for i, j := range samples {
		out[i] = cell(rec, j)
	}
	return out
}

// MetaFloat parses a metadata value as a number, trying the exact key
// first and then a case-insensitive match.
func (e *Export) MetaFloat(key string) (float64, bool) {
	if v, ok := e.Meta[key]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	for k, v := range e.Meta {
		if strings.EqualFold(k, key) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// metaKeys maps each geometry parameter to the spellings seen in export
// metadata blocks.
var metaKeys = map[string][]string{
	"cpd":   {"channels_per_decade", "Channels/Decade"},
	"lower": {"lower_bound", "Lower Size(nm)", "Lower Size (nm)"},
	"upper": {"upper_bound", "Upper Size(nm)", "Upper Size (nm)"},
}

func (e *Export) geometryParam(name string) (float64, bool) {
	for _, key := range metaKeys[name] {
		if v, ok := e.MetaFloat(key); ok {
			return v, true
		}
	}
	return 0, false
}

// BinTable derives the bin geometry from the export: channel midpoints
// plus the channels-per-decade spacing and overall bounds read from the
// metadata block. All values in the file are nanometers; the returned
// table is micrometers.
func (e *Export) BinTable() (bins.Table, error) {
	cpd, ok := e.geometryParam("cpd")
	if !ok {
		return nil, ErrNoGeometry
	}
	lower, ok := e.geometryParam("lower")
	if !ok {
		return nil, ErrNoGeometry
	}
	upper, ok := e.geometryParam("upper")
	if !ok {
		return nil, ErrNoGeometry
	}

	return bins.FromMidpoints(e.Midpoints, lower, upper, cpd, bins.WithUnit(bins.Nanometers))
}
