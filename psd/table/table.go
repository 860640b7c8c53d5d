// Package table provides a small time-indexed column table for instrument
// observations: one []float64 per named column, a shared []time.Time
// index, and NaN for missing values.
//
// All transforms (Slice, Resample, Select, Clone) follow value semantics:
// they return a new Frame and leave the receiver untouched.
package table

import (
	"fmt"
	"sort"
	"time"

	"github.com/cwbudde/algo-psd/psd/core"
)

// Errors returned by frame operations.
var (
	ErrLengthMismatch  = fmt.Errorf("table: column length does not match index: %w", core.ErrConfiguration)
	ErrDuplicateColumn = fmt.Errorf("table: duplicate column name: %w", core.ErrConfiguration)
	ErrUnknownColumn   = fmt.Errorf("table: unknown column: %w", core.ErrValidation)
	ErrBadInterval     = fmt.Errorf("table: resample interval must be positive: %w", core.ErrConfiguration)
)

// Frame is a time-indexed table of float64 columns. The index is expected
// to be non-decreasing (instrument scan order); it need not be unique.
type Frame struct {
	index []time.Time
	names []string
	cols  map[string][]float64
}

// New creates an empty frame over the given time index. The index slice
// is copied.
func New(index []time.Time) *Frame {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Frame{
		index: idx,
		cols:  make(map[string][]float64),
	}
}

// AddColumn appends a named column. The values slice is copied and must
// match the index length.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.index) {
		return fmt.Errorf("%q (%d values, %d rows): %w", name, len(values), len(f.index), ErrLengthMismatch)
	}
	if _, ok := f.cols[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateColumn)
	}

	v := make([]float64, len(values))
	copy(v, values)
	f.cols[name] = v
	f.names = append(f.names, name)

	return nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.index) }

// Index returns the time index. The returned slice is shared; callers
// must not modify it.
func (f *Frame) Index() []time.Time { return f.index }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether a column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the values of a named column. The returned slice is
// shared with the frame; callers must not modify it.
func (f *Frame) Column(name string) ([]float64, error) {
	v, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownColumn)
	}
	return v, nil
}

// Select returns a new frame holding only the named columns, in the given
// order, over the same index.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := New(f.index)
	for _, name := range names {
		v, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if err := out.AddColumn(name, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := New(f.index)
	for _, name := range f.names {
		// AddColumn copies; names are unique by construction.
		_ = out.AddColumn(name, f.cols[name])
	}
	return out
}

// Slice returns a new frame with the rows whose timestamps fall in the
// half-open window [start, end).
func (f *Frame) Slice(start, end time.Time) *Frame {
	keep := make([]int, 0, len(f.index))
	for i, ts := range f.index {
		if !ts.Before(start) && ts.Before(end) {
			keep = append(keep, i)
		}
	}
	return f.take(keep)
}

// Drop returns a new frame without the named columns. Unknown names are
// ignored.
func (f *Frame) Drop(names ...string) *Frame {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}

	out := New(f.index)
	for _, name := range f.names {
		if skip[name] {
			continue
		}
		_ = out.AddColumn(name, f.cols[name])
	}
	return out
}

// Resample returns a new frame with rows averaged into fixed buckets of
// duration d. Each output row is labelled with the bucket start; NaN
// values are skipped when averaging and empty buckets are dropped.
func (f *Frame) Resample(d time.Duration) (*Frame, error) {
	if d <= 0 {
		return nil, ErrBadInterval
	}

	buckets := make(map[time.Time][]int)
	for i, ts := range f.index {
		buckets[ts.Truncate(d)] = append(buckets[ts.Truncate(d)], i)
	}

	starts := make([]time.Time, 0, len(buckets))
	for ts := range buckets {
		starts = append(starts, ts)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	out := New(starts)
	buf := make([]float64, 0)
	for _, name := range f.names {
		src := f.cols[name]
		vals := make([]float64, len(starts))
		for bi, ts := range starts {
			buf = buf[:0]
			for _, ri := range buckets[ts] {
				buf = append(buf, src[ri])
			}
			vals[bi] = core.NaNMean(buf)
		}
		_ = out.AddColumn(name, vals)
	}

	return out, nil
}

// take returns a new frame holding the given row indices, in order.
func (f *Frame) take(rows []int) *Frame {
	idx := make([]time.Time, len(rows))
	for i, ri := range rows {
		idx[i] = f.index[ri]
	}

	out := New(idx)
	for _, name := range f.names {
		src := f.cols[name]
		vals := make([]float64, len(rows))
		for i, ri := range rows {
			vals[i] = src[ri]
		}
		_ = out.AddColumn(name, vals)
	}
	return out
}
