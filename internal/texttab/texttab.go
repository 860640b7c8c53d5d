// Package texttab renders small left-aligned text tables without any
// dependency, for embedding in fit summaries and CLI output.
package texttab

import "strings"

// Table accumulates a header row and data rows of equal arity.
type Table struct {
	headers []string
	rows    [][]string
}

// New creates a table with the given column headers.
func New(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a data row. Short rows are padded with empty cells;
// extra cells are kept and widen the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// String renders the table with two-space column separation.
func (t *Table) String() string {
	ncols := len(t.headers)
	for _, row := range t.rows {
		if len(row) > ncols {
			ncols = len(row)
		}
	}

	widths := make([]int, ncols)
	measure := func(row []string) {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}

	var b strings.Builder
	writeRow := func(row []string) {
		for i := 0; i < ncols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(cell)
			if i < ncols-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-len(cell)+2))
			}
		}
		b.WriteByte('\n')
	}

	writeRow(t.headers)
	for _, row := range t.rows {
		writeRow(row)
	}

	return b.String()
}
