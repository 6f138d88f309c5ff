// Package sheet fetches the attendance table from a spreadsheet and exposes it
// as rows of column name -> cell string.
package sheet

import (
	"fmt"
	"strings"
)

// Row maps a header to its cell value. Missing cells are "".
type Row map[string]string

// Get returns the cell under column, "" when absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Table is a rectangular attendance table.
type Table struct {
	Headers []string
	Rows    []Row
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether name is one of the headers.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Require checks that every column in names is present.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// FromValues builds a Table from raw spreadsheet values. Fully blank rows and
// fully blank columns are dropped, short rows are padded with "", and the
// first remaining row becomes the (trimmed) header. When two columns share a
// header the first one wins in Row lookups.
func FromValues(values [][]string) *Table {
	var kept [][]string
	width := 0
	for _, row := range values {
		if rowBlank(row) {
			continue
		}
		kept = append(kept, row)
		if len(row) > width {
			width = len(row)
		}
	}
	if len(kept) == 0 {
		return &Table{}
	}

	used := make([]bool, width)
	for _, row := range kept {
		for i, v := range row {
			if !isBlank(v) {
				used[i] = true
			}
		}
	}
	cols := make([]int, 0, width)
	for i, u := range used {
		if u {
			cols = append(cols, i)
		}
	}

	t := &Table{Headers: make([]string, len(cols))}
	for j, i := range cols {
		t.Headers[j] = strings.TrimSpace(cellAt(kept[0], i))
	}

	t.Rows = make([]Row, 0, len(kept)-1)
	for _, raw := range kept[1:] {
		row := make(Row, len(cols))
		for j, i := range cols {
			h := t.Headers[j]
			if _, dup := row[h]; dup {
				continue
			}
			row[h] = cellAt(raw, i)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func rowBlank(row []string) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}
