package domain

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
)

// MissingTokens are the cell values treated as "not available" when a raw
// table is built. Matching is exact.
var MissingTokens = []string{
	"", "NA", "N/A", "n/a", "NaN", "nan", "-NaN", "-nan", "null", "NULL", "None",
	"#N/A", "#N/A N/A", "#NA", "<NA>", "1.#IND", "1.#QNAN", "-1.#IND", "-1.#QNAN",
}

// IsMissingToken reports whether s is one of MissingTokens.
func IsMissingToken(s string) bool {
	return slices.Contains(MissingTokens, s)
}

// RawTable is the verbatim source table: ordered column names and, per
// column, one cell per row. Invalid cells are missing.
type RawTable struct {
	columns []string
	index   map[string]int
	cells   [][]sql.Null[string]
	rows    int
}

// NewRawTable builds a table from a header and row-major string records.
// Every row must have exactly len(header) fields.
func NewRawTable(header []string, rows [][]string) (*RawTable, error) {
	cols := make([][]sql.Null[string], len(header))
	for j := range cols {
		cols[j] = make([]sql.Null[string], len(rows))
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("line %d: got %d fields, want %d", i+2, len(row), len(header))
		}
		for j, v := range row {
			cols[j][i] = RawCell(v)
		}
	}
	return NewRawTableFromColumns(header, cols)
}

// NewRawTableFromColumns builds a table from column-major cells. All columns
// must have the same length and names must be unique.
func NewRawTableFromColumns(names []string, cols [][]sql.Null[string]) (*RawTable, error) {
	if len(names) == 0 {
		return nil, errors.New("table has no columns")
	}
	if len(names) != len(cols) {
		return nil, fmt.Errorf("got %d column names for %d columns", len(names), len(cols))
	}

	t := &RawTable{
		columns: slices.Clone(names),
		index:   make(map[string]int, len(names)),
		cells:   cols,
		rows:    len(cols[0]),
	}
	for j, name := range names {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		if len(cols[j]) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(cols[j]), t.rows)
		}
		t.index[name] = j
	}
	return t, nil
}

// Columns returns the column names in source order.
func (t *RawTable) Columns() []string { return slices.Clone(t.columns) }

// Len returns the number of data rows.
func (t *RawTable) Len() int { return t.rows }

// Has reports whether the table contains the named column.
func (t *RawTable) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the cells of the named column, or nil if it is absent.
// The returned slice is shared with the table and must not be modified.
func (t *RawTable) Column(name string) []sql.Null[string] {
	j, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.cells[j]
}

// Cell returns a single cell. Out-of-range lookups are missing.
func (t *RawTable) Cell(name string, row int) sql.Null[string] {
	col := t.Column(name)
	if row < 0 || row >= len(col) {
		return sql.Null[string]{}
	}
	return col[row]
}

// RawCell converts a source string into a cell, applying MissingTokens.
func RawCell(v string) sql.Null[string] {
	if IsMissingToken(v) {
		return sql.Null[string]{}
	}
	return sql.Null[string]{V: v, Valid: true}
}
