// Package table holds the flat tabular model passed between pipeline stages.
//
// A Table is immutable: constructors copy their inputs and accessors return
// copies, so a Table can be shared freely between stages.
package table

import (
	"fmt"
	"math"
)

// Table is an ordered sequence of rows sharing one column list.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New builds a Table. Every row must have exactly len(columns) values and
// column names must be unique.
func New(columns []string, rows [][]Value) (Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return Table{}, fmt.Errorf("duplicate column %q: %w", c, ErrInvalidTable)
		}
		index[c] = i
	}

	copied := make([][]Value, len(rows))
	for i, r := range rows {
		if len(r) != len(columns) {
			return Table{}, fmt.Errorf("row %d has %d values, want %d: %w", i, len(r), len(columns), ErrInvalidTable)
		}
		copied[i] = append([]Value(nil), r...)
	}

	return Table{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    copied,
	}, nil
}

// FromMaps builds a Table from one map per row. Keys absent from a map get "".
func FromMaps(columns []string, maps []map[string]Value) (Table, error) {
	rows := make([][]Value, len(maps))
	for i, m := range maps {
		row := make([]Value, len(columns))
		for j, c := range columns {
			if v, ok := m[c]; ok {
				row[j] = v
			} else {
				row[j] = ""
			}
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// Columns returns the column names in order.
func (t Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of rows.
func (t Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t Table) Width() int { return len(t.columns) }

// Has reports whether field is one of the columns.
func (t Table) Has(field string) bool {
	_, ok := t.index[field]
	return ok
}

// Index returns the column position of field.
func (t Table) Index(field string) (int, error) {
	i, ok := t.index[field]
	if !ok {
		return 0, &MissingFieldError{Field: field, Columns: t.Columns()}
	}
	return i, nil
}

// Row returns a copy of row i.
func (t Table) Row(i int) []Value { return append([]Value(nil), t.rows[i]...) }

// At returns the value at row i, column position col.
func (t Table) At(i, col int) Value { return t.rows[i][col] }

// Get returns the value of field in row i.
func (t Table) Get(i int, field string) (Value, error) {
	col, err := t.Index(field)
	if err != nil {
		return nil, err
	}
	return t.rows[i][col], nil
}

// Column returns a copy of all values of field, in row order.
func (t Table) Column(field string) ([]Value, error) {
	col, err := t.Index(field)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[col]
	}
	return out, nil
}

// Floats coerces every value of field to float64. Missing values become NaN.
// The first non-numeric value aborts with a *ConversionError.
func (t Table) Floats(field string) ([]float64, error) {
	col, err := t.Index(field)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		f, err := Float(r[col])
		if err != nil {
			return nil, &ConversionError{Field: field, Row: i, Value: r[col], Err: err}
		}
		out[i] = f
	}
	return out, nil
}

// Subset returns the rows at the given positions, in the given order.
func (t Table) Subset(positions []int) Table {
	rows := make([][]Value, len(positions))
	for i, p := range positions {
		rows[i] = t.rows[p]
	}
	sub, _ := New(t.columns, rows) // widths already match
	return sub
}

// Where returns the rows whose field renders as value.
func (t Table) Where(field, value string) (Table, error) {
	positions, err := t.Match(field, value)
	if err != nil {
		return Table{}, err
	}
	return t.Subset(positions), nil
}

// Match returns the positions of rows whose field renders as value.
func (t Table) Match(field, value string) ([]int, error) {
	col, err := t.Index(field)
	if err != nil {
		return nil, err
	}
	var positions []int
	for i, r := range t.rows {
		if Text(r[col]) == value {
			positions = append(positions, i)
		}
	}
	return positions, nil
}

// Maps returns one map per row keyed by column name. Feeding the result back
// through the normalizer with an identity field map reproduces t.
func (t Table) Maps() []map[string]Value {
	out := make([]map[string]Value, len(t.rows))
	for i, r := range t.rows {
		m := make(map[string]Value, len(t.columns))
		for j, c := range t.columns {
			m[c] = r[j]
		}
		out[i] = m
	}
	return out
}

// Records renders the table for delimited export: a header row followed by
// one row per table row.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Columns())
	for _, r := range t.rows {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = Text(v)
		}
		out = append(out, rec)
	}
	return out
}

// Equal reports whether both tables have the same columns and cell values.
// NaN cells compare equal to each other.
func (t Table) Equal(o Table) bool {
	if len(t.columns) != len(o.columns) || len(t.rows) != len(o.rows) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != o.columns[i] {
			return false
		}
	}
	for i := range t.rows {
		for j := range t.rows[i] {
			if !equalValue(t.rows[i][j], o.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// LeftJoin keeps every row of left and appends the columns of right (minus
// rightKey) from the first right row whose rightKey matches leftKey.
// Unmatched rows get "" in the appended columns.
func LeftJoin(left, right Table, leftKey, rightKey string) (Table, error) {
	lk, err := left.Index(leftKey)
	if err != nil {
		return Table{}, err
	}
	rk, err := right.Index(rightKey)
	if err != nil {
		return Table{}, err
	}

	columns := left.Columns()
	var extra []int
	for j, c := range right.columns {
		if j == rk {
			continue
		}
		if left.Has(c) {
			return Table{}, fmt.Errorf("column %q present on both sides: %w", c, ErrInvalidTable)
		}
		columns = append(columns, c)
		extra = append(extra, j)
	}

	first := make(map[string]int, right.Len())
	for i, r := range right.rows {
		key := Text(r[rk])
		if _, seen := first[key]; !seen {
			first[key] = i
		}
	}

	rows := make([][]Value, len(left.rows))
	for i, r := range left.rows {
		row := append(make([]Value, 0, len(columns)), r...)
		match, ok := first[Text(r[lk])]
		for _, j := range extra {
			if ok {
				row = append(row, right.rows[match][j])
			} else {
				row = append(row, "")
			}
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// Finite returns the values of xs that are neither NaN nor infinite, in order.
func Finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
