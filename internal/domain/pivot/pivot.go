// Package pivot cross-tabulates a numeric column by two categorical columns.
package pivot

import (
	"math"
	"sort"
	"strconv"

	"github.com/okian/wbstats/internal/domain/normalize"
	"github.com/okian/wbstats/internal/domain/table"
)

// Cell is one aggregate. A cell with Count == 0 is missing and its Mean is NaN.
type Cell struct {
	Mean  float64
	Count int
}

// Missing reports whether no numeric row contributed to the cell.
func (c Cell) Missing() bool { return c.Count == 0 }

// Matrix is a dense mean-aggregate over the observed row and column
// categories, both sorted ascending.
type Matrix struct {
	RowField   string
	ColField   string
	ValueField string

	rows  []string
	cols  []string
	cells [][]Cell
}

// Mean groups t by (rowField, colField) and averages valueField per group.
// Empty values are skipped; a non-numeric value fails the whole call.
// Categories are taken from every row, so a category whose rows all lack a
// value still appears, with missing cells.
func Mean(t table.Table, rowField, colField, valueField string) (Matrix, error) {
	ri, err := t.Index(rowField)
	if err != nil {
		return Matrix{}, err
	}
	ci, err := t.Index(colField)
	if err != nil {
		return Matrix{}, err
	}
	nums, err := t.Floats(valueField)
	if err != nil {
		return Matrix{}, err
	}

	rowKeys := make([]string, t.Len())
	colKeys := make([]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		rowKeys[i] = table.Text(t.At(i, ri))
		colKeys[i] = table.Text(t.At(i, ci))
	}
	rows, rowPos := categories(rowKeys)
	cols, colPos := categories(colKeys)

	sums := make([][]float64, len(rows))
	cells := make([][]Cell, len(rows))
	for r := range rows {
		sums[r] = make([]float64, len(cols))
		cells[r] = make([]Cell, len(cols))
	}
	for i, v := range nums {
		if math.IsNaN(v) {
			continue
		}
		r, c := rowPos[rowKeys[i]], colPos[colKeys[i]]
		sums[r][c] += v
		cells[r][c].Count++
	}
	for r := range cells {
		for c := range cells[r] {
			if n := cells[r][c].Count; n > 0 {
				cells[r][c].Mean = sums[r][c] / float64(n)
			} else {
				cells[r][c].Mean = math.NaN()
			}
		}
	}

	return Matrix{
		RowField:   rowField,
		ColField:   colField,
		ValueField: valueField,
		rows:       rows,
		cols:       cols,
		cells:      cells,
	}, nil
}

// LendingIncome averages valueField by income level (rows) and lending type
// (columns).
func LendingIncome(t table.Table, valueField string) (Matrix, error) {
	return Mean(t, normalize.ColIncomeLevel, normalize.ColLendingType, valueField)
}

func categories(keys []string) ([]string, map[string]int) {
	pos := make(map[string]int)
	var out []string
	for _, k := range keys {
		if _, ok := pos[k]; !ok {
			pos[k] = 0
			out = append(out, k)
		}
	}
	sort.Strings(out)
	for i, k := range out {
		pos[k] = i
	}
	return out, pos
}

// Rows returns the row categories.
func (m Matrix) Rows() []string { return append([]string(nil), m.rows...) }

// Cols returns the column categories.
func (m Matrix) Cols() []string { return append([]string(nil), m.cols...) }

// Cell returns the aggregate at row r, column c.
func (m Matrix) Cell(r, c int) Cell { return m.cells[r][c] }

// Value returns the mean for a category pair; ok is false when the pair was
// never observed with a numeric value.
func (m Matrix) Value(row, col string) (float64, bool) {
	r := sort.SearchStrings(m.rows, row)
	c := sort.SearchStrings(m.cols, col)
	if r == len(m.rows) || m.rows[r] != row || c == len(m.cols) || m.cols[c] != col {
		return math.NaN(), false
	}
	cell := m.cells[r][c]
	return cell.Mean, !cell.Missing()
}

// Empty reports whether no cell holds a value.
func (m Matrix) Empty() bool {
	for _, row := range m.cells {
		for _, c := range row {
			if !c.Missing() {
				return false
			}
		}
	}
	return true
}

// Equal reports whether two matrices have the same categories, counts and
// means, with missing cells matching missing cells.
func (m Matrix) Equal(o Matrix) bool {
	if m.RowField != o.RowField || m.ColField != o.ColField || m.ValueField != o.ValueField {
		return false
	}
	if len(m.rows) != len(o.rows) || len(m.cols) != len(o.cols) {
		return false
	}
	for i := range m.rows {
		if m.rows[i] != o.rows[i] {
			return false
		}
	}
	for i := range m.cols {
		if m.cols[i] != o.cols[i] {
			return false
		}
	}
	for r := range m.cells {
		for c := range m.cells[r] {
			a, b := m.cells[r][c], o.cells[r][c]
			if a.Count != b.Count {
				return false
			}
			if !a.Missing() && math.Float64bits(a.Mean) != math.Float64bits(b.Mean) {
				return false
			}
		}
	}
	return true
}

// Records renders the matrix for delimited export: a header of the row field
// followed by the column categories, then one line per row category. Missing
// cells are empty.
func (m Matrix) Records() [][]string {
	out := make([][]string, 0, len(m.rows)+1)
	out = append(out, append([]string{m.RowField}, m.cols...))
	for r, name := range m.rows {
		rec := make([]string, 0, len(m.cols)+1)
		rec = append(rec, name)
		for _, cell := range m.cells[r] {
			if cell.Missing() {
				rec = append(rec, "")
			} else {
				rec = append(rec, strconv.FormatFloat(cell.Mean, 'f', -1, 64))
			}
		}
		out = append(out, rec)
	}
	return out
}
