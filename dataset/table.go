package dataset

import (
	"sync"
)

// ============================================================================
// TABLE — Read-Only Tabular Dataset
// ============================================================================
// A Table is loaded once per process and never mutated. All filtering
// happens through Views (index lists into the table) so concurrent
// readers are safe without locking.
// ============================================================================

// Table holds the project dataset as raw string cells under normalized
// snake_case column names.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]string

	vocabOnce sync.Once
	vocab     *Vocabulary
}

// Columns returns the normalized column names in file order.
func (t *Table) Columns() []string { return t.cols }

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.rows) }

// Value returns the cell at (row, column), or "" when either is unknown.
func (t *Table) Value(row int, col string) string {
	if row < 0 || row >= len(t.rows) {
		return ""
	}
	ci, ok := t.index[col]
	if !ok || ci >= len(t.rows[row]) {
		return ""
	}
	return t.rows[row][ci]
}

// HasColumn reports whether the exact normalized column name exists.
func (t *Table) HasColumn(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Uniques returns the distinct non-empty values of a column in row order.
func (t *Table) Uniques(col string) []string {
	ci, ok := t.index[col]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.rows {
		if ci >= len(row) {
			continue
		}
		v := row[ci]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// All returns a View over every row.
func (t *Table) All() *View {
	idx := make([]int, len(t.rows))
	for i := range idx {
		idx[i] = i
	}
	return &View{table: t, indices: idx}
}

// ============================================================================
// VIEW — zero-copy subset
// ============================================================================

// View is a filtered subset of a Table. It holds row indices into the
// table — no data copy.
type View struct {
	table   *Table
	indices []int
}

// NewView builds a View from explicit row indices. Used by tests and the
// aggregation layer when re-ordering rows.
func NewView(t *Table, indices []int) *View {
	return &View{table: t, indices: indices}
}

// Len returns the number of rows in the view.
func (v *View) Len() int { return len(v.indices) }

// Table returns the backing table.
func (v *View) Table() *Table { return v.table }

// Row returns the table row index at view position i.
func (v *View) Row(i int) int { return v.indices[i] }

// Value returns the cell at view position i for a column.
func (v *View) Value(i int, col string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.table.Value(v.indices[i], col)
}

// Where narrows the view to rows where keep returns true. keep receives
// the table row index.
func (v *View) Where(keep func(row int) bool) *View {
	var idx []int
	for _, row := range v.indices {
		if keep(row) {
			idx = append(idx, row)
		}
	}
	return &View{table: v.table, indices: idx}
}

// Uniques returns the distinct non-empty values of a column within the view.
func (v *View) Uniques(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range v.indices {
		val := v.table.Value(row, col)
		if val == "" || seen[val] {
			continue
		}
		seen[val] = true
		out = append(out, val)
	}
	return out
}
