// Package dataset implements the in-memory tabular value the importer works on.
//
// A Table is an ordered list of named columns with row-major storage. Column
// names are not required to be unique: spreadsheets routinely carry repeated
// headers, and the importer must be able to see (and reject) them rather than
// have them silently renamed on load. A nil cell is a null; so is a NaN float.
//
// A Table may carry a row label (Index), mirroring a spreadsheet whose first
// column was designated as the row header. ResetIndex turns a single named
// label back into an ordinary column.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/qpenko/database-importer/internal/bitmap"
)

var (
	// ErrNoColumns is returned when a table is built without any columns.
	ErrNoColumns = errors.New("dataset: no columns")

	// ErrRowWidth is returned when a row does not match the column count.
	ErrRowWidth = errors.New("dataset: row width does not match column count")
)

// Index is a row label. Names holds one entry per label level; a single level
// with an empty name is an unnamed label and is never promoted to a column.
type Index struct {
	Names  []string
	Values [][]any // Values[row][level]
}

// Table is an immutable, ordered set of named columns.
type Table struct {
	columns []string
	dtypes  []string
	rows    [][]any
	index   *Index
}

// New builds a Table from column names and row-major values. Every row must
// have exactly len(columns) cells. Column dtypes are inferred from the values.
func New(columns []string, rows [][]any) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrRowWidth, i, len(r), len(columns))
		}
	}
	t := &Table{
		columns: slices.Clone(columns),
		rows:    rows,
	}
	t.dtypes = make([]string, len(columns))
	for j := range columns {
		t.dtypes[j] = inferDtype(rows, j)
	}
	return t, nil
}

// Columns returns a copy of the column names in table order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Dtypes returns a copy of the per-column dtype names, aligned with Columns.
func (t *Table) Dtypes() []string { return slices.Clone(t.dtypes) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.rows) == 0 }

// Rows returns the underlying row slice. Callers must not modify it.
func (t *Table) Rows() [][]any { return t.rows }

// Index returns the row label, or nil when the table has none.
func (t *Table) Index() *Index { return t.index }

// Has reports whether at least one column carries name.
func (t *Table) Has(name string) bool { return slices.Contains(t.columns, name) }

// Dtype returns the dtype of the first column called name.
func (t *Table) Dtype(name string) (string, bool) {
	i := slices.Index(t.columns, name)
	if i < 0 {
		return "", false
	}
	return t.dtypes[i], true
}

// SetIndex moves the named columns out of the table and into its row label.
// It returns a new Table; t is left unchanged.
func (t *Table) SetIndex(names ...string) (*Table, error) {
	if len(names) == 0 {
		return t, nil
	}
	pos := make([]int, len(names))
	for i, n := range names {
		p := slices.Index(t.columns, n)
		if p < 0 {
			return nil, fmt.Errorf("dataset: index column %q not found", n)
		}
		pos[i] = p
	}

	keep := make([]int, 0, len(t.columns)-len(pos))
	for j := range t.columns {
		if !slices.Contains(pos, j) {
			keep = append(keep, j)
		}
	}
	if len(keep) == 0 {
		return nil, ErrNoColumns
	}

	idx := &Index{Names: slices.Clone(names), Values: make([][]any, len(t.rows))}
	for r, row := range t.rows {
		lv := make([]any, len(pos))
		for i, p := range pos {
			lv[i] = row[p]
		}
		idx.Values[r] = lv
	}

	out := t.take(keep)
	out.index = idx
	return out, nil
}

// ResetIndex promotes a single, named row label into the first column and
// returns the result. Unnamed and composite labels are left in place, and so
// is a table without a label; in those cases t itself is returned.
func (t *Table) ResetIndex() *Table {
	if t.index == nil || len(t.index.Names) != 1 || t.index.Names[0] == "" {
		return t
	}
	out := &Table{
		columns: append([]string{t.index.Names[0]}, t.columns...),
		dtypes:  make([]string, 0, len(t.dtypes)+1),
		rows:    make([][]any, len(t.rows)),
	}
	for r, row := range t.rows {
		nr := make([]any, 0, len(row)+1)
		nr = append(nr, t.index.Values[r][0])
		nr = append(nr, row...)
		out.rows[r] = nr
	}
	out.dtypes = append(out.dtypes, inferDtype(out.rows, 0))
	out.dtypes = append(out.dtypes, t.dtypes...)
	return out
}

// Project returns a table holding, for each requested name in order, every
// column that carries that name. Repeated headers therefore survive the
// projection. Names not present in t are skipped.
func (t *Table) Project(names []string) *Table {
	var pos []int
	for _, n := range names {
		for j, c := range t.columns {
			if c == n {
				pos = append(pos, j)
			}
		}
	}
	return t.take(pos)
}

// NullRows marks every row holding a null in any column whose name is listed
// in names.
func (t *Table) NullRows(names []string) *bitmap.Bitmap {
	var pos []int
	for j, c := range t.columns {
		if slices.Contains(names, c) {
			pos = append(pos, j)
		}
	}
	mask := bitmap.New(len(t.rows))
	for i, row := range t.rows {
		if slices.ContainsFunc(pos, func(p int) bool { return IsNull(row[p]) }) {
			mask.Add(i)
		}
	}
	return mask
}

// DropNulls returns a table without the rows holding a null in any column
// whose name is listed in names.
func (t *Table) DropNulls(names []string) *Table {
	mask := t.NullRows(names)
	out := &Table{
		columns: t.columns,
		dtypes:  t.dtypes,
		rows:    make([][]any, 0, len(t.rows)-mask.Count()),
	}
	for i, row := range t.rows {
		if !mask.Has(i) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// DuplicateColumns lists every column name occurrence that repeats an earlier
// one, in table order. A name present three times is listed twice.
func (t *Table) DuplicateColumns() []string {
	seen := make(map[string]struct{}, len(t.columns))
	var dups []string
	for _, c := range t.columns {
		if _, ok := seen[c]; ok {
			dups = append(dups, c)
			continue
		}
		seen[c] = struct{}{}
	}
	return dups
}

func (t *Table) take(pos []int) *Table {
	out := &Table{
		columns: make([]string, len(pos)),
		dtypes:  make([]string, len(pos)),
		rows:    make([][]any, len(t.rows)),
	}
	for i, p := range pos {
		out.columns[i] = t.columns[p]
		out.dtypes[i] = t.dtypes[p]
	}
	for r, row := range t.rows {
		nr := make([]any, len(pos))
		for i, p := range pos {
			nr[i] = row[p]
		}
		out.rows[r] = nr
	}
	return out
}

// IsNull reports whether v is a null cell: nil or a NaN float.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}
