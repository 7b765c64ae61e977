package data

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrMissingColumn   = errors.New("column not found")
	ErrDuplicateColumn = errors.New("column already exists")
	ErrLengthMismatch  = errors.New("column length does not match row count")
)

// Table is an in-memory columnar dataset. Rows are subjects and are
// identified by their index, which never changes once the table is built.
type Table struct {
	n     int
	names []string
	cols  map[string][]float64
}

// NewTable returns an empty table holding n rows and no columns.
func NewTable(n int) *Table {
	return &Table{n: n, cols: make(map[string][]float64)}
}

// NumRows returns the number of subjects.
func (t *Table) NumRows() int { return t.n }

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the backing slice of the named column. Callers must not
// modify it; use SetColumn to replace values.
func (t *Table) Column(name string) ([]float64, error) {
	c, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return c, nil
}

// AddColumn appends a new column. The values are copied.
func (t *Table) AddColumn(name string, values []float64) error {
	if _, ok := t.cols[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(values) != t.n {
		return fmt.Errorf("%w: %q has %d values, table has %d rows", ErrLengthMismatch, name, len(values), t.n)
	}
	c := make([]float64, t.n)
	copy(c, values)
	t.cols[name] = c
	t.names = append(t.names, name)
	return nil
}

// SetColumn replaces the values of an existing column.
func (t *Table) SetColumn(name string, values []float64) error {
	c, ok := t.cols[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	if len(values) != t.n {
		return fmt.Errorf("%w: %q has %d values, table has %d rows", ErrLengthMismatch, name, len(values), t.n)
	}
	copy(c, values)
	return nil
}

// Matrix builds a row-major design matrix from the named columns, in the
// order given. It returns nil without error when the table has no rows.
func (t *Table) Matrix(names ...string) (*mat.Dense, error) {
	cols := make([][]float64, len(names))
	for j, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	if t.n == 0 || len(names) == 0 {
		return nil, nil
	}
	X := mat.NewDense(t.n, len(names), nil)
	for i := range t.n {
		for j := range cols {
			X.Set(i, j, cols[j][i])
		}
	}
	return X, nil
}

// Take returns a new table made of the given rows, in the given order.
// Indices may repeat.
func (t *Table) Take(idx []int) (*Table, error) {
	out := NewTable(len(idx))
	for _, i := range idx {
		if i < 0 || i >= t.n {
			return nil, fmt.Errorf("row index %d out of range [0, %d)", i, t.n)
		}
	}
	for _, name := range t.names {
		src := t.cols[name]
		c := make([]float64, len(idx))
		for k, i := range idx {
			c[k] = src[i]
		}
		out.cols[name] = c
		out.names = append(out.names, name)
	}
	return out, nil
}

// Group is the set of rows sharing one value of a grouping column.
type Group struct {
	Value float64
	Rows  []int
}

// GroupBy partitions the rows by the distinct values of a column. Groups are
// returned in the order their value is first seen.
func (t *Table) GroupBy(name string) ([]Group, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	pos := make(map[float64]int)
	var groups []Group
	for i, v := range c {
		k, ok := pos[v]
		if !ok {
			k = len(groups)
			pos[v] = k
			groups = append(groups, Group{Value: v})
		}
		groups[k].Rows = append(groups[k].Rows, i)
	}
	return groups, nil
}

// Select gathers the values of a column at the given rows.
func Select(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for k, i := range rows {
		out[k] = values[i]
	}
	return out
}
