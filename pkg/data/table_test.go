package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable(4)
	require.NoError(t, tbl.AddColumn("x", []float64{1, 2, 3, 4}))
	require.NoError(t, tbl.AddColumn("g", []float64{1, 0, 1, 2}))
	return tbl
}

func TestTableColumns(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	assert.Equal(t, 4, tbl.NumRows())
	assert.Equal(t, []string{"x", "g"}, tbl.Names())
	assert.True(t, tbl.Has("x"))
	assert.False(t, tbl.Has("y"))

	_, err := tbl.Column("y")
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.ErrorIs(t, tbl.AddColumn("x", []float64{0, 0, 0, 0}), ErrDuplicateColumn)
	assert.ErrorIs(t, tbl.AddColumn("y", []float64{0}), ErrLengthMismatch)
	assert.ErrorIs(t, tbl.SetColumn("y", []float64{0, 0, 0, 0}), ErrMissingColumn)
	assert.ErrorIs(t, tbl.SetColumn("x", []float64{0}), ErrLengthMismatch)

	require.NoError(t, tbl.SetColumn("x", []float64{5, 6, 7, 8}))
	x, err := tbl.Column("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 6, 7, 8}, x)

	names := tbl.Names()
	names[0] = "changed"
	assert.Equal(t, []string{"x", "g"}, tbl.Names())
}

func TestAddColumnCopies(t *testing.T) {
	t.Parallel()
	src := []float64{1, 2}
	tbl := NewTable(2)
	require.NoError(t, tbl.AddColumn("a", src))
	src[0] = 99

	a, err := tbl.Column("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, a[0])
}

func TestMatrix(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	X, err := tbl.Matrix("g", "x")
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 2.0, X.At(3, 0))
	assert.Equal(t, 4.0, X.At(3, 1))

	_, err = tbl.Matrix("x", "missing")
	assert.ErrorIs(t, err, ErrMissingColumn)

	X, err = NewTable(0).Matrix()
	require.NoError(t, err)
	assert.Nil(t, X)
}

func TestTake(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	out, err := tbl.Take([]int{3, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, tbl.Names(), out.Names())
	x, err := out.Column("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1, 1}, x)

	// the copy is independent of the source
	require.NoError(t, out.SetColumn("x", []float64{0, 0, 0}))
	src, err := tbl.Column("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, src)

	_, err = tbl.Take([]int{4})
	assert.Error(t, err)
	_, err = tbl.Take([]int{-1})
	assert.Error(t, err)
}

func TestGroupBy(t *testing.T) {
	t.Parallel()
	tbl := newTestTable(t)

	groups, err := tbl.GroupBy("g")
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{Value: 1, Rows: []int{0, 2}},
		{Value: 0, Rows: []int{1}},
		{Value: 2, Rows: []int{3}},
	}, groups)

	_, err = tbl.GroupBy("missing")
	assert.ErrorIs(t, err, ErrMissingColumn)

	x, err := tbl.Column("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, Select(x, groups[0].Rows))
}
