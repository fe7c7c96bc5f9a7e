// Package dbframe connects relational tables to the numeric stack.
//
// A Table binds a database/sql handle to one table and a unique integer key
// column, and materializes rows as a Frame: a keyed, named, dense float64
// matrix backed by gonum. NULL values surface as NaN so downstream code has
// a single missing-value convention.
package dbframe

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/pkg/errors"
)

var nan = math.NaN()

// Frame is an immutable keyed numeric dataset wrapping gonum/mat.Dense.
// Row i of the matrix belongs to Keys()[i]; column j holds the values of
// Names()[j]. Missing database values are NaN.
type Frame struct {
	keys  []int64
	names []string
	index map[string]int
	data  *mat.Dense
}

// New creates a frame over data. The matrix must have len(keys) rows and
// len(names) columns, and column names must be unique and non-empty.
func New(keys []int64, names []string, data *mat.Dense) (*Frame, error) {
	if data == nil {
		return nil, errors.NewValueError("dbframe.New", "data must not be nil")
	}
	r, c := data.Dims()
	if r != len(keys) {
		return nil, errors.NewDimensionError("dbframe.New", len(keys), r, 0)
	}
	if c != len(names) {
		return nil, errors.NewDimensionError("dbframe.New", len(names), c, 1)
	}

	index := make(map[string]int, len(names))
	for j, name := range names {
		if name == "" {
			return nil, errors.NewValueError("dbframe.New", "empty column name")
		}
		if _, dup := index[name]; dup {
			return nil, errors.Newf("dbframe.New: duplicate column %q", name)
		}
		index[name] = j
	}

	return &Frame{
		keys:  keys,
		names: names,
		index: index,
		data:  data,
	}, nil
}

// NumRows は行数を返す
func (f *Frame) NumRows() int {
	r, _ := f.data.Dims()
	return r
}

// NumCols は列数を返す
func (f *Frame) NumCols() int {
	_, c := f.data.Dims()
	return c
}

// Names returns a copy of the column names in matrix order.
func (f *Frame) Names() []string {
	return append([]string{}, f.names...)
}

// Keys returns a copy of the row keys in matrix order.
func (f *Frame) Keys() []int64 {
	return append([]int64{}, f.keys...)
}

// Key returns the key of row i.
func (f *Frame) Key(i int) int64 {
	return f.keys[i]
}

// Has reports whether the frame holds a column with the given name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// At returns the value at row i, column j.
func (f *Frame) At(i, j int) float64 {
	return f.data.At(i, j)
}

// Column returns a copy of the named column's values.
func (f *Frame) Column(name string) ([]float64, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, errors.Newf("dbframe: unknown column %q", name)
	}
	out := make([]float64, f.NumRows())
	mat.Col(out, j, f.data)
	return out, nil
}

// Vector returns a copy of the named column as a gonum vector.
func (f *Frame) Vector(name string) (*mat.VecDense, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(col), col), nil
}

// Row returns a copy of row i's values in column order.
func (f *Frame) Row(i int) []float64 {
	out := make([]float64, f.NumCols())
	mat.Row(out, i, f.data)
	return out
}

// Select builds a new matrix holding the named columns in the given order.
// The result shares no storage with the frame.
func (f *Frame) Select(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, errors.NewValueError("Frame.Select", "at least one column is required")
	}
	r := f.NumRows()
	out := mat.NewDense(r, len(names), nil)
	scratch := make([]float64, r)
	for dst, name := range names {
		j, ok := f.index[name]
		if !ok {
			return nil, errors.Newf("Frame.Select: unknown column %q", name)
		}
		mat.Col(scratch, j, f.data)
		out.SetCol(dst, scratch)
	}
	return out, nil
}

// Matrix returns the underlying matrix.
// 注意: 直接操作は推奨されない
func (f *Frame) Matrix() *mat.Dense {
	return f.data
}
