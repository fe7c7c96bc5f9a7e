package dbframe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/pkg/errors"
)

func testFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New(
		[]int64{10, 20, 30},
		[]string{"trip_distance", "fare_amount"},
		mat.NewDense(3, 2, []float64{
			1.0, 5.5,
			2.5, math.NaN(),
			4.0, 18.0,
		}),
	)
	require.NoError(t, err)
	return f
}

func TestNewValidation(t *testing.T) {
	data := mat.NewDense(2, 2, nil)

	tests := []struct {
		name  string
		keys  []int64
		names []string
		data  *mat.Dense
	}{
		{"nil data", []int64{1, 2}, []string{"a", "b"}, nil},
		{"row mismatch", []int64{1}, []string{"a", "b"}, data},
		{"column mismatch", []int64{1, 2}, []string{"a"}, data},
		{"empty column name", []int64{1, 2}, []string{"a", ""}, data},
		{"duplicate column", []int64{1, 2}, []string{"a", "a"}, data},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.keys, tt.names, tt.data)
			assert.Error(t, err)
		})
	}
}

func TestFrameAccessors(t *testing.T) {
	f := testFrame(t)

	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, 2, f.NumCols())
	assert.Equal(t, []int64{10, 20, 30}, f.Keys())
	assert.Equal(t, []string{"trip_distance", "fare_amount"}, f.Names())
	assert.Equal(t, int64(20), f.Key(1))
	assert.True(t, f.Has("fare_amount"))
	assert.False(t, f.Has("tip_amount"))
	assert.Equal(t, 2.5, f.At(1, 0))
}

func TestFrameColumn(t *testing.T) {
	f := testFrame(t)

	col, err := f.Column("fare_amount")
	require.NoError(t, err)
	assert.Equal(t, 5.5, col[0])
	assert.True(t, math.IsNaN(col[1]))
	assert.Equal(t, 18.0, col[2])

	// The returned slice is a copy.
	col[0] = -1
	assert.Equal(t, 5.5, f.At(0, 1))

	_, err = f.Column("tip_amount")
	assert.Error(t, err)
}

func TestFrameVector(t *testing.T) {
	f := testFrame(t)

	v, err := f.Vector("trip_distance")
	require.NoError(t, err)
	require.Equal(t, 3, v.Len())
	assert.Equal(t, 4.0, v.AtVec(2))

	v.SetVec(2, -1)
	assert.Equal(t, 4.0, f.At(2, 0))
}

func TestFrameRow(t *testing.T) {
	f := testFrame(t)

	row := f.Row(2)
	assert.Equal(t, []float64{4.0, 18.0}, row)

	row[0] = -1
	assert.Equal(t, 4.0, f.At(2, 0))
}

func TestFrameSelect(t *testing.T) {
	f := testFrame(t)

	// Reordered columns.
	m, err := f.Select("fare_amount", "trip_distance")
	require.NoError(t, err)
	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 5.5, m.At(0, 0))
	assert.Equal(t, 1.0, m.At(0, 1))

	// The selection shares no storage with the frame.
	m.Set(0, 1, -99)
	assert.Equal(t, 1.0, f.At(0, 0))

	_, err = f.Select("tip_amount")
	assert.Error(t, err)

	_, err = f.Select()
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))
}
