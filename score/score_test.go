package score

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/sqlgen"
)

func TestComparePass(t *testing.T) {
	keys := []int64{10, 20, 30}
	mem := []float64{1.0, 2.0, 3.0}
	db := []float64{1.0 + 5e-7, 2.0, 3.0 - 2e-7}

	report, err := Compare(keys, mem, db, 1e-6)
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Exceeded)
	assert.InDelta(t, 5e-7, report.MaxAbsDiff, 1e-12)
	assert.Equal(t, int64(10), report.WorstKey)
	assert.Equal(t, 1e-6, report.Tolerance)
}

func TestCompareExceeded(t *testing.T) {
	keys := []int64{1, 2, 3}
	mem := []float64{1.0, 2.0, 3.0}
	db := []float64{1.0, 2.5, 3.0}

	report, err := Compare(keys, mem, db, 1e-6)
	require.NoError(t, err)

	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.Exceeded)
	assert.InDelta(t, 0.5, report.MaxAbsDiff, 1e-12)
	assert.Equal(t, int64(2), report.WorstKey)
	// RMSE over all three compared rows.
	assert.InDelta(t, math.Sqrt(0.25/3), report.RMSE, 1e-12)
}

func TestCompareSkipsNaN(t *testing.T) {
	keys := []int64{1, 2, 3, 4}
	mem := []float64{1.0, math.NaN(), 3.0, math.NaN()}
	db := []float64{1.0, 2.0, math.NaN(), math.NaN()}

	report, err := Compare(keys, mem, db, 1e-6)
	require.NoError(t, err)

	assert.True(t, report.Passed)
	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 3, report.Skipped)
}

func TestCompareZeroToleranceIsExact(t *testing.T) {
	report, err := Compare([]int64{1}, []float64{1.0}, []float64{1.0}, 0)
	require.NoError(t, err)
	assert.True(t, report.Passed)

	report, err = Compare([]int64{1}, []float64{1.0}, []float64{1.0 + 1e-15}, 0)
	require.NoError(t, err)
	assert.False(t, report.Passed)
}

func TestCompareErrors(t *testing.T) {
	_, err := Compare([]int64{1, 2}, []float64{1.0}, []float64{1.0, 2.0}, 1e-6)
	var dimErr *errors.DimensionError
	assert.ErrorAs(t, err, &dimErr)

	_, err = Compare([]int64{1}, []float64{1.0}, []float64{1.0, 2.0}, 1e-6)
	assert.ErrorAs(t, err, &dimErr)

	_, err = Compare([]int64{1}, []float64{1.0}, []float64{1.0}, -1)
	var valErr *errors.ValueError
	assert.ErrorAs(t, err, &valErr)
}

// openScoringDB creates a table whose predictions exercise both document
// kinds, including a NULL feature row.
func openScoringDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), t.Name()+".db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE trips (
			id INTEGER PRIMARY KEY,
			trip_distance DOUBLE,
			passenger_count DOUBLE
		);
	`)
	require.NoError(t, err)

	rows := []struct {
		id               int64
		distance, pcount interface{}
	}{
		{1, 1.0, 1.0},
		{2, 2.5, 2.0}, // sits exactly on the root threshold
		{3, 4.0, 1.0},
		{4, 4.0, 3.0},
		{5, nil, 2.0}, // NULL feature
	}
	for _, r := range rows {
		_, err := db.Exec(
			"INSERT INTO trips (id, trip_distance, passenger_count) VALUES (?, ?, ?)",
			r.id, r.distance, r.pcount,
		)
		require.NoError(t, err)
	}
	return db
}

// collectFrame mirrors how pipeline code materializes rows for scoring.
func collectFrame(t *testing.T, db *sql.DB) *dbframe.Frame {
	t.Helper()
	tab, err := dbframe.Bind(db, "trips", "id")
	require.NoError(t, err)
	f, err := tab.Collect(context.Background(), "trip_distance", "passenger_count")
	require.NoError(t, err)
	return f
}

func testEnsemble() *modelspec.Ensemble {
	return &modelspec.Ensemble{
		Features:  []string{"trip_distance", "passenger_count"},
		InitScore: 10,
		Trees: []modelspec.Tree{
			{Nodes: []modelspec.Node{
				{Feature: 0, Threshold: 2.5, Left: 1, Right: 2, DefaultLeft: true},
				{Leaf: true, Value: 1},
				{Feature: 1, Threshold: 1.5, Left: 3, Right: 4},
				{Leaf: true, Value: 2},
				{Leaf: true, Value: 3},
			}},
		},
	}
}

func TestSQLEquivalenceEnsemble(t *testing.T) {
	db := openScoringDB(t)
	f := collectFrame(t, db)

	report, err := SQLEquivalence(context.Background(), db, testEnsemble(), f, Options{
		Table:     "trips",
		KeyColumn: "id",
	})
	require.NoError(t, err)

	// Tree routing is total: the NULL row routes through DefaultLeft on
	// both sides, so all five rows compare and agree.
	assert.True(t, report.Passed)
	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, DefaultTolerance, report.Tolerance)
}

func TestSQLEquivalenceLinearSkipsNULL(t *testing.T) {
	db := openScoringDB(t)
	f := collectFrame(t, db)

	doc := &modelspec.Linear{
		Features:     []string{"trip_distance", "passenger_count"},
		Intercept:    2,
		Coefficients: []float64{1.5, -3},
	}
	report, err := SQLEquivalence(context.Background(), db, doc, f, Options{
		Table:     "trips",
		KeyColumn: "id",
		Dialect:   sqlgen.SQLite,
		Tolerance: 1e-9,
	})
	require.NoError(t, err)

	// Linear arithmetic over the NULL feature is NULL in SQL and NaN in
	// memory: skipped on both sides, never a mismatch.
	assert.True(t, report.Passed)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1e-9, report.Tolerance)
}

func TestSQLEquivalenceDetectsMismatch(t *testing.T) {
	db := openScoringDB(t)

	// A frame whose values disagree with the table: the in-memory side
	// predicts from these, the SQL side from the stored rows.
	doctored, err := dbframe.New(
		[]int64{1, 3},
		[]string{"trip_distance", "passenger_count"},
		mat.NewDense(2, 2, []float64{
			100, 1.0,
			4.0, 1.0,
		}),
	)
	require.NoError(t, err)

	doc := &modelspec.Linear{
		Features:     []string{"trip_distance", "passenger_count"},
		Intercept:    0,
		Coefficients: []float64{1, 0},
	}
	report, err := SQLEquivalence(context.Background(), db, doc, doctored, Options{
		Table:     "trips",
		KeyColumn: "id",
	})
	require.NoError(t, err, "a mismatch is reported, not returned as an error")

	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.Exceeded)
	assert.Equal(t, int64(1), report.WorstKey)
	assert.InDelta(t, 99, report.MaxAbsDiff, 1e-9)
}

func TestSQLEquivalenceMissingKeyIsSkipped(t *testing.T) {
	db := openScoringDB(t)

	f, err := dbframe.New(
		[]int64{1, 999},
		[]string{"trip_distance", "passenger_count"},
		mat.NewDense(2, 2, []float64{
			1.0, 1.0,
			5.0, 5.0,
		}),
	)
	require.NoError(t, err)

	doc := &modelspec.Linear{
		Features:     []string{"trip_distance", "passenger_count"},
		Intercept:    0,
		Coefficients: []float64{1, 1},
	}
	report, err := SQLEquivalence(context.Background(), db, doc, f, Options{
		Table:     "trips",
		KeyColumn: "id",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Rows)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Passed)
}

func TestSQLEquivalenceErrors(t *testing.T) {
	db := openScoringDB(t)
	f := collectFrame(t, db)
	ctx := context.Background()
	doc := testEnsemble()

	t.Run("missing table", func(t *testing.T) {
		_, err := SQLEquivalence(ctx, db, doc, f, Options{Table: "nope", KeyColumn: "id"})
		assert.Error(t, err)
	})

	t.Run("missing options", func(t *testing.T) {
		var valErr *errors.ValueError
		_, err := SQLEquivalence(ctx, db, doc, f, Options{KeyColumn: "id"})
		assert.ErrorAs(t, err, &valErr)
		_, err = SQLEquivalence(ctx, db, doc, f, Options{Table: "trips"})
		assert.ErrorAs(t, err, &valErr)
	})

	t.Run("unknown dialect", func(t *testing.T) {
		_, err := SQLEquivalence(ctx, db, doc, f, Options{
			Table: "trips", KeyColumn: "id", Dialect: sqlgen.Dialect("oracle"),
		})
		var dialectErr *errors.DialectError
		assert.ErrorAs(t, err, &dialectErr)
	})

	t.Run("frame missing a feature", func(t *testing.T) {
		narrow, err := dbframe.New([]int64{1}, []string{"trip_distance"}, mat.NewDense(1, 1, []float64{1}))
		require.NoError(t, err)
		_, err = SQLEquivalence(ctx, db, doc, narrow, Options{Table: "trips", KeyColumn: "id"})
		var valErr *errors.ValueError
		assert.ErrorAs(t, err, &valErr)
	})
}
