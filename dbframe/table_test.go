package dbframe

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ezoic/predsql/pkg/errors"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "frame_test.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE trips (
			id INTEGER PRIMARY KEY,
			trip_distance DOUBLE,
			fare_amount DOUBLE
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func seedTrips(t *testing.T, db *sql.DB) {
	t.Helper()
	rows := []struct {
		id       int64
		distance interface{}
		fare     interface{}
	}{
		{1, 1.0, 5.5},
		{3, 2.5, nil}, // NULL fare
		{7, 4.0, 18.0},
		{9, nil, 7.25}, // NULL distance
	}
	for _, r := range rows {
		_, err := db.Exec(
			"INSERT INTO trips (id, trip_distance, fare_amount) VALUES (?, ?, ?)",
			r.id, r.distance, r.fare,
		)
		if err != nil {
			t.Fatalf("Failed to insert row %d: %v", r.id, err)
		}
	}
}

func TestBindValidation(t *testing.T) {
	db := setupTestDB(t)

	_, err := Bind(nil, "trips", "id")
	assert.Error(t, err)

	_, err = Bind(db, "trips; DROP TABLE trips", "id")
	assert.Error(t, err)

	_, err = Bind(db, "trips", "1id")
	assert.Error(t, err)

	_, err = Bind(db, "", "id")
	assert.Error(t, err)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)
	assert.Equal(t, "trips", tab.Name())
	assert.Equal(t, "id", tab.KeyColumn())
}

func TestKeyRange(t *testing.T) {
	db := setupTestDB(t)
	seedTrips(t, db)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	lo, hi, count, err := tab.KeyRange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), lo)
	assert.Equal(t, int64(9), hi)
	assert.Equal(t, int64(4), count)
}

func TestKeyRangeEmptyTable(t *testing.T) {
	db := setupTestDB(t)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	_, _, _, err = tab.KeyRange(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestCount(t *testing.T) {
	db := setupTestDB(t)
	seedTrips(t, db)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	n, err := tab.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestCollect(t *testing.T) {
	db := setupTestDB(t)
	seedTrips(t, db)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	f, err := tab.Collect(context.Background(), "trip_distance", "fare_amount")
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3, 7, 9}, f.Keys())
	assert.Equal(t, []string{"trip_distance", "fare_amount"}, f.Names())

	// NULLs surface as NaN.
	assert.True(t, math.IsNaN(f.At(1, 1)))
	assert.True(t, math.IsNaN(f.At(3, 0)))
	assert.Equal(t, 18.0, f.At(2, 1))
}

func TestCollectEmptyTable(t *testing.T) {
	db := setupTestDB(t)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	_, err = tab.Collect(context.Background(), "trip_distance")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestCollectRejectsBadColumns(t *testing.T) {
	db := setupTestDB(t)
	seedTrips(t, db)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	ctx := context.Background()

	_, err = tab.Collect(ctx)
	assert.Error(t, err)

	_, err = tab.Collect(ctx, "fare; --")
	assert.Error(t, err)

	// The key column rides along implicitly and cannot be requested twice.
	_, err = tab.Collect(ctx, "id")
	assert.Error(t, err)

	// Unknown column surfaces the database error.
	_, err = tab.Collect(ctx, "no_such_column")
	assert.Error(t, err)
}

func TestCollectByKeys(t *testing.T) {
	db := setupTestDB(t)
	seedTrips(t, db)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	// Unsorted input with gaps; 2 and 5 do not exist.
	f, err := tab.CollectByKeys(context.Background(), []string{"fare_amount"}, []int64{7, 2, 1, 5})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 7}, f.Keys())
	assert.Equal(t, 5.5, f.At(0, 0))
	assert.Equal(t, 18.0, f.At(1, 0))
}

func TestCollectByKeysNoneFound(t *testing.T) {
	db := setupTestDB(t)
	seedTrips(t, db)

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	_, err = tab.CollectByKeys(context.Background(), []string{"fare_amount"}, []int64{100, 200})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestCollectByKeysChunking(t *testing.T) {
	db := setupTestDB(t)

	tx, err := db.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare("INSERT INTO trips (id, trip_distance, fare_amount) VALUES (?, ?, ?)")
	require.NoError(t, err)
	const n = 2500
	for i := 1; i <= n; i++ {
		_, err := stmt.Exec(int64(i), float64(i)*0.1, float64(i))
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())

	tab, err := Bind(db, "trips", "id")
	require.NoError(t, err)

	keys := make([]int64, n)
	for i := range keys {
		keys[i] = int64(i + 1)
	}

	f, err := tab.CollectByKeys(context.Background(), []string{"fare_amount"}, keys)
	require.NoError(t, err)
	require.Equal(t, n, f.NumRows())

	// Keys stay globally ordered across chunk boundaries.
	got := f.Keys()
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1], got[i])
	}
	assert.Equal(t, float64(1500), f.At(1499, 0))
}
