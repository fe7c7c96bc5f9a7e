package sqlequiv

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/boost"
	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/score"
	"github.com/ezoic/predsql/sqlgen"
)

// taxiModel is a two-tree regression model in the LightGBM text format.
// Tree 0 splits on trip_distance at 2.5 (missing defaults left) and on
// passenger_count at 1.5 in its right branch; tree 1 is a constant shift.
const taxiModel = `tree
version=v4
num_class=1
num_tree_per_iteration=1
label_index=0
max_feature_idx=1
objective=regression
feature_names=trip_distance passenger_count

Tree=0
num_leaves=3
num_cat=0
split_feature=0 1
split_gain=80 35
threshold=2.5 1.5
decision_type=2 0
left_child=-1 -2
right_child=1 -3
leaf_value=10.0 20.0 30.0
leaf_weight=12 9 9
leaf_count=12 9 9
internal_value=0 0
internal_weight=0 0
internal_count=30 18
is_linear=0
shrinkage=0.1

Tree=1
num_leaves=1
num_cat=0
split_feature=
split_gain=
threshold=
decision_type=
left_child=
right_child=
leaf_value=1.0
leaf_weight=30
leaf_count=30
internal_value=0
internal_weight=0
internal_count=30
is_linear=0
shrinkage=0.1

end of trees
`

// TestLightGBMFileToSQL walks the whole import path: parse a LightGBM text
// model, translate it to a portable document, round-trip the document
// through YAML, render SQL, and compare per-key predictions against the
// in-memory evaluator.
func TestLightGBMFileToSQL(t *testing.T) {
	m, err := boost.LoadFromString(taxiModel)
	require.NoError(t, err)
	require.Equal(t, []string{"trip_distance", "passenger_count"}, m.FeatureNames)

	doc, err := modelspec.FromModel(m, m.FeatureNames, "fare_amount")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, modelspec.WriteFile(path, doc))
	reloaded, err := modelspec.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, modelspec.KindTreeEnsemble, reloaded.Kind())
	assert.Equal(t, doc.FeatureNames(), reloaded.FeatureNames())
	assert.Equal(t, "fare_amount", reloaded.Target())

	db := newDB(t)
	_, err = db.Exec(`CREATE TABLE trips (id INTEGER PRIMARY KEY, trip_distance DOUBLE, passenger_count DOUBLE)`)
	require.NoError(t, err)
	rows := []struct {
		key              int64
		distance, pcount interface{}
		want             float64
	}{
		{1, 1.0, 1.0, 11}, // short trip: left leaf plus the constant tree
		{2, 3.0, 1.0, 21}, // long trip, single rider
		{3, 3.0, 2.0, 31}, // long trip, group
		{4, nil, 4.0, 11}, // unknown distance defaults left
		{5, 2.5, 9.0, 11}, // boundary distance routes left
	}
	for _, r := range rows {
		_, err := db.Exec("INSERT INTO trips (id, trip_distance, passenger_count) VALUES (?, ?, ?)",
			r.key, r.distance, r.pcount)
		require.NoError(t, err)
	}

	expr, err := sqlgen.Expression(reloaded, sqlgen.SQLite)
	require.NoError(t, err)
	keys := make([]int64, 0, len(rows))
	data := make([]float64, 0, len(rows)*2)
	for _, r := range rows {
		assert.InDelta(t, r.want, queryScalar(t, db, expr, "trips", "id", r.key), 1e-9, "key %d", r.key)
		keys = append(keys, r.key)
		data = append(data, asFloat(r.distance), asFloat(r.pcount))
	}

	f, err := dbframe.New(keys, []string{"trip_distance", "passenger_count"}, mat.NewDense(len(rows), 2, data))
	require.NoError(t, err)
	report, err := score.SQLEquivalence(context.Background(), db, reloaded, f, score.Options{
		Table:     "trips",
		KeyColumn: "id",
	})
	require.NoError(t, err)
	assert.True(t, report.Passed)
	assert.Equal(t, len(rows), report.Rows)
	assert.Zero(t, report.Skipped)

	// The batch query scores every row in key order.
	query, err := sqlgen.PredictionQuery(reloaded, sqlgen.SQLite, "trips", "id")
	require.NoError(t, err)
	rs, err := db.Query(query)
	require.NoError(t, err)
	defer rs.Close()
	var got []int64
	for rs.Next() {
		var key int64
		var pred sql.NullFloat64
		require.NoError(t, rs.Scan(&key, &pred))
		require.True(t, pred.Valid, "tree predictions never come back NULL")
		assert.InDelta(t, rows[key-1].want, pred.Float64, 1e-9, "key %d", key)
		got = append(got, key)
	}
	require.NoError(t, rs.Err())
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, got)

	// A NaN feature in memory behaves like the NULL row in the table.
	memMissing, err := reloaded.Predict([]float64{math.NaN(), 4.0})
	require.NoError(t, err)
	assert.InDelta(t, 11.0, memMissing, 1e-9)
}
