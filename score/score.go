// Package score validates that a generated SQL expression reproduces a
// model document's in-memory predictions.
//
// The equivalence contract is per-row and absolute: both sides predict the
// same keyed rows, and the run passes when every absolute difference stays
// at or below the tolerance. Rows where either side is missing (NaN in
// memory, NULL in the database) are skipped and counted rather than
// compared. A failed comparison is a reported result, not an error; only
// infrastructure failures (bad SQL, unreachable table) abort.
package score

import (
	"context"
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
	"github.com/ezoic/predsql/sqlgen"
)

// DefaultTolerance is the absolute per-row difference allowed between an
// in-memory prediction and its SQL counterpart. Float64 round-tripping
// through SQL text stays far below it; a wrong tie-break or a wrong tree
// blows straight past it.
const DefaultTolerance = 1e-6

// queryChunkSize bounds the number of literal keys per IN clause, matching
// the dbframe collection limit.
const queryChunkSize = 1000

// Options configures an equivalence run.
type Options struct {
	// Tolerance is the allowed absolute per-row difference. Zero or
	// negative means DefaultTolerance.
	Tolerance float64

	// Dialect selects the SQL flavor; empty means sqlgen.SQLite.
	Dialect sqlgen.Dialect

	// Table and KeyColumn name the scored table. Both are required.
	Table     string
	KeyColumn string
}

// Report is the outcome of one equivalence run.
type Report struct {
	// Rows is the number of rows compared on both sides.
	Rows int

	// Skipped counts rows where either side was missing: NaN in memory,
	// NULL in SQL, or no SQL row for the key.
	Skipped int

	// Exceeded counts compared rows whose absolute difference was above
	// the tolerance.
	Exceeded int

	// MaxAbsDiff is the largest absolute difference seen, and WorstKey the
	// key it occurred at. Zero rows compared leaves both at their zero
	// values.
	MaxAbsDiff float64
	WorstKey   int64

	// RMSE is the root mean squared difference over the compared rows.
	RMSE float64

	// Tolerance is the threshold the run was judged against.
	Tolerance float64

	// Passed reports whether no compared row exceeded the tolerance.
	Passed bool
}

// Compare checks keyed prediction pairs against a tolerance.
//
// keys, inMemory and inDB must have equal lengths; position i of each slice
// belongs to keys[i]. A pair with a NaN on either side is skipped and
// counted. A negative tolerance is a ValueError; zero demands exact
// equality.
func Compare(keys []int64, inMemory, inDB []float64, tolerance float64) (*Report, error) {
	const op = "score.Compare"
	if len(inMemory) != len(keys) {
		return nil, errors.NewDimensionError(op, len(keys), len(inMemory), 0)
	}
	if len(inDB) != len(keys) {
		return nil, errors.NewDimensionError(op, len(keys), len(inDB), 0)
	}
	if tolerance < 0 {
		return nil, errors.NewValueError(op, "tolerance must not be negative")
	}

	report := &Report{Tolerance: tolerance}
	var sumSq float64
	for i, key := range keys {
		m, d := inMemory[i], inDB[i]
		if math.IsNaN(m) || math.IsNaN(d) {
			report.Skipped++
			continue
		}
		diff := math.Abs(m - d)
		report.Rows++
		sumSq += diff * diff
		if diff > report.MaxAbsDiff || report.Rows == 1 {
			report.MaxAbsDiff = diff
			report.WorstKey = key
		}
		if diff > tolerance {
			report.Exceeded++
		}
	}
	if report.Rows > 0 {
		report.RMSE = math.Sqrt(sumSq / float64(report.Rows))
	}
	report.Passed = report.Exceeded == 0
	return report, nil
}

// SQLEquivalence predicts every row of f twice, once in memory through the
// model document and once inside the database through the generated SQL
// expression, and compares the results.
//
// The frame must hold every feature column the document names; its keys
// restrict the SQL side, so both predictions cover exactly the same rows.
// An exceeded tolerance is logged as a warning and reported with
// Passed=false; the returned error is reserved for infrastructure failures
// such as malformed SQL or a missing table.
func SQLEquivalence(ctx context.Context, db *sql.DB, s modelspec.Spec, f *dbframe.Frame, opts Options) (*Report, error) {
	const op = "score.SQLEquivalence"
	start := time.Now()

	if db == nil {
		return nil, errors.NewValueError(op, "db must not be nil")
	}
	if s == nil {
		return nil, errors.NewValueError(op, "model document must not be nil")
	}
	if f == nil {
		return nil, errors.NewValueError(op, "frame must not be nil")
	}
	if opts.Table == "" {
		return nil, errors.NewValueError(op, "table name is required")
	}
	if opts.KeyColumn == "" {
		return nil, errors.NewValueError(op, "key column is required")
	}

	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	dialect := opts.Dialect
	if dialect == "" {
		dialect = sqlgen.SQLite
	}

	features := s.FeatureNames()
	inMemory, err := memoryPredictions(s, f, features)
	if err != nil {
		return nil, err
	}

	keys := f.Keys()
	inDB, err := sqlPredictions(ctx, db, s, dialect, opts.Table, opts.KeyColumn, keys)
	if err != nil {
		return nil, err
	}

	report, err := Compare(keys, inMemory, inDB, tolerance)
	if err != nil {
		return nil, err
	}

	logger := log.GetLoggerWithName("score")
	if report.Passed {
		logger.Info("predictions agree",
			log.OperationKey, log.OperationScore,
			log.TableKey, opts.Table,
			log.DialectKey, string(dialect),
			log.RowsKey, report.Rows,
			"skipped", report.Skipped,
			"max_abs_diff", report.MaxAbsDiff,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	} else {
		logger.Warn("predictions disagree beyond tolerance",
			log.OperationKey, log.OperationScore,
			log.TableKey, opts.Table,
			log.DialectKey, string(dialect),
			log.RowsKey, report.Rows,
			"exceeded", report.Exceeded,
			"max_abs_diff", report.MaxAbsDiff,
			"worst_key", report.WorstKey,
			"tolerance", tolerance,
		)
	}
	return report, nil
}

// memoryPredictions evaluates the document over every frame row. A frame
// that lacks a feature column is a ValueError naming the column.
func memoryPredictions(s modelspec.Spec, f *dbframe.Frame, features []string) ([]float64, error) {
	const op = "score.SQLEquivalence"
	for _, name := range features {
		if !f.Has(name) {
			return nil, errors.NewValueError(op, "frame is missing feature column "+strconv.Quote(name))
		}
	}
	X, err := f.Select(features...)
	if err != nil {
		return nil, err
	}

	out := make([]float64, f.NumRows())
	row := make([]float64, len(features))
	for i := range out {
		for j := range features {
			row[j] = X.At(i, j)
		}
		p, err := s.Predict(row)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// sqlPredictions runs the generated expression over exactly the given keys
// and returns predictions aligned with them. A key with no row, or a NULL
// prediction, yields NaN at its position.
func sqlPredictions(ctx context.Context, db *sql.DB, s modelspec.Spec, d sqlgen.Dialect, table, keyColumn string, keys []int64) ([]float64, error) {
	const op = "score.SQLEquivalence"

	expr, err := sqlgen.Expression(s, d)
	if err != nil {
		return nil, err
	}

	byKey := make(map[int64]float64, len(keys))
	for start := 0; start < len(keys); start += queryChunkSize {
		end := start + queryChunkSize
		if end > len(keys) {
			end = len(keys)
		}

		var b strings.Builder
		b.WriteString("SELECT ")
		b.WriteString(d.Quote(keyColumn))
		b.WriteString(", ")
		b.WriteString(expr)
		b.WriteString(" FROM ")
		b.WriteString(d.Quote(table))
		b.WriteString(" WHERE ")
		b.WriteString(d.Quote(keyColumn))
		b.WriteString(" IN (")
		for i, key := range keys[start:end] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(key, 10))
		}
		b.WriteByte(')')

		rows, err := db.QueryContext(ctx, b.String())
		if err != nil {
			return nil, errors.Wrapf(err, "%s: prediction query failed for %q", op, table)
		}
		for rows.Next() {
			var key int64
			var pred sql.NullFloat64
			if err := rows.Scan(&key, &pred); err != nil {
				rows.Close()
				return nil, errors.Wrapf(err, "%s: scan failed", op)
			}
			if pred.Valid {
				byKey[key] = pred.Float64
			} else {
				byKey[key] = math.NaN()
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, errors.Wrapf(err, "%s: row iteration failed", op)
		}
		rows.Close()
	}

	out := make([]float64, len(keys))
	for i, key := range keys {
		if v, ok := byKey[key]; ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}
