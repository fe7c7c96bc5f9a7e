package dbframe

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
)

// collectChunkSize bounds the number of literal keys per IN clause so
// generated statements stay within driver limits.
const collectChunkSize = 1000

// Table binds a database handle to one table and its unique integer key
// column. All reads go through the key column, which keeps collection
// order deterministic.
type Table struct {
	db   *sql.DB
	name string
	key  string
}

// Bind validates the identifiers and returns a handle for reading the
// table. It performs no I/O; the first query touches the database.
func Bind(db *sql.DB, table, keyColumn string) (*Table, error) {
	const op = "dbframe.Bind"
	if db == nil {
		return nil, errors.NewValueError(op, "db must not be nil")
	}
	if err := validIdent(op, table); err != nil {
		return nil, err
	}
	if err := validIdent(op, keyColumn); err != nil {
		return nil, err
	}
	return &Table{db: db, name: table, key: keyColumn}, nil
}

// Name returns the bound table name.
func (t *Table) Name() string { return t.name }

// KeyColumn returns the bound key column name.
func (t *Table) KeyColumn() string { return t.key }

// Count returns the number of rows with a non-NULL key.
func (t *Table) Count(ctx context.Context) (int64, error) {
	q := "SELECT COUNT(" + quoteIdent(t.key) + ") FROM " + quoteIdent(t.name)
	var n int64
	if err := t.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "Table.Count: query failed for %q", t.name)
	}
	return n, nil
}

// KeyRange returns the minimum key, maximum key and row count of the bound
// table. An empty table (or one whose keys are all NULL) returns
// ErrEmptyData.
func (t *Table) KeyRange(ctx context.Context) (lo, hi, count int64, err error) {
	k := quoteIdent(t.key)
	q := "SELECT MIN(" + k + "), MAX(" + k + "), COUNT(" + k + ") FROM " + quoteIdent(t.name)

	var minKey, maxKey sql.NullInt64
	if err := t.db.QueryRowContext(ctx, q).Scan(&minKey, &maxKey, &count); err != nil {
		return 0, 0, 0, errors.Wrapf(err, "Table.KeyRange: query failed for %q", t.name)
	}
	if count == 0 || !minKey.Valid || !maxKey.Valid {
		return 0, 0, 0, errors.Wrapf(errors.ErrEmptyData, "Table.KeyRange: table %q", t.name)
	}
	return minKey.Int64, maxKey.Int64, count, nil
}

// Collect reads the named columns for every row, ordered by key, and
// returns them as a frame. NULL values become NaN. A table with no rows
// returns ErrEmptyData.
func (t *Table) Collect(ctx context.Context, columns ...string) (*Frame, error) {
	const op = "Table.Collect"
	sel, err := t.selectClause(op, columns)
	if err != nil {
		return nil, err
	}
	k := quoteIdent(t.key)
	q := sel + " WHERE " + k + " IS NOT NULL ORDER BY " + k

	rows, err := t.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: query failed for %q", op, t.name)
	}
	defer rows.Close()

	return t.scanFrame(op, rows, columns)
}

// CollectByKeys reads the named columns for the given keys only, ordered by
// key. Keys absent from the table are silently skipped, so the frame may
// hold fewer rows than keys were requested. No matching row at all returns
// ErrEmptyData.
//
// The key list is split into chunks of at most collectChunkSize literal
// integers per statement.
func (t *Table) CollectByKeys(ctx context.Context, columns []string, keys []int64) (*Frame, error) {
	const op = "Table.CollectByKeys"
	if len(keys) == 0 {
		return nil, errors.NewValueError(op, "at least one key is required")
	}
	sel, err := t.selectClause(op, columns)
	if err != nil {
		return nil, err
	}

	// Chunks walk the keys in ascending order so concatenated results stay
	// globally ordered by key.
	sorted := append([]int64{}, keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var (
		outKeys []int64
		outVals []float64
	)
	k := quoteIdent(t.key)
	for start := 0; start < len(sorted); start += collectChunkSize {
		end := start + collectChunkSize
		if end > len(sorted) {
			end = len(sorted)
		}

		var b strings.Builder
		b.WriteString(sel)
		b.WriteString(" WHERE ")
		b.WriteString(k)
		b.WriteString(" IN (")
		for i, key := range sorted[start:end] {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(key, 10))
		}
		b.WriteString(") ORDER BY ")
		b.WriteString(k)

		chunkKeys, chunkVals, err := t.scanRows(ctx, op, b.String(), len(columns))
		if err != nil {
			return nil, err
		}
		outKeys = append(outKeys, chunkKeys...)
		outVals = append(outVals, chunkVals...)
	}

	if len(outKeys) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: no requested key found in %q", op, t.name)
	}

	logger := log.GetLoggerWithName("dbframe")
	logger.Debug("collected rows by key",
		log.TableKey, t.name,
		log.RowsKey, len(outKeys),
		"requested", len(keys),
	)

	return New(outKeys, columns, mat.NewDense(len(outKeys), len(columns), outVals))
}

// selectClause builds "SELECT key, c1, c2 FROM table" after validating the
// column names.
func (t *Table) selectClause(op string, columns []string) (string, error) {
	if len(columns) == 0 {
		return "", errors.NewValueError(op, "at least one column is required")
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(quoteIdent(t.key))
	for _, c := range columns {
		if err := validIdent(op, c); err != nil {
			return "", err
		}
		if c == t.key {
			return "", errors.Newf("%s: column %q is the key column", op, c)
		}
		b.WriteString(", ")
		b.WriteString(quoteIdent(c))
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(t.name))
	return b.String(), nil
}

// scanFrame drains rows into a frame of nCols value columns.
func (t *Table) scanFrame(op string, rows *sql.Rows, columns []string) (*Frame, error) {
	keys, vals, err := drain(op, rows, len(columns))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: table %q", op, t.name)
	}

	logger := log.GetLoggerWithName("dbframe")
	logger.Debug("collected rows",
		log.TableKey, t.name,
		log.RowsKey, len(keys),
	)

	return New(keys, columns, mat.NewDense(len(keys), len(columns), vals))
}

// scanRows runs one query and drains it without building a frame.
func (t *Table) scanRows(ctx context.Context, op, query string, nCols int) ([]int64, []float64, error) {
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s: query failed for %q", op, t.name)
	}
	defer rows.Close()
	return drain(op, rows, nCols)
}

// drain scans every row as one int64 key plus nCols nullable floats,
// mapping NULL to NaN.
func drain(op string, rows *sql.Rows, nCols int) ([]int64, []float64, error) {
	var (
		keys []int64
		vals []float64
	)
	cells := make([]sql.NullFloat64, nCols)
	dest := make([]interface{}, nCols+1)
	var key int64
	dest[0] = &key
	for i := range cells {
		dest[i+1] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, errors.Wrapf(err, "%s: scan failed", op)
		}
		keys = append(keys, key)
		for _, cell := range cells {
			vals = append(vals, nullToNaN(cell))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "%s: row iteration failed", op)
	}
	return keys, vals, nil
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return nan
	}
	return v.Float64
}

// validIdent accepts the usual unquoted SQL identifier shape. Everything
// the package interpolates into statements passes through here first.
func validIdent(op, name string) error {
	if name == "" {
		return errors.NewValueError(op, "empty identifier")
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return errors.Newf("%s: invalid identifier %q", op, name)
			}
		default:
			return errors.Newf("%s: invalid identifier %q", op, name)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
