// Package sqlequiv holds end-to-end tests for the export pipeline: fit or
// load a model, translate it into a portable document, render the document
// as a SQL expression, and check that the database computes the same
// predictions as the in-memory evaluator.
package sqlequiv

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newDB opens a throwaway file-backed SQLite database. A file (rather than
// :memory:) keeps every pooled connection on the same database.
func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "sqlequiv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// queryScalar evaluates one SQL expression against a single keyed row.
func queryScalar(t *testing.T, db *sql.DB, expr, table, keyColumn string, key int64) float64 {
	t.Helper()
	var v float64
	query := "SELECT " + expr + " FROM " + table + " WHERE " + keyColumn + " = ?"
	require.NoError(t, db.QueryRow(query, key).Scan(&v))
	return v
}
