// Package sqlgen renders portable model documents as SQL.
//
// A fitted model exported through modelspec can be evaluated entirely inside
// a database: Expression turns a document into one scalar SQL expression
// over the feature columns, and PredictionQuery wraps that expression in a
// full SELECT. The generated SQL reproduces in-memory predictions to within
// float64 text round-tripping (the score package checks this contract).
//
// Linear documents render as a sum of products:
//
//	(2.5 + 1.5 * "trip_distance" + -3 * "passenger_count")
//
// Tree ensembles render as the init score plus one nested CASE expression
// per tree:
//
//	(15 + (CASE WHEN "trip_distance" <= 2.5 THEN 1 ELSE 2 END) + (0.5))
//
// Routing matches the in-memory convention exactly: a feature value at or
// below the threshold takes the THEN branch, a greater value the ELSE
// branch. Splits with default_left set emit
//
//	WHEN ("f" IS NULL OR "f" <= t) THEN left ELSE right
//
// and plain splits emit WHEN "f" <= t THEN left ELSE right, so a SQL NULL
// falls through to ELSE exactly as a NaN routes right in memory. Numbers are
// written with strconv.FormatFloat(v, 'g', -1, 64), the shortest text that
// reparses to the identical float64.
package sqlgen

import (
	"strconv"
	"strings"

	"github.com/ezoic/predsql/modelspec"
	"github.com/ezoic/predsql/pkg/errors"
)

// Expression renders a model document as a single SQL scalar expression over
// its feature columns. The document is validated first; a kind the generator
// does not know yields an UnsupportedModelError and an unknown dialect a
// DialectError.
func Expression(s modelspec.Spec, d Dialect) (string, error) {
	const op = "sqlgen.Expression"
	if !d.known() {
		return "", errors.NewDialectError(op, string(d))
	}
	if s == nil {
		return "", errors.NewValueError(op, "nil model document")
	}
	if err := s.Validate(); err != nil {
		return "", errors.Wrapf(err, "%s: invalid model document", op)
	}

	switch m := s.(type) {
	case *modelspec.Linear:
		return linearExpression(m, d), nil
	case *modelspec.Ensemble:
		return ensembleExpression(m, d), nil
	default:
		return "", errors.NewUnsupportedModelError(op, s)
	}
}

// PredictionQuery wraps the model expression in a full query:
//
//	SELECT "key", <expr> AS prediction FROM "table" ORDER BY "key"
//
// Rows come back ordered by the key column so callers can line predictions
// up against in-memory results.
func PredictionQuery(s modelspec.Spec, d Dialect, table, keyColumn string) (string, error) {
	const op = "sqlgen.PredictionQuery"
	if table == "" {
		return "", errors.NewValueError(op, "table name is required")
	}
	if keyColumn == "" {
		return "", errors.NewValueError(op, "key column is required")
	}
	expr, err := Expression(s, d)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(d.Quote(keyColumn))
	b.WriteString(", ")
	b.WriteString(expr)
	b.WriteString(" AS prediction FROM ")
	b.WriteString(d.Quote(table))
	b.WriteString(" ORDER BY ")
	b.WriteString(d.Quote(keyColumn))
	return b.String(), nil
}

func linearExpression(m *modelspec.Linear, d Dialect) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(formatFloat(m.Intercept))
	for i, c := range m.Coefficients {
		b.WriteString(" + ")
		b.WriteString(formatFloat(c))
		b.WriteString(" * ")
		b.WriteString(d.Quote(m.Features[i]))
	}
	b.WriteByte(')')
	return b.String()
}

func ensembleExpression(m *modelspec.Ensemble, d Dialect) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(formatFloat(m.InitScore))
	for ti := range m.Trees {
		b.WriteString(" + (")
		writeNode(&b, &m.Trees[ti], 0, m.Features, d)
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return b.String()
}

// writeNode renders the subtree rooted at idx: leaves as their value, splits
// as a CASE whose branches are rendered recursively. Validate has already
// established that the node graph is a proper binary tree, so the recursion
// terminates.
func writeNode(b *strings.Builder, t *modelspec.Tree, idx int, features []string, d Dialect) {
	n := &t.Nodes[idx]
	if n.Leaf {
		b.WriteString(formatFloat(n.Value))
		return
	}

	col := d.Quote(features[n.Feature])
	threshold := formatFloat(n.Threshold)

	b.WriteString("CASE WHEN ")
	if n.DefaultLeft {
		b.WriteByte('(')
		b.WriteString(col)
		b.WriteString(" IS NULL OR ")
		b.WriteString(col)
		b.WriteString(" <= ")
		b.WriteString(threshold)
		b.WriteByte(')')
	} else {
		b.WriteString(col)
		b.WriteString(" <= ")
		b.WriteString(threshold)
	}
	b.WriteString(" THEN ")
	writeNode(b, t, n.Left, features, d)
	b.WriteString(" ELSE ")
	writeNode(b, t, n.Right, features, d)
	b.WriteString(" END")
}

// formatFloat writes v in the shortest form that reparses to the same
// float64. Non-finite values never reach here: Validate rejects them.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
