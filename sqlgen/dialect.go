package sqlgen

import (
	"strings"

	"github.com/ezoic/predsql/pkg/errors"
)

// Dialect selects the SQL flavor the generator emits. The generated
// arithmetic is identical across dialects; only identifier quoting differs.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect maps a user-supplied dialect name to a Dialect. Matching is
// case-insensitive. An unknown name is a DialectError, never a fallback.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case SQLite, Postgres, MySQL:
		return d, nil
	default:
		return "", errors.NewDialectError("ParseDialect", s)
	}
}

// String returns the dialect name.
func (d Dialect) String() string { return string(d) }

// known reports whether d is one of the supported dialects. Exported entry
// points check this so a hand-constructed Dialect value cannot slip through
// with wrong quoting.
func (d Dialect) known() bool {
	switch d {
	case SQLite, Postgres, MySQL:
		return true
	}
	return false
}

// Quote renders a column or table identifier for the dialect: double quotes
// for sqlite and postgres, backticks for mysql. An embedded quote character
// is doubled.
func (d Dialect) Quote(name string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
