package trips

import (
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ezoic/predsql/pkg/errors"
	"github.com/ezoic/predsql/pkg/log"
)

type fieldKind int

const (
	kindInt fieldKind = iota
	kindReal
	kindText
)

var columnKinds = map[string]fieldKind{
	"vendor_id":             kindInt,
	"pickup_datetime":       kindText,
	"dropoff_datetime":      kindText,
	"passenger_count":       kindInt,
	"trip_distance":         kindReal,
	"rate_code":             kindInt,
	"store_and_fwd_flag":    kindText,
	"pickup_longitude":      kindReal,
	"pickup_latitude":       kindReal,
	"dropoff_longitude":     kindReal,
	"dropoff_latitude":      kindReal,
	"payment_type":          kindText,
	"fare_amount":           kindReal,
	"extra":                 kindReal,
	"mta_tax":               kindReal,
	"tip_amount":            kindReal,
	"tolls_amount":          kindReal,
	"improvement_surcharge": kindReal,
	"total_amount":          kindReal,
}

// ImportCSV bulk-loads a CSV export into the trips table and returns the
// number of rows inserted.
//
// The first record must be a header row; every header must name a known
// schema column (case-insensitive), in any order and any subset. Blank
// fields load as NULL. Numeric fields that fail to parse abort the import
// with the offending row and column in the error.
func ImportCSV(ctx context.Context, db *sql.DB, r io.Reader) (n int, err error) {
	const op = "trips.ImportCSV"
	start := time.Now()

	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return 0, errors.NewValueError(op, "empty CSV input")
	}
	if err != nil {
		return 0, errors.Wrapf(err, "%s: failed to read header", op)
	}

	cols := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, known := columnKinds[name]; !known {
			return 0, errors.NewValueError(op, "unknown header "+strconv.Quote(h))
		}
		if _, dup := seen[name]; dup {
			return 0, errors.NewValueError(op, "duplicate header "+strconv.Quote(h))
		}
		seen[name] = struct{}{}
		cols[i] = name
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: failed to begin transaction", op)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, buildInsert(cols))
	if err != nil {
		return 0, errors.Wrapf(err, "%s: failed to prepare statement", op)
	}
	defer stmt.Close()

	args := make([]interface{}, len(cols))
	for rowNum := 2; ; rowNum++ {
		rec, rerr := cr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			err = errors.Wrapf(rerr, "%s: failed to read row %d", op, rowNum)
			return 0, err
		}
		for i, raw := range rec {
			args[i], err = parseField(cols[i], strings.TrimSpace(raw))
			if err != nil {
				err = errors.Wrapf(err, "%s: row %d column %q", op, rowNum, cols[i])
				return 0, err
			}
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			err = errors.Wrapf(err, "%s: failed to insert row %d", op, rowNum)
			return 0, err
		}
		n++
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrapf(err, "%s: failed to commit", op)
	}

	logger := log.GetLoggerWithName("trips")
	logger.Info("CSV import complete",
		log.TableKey, TableName,
		log.RowsKey, n,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return n, nil
}

func buildInsert(cols []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO trips (")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
	}
	b.WriteString(") VALUES (?")
	for i := 1; i < len(cols); i++ {
		b.WriteString(", ?")
	}
	b.WriteString(")")
	return b.String()
}

// parseField converts one CSV cell to its insert argument. Blank is NULL.
func parseField(col, raw string) (interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	switch columnKinds[col] {
	case kindInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Newf("invalid integer %q", raw)
		}
		return v, nil
	case kindReal:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Newf("invalid number %q", raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}
