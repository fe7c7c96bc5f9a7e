// Package trips defines the taxi-trip dataset: its SQLite schema, bulk
// loading from program records or CSV exports, and the binding that hands
// the table to the dbframe layer.
//
// Every row carries a dense integer key `id` used only for sampling, never
// as a domain attribute.
package trips

import (
	"context"
	"database/sql"
	"math"

	_ "modernc.org/sqlite"

	"github.com/ezoic/predsql/dbframe"
	"github.com/ezoic/predsql/pkg/errors"
)

// TableName is the dataset's table name.
const TableName = "trips"

// KeyColumn is the dense integer sampling key.
const KeyColumn = "id"

// Columns lists the data columns in schema order, key excluded.
var Columns = []string{
	"vendor_id",
	"pickup_datetime",
	"dropoff_datetime",
	"passenger_count",
	"trip_distance",
	"rate_code",
	"store_and_fwd_flag",
	"pickup_longitude",
	"pickup_latitude",
	"dropoff_longitude",
	"dropoff_latitude",
	"payment_type",
	"fare_amount",
	"extra",
	"mta_tax",
	"tip_amount",
	"tolls_amount",
	"improvement_surcharge",
	"total_amount",
}

// NumericColumns lists the modeling-eligible numeric columns. Identifier
// and code columns (vendor_id, rate_code) and text columns are excluded.
var NumericColumns = []string{
	"passenger_count",
	"trip_distance",
	"pickup_longitude",
	"pickup_latitude",
	"dropoff_longitude",
	"dropoff_latitude",
	"fare_amount",
	"extra",
	"mta_tax",
	"tip_amount",
	"tolls_amount",
	"improvement_surcharge",
	"total_amount",
}

// Trip is one fully populated record. Float fields set to NaN are stored
// as NULL.
type Trip struct {
	VendorID             int64
	PickupDatetime       string
	DropoffDatetime      string
	PassengerCount       int64
	TripDistance         float64
	RateCode             int64
	StoreAndFwdFlag      string
	PickupLongitude      float64
	PickupLatitude       float64
	DropoffLongitude     float64
	DropoffLatitude      float64
	PaymentType          string
	FareAmount           float64
	Extra                float64
	MTATax               float64
	TipAmount            float64
	TollsAmount          float64
	ImprovementSurcharge float64
	TotalAmount          float64
}

// Open opens (or creates) a SQLite database at path. Use ":memory:" for an
// in-process throwaway database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "trips.Open: failed to open %q", path)
	}
	return db, nil
}

// CreateTable creates the trips table if it does not exist yet.
func CreateTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vendor_id INTEGER,
			pickup_datetime TEXT,
			dropoff_datetime TEXT,
			passenger_count INTEGER,
			trip_distance REAL,
			rate_code INTEGER,
			store_and_fwd_flag TEXT,
			pickup_longitude REAL,
			pickup_latitude REAL,
			dropoff_longitude REAL,
			dropoff_latitude REAL,
			payment_type TEXT,
			fare_amount REAL,
			extra REAL,
			mta_tax REAL,
			tip_amount REAL,
			tolls_amount REAL,
			improvement_surcharge REAL,
			total_amount REAL
		);
	`)
	if err != nil {
		return errors.Wrap(err, "trips.CreateTable: failed to create table")
	}
	return nil
}

// Insert loads records in one transaction through a prepared statement.
func Insert(ctx context.Context, db *sql.DB, records []Trip) (err error) {
	const op = "trips.Insert"
	if len(records) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "%s: failed to begin transaction", op)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertStatement())
	if err != nil {
		return errors.Wrapf(err, "%s: failed to prepare statement", op)
	}
	defer stmt.Close()

	for i := range records {
		if _, err = stmt.ExecContext(ctx, insertArgs(&records[i])...); err != nil {
			return errors.Wrapf(err, "%s: failed to insert record %d", op, i)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "%s: failed to commit", op)
	}
	return nil
}

// Bind hands the trips table to the dbframe layer, keyed on id.
func Bind(db *sql.DB) (*dbframe.Table, error) {
	return dbframe.Bind(db, TableName, KeyColumn)
}

func insertStatement() string {
	q := "INSERT INTO trips ("
	for i, c := range Columns {
		if i > 0 {
			q += ", "
		}
		q += c
	}
	q += ") VALUES (?"
	for i := 1; i < len(Columns); i++ {
		q += ", ?"
	}
	return q + ")"
}

func insertArgs(t *Trip) []interface{} {
	return []interface{}{
		t.VendorID,
		nullifyStr(t.PickupDatetime),
		nullifyStr(t.DropoffDatetime),
		t.PassengerCount,
		nullify(t.TripDistance),
		t.RateCode,
		nullifyStr(t.StoreAndFwdFlag),
		nullify(t.PickupLongitude),
		nullify(t.PickupLatitude),
		nullify(t.DropoffLongitude),
		nullify(t.DropoffLatitude),
		nullifyStr(t.PaymentType),
		nullify(t.FareAmount),
		nullify(t.Extra),
		nullify(t.MTATax),
		nullify(t.TipAmount),
		nullify(t.TollsAmount),
		nullify(t.ImprovementSurcharge),
		nullify(t.TotalAmount),
	}
}

// nullify maps NaN to SQL NULL.
func nullify(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nullifyStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
