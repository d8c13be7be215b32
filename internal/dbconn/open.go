// Package dbconn opens the target database and carries the per-driver
// details (bind-placeholder style, DSN defaults) the rest of the system
// needs. Everything else about connections is the driver's business.
package dbconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"    // register duckdb as a database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"    // register pgx as a database/sql driver
	_ "modernc.org/sqlite"                // pure go sqlite driver
)

// ErrUnknownDriver is returned for driver names outside the supported set.
var ErrUnknownDriver = errors.New("dbconn: unknown driver")

// Driver identifies a supported database backend.
type Driver string

const (
	DriverPostgres Driver = "postgres" // PostgreSQL via pgx
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverDuckDB   Driver = "duckdb"   // embedded duckdb (in-memory when DSN is empty)
)

const (
	defaultPostgresDSN = "postgres://localhost/procstore?sslmode=disable"
	defaultSQLitePath  = "./procstore.db"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// DB couples an open connection with its driver's placeholder style.
type DB struct {
	*sql.DB
	driver Driver
}

// Driver returns the backend the connection was opened with.
func (d *DB) Driver() Driver { return d.driver }

// Placeholder renders the 1-based i-th bind placeholder for this driver.
func (d *DB) Placeholder(i int) string {
	if d.driver == DriverPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// Placeholders renders n comma-separated placeholders starting at 1.
func (d *DB) Placeholders(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ","
		}
		out += d.Placeholder(i)
	}
	return out
}

// Open connects to the named backend and pings it. An empty DSN falls back
// to a per-driver default (duckdb's default is an in-memory database).
func Open(ctx context.Context, driver Driver, dsn string) (*DB, error) {
	var name string
	switch driver {
	case DriverPostgres:
		name = "pgx"
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
	case DriverSQLite:
		name = "sqlite"
		if dsn == "" {
			dsn = defaultSQLitePath
		}
	case DriverDuckDB:
		name = "duckdb"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
	openMu.Lock()
	db, err := sqlOpen(name, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &DB{DB: db, driver: driver}, nil
}

// OpenFromEnv selects the backend from process environment.
// Defaults to sqlite when unset.
//
//	PROCSTORE_DB_DRIVER: postgres|sqlite|duckdb (default sqlite)
//	PROCSTORE_DB_DSN: driver DSN (per-driver default when empty)
func OpenFromEnv(ctx context.Context) (*DB, error) {
	driver := os.Getenv("PROCSTORE_DB_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	return Open(ctx, Driver(driver), os.Getenv("PROCSTORE_DB_DSN"))
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
