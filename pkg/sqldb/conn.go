package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	_ "modernc.org/sqlite"

	"github.com/stripe/table-gateway/internal/util"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver maps a driver name onto a Driver. The empty string selects SQLite.
func ParseDriver(name string) (Driver, error) {
	switch Driver(strings.ToLower(name)) {
	case "", DriverSQLite, "sqlite3":
		return DriverSQLite, nil
	case DriverPostgres, "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unknown driver %q: must be one of %q or %q", name, DriverSQLite, DriverPostgres)
	}
}

func (d Driver) dialect() (Dialect, error) {
	switch d {
	case "", DriverSQLite:
		return sqliteDialect{}, nil
	case DriverPostgres:
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", d)
	}
}

// DialectFor returns the dialect used by the driver
func DialectFor(d Driver) (Dialect, error) {
	return d.dialect()
}

// Config identifies the database to open. For SQLite, DSN is the path of the database file
// (or ":memory:"). For Postgres, DSN is anything pgx.ParseConfig accepts.
type Config struct {
	Driver Driver
	DSN    string
}

type (
	// ConnectionError is returned when the database cannot be opened or reached
	ConnectionError struct {
		Driver Driver
		// Database is the SQLite path or the Postgres database name. It never carries credentials.
		Database string
		Err      error
	}

	// ExecutionError is returned when the database rejects a statement
	ExecutionError struct {
		Statement Statement
		Err       error
	}
)

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s database %q: %s", e.Driver, e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %s", e.Statement.SQL, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Conn owns exactly one connection to a database. It is not safe for concurrent use.
type Conn struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
	name    string
}

var _ Executor = (*Conn)(nil)

// Open opens the database described by cfg and pins a single connection to it. The returned Conn
// must be closed by the caller.
func Open(ctx context.Context, cfg Config) (_ *Conn, retErr error) {
	dialect, err := cfg.Driver.dialect()
	if err != nil {
		return nil, &ConnectionError{Driver: cfg.Driver, Err: err}
	}

	db, name, err := openDB(dialect.Driver(), cfg.DSN)
	connErr := func(err error) error {
		return &ConnectionError{Driver: dialect.Driver(), Database: name, Err: err}
	}
	if err != nil {
		return nil, connErr(err)
	}
	defer util.DoOnErrOrPanic(&retErr, func() {
		db.Close()
	})
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, connErr(fmt.Errorf("acquiring connection: %w", err))
	}
	defer util.DoOnErrOrPanic(&retErr, func() {
		conn.Close()
	})
	if err := conn.PingContext(ctx); err != nil {
		return nil, connErr(fmt.Errorf("pinging: %w", err))
	}

	return &Conn{
		db:      db,
		conn:    conn,
		dialect: dialect,
		name:    name,
	}, nil
}

// openDB returns the *sql.DB along with a name for the database that is safe to display
func openDB(driver Driver, dsn string) (*sql.DB, string, error) {
	switch driver {
	case DriverPostgres:
		connConfig, err := pgx.ParseConfig(dsn)
		if err != nil {
			// The error from pgx may echo the connection string, password included
			return nil, "", errors.New("could not parse connection string")
		}
		return stdlib.OpenDB(*connConfig), connConfig.Database, nil
	default:
		if dsn == "" {
			return nil, "", errors.New("database path must be set")
		}
		db, err := sql.Open("sqlite", dsn)
		return db, dsn, err
	}
}

func (c *Conn) Dialect() Dialect {
	return c.dialect
}

// Name returns the SQLite path or the Postgres database name
func (c *Conn) Name() string {
	return c.name
}

// Execute runs stmt in its own transaction and commits it immediately.
func (c *Conn) Execute(ctx context.Context, stmt Statement) (_ Result, retErr error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, &ExecutionError{Statement: stmt, Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer util.DoOnErrOrPanic(&retErr, func() {
		_ = tx.Rollback()
	})

	result, err := runStatement(ctx, tx, stmt)
	if err != nil {
		return Result{}, &ExecutionError{Statement: stmt, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return Result{}, &ExecutionError{Statement: stmt, Err: fmt.Errorf("committing: %w", err)}
	}
	return result, nil
}

// Close releases the connection. Statements executed afterwards fail.
func (c *Conn) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}
