package sqldb

import (
	"context"
	"database/sql"
	"fmt"
)

// Queryable represents something statements can be run against, e.g., *sql.Tx, *sql.Conn or *sql.DB.
// Conn runs every statement against a *sql.Tx so it can commit right after execution.
type Queryable interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Executor is the capability the gateway needs from a database: run one statement and commit it,
// describe the SQL dialect, and release the connection.
type Executor interface {
	Execute(ctx context.Context, stmt Statement) (Result, error)
	Dialect() Dialect
	Close() error
}

type (
	// Statement is a single SQL statement. ReturnsRows selects between a query and an exec.
	Statement struct {
		SQL         string
		Args        []any
		ReturnsRows bool
	}

	// Row is one result row in driver-native types, e.g., int64, float64, string, []byte or nil.
	Row []any

	Result struct {
		Columns []string
		// Rows is never nil for a statement that returns rows.
		Rows         []Row
		RowsAffected int64
	}
)

func (s Statement) String() string {
	return s.SQL
}

func runStatement(ctx context.Context, q Queryable, stmt Statement) (Result, error) {
	if !stmt.ReturnsRows {
		res, err := q.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return Result{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			// Not every driver reports affected rows for DDL.
			affected = 0
		}
		return Result{RowsAffected: affected}, nil
	}

	rows, err := q.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("reading columns: %w", err)
	}

	result := Result{Columns: columns, Rows: []Row{}}
	for rows.Next() {
		values := make(Row, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, fmt.Errorf("scanning row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterating over rows: %w", err)
	}
	return result, nil
}
