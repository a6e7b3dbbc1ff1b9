package sqldb

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect captures what differs between database engines when building SQL text.
//
// DescribeTable must return one row per column, in catalog order, shaped like SQLite's
// PRAGMA table_info: (position, name, type, notnull, default, pk).
type Dialect interface {
	Driver() Driver
	QuoteIdentifier(ident string) string
	QuoteLiteral(literal string) string
	// Placeholder returns the bind parameter marker for the 1-based position.
	Placeholder(position int) string
	ListTables() Statement
	DescribeTable(table string) Statement
}

type sqliteDialect struct{}

func (sqliteDialect) Driver() Driver {
	return DriverSQLite
}

func (sqliteDialect) QuoteIdentifier(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (sqliteDialect) QuoteLiteral(literal string) string {
	return `'` + strings.ReplaceAll(literal, `'`, `''`) + `'`
}

func (sqliteDialect) Placeholder(int) string {
	return "?"
}

func (sqliteDialect) ListTables() Statement {
	return Statement{
		SQL:         "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		ReturnsRows: true,
	}
}

func (d sqliteDialect) DescribeTable(table string) Statement {
	return Statement{
		SQL:         fmt.Sprintf("PRAGMA table_info(%s)", d.QuoteIdentifier(table)),
		ReturnsRows: true,
	}
}

type postgresDialect struct{}

func (postgresDialect) Driver() Driver {
	return DriverPostgres
}

func (postgresDialect) QuoteIdentifier(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (postgresDialect) QuoteLiteral(literal string) string {
	return pq.QuoteLiteral(literal)
}

func (postgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (postgresDialect) ListTables() Statement {
	return Statement{
		SQL: `SELECT table_name::text
FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		ReturnsRows: true,
	}
}

func (postgresDialect) DescribeTable(table string) Statement {
	return Statement{
		SQL: `SELECT
	(c.ordinal_position - 1)::int,
	c.column_name::text,
	c.data_type::text,
	(c.is_nullable = 'NO')::int,
	c.column_default::text,
	EXISTS (
		SELECT 1
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = c.table_schema
			AND tc.table_name = c.table_name
			AND kcu.column_name = c.column_name
	)::int
FROM information_schema.columns c
WHERE c.table_schema = current_schema() AND c.table_name = $1
ORDER BY c.ordinal_position`,
		Args:        []any{table},
		ReturnsRows: true,
	}
}
