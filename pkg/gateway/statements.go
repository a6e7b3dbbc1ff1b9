package gateway

import (
	"fmt"
	"strings"

	"github.com/stripe/table-gateway/pkg/sqldb"
)

// ValueMode controls how InsertRow puts values into the INSERT statement.
type ValueMode int

const (
	// ValueModeBind sends values as bind parameters.
	ValueModeBind ValueMode = iota
	// ValueModeQuotedLiterals renders every value, whatever its type, as a quoted string literal inside the
	// statement text. Numbers then rely on the column's declared type to be read back as numbers.
	ValueModeQuotedLiterals
)

func (m ValueMode) String() string {
	switch m {
	case ValueModeBind:
		return "bind"
	case ValueModeQuotedLiterals:
		return "literal"
	default:
		return fmt.Sprintf("ValueMode(%d)", int(m))
	}
}

// ParseValueMode parses the names returned by ValueMode.String
func ParseValueMode(name string) (ValueMode, error) {
	switch strings.ToLower(name) {
	case "", "bind":
		return ValueModeBind, nil
	case "literal":
		return ValueModeQuotedLiterals, nil
	default:
		return 0, fmt.Errorf("unknown value mode %q: must be %q or %q", name, ValueModeBind, ValueModeQuotedLiterals)
	}
}

// Query selects rows. Columns, Where and OrderBy are inserted verbatim; empty means omitted and no columns
// selects every column.
type Query struct {
	Columns []string
	Where   string
	OrderBy string
}

func createTableStatement(d sqldb.Dialect, table string, definitions []string) sqldb.Statement {
	return sqldb.Statement{
		SQL: fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdentifier(table), strings.Join(definitions, ", ")),
	}
}

func insertStatement(d sqldb.Dialect, mode ValueMode, table string, columns []string, values []any) sqldb.Statement {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteIdentifier(table))
	// Without catalog columns the table is most likely missing; leaving the column list out lets the
	// database say so instead of failing on the syntax.
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = d.QuoteIdentifier(c)
		}
		sb.WriteString(" (")
		sb.WriteString(strings.Join(quoted, ", "))
		sb.WriteString(")")
	}

	stmt := sqldb.Statement{}
	valueSQL := make([]string, len(values))
	for i, v := range values {
		switch mode {
		case ValueModeQuotedLiterals:
			valueSQL[i] = quotedLiteral(d, v)
		default:
			valueSQL[i] = d.Placeholder(i + 1)
			stmt.Args = append(stmt.Args, v)
		}
	}
	sb.WriteString(" VALUES (")
	sb.WriteString(strings.Join(valueSQL, ", "))
	sb.WriteString(")")

	stmt.SQL = sb.String()
	return stmt
}

func quotedLiteral(d sqldb.Dialect, v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return d.QuoteLiteral(string(val))
	default:
		return d.QuoteLiteral(fmt.Sprint(val))
	}
}

func selectStatement(d sqldb.Dialect, table string, q Query) sqldb.Statement {
	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ", ")
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", columns, d.QuoteIdentifier(table))
	if q.Where != "" {
		sql += " WHERE " + q.Where
	}
	if q.OrderBy != "" {
		sql += " ORDER BY " + q.OrderBy
	}
	return sqldb.Statement{SQL: sql, ReturnsRows: true}
}

func updateStatement(d sqldb.Dialect, table, set, where string) sqldb.Statement {
	return sqldb.Statement{
		SQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s", d.QuoteIdentifier(table), set, where),
	}
}

func deleteStatement(d sqldb.Dialect, table, where string) sqldb.Statement {
	sql := fmt.Sprintf("DELETE FROM %s", d.QuoteIdentifier(table))
	if where != "" {
		sql += " WHERE " + where
	}
	return sqldb.Statement{SQL: sql}
}

func dropTableStatement(d sqldb.Dialect, table string) sqldb.Statement {
	return sqldb.Statement{SQL: fmt.Sprintf("DROP TABLE %s", d.QuoteIdentifier(table))}
}

func renameTableStatement(d sqldb.Dialect, table, newName string) sqldb.Statement {
	return sqldb.Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdentifier(table), d.QuoteIdentifier(newName)),
	}
}

func renameColumnStatement(d sqldb.Dialect, table, column, newName string) sqldb.Statement {
	return sqldb.Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			d.QuoteIdentifier(table), d.QuoteIdentifier(column), d.QuoteIdentifier(newName)),
	}
}
