package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/table-gateway/pkg/sqldb"
)

// InsertRow inserts one row. The table's column names are read from the catalog on every call and values
// are matched to them by position. A count mismatch is left for the database to reject.
func (g *Gateway) InsertRow(ctx context.Context, values ...any) error {
	columns, err := g.columnNames(ctx)
	if err != nil {
		return g.fail(fmt.Errorf("inserting into table %q: %w", g.tableName, err))
	}

	stmt := insertStatement(g.exec.Dialect(), g.options.valueMode, g.tableName, columns, values)
	if _, err := g.exec.Execute(ctx, stmt); err != nil {
		return g.fail(fmt.Errorf("inserting into table %q: %w", g.tableName, err))
	}
	g.options.logger.Infof("Inserted 1 row into table %q", g.tableName)
	return nil
}

// SelectRows returns every row matching q, in driver-native types. On success the slice is never nil, so an
// empty result is distinguishable from a failure.
func (g *Gateway) SelectRows(ctx context.Context, q Query) ([]sqldb.Row, error) {
	res, err := g.exec.Execute(ctx, selectStatement(g.exec.Dialect(), g.tableName, q))
	if err != nil {
		return nil, g.fail(fmt.Errorf("selecting from table %q: %w", g.tableName, err))
	}
	rows := res.Rows
	if rows == nil {
		rows = []sqldb.Row{}
	}
	return rows, nil
}

// UpdateRows runs UPDATE <table> SET <set> WHERE <where>. Both clauses are raw SQL fragments and both are
// required. It returns the number of rows the database reports as changed.
func (g *Gateway) UpdateRows(ctx context.Context, set, where string) (int64, error) {
	res, err := g.exec.Execute(ctx, updateStatement(g.exec.Dialect(), g.tableName, set, where))
	if err != nil {
		return 0, g.fail(fmt.Errorf("updating table %q: %w", g.tableName, err))
	}
	g.options.logger.Infof("Updated %d row(s) of table %q", res.RowsAffected, g.tableName)
	return res.RowsAffected, nil
}

// DeleteRows deletes the rows matching the raw SQL fragment where, or every row if where is empty, once
// the confirmer agrees. It returns the number of rows deleted.
func (g *Gateway) DeleteRows(ctx context.Context, where string) (int64, error) {
	message := fmt.Sprintf("Deleting every row of table %q cannot be undone. Do you want to continue?", g.tableName)
	if where != "" {
		message = fmt.Sprintf("Deleting the rows of table %q where %s cannot be undone. Do you want to continue?", g.tableName, where)
	}
	if err := g.confirm("delete", message); err != nil {
		return 0, fmt.Errorf("deleting from table %q: %w", g.tableName, err)
	}

	res, err := g.exec.Execute(ctx, deleteStatement(g.exec.Dialect(), g.tableName, where))
	if err != nil {
		return 0, g.fail(fmt.Errorf("deleting from table %q: %w", g.tableName, err))
	}
	g.options.logger.Infof("Deleted %d row(s) from table %q", res.RowsAffected, g.tableName)
	return res.RowsAffected, nil
}
