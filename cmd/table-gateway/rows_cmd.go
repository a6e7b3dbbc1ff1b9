package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stripe/table-gateway/pkg/gateway"
	"github.com/stripe/table-gateway/pkg/sqldb"
)

func buildInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert one row into the table",
		Long: "Insert one row into the table. Values are either given positionally, one --value per column in the" +
			" table's column order, or as a single logfmt --record keyed by column name.",
		Example: `  table-gateway insert --db people.db --table people --value 1 --value Alice
  table-gateway insert --db people.db --table people --record 'id=2 name="Bob Smith"'`,
	}
	connFlags := createConnectionFlags(cmd)
	values := cmd.Flags().StringArray("value", nil, "Value of the next column. Repeat for every column")
	record := cmd.Flags().String("record", "", "Row as logfmt key/value pairs, e.g., 'id=1 name=Alice'")
	nullValue := cmd.Flags().String("null", "", "Value that is inserted as NULL instead of as a string. Disabled when empty")
	valueModeStr := cmd.Flags().String("value-mode", gateway.ValueModeBind.String(),
		fmt.Sprintf("How values reach the database: %s (bound parameters) or %s (quoted literals in the SQL text)",
			gateway.ValueModeBind, gateway.ValueModeQuotedLiterals))
	cmd.MarkFlagsMutuallyExclusive("value", "record")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, true)
		if err != nil {
			return err
		}
		if len(*values) == 0 && *record == "" {
			return errors.New("either --value or --record must be set")
		}
		valueMode, err := gateway.ParseValueMode(*valueModeStr)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig, gateway.WithValueMode(valueMode))
		if err != nil {
			return err
		}
		defer g.Close()

		var row []any
		if *record != "" {
			columns, err := g.ColumnNames(cmd.Context())
			if err != nil {
				return err
			}
			row, err = recordToValues(*record, columns)
			if err != nil {
				return err
			}
		} else {
			for _, v := range *values {
				row = append(row, v)
			}
		}
		if *nullValue != "" {
			for i, v := range row {
				if v == *nullValue {
					row[i] = nil
				}
			}
		}

		if err := g.InsertRow(cmd.Context(), row...); err != nil {
			return err
		}
		cmdPrintf(cmd, "Inserted 1 row into table %q\n", g.TableName())
		return nil
	}
	return cmd
}

func buildSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Print the table's rows",
	}
	connFlags := createConnectionFlags(cmd)
	columns := cmd.Flags().StringSlice("column", nil, "Columns or expressions to select. Defaults to every column")
	where := cmd.Flags().String("where", "", "Filter condition, e.g., \"age > 20\"")
	orderBy := cmd.Flags().String("order-by", "", "Ordering, e.g., \"name DESC\"")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, true)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig)
		if err != nil {
			return err
		}
		defer g.Close()

		headers := *columns
		if len(headers) == 0 {
			headers, err = g.ColumnNames(cmd.Context())
			if err != nil {
				return err
			}
		}
		rows, err := g.SelectRows(cmd.Context(), gateway.Query{
			Columns: *columns,
			Where:   *where,
			OrderBy: *orderBy,
		})
		if err != nil {
			return err
		}

		cells := make([][]string, 0, len(rows))
		for _, row := range rows {
			cells = append(cells, rowToCells(row))
		}
		return printTable(cmd, headers, cells)
	}
	return cmd
}

func rowToCells(row sqldb.Row) []string {
	cells := make([]string, len(row))
	for i, v := range row {
		switch v := v.(type) {
		case nil:
			cells[i] = "NULL"
		case []byte:
			cells[i] = string(v)
		default:
			cells[i] = fmt.Sprint(v)
		}
	}
	return cells
}

func buildUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the rows matching a condition",
		Example: `  table-gateway update --db people.db --table people --set "age = age + 1" --where "name = 'Alice'"`,
	}
	connFlags := createConnectionFlags(cmd)
	set := cmd.Flags().String("set", "", "Assignments, e.g., \"name = 'Bob', age = 20\"")
	where := cmd.Flags().String("where", "", "Condition selecting the rows to update")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, true)
		if err != nil {
			return err
		}
		if *set == "" || *where == "" {
			return errors.New("--set and --where must be set")
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig)
		if err != nil {
			return err
		}
		defer g.Close()

		updated, err := g.UpdateRows(cmd.Context(), *set, *where)
		if err != nil {
			return err
		}
		cmdPrintf(cmd, "Updated %d row(s) of table %q\n", updated, g.TableName())
		return nil
	}
	return cmd
}

func buildDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the rows matching a condition, or every row when no condition is given",
	}
	connFlags := createConnectionFlags(cmd)
	confFlags := createConfirmFlags(cmd)
	where := cmd.Flags().String("where", "", "Condition selecting the rows to delete")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, true)
		if err != nil {
			return err
		}
		confirmer, err := parseConfirmFlags(cmd, confFlags)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig, gateway.WithConfirmer(confirmer))
		if err != nil {
			return err
		}
		defer g.Close()

		deleted, err := g.DeleteRows(cmd.Context(), *where)
		if err != nil {
			if errors.Is(err, gateway.ErrConfirmationDeclined) {
				cmdPrintln(cmd, "Delete cancelled")
				return nil
			}
			return err
		}
		cmdPrintf(cmd, "Deleted %d row(s) from table %q\n", deleted, g.TableName())
		return nil
	}
	return cmd
}
