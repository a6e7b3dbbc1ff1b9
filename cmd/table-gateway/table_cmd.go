package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stripe/table-gateway/pkg/gateway"
)

func buildCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the table from column definitions",
		Example: `  table-gateway create --db people.db --table people \
    --column "id INTEGER PRIMARY KEY" --column "name TEXT NOT NULL"`,
	}
	connFlags := createConnectionFlags(cmd)
	columns := cmd.Flags().StringArray("column", nil, "Column definition, e.g., \"id INTEGER PRIMARY KEY\". Repeat for every column")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, true)
		if err != nil {
			return err
		}
		if len(*columns) == 0 {
			return errors.New("at least one --column must be set")
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig)
		if err != nil {
			return err
		}
		defer g.Close()

		if err := g.CreateTable(cmd.Context(), *columns...); err != nil {
			if errors.Is(err, gateway.ErrTableExists) {
				cmdPrintf(cmd, "Table %q already exists. Nothing to do\n", g.TableName())
				return nil
			}
			return err
		}
		cmdPrintf(cmd, "Created table %q\n", g.TableName())
		return nil
	}
	return cmd
}

func buildDropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the table and all of its rows",
	}
	connFlags := createConnectionFlags(cmd)
	confFlags := createConfirmFlags(cmd)
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

		if err := g.DropTable(cmd.Context()); err != nil {
			if errors.Is(err, gateway.ErrConfirmationDeclined) {
				cmdPrintln(cmd, "Drop cancelled")
				return nil
			}
			return err
		}
		cmdPrintf(cmd, "Dropped table %q\n", g.TableName())
		return nil
	}
	return cmd
}

func buildRenameTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename-table",
		Short: "Rename the table",
	}
	connFlags := createConnectionFlags(cmd)
	to := cmd.Flags().String("to", "", "New name of the table")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, true)
		if err != nil {
			return err
		}
		if *to == "" {
			return errors.New("--to must be set")
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig)
		if err != nil {
			return err
		}
		defer g.Close()

		if err := g.RenameTable(cmd.Context(), *to); err != nil {
			return err
		}
		cmdPrintf(cmd, "Renamed table %q to %q\n", connConfig.table, g.TableName())
		return nil
	}
	return cmd
}

func buildRenameColumnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename-column",
		Short: "Rename a column of the table",
	}
	connFlags := createConnectionFlags(cmd)
	from := cmd.Flags().String("from", "", "Current name of the column")
	to := cmd.Flags().String("to", "", "New name of the column")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, true)
		if err != nil {
			return err
		}
		if *from == "" || *to == "" {
			return errors.New("--from and --to must be set")
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig)
		if err != nil {
			return err
		}
		defer g.Close()

		if err := g.RenameColumn(cmd.Context(), *from, *to); err != nil {
			return err
		}
		cmdPrintf(cmd, "Renamed column %q of table %q to %q\n", *from, g.TableName(), *to)
		return nil
	}
	return cmd
}

func buildColumnsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Print the table's column names, one per line",
	}
	connFlags := createConnectionFlags(cmd)
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

		names, err := g.ColumnNames(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range names {
			cmdPrintln(cmd, name)
		}
		return nil
	}
	return cmd
}

func buildTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Print every table of the database, one per line",
	}
	connFlags := createConnectionFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		connConfig, err := parseConnectionFlags(cmd, connFlags, false)
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		g, err := openGateway(cmd, connConfig)
		if err != nil {
			return err
		}
		defer g.Close()

		tables, err := g.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		for _, table := range tables {
			cmdPrintln(cmd, table)
		}
		return nil
	}
	return cmd
}

func buildInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the table's columns and print its schema fingerprint",
	}
	connFlags := createConnectionFlags(cmd)
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

		exists, err := g.TableExists(cmd.Context())
		if err != nil {
			return err
		} else if !exists {
			return fmt.Errorf("table %q does not exist in %s", g.TableName(), g.DatabasePath())
		}
		columns, err := g.TableInfo(cmd.Context())
		if err != nil {
			return err
		}
		fingerprint, err := g.SchemaFingerprint(cmd.Context())
		if err != nil {
			return err
		}

		cmdPrintln(cmd, header(fmt.Sprintf("Table %q", g.TableName())))
		rows := make([][]string, 0, len(columns))
		for _, c := range columns {
			rows = append(rows, columnToCells(c))
		}
		if err := printTable(cmd, []string{"#", "NAME", "TYPE", "NOT NULL", "DEFAULT", "PRIMARY KEY"}, rows); err != nil {
			return err
		}
		cmdPrintf(cmd, "\nFingerprint: %016x\n", fingerprint)
		return nil
	}
	return cmd
}

func columnToCells(c gateway.Column) []string {
	def := ""
	if c.Default != nil {
		def = *c.Default
	}
	return []string{
		fmt.Sprint(c.Position),
		c.Name,
		c.Type,
		yesNo(c.NotNull),
		strings.TrimSpace(def),
		yesNo(c.PrimaryKey),
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
