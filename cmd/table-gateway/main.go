package main

import (
	"os"

	"github.com/spf13/cobra"
)

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "table-gateway",
		Short: "Create, query and modify a single table of a SQLite or Postgres database",
	}
	rootCmd.AddCommand(buildCreateCmd())
	rootCmd.AddCommand(buildInsertCmd())
	rootCmd.AddCommand(buildSelectCmd())
	rootCmd.AddCommand(buildUpdateCmd())
	rootCmd.AddCommand(buildDeleteCmd())
	rootCmd.AddCommand(buildDropCmd())
	rootCmd.AddCommand(buildRenameTableCmd())
	rootCmd.AddCommand(buildRenameColumnCmd())
	rootCmd.AddCommand(buildColumnsCmd())
	rootCmd.AddCommand(buildTablesCmd())
	rootCmd.AddCommand(buildInfoCmd())
	rootCmd.AddCommand(buildVersionCmd())
	return rootCmd
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
