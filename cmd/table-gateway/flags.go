package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-logfmt/logfmt"
	"github.com/spf13/cobra"

	"github.com/stripe/table-gateway/internal/util"
	"github.com/stripe/table-gateway/pkg/confirm"
	"github.com/stripe/table-gateway/pkg/gateway"
	"github.com/stripe/table-gateway/pkg/log"
	"github.com/stripe/table-gateway/pkg/sqldb"
)

type connectionFlags struct {
	db        string
	driver    string
	table     string
	logFormat string
}

func createConnectionFlags(cmd *cobra.Command) *connectionFlags {
	var c connectionFlags

	cmd.Flags().StringVar(&c.db, "db", "", "Path of the SQLite database file, or the connection string when --driver=postgres"+
		" (the password can be specified through the PGPASSWORD environment variable)")
	cmd.Flags().StringVar(&c.driver, "driver", string(sqldb.DriverSQLite),
		fmt.Sprintf("Database driver: %s or %s", sqldb.DriverSQLite, sqldb.DriverPostgres))
	cmd.Flags().StringVar(&c.table, "table", "", "Name of the table to operate on")
	cmd.Flags().StringVar(&c.logFormat, "log-format", "simple", "How operations are reported on stderr: simple, logfmt or none")

	return &c
}

type connectionConfig struct {
	dbConfig sqldb.Config
	table    string
	logger   log.Logger
}

func parseConnectionFlags(cmd *cobra.Command, flags *connectionFlags, requireTable bool) (connectionConfig, error) {
	if flags.db == "" {
		return connectionConfig{}, errors.New("--db must be set")
	}
	if requireTable && flags.table == "" {
		return connectionConfig{}, errors.New("--table must be set")
	}
	driver, err := sqldb.ParseDriver(flags.driver)
	if err != nil {
		return connectionConfig{}, err
	}
	logger, err := parseLogFormat(flags.logFormat, cmd.ErrOrStderr())
	if err != nil {
		return connectionConfig{}, err
	}
	return connectionConfig{
		dbConfig: sqldb.Config{Driver: driver, DSN: flags.db},
		table:    flags.table,
		logger:   logger,
	}, nil
}

func parseLogFormat(format string, stderr io.Writer) (log.Logger, error) {
	switch strings.ToLower(format) {
	case "simple":
		return log.SimpleLogger(), nil
	case "logfmt":
		return log.LogfmtLogger(stderr), nil
	case "none":
		return log.NopLogger(), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

type confirmFlags struct {
	skipConfirmPrompt bool
	promptStyle       string
}

func createConfirmFlags(cmd *cobra.Command) *confirmFlags {
	var c confirmFlags

	cmd.Flags().BoolVar(&c.skipConfirmPrompt, "skip-confirm-prompt", false, "Skips prompt asking for user to confirm before proceeding")
	cmd.Flags().StringVar(&c.promptStyle, "prompt-style", "terminal",
		"How to ask for confirmation: terminal (interactive prompt) or line (reads y/yes/n/no lines from stdin)")

	return &c
}

func parseConfirmFlags(cmd *cobra.Command, flags *confirmFlags) (confirm.Confirmer, error) {
	if flags.skipConfirmPrompt {
		return confirm.Always, nil
	}
	switch strings.ToLower(flags.promptStyle) {
	case "terminal":
		// promptui falls back to the process' terminal
		return confirm.NewTerminalPrompter(nil, nil), nil
	case "line":
		return confirm.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout()), nil
	default:
		return nil, fmt.Errorf("unknown prompt style %q", flags.promptStyle)
	}
}

// openGateway opens the gateway described by the flags. The caller must close it.
func openGateway(cmd *cobra.Command, config connectionConfig, opts ...gateway.Opt) (*gateway.Gateway, error) {
	opts = append([]gateway.Opt{gateway.WithLogger(config.logger), gateway.WithConfirmer(confirm.Never)}, opts...)
	return gateway.Open(cmd.Context(), config.dbConfig, config.table, opts...)
}

// logFmtToMap parses all LogFmt key/value pairs from the provided string into a
// map.
//
// All records are scanned. If a duplicate key is found, an error is returned.
func logFmtToMap(logFmt string) (map[string]string, error) {
	logMap := make(map[string]string)
	decoder := logfmt.NewDecoder(strings.NewReader(logFmt))
	for decoder.ScanRecord() {
		for decoder.ScanKeyval() {
			if _, ok := logMap[string(decoder.Key())]; ok {
				return nil, fmt.Errorf("duplicate key %q in logfmt", string(decoder.Key()))
			}
			logMap[string(decoder.Key())] = string(decoder.Value())
		}
	}
	if decoder.Err() != nil {
		return nil, decoder.Err()
	}
	return logMap, nil
}

// recordToValues orders the values of a logfmt record, e.g., `id=1 name="Ada Lovelace"`, by the table's
// columns. Every column must be present exactly once and no other keys are allowed.
func recordToValues(record string, columns []string) ([]any, error) {
	byColumn, err := logFmtToMap(record)
	if err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}
	values := make([]any, 0, len(columns))
	for _, column := range columns {
		val, ok := byColumn[column]
		if !ok {
			return nil, fmt.Errorf("record is missing column %q", column)
		}
		delete(byColumn, column)
		values = append(values, val)
	}
	if len(byColumn) > 0 {
		return nil, fmt.Errorf("record has keys that are not columns: %s", strings.Join(util.SortedKeys(byColumn), ", "))
	}
	return values, nil
}
