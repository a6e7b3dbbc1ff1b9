// Package gateway binds one database and one table name to a small set of table operations. Each
// operation assembles a single SQL statement, executes it, and commits immediately.
//
// A Gateway holds no other state: column names and table existence are read from the catalog on
// every call, so they always reflect the current schema.
//
// Every operation returns an error instead of panicking. Failures are also reported to the
// gateway's logger, along with successes.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/stripe/table-gateway/internal/set"
	"github.com/stripe/table-gateway/pkg/confirm"
	"github.com/stripe/table-gateway/pkg/log"
	"github.com/stripe/table-gateway/pkg/sqldb"
)

var (
	// ErrTableExists is returned by CreateTable when the table is already in the catalog. Nothing is changed.
	ErrTableExists = errors.New("table already exists")
	// ErrConfirmationDeclined is returned by destructive operations when the confirmer said no
	ErrConfirmationDeclined = errors.New("confirmation declined")
)

type (
	options struct {
		logger    log.Logger
		confirmer confirm.Confirmer
		valueMode ValueMode
	}

	Opt func(*options)
)

// WithLogger sets where successes and failures are reported. If not set, a SimpleLogger is used
func WithLogger(logger log.Logger) Opt {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithConfirmer sets what decides whether DropTable and DeleteRows may proceed. If not set, the user is
// asked on stdin/stdout until they answer yes or no.
func WithConfirmer(confirmer confirm.Confirmer) Opt {
	return func(opts *options) {
		opts.confirmer = confirmer
	}
}

// WithValueMode sets how InsertRow passes values. Defaults to ValueModeBind
func WithValueMode(mode ValueMode) Opt {
	return func(opts *options) {
		opts.valueMode = mode
	}
}

// Column describes a table column as recorded in the catalog
type Column struct {
	Position int
	Name     string
	Type     string
	NotNull  bool
	// Default is the default value expression, or nil if the column has none
	Default    *string
	PrimaryKey bool
}

// Gateway is a handle on one table of one database. It exclusively owns its connection, which the caller
// must release with Close. A Gateway is not safe for concurrent use.
type Gateway struct {
	exec         sqldb.Executor
	databasePath string
	tableName    string
	options      options
}

// Open connects to the database described by cfg and returns a Gateway targeting table.
func Open(ctx context.Context, cfg sqldb.Config, table string, opts ...Opt) (*Gateway, error) {
	options := buildOptions(opts)
	conn, err := sqldb.Open(ctx, cfg)
	if err != nil {
		options.logger.Errorf("%s", err)
		return nil, err
	}
	options.logger.Infof("Connected to %s database %s", conn.Dialect().Driver(), conn.Name())
	return newGateway(conn, conn.Name(), table, options), nil
}

// New builds a Gateway on top of an already open executor. The Gateway takes ownership of exec.
func New(exec sqldb.Executor, databasePath, table string, opts ...Opt) *Gateway {
	return newGateway(exec, databasePath, table, buildOptions(opts))
}

func buildOptions(opts []Opt) options {
	options := options{
		logger:    log.SimpleLogger(),
		confirmer: confirm.NewLinePrompter(os.Stdin, os.Stdout),
		valueMode: ValueModeBind,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func newGateway(exec sqldb.Executor, databasePath, table string, options options) *Gateway {
	return &Gateway{
		exec:         exec,
		databasePath: databasePath,
		tableName:    table,
		options:      options,
	}
}

func (g *Gateway) DatabasePath() string {
	return g.databasePath
}

// TableName returns the table operations currently target. It changes only through RenameTable.
func (g *Gateway) TableName() string {
	return g.tableName
}

// Close releases the connection. The Gateway must not be used afterwards.
func (g *Gateway) Close() error {
	if err := g.exec.Close(); err != nil {
		return g.fail(fmt.Errorf("closing connection: %w", err))
	}
	return nil
}

// CreateTable creates the table from the given column definitions, e.g., "id INTEGER PRIMARY KEY". The
// definitions are not validated. If the table already exists, nothing happens and ErrTableExists is returned.
func (g *Gateway) CreateTable(ctx context.Context, definitions ...string) error {
	exists, err := g.tableExists(ctx)
	if err != nil {
		return g.fail(fmt.Errorf("creating table %q: %w", g.tableName, err))
	}
	if exists {
		g.options.logger.Warnf("Table %q already exists", g.tableName)
		return fmt.Errorf("creating table %q: %w", g.tableName, ErrTableExists)
	}

	if _, err := g.exec.Execute(ctx, createTableStatement(g.exec.Dialect(), g.tableName, definitions)); err != nil {
		return g.fail(fmt.Errorf("creating table %q: %w", g.tableName, err))
	}
	g.options.logger.Infof("Table %q has been created", g.tableName)
	return nil
}

// DropTable drops the table once the confirmer agrees. TableName keeps returning the dropped table's name.
func (g *Gateway) DropTable(ctx context.Context) error {
	if err := g.confirm("drop", fmt.Sprintf(
		"Dropping table %q permanently deletes the table and all the data it contains. Do you want to continue?",
		g.tableName,
	)); err != nil {
		return fmt.Errorf("dropping table %q: %w", g.tableName, err)
	}

	if _, err := g.exec.Execute(ctx, dropTableStatement(g.exec.Dialect(), g.tableName)); err != nil {
		return g.fail(fmt.Errorf("dropping table %q: %w", g.tableName, err))
	}
	g.options.logger.Infof("Table %q has been dropped", g.tableName)
	return nil
}

// RenameTable renames the table and retargets the Gateway at newName. If the statement fails, the Gateway
// keeps its current name.
func (g *Gateway) RenameTable(ctx context.Context, newName string) error {
	if _, err := g.exec.Execute(ctx, renameTableStatement(g.exec.Dialect(), g.tableName, newName)); err != nil {
		return g.fail(fmt.Errorf("renaming table %q to %q: %w", g.tableName, newName, err))
	}
	g.options.logger.Infof("Table %q has been renamed to %q", g.tableName, newName)
	g.tableName = newName
	return nil
}

func (g *Gateway) RenameColumn(ctx context.Context, column, newName string) error {
	if _, err := g.exec.Execute(ctx, renameColumnStatement(g.exec.Dialect(), g.tableName, column, newName)); err != nil {
		return g.fail(fmt.Errorf("renaming column %q of table %q to %q: %w", column, g.tableName, newName, err))
	}
	g.options.logger.Infof("Column %q of table %q has been renamed to %q", column, g.tableName, newName)
	return nil
}

// TableExists reports whether the table is in the catalog
func (g *Gateway) TableExists(ctx context.Context) (bool, error) {
	exists, err := g.tableExists(ctx)
	if err != nil {
		return false, g.fail(fmt.Errorf("checking if table %q exists: %w", g.tableName, err))
	}
	return exists, nil
}

func (g *Gateway) tableExists(ctx context.Context) (bool, error) {
	tables, err := g.listTables(ctx)
	if err != nil {
		return false, err
	}
	return set.NewSet(tables...).Has(g.tableName), nil
}

// ListTables returns the name of every table in the database, sorted
func (g *Gateway) ListTables(ctx context.Context) ([]string, error) {
	tables, err := g.listTables(ctx)
	if err != nil {
		return nil, g.fail(fmt.Errorf("listing tables: %w", err))
	}
	return tables, nil
}

func (g *Gateway) listTables(ctx context.Context) ([]string, error) {
	res, err := g.exec.Execute(ctx, g.exec.Dialect().ListTables())
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) == 0 {
			return nil, errors.New("catalog returned an empty row")
		}
		name, ok := asString(row[0])
		if !ok {
			return nil, fmt.Errorf("catalog returned table name of unexpected type %T", row[0])
		}
		tables = append(tables, name)
	}
	return set.NewSet(tables...).Values(), nil
}

// ColumnNames returns the table's column names in catalog order. A missing table has no columns.
func (g *Gateway) ColumnNames(ctx context.Context) ([]string, error) {
	names, err := g.columnNames(ctx)
	if err != nil {
		return nil, g.fail(fmt.Errorf("reading column names of table %q: %w", g.tableName, err))
	}
	return names, nil
}

func (g *Gateway) columnNames(ctx context.Context) ([]string, error) {
	columns, err := g.tableInfo(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names, nil
}

// TableInfo returns the table's column descriptors in catalog order
func (g *Gateway) TableInfo(ctx context.Context) ([]Column, error) {
	columns, err := g.tableInfo(ctx)
	if err != nil {
		return nil, g.fail(fmt.Errorf("describing table %q: %w", g.tableName, err))
	}
	return columns, nil
}

func (g *Gateway) tableInfo(ctx context.Context) ([]Column, error) {
	res, err := g.exec.Execute(ctx, g.exec.Dialect().DescribeTable(g.tableName))
	if err != nil {
		return nil, err
	}
	columns := make([]Column, 0, len(res.Rows))
	for _, row := range res.Rows {
		column, err := decodeColumn(row)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, nil
}

// SchemaFingerprint hashes the table's column descriptors. The value changes whenever a column is added,
// removed, renamed, reordered or redefined.
func (g *Gateway) SchemaFingerprint(ctx context.Context) (uint64, error) {
	columns, err := g.tableInfo(ctx)
	if err != nil {
		return 0, g.fail(fmt.Errorf("fingerprinting table %q: %w", g.tableName, err))
	}
	hash, err := hashstructure.Hash(columns, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, g.fail(fmt.Errorf("hashing columns of table %q: %w", g.tableName, err))
	}
	return hash, nil
}

// confirm returns ErrConfirmationDeclined if the confirmer said no
func (g *Gateway) confirm(action, message string) error {
	yes, err := g.options.confirmer.Confirm(message)
	if err != nil {
		return g.fail(fmt.Errorf("asking for confirmation: %w", err))
	}
	if !yes {
		g.options.logger.Infof("The %s on table %q has been cancelled", action, g.tableName)
		return ErrConfirmationDeclined
	}
	return nil
}

// fail reports err and hands it back, so call sites can report and return in one line
func (g *Gateway) fail(err error) error {
	g.options.logger.Errorf("%s", err)
	return err
}
