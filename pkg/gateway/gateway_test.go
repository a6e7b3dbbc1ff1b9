package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/suite"

	"github.com/stripe/table-gateway/pkg/confirm"
	"github.com/stripe/table-gateway/pkg/sqldb"
)

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *recordingLogger) Infof(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Warnf(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprintf(msg, args...))
}

func (l *recordingLogger) Errorf(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(msg, args...))
}

// gatewaySuite holds the engine-independent gateway tests. Engine-specific suites embed it and provide
// newDatabase.
type gatewaySuite struct {
	suite.Suite

	// newDatabase returns the config of a fresh, empty database
	newDatabase func() sqldb.Config
	cfg         sqldb.Config
}

func (s *gatewaySuite) SetupTest() {
	s.cfg = s.newDatabase()
}

func (s *gatewaySuite) open(table string, opts ...Opt) (*Gateway, *recordingLogger) {
	logger := &recordingLogger{}
	opts = append([]Opt{WithLogger(logger), WithConfirmer(confirm.Never)}, opts...)
	g, err := Open(context.Background(), s.cfg, table, opts...)
	s.Require().NoError(err)
	s.T().Cleanup(func() {
		// The test may already have closed it
		_ = g.Close()
	})
	return g, logger
}

func (s *gatewaySuite) mustCreatePeople(g *Gateway) {
	s.Require().NoError(g.CreateTable(context.Background(), "id INTEGER", "name TEXT", "age INTEGER"))
	for _, row := range [][]any{
		{1, "Alice", 31},
		{2, "Bob", 19},
		{3, "Carol", 45},
	} {
		s.Require().NoError(g.InsertRow(context.Background(), row...))
	}
}

func (s *gatewaySuite) assertRows(expected []sqldb.Row, actual []sqldb.Row) {
	s.Equal(expected, actual, "actual:\n%# v", pretty.Formatter(actual))
}

func (s *gatewaySuite) countRows(g *Gateway) int {
	rows, err := g.SelectRows(context.Background(), Query{})
	s.Require().NoError(err)
	return len(rows)
}

func (s *gatewaySuite) TestCreateTable() {
	ctx := context.Background()
	g, logger := s.open("people")

	exists, err := g.TableExists(ctx)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(g.CreateTable(ctx, "id INTEGER", "name TEXT", "age INTEGER"))

	exists, err = g.TableExists(ctx)
	s.Require().NoError(err)
	s.True(exists)

	names, err := g.ColumnNames(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"id", "name", "age"}, names)
	s.Contains(logger.infos, `Table "people" has been created`)
	s.Empty(logger.errors)
}

func (s *gatewaySuite) TestCreateTableOnExistingTableIsNoop() {
	ctx := context.Background()
	g, logger := s.open("people")
	s.mustCreatePeople(g)

	before, err := g.SchemaFingerprint(ctx)
	s.Require().NoError(err)

	err = g.CreateTable(ctx, "something_else TEXT")
	s.True(errors.Is(err, ErrTableExists), "expected ErrTableExists, got %v", err)
	s.Contains(logger.warns, `Table "people" already exists`)

	after, err := g.SchemaFingerprint(ctx)
	s.Require().NoError(err)
	s.Equal(before, after)

	names, err := g.ColumnNames(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"id", "name", "age"}, names)
	s.Equal(3, s.countRows(g))
}

func (s *gatewaySuite) TestCreateTableWithMalformedDefinition() {
	ctx := context.Background()
	g, logger := s.open("people")

	err := g.CreateTable(ctx, "id INTEGER", "name TEXT (")
	var execErr *sqldb.ExecutionError
	s.Require().True(errors.As(err, &execErr), "expected ExecutionError, got %v", err)
	s.Len(logger.errors, 1)

	exists, err := g.TableExists(ctx)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *gatewaySuite) TestInsertAndSelectRoundTrip() {
	for _, tc := range []struct {
		name string
		mode ValueMode
	}{
		{name: "bind", mode: ValueModeBind},
		{name: "quoted literals", mode: ValueModeQuotedLiterals},
	} {
		s.Run(tc.name, func() {
			ctx := context.Background()
			g, _ := s.open("scores_"+tc.mode.String(), WithValueMode(tc.mode))
			s.Require().NoError(g.CreateTable(ctx, "id INTEGER", "name TEXT", "score REAL"))

			s.Require().NoError(g.InsertRow(ctx, 1, "Alice", 2.5))
			s.Require().NoError(g.InsertRow(ctx, 2, "O'Brien", 0.5))

			rows, err := g.SelectRows(ctx, Query{OrderBy: "id"})
			s.Require().NoError(err)
			s.assertRows([]sqldb.Row{
				{int64(1), "Alice", 2.5},
				{int64(2), "O'Brien", 0.5},
			}, rows)
		})
	}
}

func (s *gatewaySuite) TestInsertStoresHostileValuesVerbatim() {
	ctx := context.Background()
	g, _ := s.open("notes")
	s.Require().NoError(g.CreateTable(ctx, "body TEXT"))

	hostile := `x'); DROP TABLE notes; --`
	s.Require().NoError(g.InsertRow(ctx, hostile))

	rows, err := g.SelectRows(ctx, Query{})
	s.Require().NoError(err)
	s.assertRows([]sqldb.Row{{hostile}}, rows)
}

func (s *gatewaySuite) TestInsertWithWrongValueCount() {
	ctx := context.Background()
	g, logger := s.open("people")
	s.mustCreatePeople(g)

	err := g.InsertRow(ctx, 4, "Dave")
	var execErr *sqldb.ExecutionError
	s.Require().True(errors.As(err, &execErr), "expected ExecutionError, got %v", err)
	s.Len(logger.errors, 1)
	s.Equal(3, s.countRows(g))
}

func (s *gatewaySuite) TestInsertIntoMissingTable() {
	g, _ := s.open("ghosts")

	err := g.InsertRow(context.Background(), 1)
	var execErr *sqldb.ExecutionError
	s.True(errors.As(err, &execErr), "expected ExecutionError, got %v", err)
}

func (s *gatewaySuite) TestSelectRows() {
	g, _ := s.open("people")
	s.mustCreatePeople(g)

	for _, tc := range []struct {
		name     string
		query    Query
		expected []sqldb.Row
	}{
		{
			name:  "all columns",
			query: Query{OrderBy: "id"},
			expected: []sqldb.Row{
				{int64(1), "Alice", int64(31)},
				{int64(2), "Bob", int64(19)},
				{int64(3), "Carol", int64(45)},
			},
		},
		{
			name:  "specific columns",
			query: Query{Columns: []string{"name", "id"}, OrderBy: "name DESC"},
			expected: []sqldb.Row{
				{"Carol", int64(3)},
				{"Bob", int64(2)},
				{"Alice", int64(1)},
			},
		},
		{
			name:  "where and order by",
			query: Query{Columns: []string{"name"}, Where: "age > 20", OrderBy: "age DESC"},
			expected: []sqldb.Row{
				{"Carol"},
				{"Alice"},
			},
		},
		{
			name:     "where on inserted value",
			query:    Query{Where: "name = 'Bob'"},
			expected: []sqldb.Row{{int64(2), "Bob", int64(19)}},
		},
		{
			name:     "no match",
			query:    Query{Where: "age > 100"},
			expected: []sqldb.Row{},
		},
	} {
		s.Run(tc.name, func() {
			rows, err := g.SelectRows(context.Background(), tc.query)
			s.Require().NoError(err)
			s.assertRows(tc.expected, rows)
		})
	}
}

func (s *gatewaySuite) TestSelectFailureReturnsNil() {
	ctx := context.Background()
	g, logger := s.open("ghosts")

	rows, err := g.SelectRows(ctx, Query{})
	s.Error(err)
	s.Nil(rows)
	s.Len(logger.errors, 1)

	s.Require().NoError(g.CreateTable(ctx, "id INTEGER"))
	rows, err = g.SelectRows(ctx, Query{})
	s.Require().NoError(err)
	s.NotNil(rows)
	s.Empty(rows)
}

func (s *gatewaySuite) TestUpdateRows() {
	ctx := context.Background()
	g, _ := s.open("people")
	s.mustCreatePeople(g)

	affected, err := g.UpdateRows(ctx, "age = age + 1", "age < 40")
	s.Require().NoError(err)
	s.Equal(int64(2), affected)

	rows, err := g.SelectRows(ctx, Query{Columns: []string{"age"}, OrderBy: "id"})
	s.Require().NoError(err)
	s.assertRows([]sqldb.Row{{int64(32)}, {int64(20)}, {int64(45)}}, rows)

	_, err = g.UpdateRows(ctx, "missing_column = 1", "id = 1")
	s.Error(err)
}

func (s *gatewaySuite) TestDeleteRows() {
	ctx := context.Background()

	s.Run("declined", func() {
		g, logger := s.open("declined", WithConfirmer(confirm.Never))
		s.mustCreatePeople(g)

		affected, err := g.DeleteRows(ctx, "")
		s.True(errors.Is(err, ErrConfirmationDeclined), "expected ErrConfirmationDeclined, got %v", err)
		s.Zero(affected)
		s.Equal(3, s.countRows(g))
		s.Contains(logger.infos, `The delete on table "declined" has been cancelled`)
		s.Empty(logger.errors)
	})

	s.Run("accepted with where", func() {
		var prompts []string
		g, _ := s.open("with_where", WithConfirmer(confirm.Func(func(message string) (bool, error) {
			prompts = append(prompts, message)
			return true, nil
		})))
		s.mustCreatePeople(g)

		affected, err := g.DeleteRows(ctx, "name = 'Bob'")
		s.Require().NoError(err)
		s.Equal(int64(1), affected)
		s.Equal(2, s.countRows(g))
		s.Require().Len(prompts, 1)
		s.Contains(prompts[0], "name = 'Bob'")
	})

	s.Run("accepted without where empties the table", func() {
		g, _ := s.open("everything", WithConfirmer(confirm.Always))
		s.mustCreatePeople(g)

		affected, err := g.DeleteRows(ctx, "")
		s.Require().NoError(err)
		s.Equal(int64(3), affected)
		s.Equal(0, s.countRows(g))
	})

	s.Run("confirmer fails", func() {
		confirmErr := errors.New("no terminal")
		g, logger := s.open("broken_prompt", WithConfirmer(confirm.Func(func(string) (bool, error) {
			return false, confirmErr
		})))
		s.mustCreatePeople(g)

		_, err := g.DeleteRows(ctx, "")
		s.True(errors.Is(err, confirmErr))
		s.Equal(3, s.countRows(g))
		s.Len(logger.errors, 1)
	})
}

func (s *gatewaySuite) TestDropTable() {
	ctx := context.Background()

	s.Run("declined", func() {
		g, _ := s.open("kept", WithConfirmer(confirm.Never))
		s.mustCreatePeople(g)

		err := g.DropTable(ctx)
		s.True(errors.Is(err, ErrConfirmationDeclined), "expected ErrConfirmationDeclined, got %v", err)
		exists, err := g.TableExists(ctx)
		s.Require().NoError(err)
		s.True(exists)
	})

	s.Run("accepted", func() {
		g, logger := s.open("dropped", WithConfirmer(confirm.Always))
		s.mustCreatePeople(g)

		s.Require().NoError(g.DropTable(ctx))
		s.Contains(logger.infos, `Table "dropped" has been dropped`)

		exists, err := g.TableExists(ctx)
		s.Require().NoError(err)
		s.False(exists)
		// The gateway still targets the dropped table
		s.Equal("dropped", g.TableName())
		_, err = g.SelectRows(ctx, Query{})
		s.Error(err)
	})
}

func (s *gatewaySuite) TestRenameTable() {
	ctx := context.Background()
	g, _ := s.open("people")
	s.mustCreatePeople(g)

	s.Require().NoError(g.RenameTable(ctx, "humans"))
	s.Equal("humans", g.TableName())
	s.Equal(3, s.countRows(g))

	tables, err := g.ListTables(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"humans"}, tables)

	old, _ := s.open("people")
	_, err = old.SelectRows(ctx, Query{})
	s.Error(err)
}

func (s *gatewaySuite) TestRenameTableFailureKeepsName() {
	ctx := context.Background()
	g, _ := s.open("people")
	s.mustCreatePeople(g)
	other, _ := s.open("taken")
	s.Require().NoError(other.CreateTable(ctx, "id INTEGER"))

	err := g.RenameTable(ctx, "taken")
	var execErr *sqldb.ExecutionError
	s.Require().True(errors.As(err, &execErr), "expected ExecutionError, got %v", err)
	s.Equal("people", g.TableName())
	s.Equal(3, s.countRows(g))
}

func (s *gatewaySuite) TestRenameColumn() {
	ctx := context.Background()
	g, _ := s.open("people")
	s.mustCreatePeople(g)

	before, err := g.SchemaFingerprint(ctx)
	s.Require().NoError(err)

	s.Require().NoError(g.RenameColumn(ctx, "name", "full_name"))

	names, err := g.ColumnNames(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"id", "full_name", "age"}, names)

	after, err := g.SchemaFingerprint(ctx)
	s.Require().NoError(err)
	s.NotEqual(before, after)

	rows, err := g.SelectRows(ctx, Query{Columns: []string{"full_name"}, Where: "id = 1"})
	s.Require().NoError(err)
	s.assertRows([]sqldb.Row{{"Alice"}}, rows)

	s.Error(g.RenameColumn(ctx, "no_such_column", "whatever"))
}

func (s *gatewaySuite) TestListTables() {
	ctx := context.Background()
	g, _ := s.open("zebras")

	tables, err := g.ListTables(ctx)
	s.Require().NoError(err)
	s.Empty(tables)

	s.Require().NoError(g.CreateTable(ctx, "id INTEGER"))
	other, _ := s.open("aardvarks")
	s.Require().NoError(other.CreateTable(ctx, "id INTEGER"))

	tables, err = g.ListTables(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"aardvarks", "zebras"}, tables)
}

func (s *gatewaySuite) TestTableNameNeedingQuotes() {
	ctx := context.Background()
	g, _ := s.open(`order "details"`)
	s.Require().NoError(g.CreateTable(ctx, `"select" INTEGER`, "note TEXT"))
	s.Require().NoError(g.InsertRow(ctx, 7, "quoted"))

	rows, err := g.SelectRows(ctx, Query{})
	s.Require().NoError(err)
	s.assertRows([]sqldb.Row{{int64(7), "quoted"}}, rows)

	names, err := g.ColumnNames(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"select", "note"}, names)
}

func (s *gatewaySuite) TestEndToEnd() {
	ctx := context.Background()
	g, _ := s.open("people", WithConfirmer(confirm.Always))

	s.Require().NoError(g.CreateTable(ctx, "id INTEGER", "name TEXT"))
	s.Require().NoError(g.InsertRow(ctx, 1, "Alice"))

	rows, err := g.SelectRows(ctx, Query{})
	s.Require().NoError(err)
	s.assertRows([]sqldb.Row{{int64(1), "Alice"}}, rows)

	_, err = g.UpdateRows(ctx, "name='Bob'", "id=1")
	s.Require().NoError(err)
	rows, err = g.SelectRows(ctx, Query{})
	s.Require().NoError(err)
	s.assertRows([]sqldb.Row{{int64(1), "Bob"}}, rows)

	_, err = g.DeleteRows(ctx, "")
	s.Require().NoError(err)
	rows, err = g.SelectRows(ctx, Query{})
	s.Require().NoError(err)
	s.assertRows([]sqldb.Row{}, rows)
}

func (s *gatewaySuite) TestUseAfterClose() {
	ctx := context.Background()
	g, logger := s.open("people")
	s.mustCreatePeople(g)
	s.Require().NoError(g.Close())

	s.NotPanics(func() {
		rows, err := g.SelectRows(ctx, Query{})
		s.Error(err)
		s.Nil(rows)
		s.Error(g.InsertRow(ctx, 4, "Dave", 50))
	})
	s.Len(logger.errors, 2)
}

type sqliteGatewaySuite struct {
	gatewaySuite
}

func (s *sqliteGatewaySuite) SetupSuite() {
	s.newDatabase = func() sqldb.Config {
		return sqldb.Config{
			Driver: sqldb.DriverSQLite,
			DSN:    filepath.Join(s.T().TempDir(), "gateway.db"),
		}
	}
}
