// Package pgengine runs a throwaway Postgres server for tests. The server only listens on a unix socket
// inside a temporary directory, and everything it wrote is removed on Close.
package pgengine

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/stripe/table-gateway/internal/util"
)

const (
	superuser = "postgres"
	// The server does not listen on TCP; the port only names the socket file
	port = 5432

	maxStartupAttempts  = 10
	waitBetweenAttempts = time.Second

	databaseNamePrefix   = "gatewaytest_"
	maintenanceDatabase  = "postgres"
	connectionOptionName = "dbname"
)

// ConnectionOptions are libpq keyword/value connection parameters
type ConnectionOptions map[string]string

func (c ConnectionOptions) With(key, value string) ConnectionOptions {
	clone := make(ConnectionOptions, len(c)+1)
	for k, v := range c {
		clone[k] = v
	}
	clone[key] = value
	return clone
}

// ToDSN renders the options in key order so the DSN is stable
func (c ConnectionOptions) ToDSN() string {
	keys := util.SortedKeys(c)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + c[k]
	}
	return strings.Join(pairs, " ")
}

type Engine struct {
	process  *os.Process
	dataDir  string
	sockDir  string
	isClosed bool
}

// StartEngine starts a Postgres server using the "postgres" and "initdb" binaries found next to each
// other on PATH.
func StartEngine() (_ *Engine, retErr error) {
	postgresPath, err := exec.LookPath("postgres")
	if err != nil {
		return nil, errors.New("postgres executable not found in path")
	}
	binDir := filepath.Dir(postgresPath)

	dataDir, err := os.MkdirTemp("", "gateway-pgdata-")
	if err != nil {
		return nil, err
	}
	sockDir, err := os.MkdirTemp("", "gateway-pgsock-")
	if err != nil {
		os.RemoveAll(dataDir)
		return nil, err
	}
	engine := &Engine{dataDir: dataDir, sockDir: sockDir}
	defer util.DoOnErrOrPanic(&retErr, func() {
		_ = engine.Close()
	})

	if output, err := exec.Command(filepath.Join(binDir, "initdb"),
		"-U", superuser,
		"-D", dataDir,
		"-A", "trust",
	).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("running initdb: %w\n%s", err, output)
	}

	cmd := exec.Command(filepath.Join(binDir, "postgres"),
		"-D", dataDir,
		"-k", sockDir,
		"-p", strconv.Itoa(port),
		"-h", "",
		"-c", "log_checkpoints=false",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	engine.process = cmd.Process

	if err := engine.waitUntilServing(); err != nil {
		return nil, fmt.Errorf("waiting for postgres to serve traffic: %w", err)
	}
	return engine, nil
}

func (e *Engine) waitUntilServing() error {
	var lastErr error
	for i := 0; i < maxStartupAttempts; i++ {
		if lastErr = ping(e.ConnectionOptions().ToDSN()); lastErr == nil {
			return nil
		}
		time.Sleep(waitBetweenAttempts)
	}
	return fmt.Errorf("unable to connect. most recent error: %w", lastErr)
}

func ping(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Ping()
}

// ConnectionOptions returns the options connecting to the maintenance database
func (e *Engine) ConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		connectionOptionName: maintenanceDatabase,
		"host":               e.sockDir,
		"port":               strconv.Itoa(port),
		"user":               superuser,
		"sslmode":            "disable",
	}
}

// Close stops the server and removes its files. It is safe to call more than once.
func (e *Engine) Close() error {
	if e.isClosed {
		return nil
	}
	e.isClosed = true
	if e.process != nil {
		// Best effort: the directories are removed either way
		_ = e.process.Signal(os.Interrupt)
		_, _ = e.process.Wait()
	}
	return errors.Join(os.RemoveAll(e.dataDir), os.RemoveAll(e.sockDir))
}

// CreateDatabase creates an empty database with a random name
func (e *Engine) CreateDatabase() (*DB, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}
	return e.CreateDatabaseWithName(databaseNamePrefix + strings.ReplaceAll(id.String(), "-", "_"))
}

func (e *Engine) CreateDatabaseWithName(name string) (*DB, error) {
	db, err := sql.Open("pgx", e.ConnectionOptions().ToDSN())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %q", name)); err != nil {
		return nil, fmt.Errorf("creating database %q: %w", name, err)
	}
	return &DB{
		connOpts: e.ConnectionOptions().With(connectionOptionName, name),
		engine:   e,
	}, nil
}
