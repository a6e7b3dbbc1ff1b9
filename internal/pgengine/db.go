package pgengine

import (
	"database/sql"
	"fmt"
)

// DB is a database created on an Engine
type DB struct {
	connOpts ConnectionOptions
	engine   *Engine
	dropped  bool
}

func (d *DB) GetName() string {
	return d.connOpts[connectionOptionName]
}

func (d *DB) GetDSN() string {
	return d.connOpts.ToDSN()
}

// DropDB terminates open connections to the database and drops it. Dropping twice is a no-op.
func (d *DB) DropDB() error {
	if d.dropped {
		return nil
	}

	db, err := sql.Open("pgx", d.engine.ConnectionOptions().ToDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	// Block new connections, then kick out the existing ones
	if _, err := db.Exec(fmt.Sprintf("ALTER DATABASE %q CONNECTION LIMIT 0", d.GetName())); err != nil {
		return fmt.Errorf("limiting connections: %w", err)
	}
	if _, err := db.Exec("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1", d.GetName()); err != nil {
		return fmt.Errorf("terminating connections: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("DROP DATABASE %q", d.GetName())); err != nil {
		return fmt.Errorf("dropping database: %w", err)
	}

	d.dropped = true
	return nil
}
