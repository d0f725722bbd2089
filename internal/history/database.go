package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	// Default database file name inside the backup root
	defaultDBName = "history.db"

	// Table creation SQL
	createTableSQL = `
	CREATE TABLE IF NOT EXISTS rollback_executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		point_id TEXT NOT NULL,
		description TEXT,
		dry_run INTEGER DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		success INTEGER DEFAULT 0,
		duration INTEGER
	);

	CREATE TABLE IF NOT EXISTS service_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id INTEGER NOT NULL,
		service TEXT NOT NULL,
		succeeded INTEGER DEFAULT 0,
		health_verified INTEGER DEFAULT 0,
		state TEXT,
		reason TEXT,
		FOREIGN KEY(execution_id) REFERENCES rollback_executions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_point_id ON rollback_executions(point_id);
	CREATE INDEX IF NOT EXISTS idx_started_at ON rollback_executions(started_at);
	CREATE INDEX IF NOT EXISTS idx_execution_id ON service_results(execution_id);
	`
)

// Database provides access to the rollback history SQLite database
type Database struct {
	db   *sql.DB
	path string
}

// NewDatabase creates a new SQLite database connection and ensures tables exist
func NewDatabase(dbPath string) (*Database, error) {
	if dbPath == "" {
		dataDir := os.Getenv("DOSNAP_DATA_DIR")
		if dataDir == "" {
			dir, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			dataDir = dir
		}

		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		dbPath = filepath.Join(dataDir, defaultDBName)
	}

	// Open the database file with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer at a time
	db.SetMaxOpenConns(1)

	database := &Database{
		db:   db,
		path: dbPath,
	}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the database file location
func (d *Database) Path() string {
	return d.path
}

// initSchema ensures the required tables and indices exist
func (d *Database) initSchema() error {
	_, err := d.db.Exec(createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}
