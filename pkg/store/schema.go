package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createRunsTable(db); err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}

	if err := createPackagesTable(db); err != nil {
		return fmt.Errorf("creating packages table: %w", err)
	}

	if err := createDiagnosticsTable(db); err != nil {
		return fmt.Errorf("creating diagnostics table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	var version int
	if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		return err
	}
	if version != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}
	return nil
}

func createRunsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			root TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func createPackagesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS packages (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			dir TEXT NOT NULL,
			files INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		)
	`)
	return err
}

func createDiagnosticsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS diagnostics (
			run_id INTEGER NOT NULL,
			package_seq INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			diagnostic_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			package TEXT NOT NULL,
			path TEXT NOT NULL,
			specifier TEXT,
			offset_start INTEGER NOT NULL,
			offset_end INTEGER NOT NULL,
			start_line INTEGER NOT NULL,
			start_column INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			end_column INTEGER NOT NULL,
			message TEXT NOT NULL,
			label TEXT,
			help TEXT,
			snippet_before TEXT,
			snippet_matching TEXT,
			snippet_after TEXT,
			blob_id TEXT NOT NULL,
			PRIMARY KEY (run_id, package_seq, seq),
			FOREIGN KEY (run_id, package_seq) REFERENCES packages(run_id, seq)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_diagnostics_kind ON diagnostics(run_id, kind)
	`)
	return err
}
