package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection keeps ":memory:"-style databases coherent
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddRun starts a run.
func (s *SQLiteStore) AddRun(root string, at time.Time) (int64, error) {
	result, err := s.db.Exec("INSERT INTO runs (root, created_at) VALUES (?, ?)",
		root, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return result.LastInsertId()
}

// AddPackage stores a package report and its diagnostics in one transaction.
func (s *SQLiteStore) AddPackage(runID int64, seq int, p *types.PackageReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec("INSERT INTO packages (run_id, seq, name, dir, files) VALUES (?, ?, ?, ?, ?)",
		runID, seq, p.Package, p.Dir, p.Files)
	if err != nil {
		return fmt.Errorf("inserting package: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO diagnostics
		(run_id, package_seq, seq, diagnostic_id, kind, package, path, specifier,
		 offset_start, offset_end, start_line, start_column, end_line, end_column,
		 message, label, help, snippet_before, snippet_matching, snippet_after, blob_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing diagnostic insert: %w", err)
	}
	defer stmt.Close()

	for i, d := range p.Diagnostics {
		loc := d.Location
		_, err := stmt.Exec(
			runID, seq, i,
			d.ID,
			string(d.Kind),
			d.Package,
			d.Path,
			d.Specifier,
			loc.Offset.Start,
			loc.Offset.End,
			loc.Source.Start.Line,
			loc.Source.Start.Column,
			loc.Source.End.Line,
			loc.Source.End.Column,
			d.Message,
			d.Label,
			d.Help,
			d.Snippet.Before,
			d.Snippet.Matching,
			d.Snippet.After,
			d.BlobID.Hex(),
		)
		if err != nil {
			return fmt.Errorf("inserting diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetRun rebuilds the report of a run.
func (s *SQLiteStore) GetRun(runID int64) (*types.Report, error) {
	report := &types.Report{}
	err := s.db.QueryRow("SELECT root FROM runs WHERE id = ?", runID).Scan(&report.Root)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	rows, err := s.db.Query("SELECT name, dir, files FROM packages WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("querying packages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &types.PackageReport{Diagnostics: []*types.Diagnostic{}}
		if err := rows.Scan(&p.Package, &p.Dir, &p.Files); err != nil {
			return nil, fmt.Errorf("scanning package: %w", err)
		}
		report.Packages = append(report.Packages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating packages: %w", err)
	}

	for seq, p := range report.Packages {
		diags, err := s.diagnostics(runID, seq)
		if err != nil {
			return nil, err
		}
		p.Diagnostics = diags
	}
	return report, nil
}

func (s *SQLiteStore) diagnostics(runID int64, packageSeq int) ([]*types.Diagnostic, error) {
	rows, err := s.db.Query(`
		SELECT diagnostic_id, kind, package, path, specifier,
		       offset_start, offset_end, start_line, start_column, end_line, end_column,
		       message, label, help, snippet_before, snippet_matching, snippet_after, blob_id
		FROM diagnostics
		WHERE run_id = ? AND package_seq = ?
		ORDER BY seq
	`, runID, packageSeq)
	if err != nil {
		return nil, fmt.Errorf("querying diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []*types.Diagnostic{}
	for rows.Next() {
		var d types.Diagnostic
		var kind, blobHex string
		var specifier, label, help, before, matching, after sql.NullString
		loc := &d.Location

		err := rows.Scan(
			&d.ID, &kind, &d.Package, &d.Path, &specifier,
			&loc.Offset.Start, &loc.Offset.End,
			&loc.Source.Start.Line, &loc.Source.Start.Column,
			&loc.Source.End.Line, &loc.Source.End.Column,
			&d.Message, &label, &help, &before, &matching, &after, &blobHex,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning diagnostic: %w", err)
		}

		d.Kind = types.DiagnosticKind(kind)
		d.Specifier = specifier.String
		d.Label = label.String
		d.Help = help.String
		d.Snippet = types.Snippet{Before: before.String, Matching: matching.String, After: after.String}
		if d.BlobID, err = types.ParseBlobID(blobHex); err != nil {
			return nil, fmt.Errorf("parsing blob id: %w", err)
		}
		diags = append(diags, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating diagnostics: %w", err)
	}
	return diags, nil
}

// LatestRun returns the most recent run ID.
func (s *SQLiteStore) LatestRun() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM runs").Scan(&id); err != nil {
		return 0, fmt.Errorf("querying runs: %w", err)
	}
	if !id.Valid {
		return 0, ErrNoRuns
	}
	return id.Int64, nil
}

// Runs lists the stored runs, oldest first.
func (s *SQLiteStore) Runs() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.root, r.created_at,
		       (SELECT COUNT(*) FROM packages p WHERE p.run_id = r.id),
		       (SELECT COUNT(*) FROM diagnostics d WHERE d.run_id = r.id)
		FROM runs r
		ORDER BY r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Root, &created, &r.Packages, &r.Diagnostics); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing run time: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
