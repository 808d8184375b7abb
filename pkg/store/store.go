package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// ErrNoRuns is returned when a store holds no check runs yet.
var ErrNoRuns = errors.New("no runs recorded")

// Run summarizes one stored check.
type Run struct {
	ID          int64
	Root        string
	CreatedAt   time.Time
	Packages    int
	Diagnostics int
}

// Store persists check reports so they can be rendered again later without
// re-reading any source file.
type Store interface {
	// AddRun starts a run for the workspace at root and returns its ID.
	AddRun(root string, at time.Time) (int64, error)

	// AddPackage stores one package report under a run. seq fixes the
	// package's position in the report.
	AddPackage(runID int64, seq int, p *types.PackageReport) error

	// GetRun rebuilds the report of a run, packages and diagnostics in their
	// original order.
	GetRun(runID int64) (*types.Report, error)

	// LatestRun returns the ID of the most recent run, or ErrNoRuns.
	LatestRun() (int64, error)

	// Runs lists every stored run, oldest first.
	Runs() ([]Run, error)

	// Close closes the database connection.
	Close() error
}

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for an in-process store (useful for testing).
	Path string
}

// New creates a new Store. ":memory:" returns a MemoryStore, any other path
// a SQLite database.
func New(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if cfg.Path == ":memory:" {
		return NewMemory(), nil
	}
	return NewSQLite(cfg.Path)
}

// Save records a whole report as a new run.
func Save(s Store, report *types.Report, at time.Time) (int64, error) {
	runID, err := s.AddRun(report.Root, at)
	if err != nil {
		return 0, err
	}
	for i, p := range report.Packages {
		if err := s.AddPackage(runID, i, p); err != nil {
			return 0, fmt.Errorf("storing package %s: %w", p.Package, err)
		}
	}
	return runID, nil
}
