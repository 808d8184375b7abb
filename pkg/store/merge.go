package store

import (
	"fmt"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	RunsMerged        int
	PackagesMerged    int
	DiagnosticsMerged int
	SourcesProcessed  int
}

// Merge copies every run of the source databases into the destination. Runs
// keep their order within a source and get fresh IDs in the destination.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	dest, err := NewSQLite(cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer dest.Close()

	stats := &MergeStats{}
	for _, sourcePath := range cfg.SourcePaths {
		if err := mergeFrom(dest, sourcePath, stats); err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.SourcesProcessed++
	}
	return stats, nil
}

func mergeFrom(dest Store, sourcePath string, stats *MergeStats) error {
	source, err := NewSQLite(sourcePath)
	if err != nil {
		return fmt.Errorf("opening source database: %w", err)
	}
	defer source.Close()

	runs, err := source.Runs()
	if err != nil {
		return err
	}
	for _, run := range runs {
		report, err := source.GetRun(run.ID)
		if err != nil {
			return err
		}
		if _, err := Save(dest, report, run.CreatedAt); err != nil {
			return err
		}
		stats.RunsMerged++
		stats.PackagesMerged += len(report.Packages)
		stats.DiagnosticsMerged += report.Count()
	}
	return nil
}
