package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/store"
)

var (
	reportDatastore string
	reportRun       int64
	reportFormat    string
	reportColor     string
	reportList      bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a stored check run",
	Long: `Read a check run from a datastore and render it again from the stored snippets.

Each file is hashed and compared with the blob ID recorded at check time;
diagnostics of files that changed since are marked stale.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "perimeter.db", "Path to datastore file")
	reportCmd.Flags().Int64Var(&reportRun, "run", 0, "Run ID to render (0 = latest)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json, sarif")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
	reportCmd.Flags().BoolVar(&reportList, "list", false, "List stored runs instead of rendering one")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportDatastore == ":memory:" {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if err := validateOutputFlags(reportFormat, reportColor); err != nil {
		return err
	}
	if _, err := os.Stat(reportDatastore); err != nil {
		return fmt.Errorf("datastore not found: %s", reportDatastore)
	}

	s, err := store.New(store.Config{Path: reportDatastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if reportList {
		runs, err := s.Runs()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%d\t%s\t%s\t%d packages\t%d diagnostics\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Root, r.Packages, r.Diagnostics)
		}
		return nil
	}

	runID := reportRun
	if runID == 0 {
		runID, err = s.LatestRun()
		if errors.Is(err, store.ErrNoRuns) {
			return fmt.Errorf("datastore %s holds no runs", reportDatastore)
		}
		if err != nil {
			return err
		}
	}

	report, err := s.GetRun(runID)
	if err != nil {
		return fmt.Errorf("retrieving run: %w", err)
	}
	if n := diagnostic.MarkStale(report); n > 0 {
		newLogger(cmd).WithFields(logrus.Fields{"run": runID, "diagnostics": n}).
			Warn("source files changed since the run was stored")
	}
	return writeReport(out, report, reportFormat, reportColor)
}
