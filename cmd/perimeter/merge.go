package main

import (
	"fmt"

	"github.com/praetorian-inc/perimeter/pkg/store"
	"github.com/spf13/cobra"
)

var (
	mergeOutput string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <source1.db> <source2.db> [source3.db...]",
	Short: "Merge multiple Perimeter databases",
	Long: `Merge multiple Perimeter databases into a single output database.

This is useful for collecting the runs of several CI jobs or workspaces
into one place. Every run is copied with a fresh ID.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.db", "Output database path")
}

func runMerge(cmd *cobra.Command, args []string) error {
	stats, err := store.Merge(store.MergeConfig{
		SourcePaths: args,
		DestPath:    mergeOutput,
	})
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merge complete:\n")
	fmt.Fprintf(cmd.OutOrStdout(), "  Sources processed: %d\n", stats.SourcesProcessed)
	fmt.Fprintf(cmd.OutOrStdout(), "  Runs merged: %d\n", stats.RunsMerged)
	fmt.Fprintf(cmd.OutOrStdout(), "  Packages merged: %d\n", stats.PackagesMerged)
	fmt.Fprintf(cmd.OutOrStdout(), "  Diagnostics merged: %d\n", stats.DiagnosticsMerged)
	fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", mergeOutput)

	return nil
}
