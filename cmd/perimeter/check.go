package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/perimeter"
	"github.com/praetorian-inc/perimeter/pkg/config"
	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/parser"
	"github.com/praetorian-inc/perimeter/pkg/store"
)

// errDiagnosticsFound fails the process without printing another message;
// the diagnostics themselves are the output.
var errDiagnosticsFound = errors.New("boundary violations found")

var (
	checkFormat            string
	checkFilter            []string
	checkWorkers           int
	checkContextLines      int
	checkOutputPath        string
	checkNoVCS             bool
	checkColor             string
	checkConfigPath        string
	checkKindsInclude      string
	checkKindsExclude      string
	checkMaxFileSize       int64
	checkFailOnDiagnostics bool
	checkParser            string
)

var checkCmd = &cobra.Command{
	Use:   "check [root]",
	Short: "Check the import boundaries of a workspace",
	Long: `Discover the workspace at root (default ".") and check every package's imports.

Settings are read from perimeter.yml at the workspace root, or from --config;
flags given on the command line take precedence.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "human", "Output format: human, json, sarif")
	checkCmd.Flags().StringSliceVar(&checkFilter, "filter", nil, "Only check the named packages (repeatable)")
	checkCmd.Flags().IntVar(&checkWorkers, "workers", 0, "Parallel packages and file readers (0 = number of CPUs)")
	checkCmd.Flags().IntVar(&checkContextLines, "context-lines", 2, "Lines of context around each diagnostic")
	checkCmd.Flags().StringVar(&checkOutputPath, "output", "", "Also store the run in this SQLite database")
	checkCmd.Flags().BoolVar(&checkNoVCS, "no-vcs", false, "Do not skip files ignored by git")
	checkCmd.Flags().StringVar(&checkColor, "color", "auto", "Color output: auto, always, never")
	checkCmd.Flags().StringVar(&checkConfigPath, "config", "", "Path to a config file (default: <root>/perimeter.yml)")
	checkCmd.Flags().StringVar(&checkKindsInclude, "kinds-include", "", "Only report kinds matching regex pattern (comma-separated)")
	checkCmd.Flags().StringVar(&checkKindsExclude, "kinds-exclude", "", "Drop kinds matching regex pattern (comma-separated)")
	checkCmd.Flags().Int64Var(&checkMaxFileSize, "max-file-size", 0, "Skip files larger than this many bytes (0 = no limit)")
	checkCmd.Flags().BoolVar(&checkFailOnDiagnostics, "fail-on-diagnostics", true, "Exit non-zero when any diagnostic is reported")
	checkCmd.Flags().StringVar(&checkParser, "parser", "", "Import parser: builtin, tree-sitter (default builtin)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	if err := validateOutputFlags(checkFormat, checkColor); err != nil {
		return err
	}

	cfg, err := loadCheckConfig(cmd, root)
	if err != nil {
		return err
	}

	p, err := parser.ByName(cfg.Parser)
	if err != nil {
		return err
	}

	log := newLogger(cmd)
	checker, err := perimeter.NewChecker(
		perimeter.WithParser(p),
		perimeter.WithWorkers(cfg.Workers),
		perimeter.WithContextLines(cfg.Context()),
		perimeter.WithVCS(cfg.VCSIgnore()),
		perimeter.WithPackageFilter(cfg.Packages),
		perimeter.WithExtraIncludes(cfg.Include),
		perimeter.WithExtraExcludes(cfg.Exclude),
		perimeter.WithMaxFileSize(cfg.MaxFileSize),
		perimeter.WithKindFilter(diagnostic.FilterConfig{Include: cfg.Kinds.Include, Exclude: cfg.Kinds.Exclude}),
		perimeter.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("configuring checker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	report, err := checker.CheckWorkspace(ctx, root)
	if err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("check finished")

	if checkOutputPath != "" {
		if err := saveReport(checkOutputPath, report, log); err != nil {
			return err
		}
	}

	if err := writeReport(cmd.OutOrStdout(), report, checkFormat, checkColor); err != nil {
		return err
	}

	if checkFailOnDiagnostics && report.Count() > 0 {
		return errDiagnosticsFound
	}
	return nil
}

// loadCheckConfig reads the config file and lays explicitly set flags over
// it.
func loadCheckConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if checkConfigPath != "" {
		cfg, err = config.Load(checkConfigPath, false)
	} else {
		cfg, err = config.LoadForRoot(root)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = checkWorkers
	}
	if flags.Changed("context-lines") {
		lines := checkContextLines
		cfg.ContextLines = &lines
	}
	if flags.Changed("filter") {
		cfg.Packages = checkFilter
	}
	if flags.Changed("no-vcs") {
		ignore := !checkNoVCS
		cfg.IgnoreVCS = &ignore
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = checkMaxFileSize
	}
	if flags.Changed("kinds-include") {
		cfg.Kinds.Include = diagnostic.ParsePatterns(checkKindsInclude)
	}
	if flags.Changed("kinds-exclude") {
		cfg.Kinds.Exclude = diagnostic.ParsePatterns(checkKindsExclude)
	}
	if flags.Changed("parser") {
		cfg.Parser = checkParser
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func saveReport(path string, report *perimeter.Report, log logrus.FieldLogger) error {
	s, err := store.New(store.Config{Path: path})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer s.Close()

	runID, err := store.Save(s, report, time.Now())
	if err != nil {
		return fmt.Errorf("storing report: %w", err)
	}
	log.WithFields(logrus.Fields{"path": path, "run": runID}).Info("report stored")
	return nil
}
