// Package perimeter checks that the packages of a JavaScript/TypeScript
// monorepo only import what they declare.
//
// Every source file of every workspace package is parsed for import
// specifiers. Bare package imports must name a declared dependency (or a
// runtime builtin), and relative imports must stay inside the importing
// package's directory. Violations come back as source-located diagnostics.
//
// # Basic Usage
//
//	checker, err := perimeter.NewChecker()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := checker.CheckWorkspace(ctx, "/path/to/repo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, d := range report.Diagnostics() {
//	    fmt.Println(d.Error())
//	}
//
// # Narrowing a Run
//
//	checker, err := perimeter.NewChecker(
//	    perimeter.WithPackageFilter([]string{"web"}),
//	    perimeter.WithExtraExcludes([]string{"__fixtures__/"}),
//	    perimeter.WithWorkers(4),
//	)
package perimeter

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/perimeter/pkg/boundary"
	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/enum"
	"github.com/praetorian-inc/perimeter/pkg/parser"
	"github.com/praetorian-inc/perimeter/pkg/resolve"
	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/praetorian-inc/perimeter/pkg/vcs"
	"github.com/praetorian-inc/perimeter/pkg/workspace"
)

// Re-export commonly used types for convenience.
type (
	// Report is the result of one workspace check.
	Report = types.Report

	// PackageReport holds the diagnostics of one package.
	PackageReport = types.PackageReport

	// Diagnostic is a single source-located boundary violation.
	Diagnostic = types.Diagnostic

	// DiagnosticKind identifies which rule a diagnostic reports.
	DiagnosticKind = types.DiagnosticKind

	// Workspace is a discovered monorepo.
	Workspace = workspace.Workspace

	// Package is one workspace package.
	Package = workspace.Package
)

// Re-export diagnostic kinds.
const (
	KindNotTypeOnlyImport   = types.KindNotTypeOnlyImport
	KindPackageNotFound     = types.KindPackageNotFound
	KindImportLeavesPackage = types.KindImportLeavesPackage
	KindParseError          = types.KindParseError
	KindFileNotFound        = types.KindFileNotFound
	KindPath                = types.KindPath
)

// Checker runs boundary checks. It is safe for concurrent use.
type Checker struct {
	config *checkerConfig
}

// checkerConfig holds checker configuration.
type checkerConfig struct {
	workers      int
	contextLines int
	resolver     resolve.Resolver
	parser       parser.Parser
	logger       logrus.FieldLogger
	vcs          bool
	packages     []string
	includes     []string
	excludes     []string
	maxFileSize  int64
	kinds        diagnostic.FilterConfig
}

// Option configures a Checker.
type Option func(*checkerConfig)

// WithWorkers bounds how many packages, and how many file readers within a
// package, run at once. Default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *checkerConfig) {
		c.workers = n
	}
}

// WithContextLines sets the number of snippet lines kept around each
// diagnostic. Default is 2.
func WithContextLines(lines int) Option {
	return func(c *checkerConfig) {
		c.contextLines = lines
	}
}

// WithResolver replaces the node_modules resolver used to recognize runtime
// builtins.
func WithResolver(r resolve.Resolver) Option {
	return func(c *checkerConfig) {
		c.resolver = r
	}
}

// WithParser replaces the source parser.
func WithParser(p parser.Parser) Option {
	return func(c *checkerConfig) {
		c.parser = p
	}
}

// WithLogger sets the logger. Nil discards all logs.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *checkerConfig) {
		c.logger = l
	}
}

// WithVCS toggles skipping files ignored by git. Enabled by default.
func WithVCS(enabled bool) Option {
	return func(c *checkerConfig) {
		c.vcs = enabled
	}
}

// WithPackageFilter checks only the named workspace packages.
func WithPackageFilter(names []string) Option {
	return func(c *checkerConfig) {
		c.packages = names
	}
}

// WithExtraIncludes adds file glob patterns to the default source extensions.
func WithExtraIncludes(patterns []string) Option {
	return func(c *checkerConfig) {
		c.includes = patterns
	}
}

// WithExtraExcludes adds gitignore-style exclusion patterns.
func WithExtraExcludes(patterns []string) Option {
	return func(c *checkerConfig) {
		c.excludes = patterns
	}
}

// WithMaxFileSize skips files larger than n bytes (0 = no limit).
func WithMaxFileSize(n int64) Option {
	return func(c *checkerConfig) {
		c.maxFileSize = n
	}
}

// WithKindFilter keeps only diagnostics whose kind passes the include and
// exclude patterns.
func WithKindFilter(f diagnostic.FilterConfig) Option {
	return func(c *checkerConfig) {
		c.kinds = f
	}
}

// NewChecker creates a Checker with the given options.
//
// By default, the checker:
//   - Uses one worker per CPU
//   - Keeps 2 lines of context around diagnostics
//   - Resolves builtins with a cached node_modules resolver
//   - Skips files ignored by git
func NewChecker(opts ...Option) (*Checker, error) {
	return build(&checkerConfig{
		workers:      runtime.NumCPU(),
		contextLines: diagnostic.DefaultContextLines,
		vcs:          true,
	}, opts)
}

// With returns a checker that shares c's settings, resolver cache and logger
// with opts applied on top. c is not modified.
func (c *Checker) With(opts ...Option) (*Checker, error) {
	config := *c.config
	return build(&config, opts)
}

func build(config *checkerConfig, opts []Option) (*Checker, error) {
	for _, opt := range opts {
		opt(config)
	}

	if config.workers < 1 {
		config.workers = runtime.NumCPU()
	}
	if config.contextLines < 0 {
		return nil, fmt.Errorf("context lines must be >= 0, got %d", config.contextLines)
	}
	if config.maxFileSize < 0 {
		return nil, fmt.Errorf("max file size must be >= 0, got %d", config.maxFileSize)
	}
	if _, err := diagnostic.Filter(nil, config.kinds); err != nil {
		return nil, fmt.Errorf("invalid kind filter: %w", err)
	}
	if _, err := enum.NewFilesystemEnumerator(enum.Config{Include: config.includes}); err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}

	if config.resolver == nil {
		config.resolver = resolve.NewNodeResolver(resolve.DefaultCacheSize)
	}
	if config.parser == nil {
		config.parser = parser.New()
	}
	if config.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		config.logger = discard
	}

	return &Checker{config: config}, nil
}

// CheckWorkspace discovers the workspace at root and checks every selected
// package in parallel. Packages keep workspace order in the report. The
// first fatal error cancels the remaining packages and is returned.
func (c *Checker) CheckWorkspace(ctx context.Context, root string) (*Report, error) {
	ws, err := workspace.Discover(root)
	if err != nil {
		return nil, err
	}
	log := c.config.logger.WithField("root", ws.Root)
	if ws.Lockfile == nil {
		log.Warn("no lockfile found, resolved dependencies are unavailable")
	}

	pkgs, err := ws.Filter(c.config.packages)
	if err != nil {
		return nil, err
	}

	ignorer, err := c.ignorer(ws.Root)
	if err != nil {
		return nil, err
	}

	reports := make([]*PackageReport, len(pkgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.workers)
	for i, pkg := range pkgs {
		g.Go(func() error {
			report, err := c.checkPackage(gctx, ws, pkg, ignorer)
			if err != nil {
				return fmt.Errorf("checking package %s: %w", pkg.Name, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Root: ws.Root, Packages: reports}
	if err := diagnostic.FilterReport(report, c.config.kinds); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"packages":    len(reports),
		"files":       report.FileCount(),
		"diagnostics": report.Count(),
	}).Info("workspace checked")
	return report, nil
}

// CheckPackage checks one package of an already discovered workspace.
func (c *Checker) CheckPackage(ctx context.Context, ws *Workspace, pkg *Package) (*PackageReport, error) {
	ignorer, err := c.ignorer(ws.Root)
	if err != nil {
		return nil, err
	}
	report, err := c.checkPackage(ctx, ws, pkg, ignorer)
	if err != nil {
		return nil, err
	}
	kept, err := diagnostic.Filter(report.Diagnostics, c.config.kinds)
	if err != nil {
		return nil, err
	}
	report.Diagnostics = kept
	return report, nil
}

func (c *Checker) checkPackage(ctx context.Context, ws *Workspace, pkg *Package, ignorer vcs.Ignorer) (*PackageReport, error) {
	deps, err := workspace.NewDependencyContext(ws, ws.Lockfile, pkg)
	if err != nil {
		return nil, err
	}

	return boundary.CheckPackage(ctx, pkg, deps, boundary.Options{
		Files: enum.Config{
			Include:     c.config.includes,
			Exclude:     c.config.excludes,
			Ignorer:     ignorer,
			MaxFileSize: c.config.maxFileSize,
			Readers:     c.config.workers,
		},
		Parser:       c.config.parser,
		Resolver:     c.config.resolver,
		ContextLines: c.config.contextLines,
		Logger:       c.config.logger,
	})
}

// ignorer returns the git ignore filter for root, or nil when VCS filtering
// is off or root is not inside a repository.
func (c *Checker) ignorer(root string) (vcs.Ignorer, error) {
	if !c.config.vcs {
		return nil, nil
	}
	git, err := vcs.Discover(root)
	if err != nil {
		return nil, &types.FatalError{Kind: types.FatalPath, Path: root, Err: err}
	}
	if git == nil {
		return nil, nil
	}
	return git, nil
}
