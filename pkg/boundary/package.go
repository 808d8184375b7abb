package boundary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/praetorian-inc/perimeter/pkg/diagnostic"
	"github.com/praetorian-inc/perimeter/pkg/enum"
	"github.com/praetorian-inc/perimeter/pkg/extract"
	"github.com/praetorian-inc/perimeter/pkg/parser"
	"github.com/praetorian-inc/perimeter/pkg/resolve"
	"github.com/praetorian-inc/perimeter/pkg/types"
	"github.com/praetorian-inc/perimeter/pkg/workspace"
)

// Options configures a package check.
type Options struct {
	// Files configures discovery; Root is set to the package directory.
	Files        enum.Config
	Parser       parser.Parser
	Resolver     resolve.Resolver
	ContextLines int
	Logger       logrus.FieldLogger
}

// CheckPackage discovers, parses and validates every source file of pkg.
// Files are processed concurrently but diagnostics come back in discovery
// order, then in-file order. A non-empty report is still a successful
// check: only discovery failures return an error.
func CheckPackage(ctx context.Context, pkg *workspace.Package, deps *workspace.DependencyContext, opts Options) (*types.PackageReport, error) {
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	log = log.WithField("package", pkg.Name)

	p := opts.Parser
	if p == nil {
		p = parser.New()
	}

	cfg := opts.Files
	cfg.Root = pkg.Dir
	enumerator, err := enum.NewFilesystemEnumerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring discovery for %s: %w", pkg.Name, err)
	}

	checker := &Checker{
		Package:  pkg,
		Deps:     deps,
		Resolver: opts.Resolver,
		Diags:    diagnostic.NewFactory(pkg.Name, opts.ContextLines),
	}
	collector := diagnostic.NewCollector(0)
	var files atomic.Int64

	err = enumerator.Enumerate(ctx, func(index int, path string, content []byte, readErr error) error {
		if readErr != nil {
			var tooLarge *enum.FileTooLargeError
			if errors.As(readErr, &tooLarge) {
				log.WithField("path", path).Warnf("skipping file larger than %d bytes", tooLarge.Limit)
				return nil
			}
			files.Add(1)
			collector.Add(index, checker.Diags.FileNotFound(path, readErr))
			return nil
		}
		files.Add(1)
		collector.Add(index, checkFile(p, checker, types.NewSourceFile(path, content))...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &types.PackageReport{
		Package:     pkg.Name,
		Dir:         pkg.Dir,
		Files:       int(files.Load()),
		Diagnostics: collector.Diagnostics(),
	}
	log.WithFields(logrus.Fields{
		"files":       report.Files,
		"diagnostics": len(report.Diagnostics),
	}).Debug("package checked")
	return report, nil
}

// checkFile extracts and validates the imports of one file. A parse failure
// yields exactly one diagnostic and no import checks.
func checkFile(p parser.Parser, c *Checker, file *types.SourceFile) []*types.Diagnostic {
	imports, err := extract.File(p, file)
	if err != nil {
		var syntaxErr *parser.SyntaxError
		if errors.As(err, &syntaxErr) {
			return []*types.Diagnostic{c.Diags.ParseError(file, syntaxErr.Offset, syntaxErr.Msg)}
		}
		return []*types.Diagnostic{c.Diags.ParseError(file, -1, err.Error())}
	}

	var diags []*types.Diagnostic
	for i := range imports {
		if d := c.CheckImport(file, &imports[i]); d != nil {
			diags = append(diags, d)
		}
	}
	return diags
}
