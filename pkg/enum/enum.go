package enum

import (
	"context"

	"github.com/praetorian-inc/perimeter/pkg/vcs"
)

// Enumerator discovers the source files of one package.
type Enumerator interface {
	// Discover returns the absolute paths of candidate files in sorted order.
	Discover(ctx context.Context) ([]string, error)

	// Enumerate discovers files and reads them in parallel. The callback
	// receives the file's position in discovery order, its path, and either
	// its content or the read error. Read errors are not fatal; returning an
	// error from the callback is.
	Enumerate(ctx context.Context, callback func(index int, path string, content []byte, readErr error) error) error
}

// Config for enumeration.
type Config struct {
	// Root is the package directory to enumerate.
	Root string

	// Include adds glob patterns (relative to Root, "/" separated) to DefaultInclude.
	Include []string

	// Exclude adds gitignore-style patterns to DefaultExclude.
	Exclude []string

	// Ignorer drops files that version control ignores. Nil disables the filter.
	Ignorer vcs.Ignorer

	// MaxFileSize is the maximum file size to read (0 = no limit).
	MaxFileSize int64

	// Readers is the number of parallel file readers (0 = runtime.NumCPU()).
	Readers int
}

// DefaultInclude matches every source file the checker understands.
var DefaultInclude = []string{
	"**/*.js",
	"**/*.jsx",
	"**/*.ts",
	"**/*.tsx",
	"**/*.vue",
	"**/*.svelte",
}

// DefaultExclude drops installed dependencies and example code at any depth.
var DefaultExclude = []string{
	"node_modules/",
	"examples/",
}
