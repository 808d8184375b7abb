package enum

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/praetorian-inc/perimeter/pkg/types"
	"golang.org/x/sync/errgroup"
)

// defaultIncludeGlobs are compiled once per process.
var defaultIncludeGlobs = sync.OnceValues(func() ([]glob.Glob, error) {
	return compileGlobs(DefaultInclude)
})

// FilesystemEnumerator enumerates package files from a filesystem directory.
type FilesystemEnumerator struct {
	config  Config
	include []glob.Glob
	exclude *gitignore.GitIgnore
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
// Returns an error if any include pattern is not a valid glob.
func NewFilesystemEnumerator(config Config) (*FilesystemEnumerator, error) {
	include, err := defaultIncludeGlobs()
	if err != nil {
		return nil, err
	}
	if len(config.Include) > 0 {
		extra, err := compileGlobs(config.Include)
		if err != nil {
			return nil, err
		}
		include = append(append([]glob.Glob{}, include...), extra...)
	}

	excludeLines := append(append([]string{}, DefaultExclude...), config.Exclude...)

	return &FilesystemEnumerator{
		config:  config,
		include: include,
		exclude: gitignore.CompileIgnoreLines(excludeLines...),
	}, nil
}

// Discover walks the package root and returns matching file paths, sorted.
// A walk failure is fatal for the package.
func (e *FilesystemEnumerator) Discover(ctx context.Context) ([]string, error) {
	root, err := filepath.Abs(e.config.Root)
	if err != nil {
		return nil, &types.FatalError{Kind: types.FatalEnumeration, Path: e.config.Root, Err: err}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if d.Name() == ".git" || e.exclude.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			if e.config.Ignorer != nil && e.config.Ignorer.IsIgnored(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if !e.isRegularFile(path, d) {
			return nil
		}
		if !e.matchesInclude(rel) || e.exclude.MatchesPath(rel) {
			return nil
		}
		if e.config.Ignorer != nil && e.config.Ignorer.IsIgnored(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &types.FatalError{Kind: types.FatalEnumeration, Path: root, Err: err}
	}

	sort.Strings(files)
	return files, nil
}

// Enumerate discovers files then reads them in parallel.
// Phase 1: Walk directory tree and collect eligible file paths (sequential).
// Phase 2: Read files and invoke callback in parallel.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, callback func(index int, path string, content []byte, readErr error) error) error {
	files, err := e.Discover(ctx)
	if err != nil {
		return err
	}

	numReaders := e.config.Readers
	if numReaders < 1 {
		numReaders = runtime.NumCPU()
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(numReaders)

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			content, readErr := e.readFile(path)
			return callback(i, path, content, readErr)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// If the caller's context was cancelled but all goroutines finished
	// before noticing, propagate the cancellation.
	if origCtx.Err() != nil {
		return origCtx.Err()
	}
	return nil
}

func (e *FilesystemEnumerator) readFile(path string) ([]byte, error) {
	if e.config.MaxFileSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > e.config.MaxFileSize {
			return nil, &FileTooLargeError{Path: path, Size: info.Size(), Limit: e.config.MaxFileSize}
		}
	}
	return os.ReadFile(path)
}

// FileTooLargeError is the read error reported for files above MaxFileSize.
type FileTooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s is %d bytes, larger than the %d byte limit", e.Path, e.Size, e.Limit)
}

// isRegularFile follows a symlink once, the way the filesystem would.
func (e *FilesystemEnumerator) isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// matchesInclude tests rel anchored at the root, so a leading "**/" may match
// zero directories.
func (e *FilesystemEnumerator) matchesInclude(rel string) bool {
	anchored := "/" + rel
	for _, g := range e.include {
		if g.Match(anchored) || g.Match(rel) {
			return true
		}
	}
	return false
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}
