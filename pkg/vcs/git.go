// Package vcs classifies paths against the ignore rules of the git repository
// enclosing a directory.
package vcs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Ignorer reports whether a path is excluded by version control.
type Ignorer interface {
	IsIgnored(path string) bool
}

// GitIgnorer matches paths against every .gitignore in a worktree, plus the
// repository's info/exclude patterns.
type GitIgnorer struct {
	root    string
	matcher gitignore.Matcher
}

// Discover looks for a git repository at or above dir. It returns (nil, nil)
// when no repository exists; that is not an error, the VCS filter is simply
// skipped.
func Discover(dir string) (*GitIgnorer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening git repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening worktree: %w", err)
	}

	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("reading ignore patterns: %w", err)
	}
	patterns = append(patterns, wt.Excludes...)

	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	return &GitIgnorer{
		root:    root,
		matcher: gitignore.NewMatcher(patterns),
	}, nil
}

// Root returns the worktree root directory.
func (g *GitIgnorer) Root() string {
	return g.root
}

// IsIgnored reports whether path (absolute, or relative to the worktree
// root) is ignored. Paths outside the worktree are never ignored.
func (g *GitIgnorer) IsIgnored(path string) bool {
	parts, ok := g.relParts(path)
	if !ok {
		return false
	}
	isDir := false
	if info, err := os.Stat(path); err == nil {
		isDir = info.IsDir()
	}
	return g.matcher.Match(parts, isDir)
}

func (g *GitIgnorer) relParts(path string) ([]string, bool) {
	if filepath.IsAbs(path) {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		rel, err := filepath.Rel(g.root, path)
		if err != nil {
			return nil, false
		}
		path = rel
	}
	path = filepath.ToSlash(path)
	if path == "." || path == ".." || strings.HasPrefix(path, "../") {
		return nil, false
	}
	return strings.Split(path, "/"), true
}
