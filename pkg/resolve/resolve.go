// Package resolve answers where a module specifier points when imported from
// a directory. The boundary checker only consults it to exempt runtime
// builtins, so a resolved path is informational.
package resolve

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a specifier resolves to nothing.
var ErrNotFound = errors.New("module not found")

// BuiltinError is returned when a specifier names a runtime builtin module.
type BuiltinError struct {
	Name string
}

func (e *BuiltinError) Error() string {
	return fmt.Sprintf("%s is a builtin module", e.Name)
}

// IsBuiltin reports whether err marks a builtin module.
func IsBuiltin(err error) bool {
	var builtin *BuiltinError
	return errors.As(err, &builtin)
}

// Resolver resolves specifier as imported from a file in dir.
type Resolver interface {
	Resolve(dir, specifier string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(dir, specifier string) (string, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(dir, specifier string) (string, error) {
	return f(dir, specifier)
}
