package types

import "fmt"

// FatalKind classifies errors that abort a package check or a whole run.
type FatalKind string

const (
	FatalEnumeration FatalKind = "enumeration"
	FatalLockfile    FatalKind = "lockfile"
	FatalPath        FatalKind = "path"
	FatalWorkspace   FatalKind = "workspace"
)

// FatalError is a passthrough error from a collaborator. Unlike diagnostics
// it stops the check it occurred in.
type FatalError struct {
	Kind FatalKind
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
