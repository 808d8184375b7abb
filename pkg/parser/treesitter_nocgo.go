//go:build !cgo

package parser

import "errors"

var errTreeSitterUnavailable = errors.New("the tree-sitter parser requires cgo (build with CGO_ENABLED=1)")

// TreeSitterParser is unavailable without cgo.
type TreeSitterParser struct{}

// NewTreeSitter fails in builds without cgo.
func NewTreeSitter() (*TreeSitterParser, error) {
	return nil, errTreeSitterUnavailable
}

// Parse always fails in builds without cgo.
func (p *TreeSitterParser) Parse(src []byte, cfg Config) (*Module, error) {
	return nil, errTreeSitterUnavailable
}
