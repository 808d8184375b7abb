package boundary

import (
	"path/filepath"
	"strings"
)

// PathRelation is where a path lies relative to a base directory.
type PathRelation int

const (
	RelationDisjoint PathRelation = iota
	RelationEqual
	RelationDescendant
	RelationAncestor
)

func (r PathRelation) String() string {
	switch r {
	case RelationEqual:
		return "equal"
	case RelationDescendant:
		return "descendant"
	case RelationAncestor:
		return "ancestor"
	default:
		return "disjoint"
	}
}

// Relation compares target with base component by component after cleaning
// both. It is defined for every input: paths on different volumes, or one
// absolute and one relative, are disjoint.
func Relation(base, target string) PathRelation {
	base = filepath.Clean(base)
	target = filepath.Clean(target)

	if !strings.EqualFold(filepath.VolumeName(base), filepath.VolumeName(target)) ||
		filepath.IsAbs(base) != filepath.IsAbs(target) {
		return RelationDisjoint
	}

	b := components(base)
	t := components(target)

	n := len(b)
	if len(t) < n {
		n = len(t)
	}
	for i := 0; i < n; i++ {
		if b[i] != t[i] {
			return RelationDisjoint
		}
	}

	switch {
	case len(b) == len(t):
		return RelationEqual
	case len(t) > len(b):
		return RelationDescendant
	default:
		return RelationAncestor
	}
}

// components splits a cleaned path into its names, dropping the volume and
// the root separator.
func components(p string) []string {
	p = p[len(filepath.VolumeName(p)):]
	var out []string
	for _, c := range strings.Split(p, string(filepath.Separator)) {
		if c != "" && c != "." {
			out = append(out, c)
		}
	}
	return out
}
