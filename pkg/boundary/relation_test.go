package boundary

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelation(t *testing.T) {
	root := filepath.FromSlash("/repo/packages/a")
	tests := []struct {
		target string
		want   PathRelation
	}{
		{"/repo/packages/a", RelationEqual},
		{"/repo/packages/a/", RelationEqual},
		{"/repo/packages/a/src/x.ts", RelationDescendant},
		{"/repo/packages/a/src/../lib", RelationDescendant},
		{"/repo/packages", RelationAncestor},
		{"/", RelationAncestor},
		{"/repo/packages/b/secret", RelationDisjoint},
		{"/repo/packages/ab", RelationDisjoint},
		{"/repo/packages/a-other/x", RelationDisjoint},
		{"relative/path", RelationDisjoint},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, Relation(root, filepath.FromSlash(tt.target)))
		})
	}
}

func TestRelation_AdversarialDotDot(t *testing.T) {
	root := filepath.FromSlash("/repo/packages/a")
	fileDir := filepath.FromSlash("/repo/packages/a/src/deep")

	for depth := 0; depth < 64; depth++ {
		spec := strings.Repeat("../", depth) + "x"
		target := filepath.Join(fileDir, spec)
		rel := Relation(root, target)

		// src/deep sits two levels below the root
		if depth <= 2 {
			assert.Contains(t, []PathRelation{RelationEqual, RelationDescendant}, rel, spec)
		} else {
			assert.Contains(t, []PathRelation{RelationAncestor, RelationDisjoint}, rel, spec)
		}
	}

	for _, spec := range []string{"../../../../../../../../..", "./../.././../..", "..//..//", "a/../../../b/../../.."} {
		assert.NotPanics(t, func() {
			_ = Relation(root, filepath.Join(fileDir, filepath.FromSlash(spec)))
		})
	}
}

func TestRelation_RelativeBase(t *testing.T) {
	assert.Equal(t, RelationDescendant, Relation(".", "x/y"))
	assert.Equal(t, RelationEqual, Relation("a/b", "a/./b"))
	assert.Equal(t, RelationDisjoint, Relation("a", "../a"))
}

func TestPathRelation_String(t *testing.T) {
	assert.Equal(t, "equal", RelationEqual.String())
	assert.Equal(t, "descendant", RelationDescendant.String())
	assert.Equal(t, "ancestor", RelationAncestor.String())
	assert.Equal(t, "disjoint", RelationDisjoint.String())
}
