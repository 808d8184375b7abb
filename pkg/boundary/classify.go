package boundary

import (
	"regexp"
	"strings"
	"sync"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// packageNameGrammar matches an npm package name with an optional scope.
// It is applied to the whole specifier, so subpath imports do not match.
var packageNameGrammar = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^(@[a-z0-9~-][a-z0-9._~-]*/)?[a-z0-9~-][a-z0-9._~-]*$`)
})

// Classify decides how a specifier is validated.
func Classify(specifier string) types.ImportKind {
	switch {
	case strings.HasPrefix(specifier, "."):
		return types.ImportKindRelativeFile
	case packageNameGrammar().MatchString(specifier):
		return types.ImportKindBarePackage
	default:
		return types.ImportKindUnclassified
	}
}

// PackageName derives the package a bare specifier names: the first two
// segments of a scoped specifier, otherwise everything before the first "/".
func PackageName(specifier string) string {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
		return specifier
	}
	name, _, _ := strings.Cut(specifier, "/")
	return name
}

// TypesPackage returns the DefinitelyTyped package for name.
func TypesPackage(name string) string {
	return "@types/" + name
}
