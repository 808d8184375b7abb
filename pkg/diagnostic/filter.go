package diagnostic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// FilterConfig specifies include and exclude patterns over diagnostic kinds.
type FilterConfig struct {
	Include []string // Regex patterns - only matching kinds kept
	Exclude []string // Regex patterns - matching kinds dropped
}

// ParsePatterns splits a comma-separated string into trimmed patterns.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include then exclude patterns to diagnostics by kind.
// Empty include keeps everything.
func Filter(diags []*types.Diagnostic, config FilterConfig) ([]*types.Diagnostic, error) {
	include, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}
	if len(include) == 0 && len(exclude) == 0 {
		return diags, nil
	}

	result := make([]*types.Diagnostic, 0, len(diags))
	for _, d := range diags {
		kind := string(d.Kind)
		if len(include) > 0 && !matchesAny(kind, include) {
			continue
		}
		if matchesAny(kind, exclude) {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

// FilterReport applies Filter to every package of a report in place.
func FilterReport(report *types.Report, config FilterConfig) error {
	for _, pkg := range report.Packages {
		kept, err := Filter(pkg.Diagnostics, config)
		if err != nil {
			return err
		}
		pkg.Diagnostics = kept
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchesAny(kind string, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(kind) {
			return true
		}
	}
	return false
}
