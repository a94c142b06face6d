package loader

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// excludedDirs are directory names never descended into.
var excludedDirs = []string{
	".git",
	".svn",
	"__MACOSX",
	".Trash",
}

// shouldExcludeDir reports whether a directory subtree is skipped during traversal.
func shouldExcludeDir(name string) bool {
	for _, excl := range excludedDirs {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// MatchesInclude returns true if name matches any of the include patterns.
// If patterns is empty, everything is included.
func MatchesInclude(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(name, patterns)
}

// MatchesExclude returns true if name matches any of the exclude patterns.
func MatchesExclude(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	return matchesAny(name, patterns)
}

// matchesAny matches the slash path and its base name against each pattern.
// Extensions compare case-insensitively so scanned "GUIDE.PDF" files are found.
func matchesAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	base := path.Base(lower)

	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.ReplaceAll(pattern, "\\", "/"))

		if matched, err := doublestar.Match(pattern, lower); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
