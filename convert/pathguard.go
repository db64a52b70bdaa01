// Package convert implements the conversion job orchestration: planning
// which rule files each configured job compiles, invoking the external
// Sigma compilation engine, and persisting deterministic per-job output
// records under the project's conversions directory.
package convert

import (
	"path/filepath"
	"strings"
)

// IsSafePath reports whether targetPath stays within baseDir, guarding
// the output directory against path slips like "../outside". Both paths
// are resolved lexically to absolute, cleaned form; the check passes
// when they are equal or baseDir is a strict ancestor of targetPath.
func IsSafePath(baseDir, targetPath string) bool {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return false
	}
	target, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}

	if base == target {
		return true
	}

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
