package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ReferenceKind says how a configured pipeline reference should be
// handed to the engine.
type ReferenceKind int

const (
	// ReferenceNamed is a named or built-in pipeline, passed through verbatim.
	ReferenceNamed ReferenceKind = iota
	// ReferencePath is a pipeline file, resolved against the project root.
	ReferencePath
)

// PipelineReference is one classified pipeline entry. For ReferencePath
// the Value holds the resolved absolute path; for ReferenceNamed it is
// the identifier as written.
type PipelineReference struct {
	Value string
	Kind  ReferenceKind
}

// ClassifyReference decides whether a configuration string names a
// pipeline or points at a pipeline file. A reference is a path when any
// of these hold:
//
//   - it exists on disk right now,
//   - it is absolute or contains a path separator,
//   - it has a file extension and matches the job's filename pattern.
//
// Everything else is a named pipeline. Pipeline identifiers in practice
// are short tokens without separators or extensions while pipeline
// files look like "pipelines/ocsf.yml", so this heuristic resolves the
// common cases without forcing users to tag every reference. A named
// pipeline that happens to collide with an existing file is
// misclassified; that ambiguity is inherent to the heuristic.
func ClassifyReference(reference, filenamePattern string) ReferenceKind {
	if _, err := os.Stat(reference); err == nil {
		return ReferencePath
	}

	if filepath.IsAbs(reference) || containsSeparator(reference) {
		return ReferencePath
	}

	if filepath.Ext(reference) != "" {
		if ok, err := doublestar.Match(filenamePattern, reference); err == nil && ok {
			return ReferencePath
		}
	}

	return ReferenceNamed
}

func containsSeparator(s string) bool {
	return strings.ContainsRune(s, '/') || strings.ContainsRune(s, filepath.Separator)
}
