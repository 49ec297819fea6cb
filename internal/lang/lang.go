// Package lang maps source files to languages and to the analyzers that
// measure them.
package lang

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/imyousuf/archaeo/internal/model"
)

// FileExtensions maps each language to its recognized file extensions.
// Headers are measured with the C++ grammar, which accepts C headers.
var FileExtensions = map[model.Language][]string{
	model.LangC:   {".c"},
	model.LangCPP: {".cc", ".cpp", ".cxx", ".c++", ".h", ".hh", ".hpp", ".hxx", ".inl"},
}

// Analyzer computes a metric tree for one source file.
type Analyzer interface {
	// Language returns which language this analyzer handles.
	Language() model.Language

	// Extensions returns the file extensions this analyzer can handle.
	Extensions() []string

	// Version identifies the metric definitions. It changes whenever the same
	// input would produce a different tree.
	Version() string

	// Analyze parses content and returns the unit scope with nested scopes.
	Analyze(ctx context.Context, filePath string, content []byte) (*model.Scope, error)
}

// Detect returns the language for a path based on its extension. Matching
// ignores case.
func Detect(path string) (model.Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", false
	}
	for l, exts := range FileExtensions {
		for _, e := range exts {
			if e == ext {
				return l, true
			}
		}
	}
	return "", false
}
