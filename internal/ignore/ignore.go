// Package ignore decides which paths a run leaves out, using gitignore-style
// patterns from configuration and from .gitignore files under the roots.
package ignore

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Matcher matches paths against gitignore-style rules. Later rules override
// earlier ones, so a negated pattern can re-include a path.
type Matcher struct {
	roots    []string
	patterns []string
	rules    []rule
}

type rule struct {
	parts    []string
	negation bool
	dirOnly  bool
	anchored bool
	basePath string // directory the pattern is relative to
}

// New creates a matcher for the given roots. patterns are extra exclude
// patterns, interpreted relative to every root.
func New(roots []string, patterns []string) *Matcher {
	m := &Matcher{roots: roots, patterns: patterns}
	m.addConfigRules()
	return m
}

func (m *Matcher) addConfigRules() {
	m.rules = nil
	for _, p := range m.patterns {
		if len(m.roots) == 0 {
			m.add(p, "")
			continue
		}
		for _, root := range m.roots {
			m.add(p, root)
		}
	}
}

func (m *Matcher) add(pattern, basePath string) {
	if r, ok := parsePattern(pattern, basePath); ok {
		m.rules = append(m.rules, r)
	}
}

// Load resets the rules and reads every .gitignore file under the roots.
// Unreadable entries are skipped.
func (m *Matcher) Load() error {
	m.addConfigRules()

	for _, root := range m.roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip inaccessible entries
			}
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() == ".gitignore" {
				if loadErr := m.loadFile(path); loadErr != nil {
					return nil // skip unreadable gitignore files
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) loadFile(gitignorePath string) error {
	f, err := os.Open(gitignorePath)
	if err != nil {
		return err
	}
	defer f.Close()

	basePath := filepath.Dir(gitignorePath)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.add(line, basePath)
	}
	return scanner.Err()
}

// Len returns the number of loaded rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Match reports whether path is ignored. isDir tells whether path itself is
// a directory; files under an ignored directory are ignored too.
func (m *Matcher) Match(path string, isDir bool) bool {
	matched := false
	for _, r := range m.rules {
		if r.matches(path, isDir) {
			matched = !r.negation
		}
	}
	return matched
}

func parsePattern(pattern string, basePath string) (rule, bool) {
	r := rule{basePath: basePath}

	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	// A slash anywhere but the end anchors the pattern to basePath.
	if strings.Contains(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}

	r.parts = splitPath(pattern)
	return r, len(r.parts) > 0
}

func (r rule) matches(path string, isDir bool) bool {
	rel := path
	if r.basePath != "" {
		var err error
		rel, err = filepath.Rel(r.basePath, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return false
		}
	}
	parts := splitPath(rel)

	// Every ancestor directory is a candidate, and so is the path itself
	// unless the rule only applies to directories it is not.
	n := len(parts)
	if r.dirOnly && !isDir {
		n--
	}
	for i := 1; i <= n; i++ {
		if r.matchPrefix(parts[:i]) {
			return true
		}
	}
	return false
}

func (r rule) matchPrefix(prefix []string) bool {
	if r.anchored {
		return matchParts(r.parts, prefix)
	}
	matched, _ := filepath.Match(r.parts[0], prefix[len(prefix)-1])
	return matched
}

func matchParts(patternParts, pathParts []string) bool {
	if len(patternParts) == 0 {
		return len(pathParts) == 0
	}

	if patternParts[0] == "**" {
		// ** matches zero or more directories.
		rest := patternParts[1:]
		for i := 0; i <= len(pathParts); i++ {
			if matchParts(rest, pathParts[i:]) {
				return true
			}
		}
		return false
	}

	if len(pathParts) == 0 {
		return false
	}

	matched, _ := filepath.Match(patternParts[0], pathParts[0])
	if !matched {
		return false
	}
	return matchParts(patternParts[1:], pathParts[1:])
}

func splitPath(path string) []string {
	path = filepath.ToSlash(path)
	var result []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && p != "." {
			result = append(result, p)
		}
	}
	return result
}
