// Package model defines the data passed between the stages of a metrics run:
// discovered files, per-file scope trees, and the aggregate report.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Language identifies a supported source language.
type Language string

const (
	LangC   Language = "c"
	LangCPP Language = "cpp"
)

// ScopeKind classifies a lexical scope in a metric tree.
type ScopeKind string

const (
	ScopeUnit      ScopeKind = "unit"
	ScopeNamespace ScopeKind = "namespace"
	ScopeClass     ScopeKind = "class"
	ScopeStruct    ScopeKind = "struct"
	ScopeUnion     ScopeKind = "union"
	ScopeFunction  ScopeKind = "function"
	ScopeClosure   ScopeKind = "closure"
)

// IsCallable reports whether the kind is a function-like scope.
func (k ScopeKind) IsCallable() bool {
	return k == ScopeFunction || k == ScopeClosure
}

var (
	// ErrUnsupportedLanguage is returned for files whose extension has no analyzer.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrDiscovery marks a path that could not be inspected during the walk.
	ErrDiscovery = errors.New("discovery error")
	// ErrAnalysis marks a file the analyzer could not measure.
	ErrAnalysis = errors.New("analysis error")
	// ErrSerialization marks an artifact that could not be produced.
	ErrSerialization = errors.New("serialization error")
	// ErrNoFiles is returned when a run discovers nothing to analyze.
	ErrNoFiles = errors.New("no source files discovered")
)

// FileDescriptor is a discovered file queued for analysis.
type FileDescriptor struct {
	Index    int
	Path     string
	RelPath  string
	Language Language
	Size     int64
	// Err is set when the file was found but could not be inspected.
	Err      error
}

// Scope is one node of a per-file metric tree.
type Scope struct {
	Kind      ScopeKind          `json:"kind" yaml:"kind"`
	Name      string             `json:"name" yaml:"name"`
	StartLine int                `json:"start_line" yaml:"start_line"`
	EndLine   int                `json:"end_line" yaml:"end_line"`
	Metrics   map[string]float64 `json:"metrics" yaml:"metrics"`
	Children  []*Scope           `json:"children,omitempty" yaml:"children,omitempty"`
}

// Contains reports whether other's span lies within s's span.
func (s *Scope) Contains(other *Scope) bool {
	return other.StartLine >= s.StartLine && other.EndLine <= s.EndLine
}

// Walk visits s and its descendants in depth-first pre-order. The callback
// receives the chain of ancestors, outermost first.
func (s *Scope) Walk(fn func(sc *Scope, ancestors []*Scope)) {
	var visit func(sc *Scope, ancestors []*Scope)
	visit = func(sc *Scope, ancestors []*Scope) {
		fn(sc, ancestors)
		next := append(ancestors[:len(ancestors):len(ancestors)], sc)
		for _, c := range sc.Children {
			visit(c, next)
		}
	}
	visit(s, nil)
}

// Count returns the number of scopes in the tree rooted at s.
func (s *Scope) Count() int {
	n := 0
	s.Walk(func(*Scope, []*Scope) { n++ })
	return n
}

// Validate checks that spans are well formed and that every child lies
// within its parent.
func (s *Scope) Validate() error {
	if s.StartLine < 1 || s.EndLine < s.StartLine {
		return fmt.Errorf("scope %s %q has invalid span %d-%d", s.Kind, s.Name, s.StartLine, s.EndLine)
	}
	for _, c := range s.Children {
		if !s.Contains(c) {
			return fmt.Errorf("scope %s %q (%d-%d) escapes parent %q (%d-%d)",
				c.Kind, c.Name, c.StartLine, c.EndLine, s.Name, s.StartLine, s.EndLine)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize replaces non-finite metric values with zero and orders children
// by span throughout the tree.
func (s *Scope) Normalize() {
	for k, v := range s.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.Metrics[k] = 0
		}
	}
	sort.SliceStable(s.Children, func(i, j int) bool {
		a, b := s.Children[i], s.Children[j]
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.EndLine > b.EndLine
	})
	for _, c := range s.Children {
		c.Normalize()
	}
}

// Clone returns a deep copy of the tree.
func (s *Scope) Clone() *Scope {
	cp := &Scope{
		Kind:      s.Kind,
		Name:      s.Name,
		StartLine: s.StartLine,
		EndLine:   s.EndLine,
		Metrics:   make(map[string]float64, len(s.Metrics)),
	}
	for k, v := range s.Metrics {
		cp.Metrics[k] = v
	}
	for _, c := range s.Children {
		cp.Children = append(cp.Children, c.Clone())
	}
	return cp
}

// Status is the outcome of analyzing one file.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Stage names the step at which a file failed.
type Stage string

const (
	StageDiscovery Stage = "discovery"
	StageRead      Stage = "read"
	StageAnalysis  Stage = "analysis"
)

// FileResult is the outcome for exactly one descriptor. Scope is set when
// Status is StatusOK; Stage and Error are set otherwise.
type FileResult struct {
	Path     string
	Language Language
	Size     int64
	Status   Status
	Scope    *Scope
	Stage    Stage
	Error    string
}

// OK reports whether the file was analyzed.
func (r FileResult) OK() bool { return r.Status == StatusOK }

// Success builds a result for an analyzed file.
func Success(fd FileDescriptor, scope *Scope) FileResult {
	return FileResult{Path: fd.RelPath, Language: fd.Language, Size: fd.Size, Status: StatusOK, Scope: scope}
}

// Failure builds a result for a file that could not be analyzed.
func Failure(fd FileDescriptor, stage Stage, err error) FileResult {
	return FileResult{Path: fd.RelPath, Language: fd.Language, Size: fd.Size, Status: StatusFailed, Stage: stage, Error: err.Error()}
}

// Skip reasons.
const (
	ReasonUnsupported = "unsupported language"
	ReasonTooLarge    = "too large"
)

// SkippedFile is a file the discoverer deliberately left out.
type SkippedFile struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}
