// Package serialize renders an aggregate report as tabular (CSV) or
// hierarchical (JSON or YAML) artifacts.
package serialize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/renameio"

	"github.com/imyousuf/archaeo/internal/model"
)

// Format selects the shape of the output.
type Format string

const (
	FormatTabular      Format = "tabular"
	FormatHierarchical Format = "hierarchical"
)

// Encoding selects the document syntax for hierarchical output.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingYAML Encoding = "yaml"
)

// ParseFormat resolves a user-facing format name. The csv, json and yaml
// aliases pick the matching format and encoding.
func ParseFormat(name string) (Format, Encoding, error) {
	switch strings.ToLower(name) {
	case "tabular", "csv":
		return FormatTabular, "", nil
	case "hierarchical", "json":
		return FormatHierarchical, EncodingJSON, nil
	case "yaml", "yml":
		return FormatHierarchical, EncodingYAML, nil
	}
	return "", "", fmt.Errorf("%w: unknown format %q", model.ErrSerialization, name)
}

// Options configures a Serializer.
type Options struct {
	Format   Format
	Encoding Encoding
	// Split writes one artifact per analyzed file.
	Split bool
	// Unit names the header-only table written when split output has no
	// records. Empty means "metrics".
	Unit      string
	OutputDir string
}

// Serializer writes reports to a directory.
type Serializer struct {
	opts Options
}

// New validates opts and returns a Serializer.
func New(opts Options) (*Serializer, error) {
	switch opts.Format {
	case FormatTabular:
	case FormatHierarchical:
		if opts.Encoding == "" {
			opts.Encoding = EncodingJSON
		}
		if opts.Encoding != EncodingJSON && opts.Encoding != EncodingYAML {
			return nil, fmt.Errorf("%w: unknown encoding %q", model.ErrSerialization, opts.Encoding)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", model.ErrSerialization, opts.Format)
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("%w: no output directory", model.ErrSerialization)
	}
	return &Serializer{opts: opts}, nil
}

// artifact is one rendered output file.
type artifact struct {
	name string
	data []byte
}

// Write renders report and writes every artifact atomically. It returns the
// written paths in sorted order.
func (s *Serializer) Write(report *model.AggregateReport) ([]string, error) {
	var (
		arts []artifact
		err  error
	)
	switch s.opts.Format {
	case FormatTabular:
		arts, err = s.tabular(report)
	default:
		arts, err = s.hierarchical(report)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSerialization, err)
	}

	if err := os.MkdirAll(s.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSerialization, err)
	}

	paths := make([]string, 0, len(arts))
	for _, a := range arts {
		path := filepath.Join(s.opts.OutputDir, a.name)
		if err := renameio.WriteFile(path, a.data, 0644); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", model.ErrSerialization, path, err)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// artifactName derives an output name from a source path: separators become
// underscores and extended reports carry an -extended suffix.
func artifactName(source, ext string, extended bool) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(source)
	if extended {
		name += "-extended"
	}
	return name + "." + ext
}

// namer hands out artifact names, disambiguating collisions in call order.
type namer map[string]int

func (n namer) unique(name string) string {
	count := n[name]
	n[name] = count + 1
	if count == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s~%d%s", strings.TrimSuffix(name, ext), count, ext)
}

// formatFloat renders v in its shortest round-trip form.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// kindOrder fixes the order of scope kinds in summaries.
var kindOrder = []model.ScopeKind{
	model.ScopeUnit,
	model.ScopeNamespace,
	model.ScopeClass,
	model.ScopeStruct,
	model.ScopeUnion,
	model.ScopeFunction,
	model.ScopeClosure,
}

func sortedKinds(kinds map[model.ScopeKind]map[string]*model.Stat) []model.ScopeKind {
	var out []model.ScopeKind
	seen := make(map[model.ScopeKind]bool)
	for _, k := range kindOrder {
		if _, ok := kinds[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []model.ScopeKind
	for k := range kinds {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
