// Package aggregate turns per-file scope trees into flat records and
// per-kind summary statistics.
package aggregate

import (
	"strings"

	"github.com/imyousuf/archaeo/internal/metrics"
	"github.com/imyousuf/archaeo/internal/model"
)

// Options controls report construction.
type Options struct {
	// Extended adds subtree statistics to every scope.
	Extended bool
}

// Build assembles the report for one run. files must be in discovery order;
// the trees they reference are not modified. The summary is computed over the
// measured metrics only, never over extended subtree statistics.
func Build(root string, files []model.FileResult, skipped []model.SkippedFile, opts Options) *model.AggregateReport {
	out := make([]model.FileResult, len(files))
	copy(out, files)
	if opts.Extended {
		for i := range out {
			if out[i].OK() {
				out[i].Scope = out[i].Scope.Clone()
				Extend(out[i].Scope)
			}
		}
	}

	return &model.AggregateReport{
		Root:     root,
		Extended: opts.Extended,
		Files:    out,
		Skipped:  append([]model.SkippedFile(nil), skipped...),
		Records:  Flatten(out),
		Summary:  Summarize(files, skipped),
	}
}

// Flatten emits one record per scope, file by file in pre-order.
func Flatten(files []model.FileResult) []model.Record {
	var records []model.Record
	for _, f := range files {
		if !f.OK() {
			continue
		}
		f.Scope.Walk(func(sc *model.Scope, ancestors []*model.Scope) {
			rec := model.Record{
				SourceFile:    f.Path,
				Kind:          sc.Kind,
				Name:          sc.Name,
				QualifiedName: qualifiedName(sc, ancestors),
				StartLine:     sc.StartLine,
				EndLine:       sc.EndLine,
				Metrics:       sc.Metrics,
			}
			if len(ancestors) > 0 {
				rec.ParentName = ancestors[len(ancestors)-1].Name
			}
			records = append(records, rec)
		})
	}
	return records
}

// qualifiedName joins the names of the enclosing non-unit scopes with "::".
func qualifiedName(sc *model.Scope, ancestors []*model.Scope) string {
	if sc.Kind == model.ScopeUnit {
		return sc.Name
	}
	var parts []string
	for _, a := range ancestors {
		if a.Kind != model.ScopeUnit {
			parts = append(parts, a.Name)
		}
	}
	return strings.Join(append(parts, sc.Name), "::")
}

// Summarize counts files by outcome and computes statistics for every metric
// per scope kind. A scope without a metric does not count toward it.
func Summarize(files []model.FileResult, skipped []model.SkippedFile) model.Summary {
	s := model.Summary{
		Counts: model.Counts{
			Discovered: len(files) + len(skipped),
			Skipped:    len(skipped),
		},
		Kinds: make(map[model.ScopeKind]map[string]*model.Stat),
	}
	for _, f := range files {
		if !f.OK() {
			s.Counts.Failed++
			continue
		}
		s.Counts.Analyzed++
		f.Scope.Walk(func(sc *model.Scope, _ []*model.Scope) {
			byMetric, ok := s.Kinds[sc.Kind]
			if !ok {
				byMetric = make(map[string]*model.Stat)
				s.Kinds[sc.Kind] = byMetric
			}
			for name, v := range sc.Metrics {
				st, ok := byMetric[name]
				if !ok {
					st = &model.Stat{}
					byMetric[name] = st
				}
				st.Add(v)
			}
		})
	}
	return s
}

// Extend adds <metric>_sum, _average, _min and _max to every scope in the
// tree, computed over the callable scopes of its subtree (the scope itself
// included when it is callable).
func Extend(root *model.Scope) {
	var visit func(sc *model.Scope) []*model.Scope
	visit = func(sc *model.Scope) []*model.Scope {
		var callables []*model.Scope
		if sc.Kind.IsCallable() {
			callables = append(callables, sc)
		}
		for _, c := range sc.Children {
			callables = append(callables, visit(c)...)
		}

		for _, name := range metrics.Extendable {
			var st model.Stat
			for _, c := range callables {
				if v, ok := c.Metrics[name]; ok {
					st.Add(v)
				}
			}
			if st.Count == 0 {
				continue
			}
			sc.Metrics[name+"_sum"] = st.Sum
			sc.Metrics[name+"_average"] = st.Mean
			sc.Metrics[name+"_min"] = st.Min
			sc.Metrics[name+"_max"] = st.Max
		}
		return callables
	}
	visit(root)
}

// FileRecords groups the records of one source file.
type FileRecords struct {
	Path    string
	Records []model.Record
}

// Regroup splits flat records back into per-file groups, preserving the
// order in which files first appear.
func Regroup(records []model.Record) []FileRecords {
	var groups []FileRecords
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.SourceFile]
		if !ok {
			i = len(groups)
			index[r.SourceFile] = i
			groups = append(groups, FileRecords{Path: r.SourceFile})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
