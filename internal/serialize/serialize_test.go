package serialize

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/imyousuf/archaeo/internal/aggregate"
	"github.com/imyousuf/archaeo/internal/model"
)

func sampleReport(extended bool) *model.AggregateReport {
	files := []model.FileResult{
		{
			Path: "src/shapes.cpp", Language: model.LangCPP, Size: 120, Status: model.StatusOK,
			Scope: &model.Scope{
				Kind: model.ScopeUnit, Name: "src/shapes.cpp", StartLine: 1, EndLine: 12,
				Metrics: map[string]float64{"cyclomatic": 3, "loc_sloc": 12, "halstead_volume": 40.5},
				Children: []*model.Scope{
					{Kind: model.ScopeFunction, Name: `say "hi", world`, StartLine: 2, EndLine: 6,
						Metrics: map[string]float64{"cyclomatic": 2, "fn_args": 1}},
				},
			},
		},
		{Path: "src/broken.c", Language: model.LangC, Status: model.StatusFailed,
			Stage: model.StageAnalysis, Error: "src/broken.c:3: syntax error"},
		{
			Path: "src_shapes.cpp", Language: model.LangCPP, Size: 10, Status: model.StatusOK,
			Scope: &model.Scope{Kind: model.ScopeUnit, Name: "src_shapes.cpp", StartLine: 1, EndLine: 1,
				Metrics: map[string]float64{"cyclomatic": 1, "loc_sloc": 1}},
		},
	}
	skipped := []model.SkippedFile{{Path: "README.md", Reason: model.ReasonUnsupported}}
	return aggregate.Build("/work", files, skipped, aggregate.Options{Extended: extended})
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		f    Format
		enc  Encoding
		fail bool
	}{
		{in: "tabular", f: FormatTabular},
		{in: "CSV", f: FormatTabular},
		{in: "hierarchical", f: FormatHierarchical, enc: EncodingJSON},
		{in: "json", f: FormatHierarchical, enc: EncodingJSON},
		{in: "yaml", f: FormatHierarchical, enc: EncodingYAML},
		{in: "xml", fail: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, enc, err := ParseFormat(tt.in)
			if tt.fail {
				require.ErrorIs(t, err, model.ErrSerialization)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.f, f)
			assert.Equal(t, tt.enc, enc)
		})
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Format: "xml", OutputDir: t.TempDir()})
	require.ErrorIs(t, err, model.ErrSerialization)
	_, err = New(Options{Format: FormatHierarchical, Encoding: "toml", OutputDir: t.TempDir()})
	require.ErrorIs(t, err, model.ErrSerialization)
	_, err = New(Options{Format: FormatTabular})
	require.ErrorIs(t, err, model.ErrSerialization)
}

func TestTabular(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Format: FormatTabular, OutputDir: dir})
	require.NoError(t, err)

	paths, err := s.Write(sampleReport(false))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "failures.csv"),
		filepath.Join(dir, "metrics.csv"),
		filepath.Join(dir, "summary.csv"),
	}, paths)

	rows := readCSV(t, filepath.Join(dir, "metrics.csv"))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{
		"source_file", "kind", "name", "qualified_name", "parent_name", "start_line", "end_line",
		"cyclomatic", "fn_args", "halstead_volume", "loc_sloc",
	}, rows[0])
	assert.Equal(t, []string{
		"src/shapes.cpp", "unit", "src/shapes.cpp", "src/shapes.cpp", "", "1", "12",
		"3", "", "40.5", "12",
	}, rows[1])
	assert.Equal(t, `say "hi", world`, rows[2][2])
	assert.Equal(t, "src/shapes.cpp", rows[2][4])
	assert.Equal(t, "1", rows[2][8])

	failures := readCSV(t, filepath.Join(dir, "failures.csv"))
	assert.Equal(t, [][]string{
		{"source_file", "status", "stage", "error"},
		{"src/broken.c", "failed", "analysis", "src/broken.c:3: syntax error"},
		{"README.md", "skipped", "", model.ReasonUnsupported},
	}, failures)

	summary := readCSV(t, filepath.Join(dir, "summary.csv"))
	assert.Equal(t, []string{"files", "discovered", "4", "", "", "", ""}, summary[1])
	assert.Equal(t, []string{"files", "analyzed", "2", "", "", "", ""}, summary[2])
	assert.Equal(t, []string{"files", "skipped", "1", "", "", "", ""}, summary[3])
	assert.Equal(t, []string{"files", "failed", "1", "", "", "", ""}, summary[4])
	assert.Equal(t, []string{"unit", "cyclomatic", "2", "4", "2", "1", "3"}, summary[5])
}

func TestTabularEmptyReport(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Format: FormatTabular, OutputDir: dir})
	require.NoError(t, err)

	_, err = s.Write(aggregate.Build("/work", nil, nil, aggregate.Options{}))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "metrics.csv"))
	require.NoError(t, err)
	assert.Equal(t, "source_file,kind,name,qualified_name,parent_name,start_line,end_line\n", string(data))
}

func TestSplitEmptyReportWritesHeaderOnlyTable(t *testing.T) {
	failed := []model.FileResult{
		{Path: "a.c", Language: model.LangC, Status: model.StatusFailed, Stage: model.StageAnalysis, Error: "a.c:1: syntax error"},
		{Path: "b.c", Language: model.LangC, Status: model.StatusFailed, Stage: model.StageAnalysis, Error: "b.c:1: syntax error"},
	}
	header := "source_file,kind,name,qualified_name,parent_name,start_line,end_line\n"

	tests := []struct {
		name string
		unit string
		want string
	}{
		{name: "directory", want: "metrics.csv"},
		{name: "single file", unit: "broken.c", want: "broken.c.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s, err := New(Options{Format: FormatTabular, Split: true, Unit: tt.unit, OutputDir: dir})
			require.NoError(t, err)

			paths, err := s.Write(aggregate.Build("/work", failed, nil, aggregate.Options{}))
			require.NoError(t, err)
			assert.Equal(t, []string{
				filepath.Join(dir, "failures.csv"),
				filepath.Join(dir, tt.want),
				filepath.Join(dir, "summary.csv"),
			}, paths)

			data, err := os.ReadFile(filepath.Join(dir, tt.want))
			require.NoError(t, err)
			assert.Equal(t, header, string(data))
		})
	}
}

func TestSplitNames(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Format: FormatTabular, Split: true, OutputDir: dir})
	require.NoError(t, err)

	paths, err := s.Write(sampleReport(true))
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"failures.csv",
		"src_shapes.cpp-extended.csv",
		"src_shapes.cpp-extended~1.csv",
		"summary.csv",
	}, names)

	rows := readCSV(t, filepath.Join(dir, "src_shapes.cpp-extended.csv"))
	require.Len(t, rows, 3)
	assert.Contains(t, rows[0], "cyclomatic_sum")
	for _, row := range rows[1:] {
		assert.Equal(t, "src/shapes.cpp", row[0])
	}
}

func TestHierarchicalJSON(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Format: FormatHierarchical, Encoding: EncodingJSON, OutputDir: dir})
	require.NoError(t, err)

	paths, err := s.Write(sampleReport(false))
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "metrics.json")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "/work", doc.Root)
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "src/shapes.cpp", doc.Files[0].Path)
	require.Len(t, doc.Files[0].Scope.Children, 1)
	assert.Equal(t, 2.0, doc.Files[0].Scope.Children[0].Metrics["cyclomatic"])
	require.Len(t, doc.Failures, 1)
	assert.Equal(t, model.StageAnalysis, doc.Failures[0].Stage)
	assert.Equal(t, 1, doc.Summary.Counts.Skipped)
}

func TestHierarchicalYAMLEmptyLists(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Format: FormatHierarchical, Encoding: EncodingYAML, OutputDir: dir})
	require.NoError(t, err)

	paths, err := s.Write(aggregate.Build("/work", nil, nil, aggregate.Options{}))
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "metrics.yaml")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, []any{}, doc["files"])
	assert.Equal(t, []any{}, doc["failures"])
}

func TestHierarchicalSplit(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{Format: FormatHierarchical, Encoding: EncodingJSON, Split: true, OutputDir: dir})
	require.NoError(t, err)

	paths, err := s.Write(sampleReport(false))
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "summary.json", filepath.Base(paths[2]))

	data, err := os.ReadFile(filepath.Join(dir, "src_shapes.cpp.json"))
	require.NoError(t, err)
	var entry fileEntry
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "src/shapes.cpp", entry.Path)
}

func TestUnwritableDestination(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s, err := New(Options{Format: FormatTabular, OutputDir: filepath.Join(blocker, "out")})
	require.NoError(t, err)
	_, err = s.Write(sampleReport(false))
	require.ErrorIs(t, err, model.ErrSerialization)
}

func TestDeterministicOutput(t *testing.T) {
	for _, opts := range []Options{
		{Format: FormatTabular},
		{Format: FormatHierarchical, Encoding: EncodingJSON},
		{Format: FormatHierarchical, Encoding: EncodingYAML},
	} {
		var outputs []string
		for range 2 {
			opts.OutputDir = t.TempDir()
			s, err := New(opts)
			require.NoError(t, err)
			paths, err := s.Write(sampleReport(true))
			require.NoError(t, err)

			var all strings.Builder
			for _, p := range paths {
				data, err := os.ReadFile(p)
				require.NoError(t, err)
				all.WriteString(filepath.Base(p))
				all.Write(data)
			}
			outputs = append(outputs, all.String())
		}
		assert.Equal(t, outputs[0], outputs[1], "format %s %s", opts.Format, opts.Encoding)
	}
}
