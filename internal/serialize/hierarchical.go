package serialize

import (
	"bytes"
	"encoding/json"

	"go.yaml.in/yaml/v3"

	"github.com/imyousuf/archaeo/internal/model"
)

// document is the hierarchical rendering of a whole report.
type document struct {
	Root     string              `json:"root" yaml:"root"`
	Extended bool                `json:"extended" yaml:"extended"`
	Files    []fileEntry         `json:"files" yaml:"files"`
	Failures []failureEntry      `json:"failures" yaml:"failures"`
	Skipped  []model.SkippedFile `json:"skipped" yaml:"skipped"`
	Summary  model.Summary       `json:"summary" yaml:"summary"`
}

// summaryDocument accompanies per-file artifacts in split mode.
type summaryDocument struct {
	Root     string              `json:"root" yaml:"root"`
	Extended bool                `json:"extended" yaml:"extended"`
	Failures []failureEntry      `json:"failures" yaml:"failures"`
	Skipped  []model.SkippedFile `json:"skipped" yaml:"skipped"`
	Summary  model.Summary       `json:"summary" yaml:"summary"`
}

type fileEntry struct {
	Path     string         `json:"path" yaml:"path"`
	Language model.Language `json:"language" yaml:"language"`
	Size     int64          `json:"size" yaml:"size"`
	Scope    *model.Scope   `json:"scope" yaml:"scope"`
}

type failureEntry struct {
	Path  string      `json:"path" yaml:"path"`
	Stage model.Stage `json:"stage" yaml:"stage"`
	Error string      `json:"error" yaml:"error"`
}

func (s *Serializer) hierarchical(report *model.AggregateReport) ([]artifact, error) {
	ext := string(s.opts.Encoding)

	files := []fileEntry{}
	for _, f := range report.Analyzed() {
		files = append(files, fileEntry{Path: f.Path, Language: f.Language, Size: f.Size, Scope: f.Scope})
	}
	failures := []failureEntry{}
	for _, f := range report.Failures() {
		failures = append(failures, failureEntry{Path: f.Path, Stage: f.Stage, Error: f.Error})
	}
	skipped := append([]model.SkippedFile{}, report.Skipped...)

	if !s.opts.Split {
		data, err := s.encode(document{
			Root:     report.Root,
			Extended: report.Extended,
			Files:    files,
			Failures: failures,
			Skipped:  skipped,
			Summary:  report.Summary,
		})
		if err != nil {
			return nil, err
		}
		return []artifact{{name: artifactName(metricsName, ext, report.Extended), data: data}}, nil
	}

	var arts []artifact
	names := namer{}
	for _, f := range files {
		data, err := s.encode(f)
		if err != nil {
			return nil, err
		}
		arts = append(arts, artifact{name: names.unique(artifactName(f.Path, ext, report.Extended)), data: data})
	}
	data, err := s.encode(summaryDocument{
		Root:     report.Root,
		Extended: report.Extended,
		Failures: failures,
		Skipped:  skipped,
		Summary:  report.Summary,
	})
	if err != nil {
		return nil, err
	}
	return append(arts, artifact{name: "summary." + ext, data: data}), nil
}

func (s *Serializer) encode(v any) ([]byte, error) {
	if s.opts.Encoding == EncodingYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
