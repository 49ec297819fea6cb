package model

// Record is one flattened scope.
type Record struct {
	SourceFile    string
	Kind          ScopeKind
	Name          string
	QualifiedName string
	ParentName    string
	StartLine     int
	EndLine       int
	Metrics       map[string]float64
}

// Stat holds descriptive statistics for one metric.
type Stat struct {
	Count int     `json:"count" yaml:"count"`
	Sum   float64 `json:"sum" yaml:"sum"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

// Add folds v into the statistic.
func (s *Stat) Add(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
	s.Mean = s.Sum / float64(s.Count)
}

// Counts tallies files by outcome.
type Counts struct {
	Discovered int `json:"discovered" yaml:"discovered"`
	Analyzed   int `json:"analyzed" yaml:"analyzed"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	Failed     int `json:"failed" yaml:"failed"`
}

// Summary holds run counts and per-kind metric statistics.
type Summary struct {
	Counts Counts                         `json:"counts" yaml:"counts"`
	Kinds  map[ScopeKind]map[string]*Stat `json:"kinds" yaml:"kinds"`
}

// Metric returns the statistic for a metric over scopes of kind k.
func (s Summary) Metric(k ScopeKind, name string) (Stat, bool) {
	st, ok := s.Kinds[k][name]
	if !ok {
		return Stat{}, false
	}
	return *st, true
}

// AggregateReport is the complete output of a run.
type AggregateReport struct {
	Root     string
	Extended bool
	Files    []FileResult
	Skipped  []SkippedFile
	Records  []Record
	Summary  Summary
}

// Analyzed returns the successful results in order.
func (r *AggregateReport) Analyzed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.OK() {
			out = append(out, f)
		}
	}
	return out
}

// Failures returns the failed results in order.
func (r *AggregateReport) Failures() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if !f.OK() {
			out = append(out, f)
		}
	}
	return out
}
