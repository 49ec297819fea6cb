package serialize

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/imyousuf/archaeo/internal/aggregate"
	"github.com/imyousuf/archaeo/internal/model"
)

// Fixed leading columns of a metrics table.
var recordColumns = []string{
	"source_file", "kind", "name", "qualified_name", "parent_name", "start_line", "end_line",
}

const (
	metricsName  = "metrics"
	failuresName = "failures.csv"
	summaryName  = "summary.csv"
)

func (s *Serializer) tabular(report *model.AggregateReport) ([]artifact, error) {
	var arts []artifact
	if s.opts.Split {
		names := namer{}
		for _, group := range aggregate.Regroup(report.Records) {
			data, err := recordTable(group.Records)
			if err != nil {
				return nil, err
			}
			name := names.unique(artifactName(group.Path, "csv", report.Extended))
			arts = append(arts, artifact{name: name, data: data})
		}
		if len(arts) == 0 {
			data, err := recordTable(nil)
			if err != nil {
				return nil, err
			}
			unit := s.opts.Unit
			if unit == "" {
				unit = metricsName
			}
			arts = append(arts, artifact{name: artifactName(unit, "csv", report.Extended), data: data})
		}
	} else {
		data, err := recordTable(report.Records)
		if err != nil {
			return nil, err
		}
		arts = append(arts, artifact{name: artifactName(metricsName, "csv", report.Extended), data: data})
	}

	failures, err := failureTable(report)
	if err != nil {
		return nil, err
	}
	summary, err := summaryTable(report.Summary)
	if err != nil {
		return nil, err
	}
	return append(arts,
		artifact{name: failuresName, data: failures},
		artifact{name: summaryName, data: summary},
	), nil
}

// recordTable renders records with one column per metric name present in
// any record. Missing values are left empty.
func recordTable(records []model.Record) ([]byte, error) {
	names := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Metrics {
			names[k] = struct{}{}
		}
	}
	metricCols := sortedKeys(names)

	header := append(append([]string{}, recordColumns...), metricCols...)
	rows := [][]string{header}
	for _, r := range records {
		row := []string{
			r.SourceFile,
			string(r.Kind),
			r.Name,
			r.QualifiedName,
			r.ParentName,
			strconv.Itoa(r.StartLine),
			strconv.Itoa(r.EndLine),
		}
		for _, name := range metricCols {
			if v, ok := r.Metrics[name]; ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return writeCSV(rows)
}

func failureTable(report *model.AggregateReport) ([]byte, error) {
	rows := [][]string{{"source_file", "status", "stage", "error"}}
	for _, f := range report.Failures() {
		rows = append(rows, []string{f.Path, string(f.Status), string(f.Stage), f.Error})
	}
	for _, sk := range report.Skipped {
		rows = append(rows, []string{sk.Path, "skipped", "", sk.Reason})
	}
	return writeCSV(rows)
}

func summaryTable(sum model.Summary) ([]byte, error) {
	rows := [][]string{{"kind", "metric", "count", "sum", "mean", "min", "max"}}
	counts := []struct {
		name  string
		value int
	}{
		{"discovered", sum.Counts.Discovered},
		{"analyzed", sum.Counts.Analyzed},
		{"skipped", sum.Counts.Skipped},
		{"failed", sum.Counts.Failed},
	}
	for _, c := range counts {
		rows = append(rows, []string{"files", c.name, strconv.Itoa(c.value), "", "", "", ""})
	}
	for _, kind := range sortedKinds(sum.Kinds) {
		stats := sum.Kinds[kind]
		for _, name := range sortedKeys(stats) {
			st := stats[name]
			rows = append(rows, []string{
				string(kind),
				name,
				strconv.Itoa(st.Count),
				formatFloat(st.Sum),
				formatFloat(st.Mean),
				formatFloat(st.Min),
				formatFloat(st.Max),
			})
		}
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
