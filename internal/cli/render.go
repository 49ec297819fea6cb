package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/imyousuf/archaeo/internal/metrics"
	"github.com/imyousuf/archaeo/internal/model"
	"github.com/imyousuf/archaeo/internal/pipeline"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"})
)

// summaryMetrics are the function metrics shown after a run.
var summaryMetrics = []string{
	metrics.Cyclomatic,
	metrics.Cognitive,
	metrics.Nesting,
	metrics.Exits,
	metrics.FnArgs,
	metrics.SourceLines,
	metrics.HalsteadVolume,
	metrics.MIVisualStudio,
}

func renderSummary(out io.Writer, s *pipeline.RunSummary) {
	counts := s.Counts
	report := s.Report

	var analyzedBytes uint64
	for _, f := range report.Analyzed() {
		analyzedBytes += uint64(f.Size)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("archaeo: "+s.Root))
	printKV(out, "Analyzed", okStyle.Render(fmt.Sprintf("%d files (%s)", counts.Analyzed, humanize.Bytes(analyzedBytes))))
	printKV(out, "Skipped", warnStyle.Render(fmt.Sprintf("%d", counts.Skipped)))
	printKV(out, "Failed", failStyle.Render(fmt.Sprintf("%d", counts.Failed)))
	if s.CacheHits > 0 {
		printKV(out, "Cache hits", fmt.Sprintf("%d", s.CacheHits))
	}
	printKV(out, "Elapsed", s.Elapsed.Round(time.Millisecond).String())
	fmt.Fprintln(out)

	if tbl := functionTable(report.Summary); tbl != "" {
		printSection(out, "Functions")
		fmt.Fprintln(out, tbl)
		fmt.Fprintln(out)
	}

	if failures := report.Failures(); len(failures) > 0 {
		printSection(out, "Failures")
		for _, f := range failures {
			fmt.Fprintf(out, "    %s\n", failStyle.Render(fmt.Sprintf("%s (%s): %s", f.Path, f.Stage, f.Error)))
		}
		fmt.Fprintln(out)
	}

	printSection(out, "Artifacts")
	for _, path := range s.Artifacts {
		fmt.Fprintf(out, "    %s\n", path)
	}
	fmt.Fprintln(out)
}

// functionTable renders statistics of the summary metrics over all function
// scopes. It returns "" when no function was measured.
func functionTable(sum model.Summary) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"metric", "count", "mean", "min", "max"})

	rows := 0
	for _, name := range summaryMetrics {
		st, ok := sum.Metric(model.ScopeFunction, name)
		if !ok {
			continue
		}
		tbl.AppendRow(table.Row{name, st.Count, formatStat(st.Mean), formatStat(st.Min), formatStat(st.Max)})
		rows++
	}
	if rows == 0 {
		return ""
	}
	return tbl.Render()
}

func formatStat(v float64) string {
	return humanize.FtoaWithDigits(v, 2)
}
