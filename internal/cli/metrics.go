package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/imyousuf/archaeo/internal/analyzer/ccpp"
	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/metrics"
	"github.com/imyousuf/archaeo/internal/model"
)

func newMetricsCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "metrics <file>",
		Short: "Show the metrics of one source file",
		Long: `Measure a single C or C++ file and print one row per scope. With --all,
every metric of the file scope is listed as well.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]

			registry := lang.NewRegistry()
			ccpp.Register(registry)
			analyzer, ok := registry.GetByExtension(filepath.Ext(filePath))
			if !ok {
				return fmt.Errorf("%w: %s", model.ErrUnsupportedLanguage, filePath)
			}

			content, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			unit, err := analyzer.Analyze(contextOf(cmd), filePath, content)
			if err != nil {
				return fmt.Errorf("%w: %v", model.ErrAnalysis, err)
			}
			unit.Normalize()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Metrics for %s (language: %s)\n", filePath, analyzer.Language())
			fmt.Fprintf(out, "%s\n\n", strings.Repeat("=", 40))
			fmt.Fprintln(out, scopeTable(unit))

			if all {
				fmt.Fprintln(out)
				// Sort metric names for stable output.
				keys := make([]string, 0, len(unit.Metrics))
				for k := range unit.Metrics {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				for _, k := range keys {
					v := unit.Metrics[k]
					// Display integer values without decimal for cleaner output.
					if v == float64(int64(v)) {
						fmt.Fprintf(out, "  %-36s %d\n", k, int64(v))
					} else {
						fmt.Fprintf(out, "  %-36s %.2f\n", k, v)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every metric of the file scope")

	return cmd
}

// scopeTable renders one row per scope, indented by depth.
func scopeTable(unit *model.Scope) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"scope", "kind", "lines", "cyclomatic", "cognitive", "sloc", "mi"})

	unit.Walk(func(sc *model.Scope, ancestors []*model.Scope) {
		tbl.AppendRow(table.Row{
			strings.Repeat("  ", len(ancestors)) + sc.Name,
			sc.Kind,
			fmt.Sprintf("%d-%d", sc.StartLine, sc.EndLine),
			formatStat(sc.Metrics[metrics.Cyclomatic]),
			formatStat(sc.Metrics[metrics.Cognitive]),
			formatStat(sc.Metrics[metrics.SourceLines]),
			formatStat(sc.Metrics[metrics.MIVisualStudio]),
		})
	})
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d scopes", unit.Count())})

	return tbl.Render()
}
