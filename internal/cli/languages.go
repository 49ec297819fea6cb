package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/imyousuf/archaeo/internal/analyzer/ccpp"
	"github.com/imyousuf/archaeo/internal/lang"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and file extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := lang.NewRegistry()
			ccpp.Register(registry)

			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"language", "extensions", "analyzer"})
			for _, a := range registry.All() {
				tbl.AppendRow(table.Row{a.Language(), strings.Join(a.Extensions(), " "), a.Version()})
			}
			tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d extensions", len(registry.SupportedExtensions())), ""})

			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
}
