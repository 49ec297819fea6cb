package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/imyousuf/archaeo/internal/config"
)

// Style definitions for config view.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `View or edit archaeo configuration.

By default, displays the effective configuration: built-in defaults, the
config file and ARCHAEO_* environment variables combined.
Use 'config edit' to edit the config file interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	cmd.AddCommand(newConfigEditCmd(g))

	return cmd
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("archaeo Configuration"))
	fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 21)))
	fmt.Fprintln(out)

	printSection(out, "Source")
	printKV(out, "Format", cfg.Source.Format)
	printKV(out, "Output", cfg.Source.Output)
	printKV(out, "Split", boolYesNo(cfg.Source.Split))
	printKV(out, "Extended", boolYesNo(cfg.Source.Extended))
	workers := "all CPUs"
	if cfg.Source.Workers > 0 {
		workers = strconv.Itoa(cfg.Source.Workers)
	}
	printKV(out, "Workers", workers)
	printKV(out, "Timeout", orNone(cfg.Source.Timeout))
	printKV(out, "Max file size", orNone(cfg.Source.MaxFileSize))
	printKV(out, "Debounce", cfg.Source.Debounce)
	fmt.Fprintln(out)

	printSection(out, "Exclusions")
	if len(cfg.Source.Exclude) == 0 {
		fmt.Fprintln(out, "    (none)")
	}
	for _, pattern := range cfg.Source.Exclude {
		fmt.Fprintf(out, "    %s\n", pattern)
	}
	fmt.Fprintln(out)

	printSection(out, "Cache")
	printKV(out, "Enabled", boolYesNo(cfg.Cache.Enabled))
	printKV(out, "Directory", cfg.Cache.Dir)
	fmt.Fprintln(out)

	printSection(out, "Logging")
	printKV(out, "Format", cfg.Log.Format)
	printKV(out, "Verbose", boolYesNo(cfg.Log.Verbose))
	fmt.Fprintln(out)
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" || s == "0" || s == "0s" {
		return "none"
	}
	return s
}

func newConfigEditCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the config file interactively",
		Long: `Edit archaeo configuration using an interactive wizard and write it back
to the config file (--config, or .archaeo.yaml in the working directory).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := g.cfgFile
			if path == "" {
				path = config.DefaultConfigFile + "." + config.DefaultConfigType
			}

			out := cmd.OutOrStdout()
			ok, err := runConfigForm(cfg, "Save configuration?")
			if err != nil {
				if err == huh.ErrUserAborted {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
				return fmt.Errorf("edit config: %w", err)
			}
			if !ok {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}

			if err := config.WriteConfig(cfg, path); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
			fmt.Fprintf(out, "Saved %s\n", path)
			return nil
		},
	}
}
