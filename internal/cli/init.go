package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/imyousuf/archaeo/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		interactive bool
		asTOML      bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default .archaeo.yaml config file",
		Long: `Write an archaeo config file to the current directory.

The file holds the defaults used by 'archaeo source'. Use --interactive to
pick the values in a wizard and --toml to write .archaeo.toml instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext := config.DefaultConfigType
			if asTOML {
				ext = "toml"
			}
			path := config.DefaultConfigFile + "." + ext

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}

			out := cmd.OutOrStdout()
			cfg := config.Default()

			if interactive {
				ok, err := runConfigForm(cfg, "Create config file?")
				if err != nil {
					if err == huh.ErrUserAborted {
						fmt.Fprintln(out, "Cancelled.")
						return nil
					}
					return fmt.Errorf("interactive init: %w", err)
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			if err := config.WriteConfig(cfg, path); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
			fmt.Fprintf(out, "Created %s\n", path)

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintf(out, "  1. Edit %s to adjust exclusions and output settings\n", path)
			fmt.Fprintln(out, "  2. Run 'archaeo source --path .' to measure the code base")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose settings in an interactive wizard")
	cmd.Flags().BoolVar(&asTOML, "toml", false, "write TOML instead of YAML")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
