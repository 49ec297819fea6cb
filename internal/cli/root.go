// Package cli implements the command-line interface for archaeo.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/imyousuf/archaeo/internal/config"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	cfgFile   string
	verbose   bool
	logFormat string
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "archaeo",
		Short: "archaeo - complexity and structure metrics for C and C++ code",
		Long: `archaeo measures C and C++ source trees: cyclomatic and cognitive
complexity, Halstead metrics, line counts, maintainability index and more,
for every file, namespace, class, function and lambda.

Commands:
  source     Measure a file or directory and write metric artifacts
  metrics    Print the metrics of a single file
  languages  List supported languages and file extensions
  init       Write a default .archaeo.yaml config file
  config     Show the effective configuration
  cache      Inspect or clear the analysis cache`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: .archaeo.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(newSourceCmd(opts))
	rootCmd.AddCommand(newMetricsCmd())
	rootCmd.AddCommand(newLanguagesCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newCacheCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// loadConfig reads the configuration and applies the global flags to it.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Log.Verbose = true
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger. Output goes to w so that command
// output on stdout stays machine-readable.
func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("log format must be 'text' or 'json', got %q", cfg.Format)
	}
}
