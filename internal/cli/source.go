package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/imyousuf/archaeo/internal/analyzer/ccpp"
	"github.com/imyousuf/archaeo/internal/cache"
	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/pipeline"
	"github.com/imyousuf/archaeo/internal/serialize"
)

type sourceOptions struct {
	path      string
	output    string
	format    string
	noFlatten bool
	extended  bool
	split     bool
	watch     bool
	workers   int
	timeout   time.Duration
	cacheDir  string
	exclude   []string
}

func newSourceCmd(g *globalOptions) *cobra.Command {
	o := &sourceOptions{}

	cmd := &cobra.Command{
		Use:   "source",
		Short: "Measure a source file or directory",
		Long: `Measure a C or C++ file, or every C and C++ file under a directory, and
write the metrics to the output directory.

Formats:
  tabular        CSV: metrics.csv, failures.csv and summary.csv (alias: csv)
  hierarchical   JSON document with one scope tree per file (alias: json)
  yaml           hierarchical output encoded as YAML

Files that cannot be read or parsed are reported in the artifacts and do not
stop the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSource(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.path, "path", "p", "", "file or directory to measure")
	f.StringVarP(&o.output, "output-path", "o", "", "directory receiving the artifacts")
	f.StringVar(&o.format, "fmt", "", "output format: tabular, hierarchical, csv, json or yaml")
	f.BoolVar(&o.noFlatten, "no-flatten", false, "keep scope trees nested (forces hierarchical JSON)")
	f.BoolVar(&o.extended, "extended", false, "add sum/average/min/max columns over nested functions")
	f.BoolVar(&o.split, "split", false, "write one artifact per analyzed file")
	f.IntVarP(&o.workers, "workers", "j", 0, "concurrent analyses (default: number of CPUs)")
	f.DurationVar(&o.timeout, "timeout", 0, "per-file analysis timeout (0 disables)")
	f.StringVar(&o.cacheDir, "cache-dir", "", "reuse results for unchanged files from this cache directory")
	f.StringArrayVar(&o.exclude, "exclude", nil, "gitignore-style pattern to exclude (repeatable)")
	f.BoolVarP(&o.watch, "watch", "w", false, "re-run whenever source files change")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runSource(cmd *cobra.Command, g *globalOptions, o *sourceOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags override the config file when set.
	flags := cmd.Flags()
	if flags.Changed("output-path") {
		cfg.Source.Output = o.output
	}
	if flags.Changed("fmt") {
		cfg.Source.Format = o.format
	}
	if flags.Changed("extended") {
		cfg.Source.Extended = o.extended
	}
	if flags.Changed("split") {
		cfg.Source.Split = o.split
	}
	if flags.Changed("workers") {
		cfg.Source.Workers = o.workers
	}
	if flags.Changed("timeout") {
		cfg.Source.Timeout = o.timeout.String()
	}
	if flags.Changed("cache-dir") {
		cfg.Cache.Enabled = true
		cfg.Cache.Dir = o.cacheDir
	}
	cfg.Source.Exclude = append(cfg.Source.Exclude, o.exclude...)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}

	format, encoding, err := serialize.ParseFormat(cfg.Source.Format)
	if err != nil {
		return err
	}
	if o.noFlatten && format == serialize.FormatTabular {
		logger.Warn("source.no_flatten", "reason", "tabular output is always flat", "format", "json")
		format, encoding = serialize.FormatHierarchical, serialize.EncodingJSON
	}

	// Validate has already checked these.
	timeout, _ := cfg.Source.TimeoutDuration()
	debounce, _ := cfg.Source.DebounceDuration()
	maxSize, _ := cfg.Source.MaxFileSizeBytes()

	registry := lang.NewRegistry()
	ccpp.Register(registry)

	opts := pipeline.Options{
		Root:        o.path,
		OutputDir:   cfg.Source.Output,
		Format:      format,
		Encoding:    encoding,
		Split:       cfg.Source.Split,
		Extended:    cfg.Source.Extended,
		Workers:     cfg.Source.Workers,
		Timeout:     timeout,
		MaxFileSize: maxSize,
		Exclude:     cfg.Source.Exclude,
		Debounce:    debounce,
		Logger:      logger,
	}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()
		opts.Cache = store
	}

	p := pipeline.New(registry, opts)
	out := cmd.OutOrStdout()

	if o.watch {
		ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return p.Watch(ctx, func(summary *pipeline.RunSummary, err error) {
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return
			}
			renderSummary(out, summary)
		})
	}

	summary, err := p.Run(contextOf(cmd))
	if err != nil {
		return err
	}
	renderSummary(out, summary)
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
