// Package pipeline runs discovery, dispatch, aggregation and serialization
// for one input path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/imyousuf/archaeo/internal/aggregate"
	"github.com/imyousuf/archaeo/internal/cache"
	"github.com/imyousuf/archaeo/internal/discover"
	"github.com/imyousuf/archaeo/internal/dispatch"
	"github.com/imyousuf/archaeo/internal/ignore"
	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/model"
	"github.com/imyousuf/archaeo/internal/serialize"
	"github.com/imyousuf/archaeo/internal/watcher"
)

// Options holds configuration for a Pipeline.
type Options struct {
	// Root is the input file or directory.
	Root      string
	OutputDir string
	Format    serialize.Format
	Encoding  serialize.Encoding
	// Split writes one artifact per analyzed file for directory input.
	Split       bool
	Extended    bool
	Workers     int
	Timeout     time.Duration
	MaxFileSize int64
	Exclude     []string
	Cache       dispatch.ScopeCache
	// Debounce is the quiet period used by Watch.
	Debounce time.Duration
	Logger   *slog.Logger
}

// RunSummary describes one completed run.
type RunSummary struct {
	Root      string
	Counts    model.Counts
	CacheHits int
	Artifacts []string
	Elapsed   time.Duration
	Report    *model.AggregateReport
}

// Pipeline wires the stages of a metrics run together.
type Pipeline struct {
	registry *lang.Registry
	opts     Options
	logger   *slog.Logger
}

// New creates a Pipeline that analyzes with the languages in registry.
func New(registry *lang.Registry, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{registry: registry, opts: opts, logger: logger}
}

// Run performs a single pass. Files that fail analysis are reported in the
// summary and the artifacts; Run itself fails only when nothing can be
// analyzed or the artifacts cannot be written.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()

	disc := discover.New(p.registry, discover.Options{
		Exclude:     p.opts.Exclude,
		MaxFileSize: p.opts.MaxFileSize,
		Logger:      p.logger,
	})
	found, err := disc.Discover(ctx, p.opts.Root)
	if err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.discovered",
		"root", p.opts.Root,
		"files", len(found.Files),
		"skipped", len(found.Skipped))
	if len(found.Files) == 0 {
		return nil, fmt.Errorf("%w under %s", model.ErrNoFiles, p.opts.Root)
	}

	disp := dispatch.New(p.registry, dispatch.Options{
		Workers: p.opts.Workers,
		Timeout: p.opts.Timeout,
		Cache:   p.opts.Cache,
		Logger:  p.logger,
	})
	results, stats := disp.Dispatch(ctx, found.Files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.dispatched",
		"analyzed", stats.Analyzed,
		"failed", stats.Failed,
		"cache_hits", stats.CacheHits)

	report := aggregate.Build(p.opts.Root, results, found.Skipped, aggregate.Options{Extended: p.opts.Extended})

	sopts := serialize.Options{
		Format:    p.opts.Format,
		Encoding:  p.opts.Encoding,
		Split:     p.opts.Split || found.Single,
		OutputDir: p.opts.OutputDir,
	}
	if found.Single {
		sopts.Unit = filepath.Base(found.Root)
	}
	ser, err := serialize.New(sopts)
	if err != nil {
		return nil, err
	}
	artifacts, err := ser.Write(report)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		Root:      p.opts.Root,
		Counts:    report.Summary.Counts,
		CacheHits: stats.CacheHits,
		Artifacts: artifacts,
		Elapsed:   time.Since(start),
		Report:    report,
	}
	p.logger.Info("pipeline.complete",
		"analyzed", summary.Counts.Analyzed,
		"skipped", summary.Counts.Skipped,
		"failed", summary.Counts.Failed,
		"artifacts", len(artifacts),
		"elapsed", summary.Elapsed)
	return summary, nil
}

// Watch runs once, then runs again after every debounced batch of source
// changes under the root until ctx is cancelled. onRun receives the outcome
// of each pass; a failed pass does not stop watching. Without a configured
// cache, unchanged files are reused from memory between passes.
func (p *Pipeline) Watch(ctx context.Context, onRun func(*RunSummary, error)) error {
	if p.opts.Cache == nil {
		mem, err := cache.NewMemory(cache.DefaultMemoryEntries)
		if err != nil {
			return err
		}
		p.opts.Cache = mem
	}
	onRun(p.Run(ctx))

	dir, match, err := p.watchScope()
	if err != nil {
		return err
	}
	matcher := ignore.New([]string{dir}, p.opts.Exclude)
	if err := matcher.Load(); err != nil {
		p.logger.Warn("pipeline.ignore_load", "error", err)
	}

	w := watcher.New(watcher.Config{
		Paths:    []string{dir},
		Matcher:  matcher,
		Filter:   match,
		Debounce: p.opts.Debounce,
		Logger:   p.logger,
	})
	defer w.Close()

	batches, err := w.Start(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	p.logger.Info("pipeline.watching", "path", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			p.logger.Debug("pipeline.changed", "paths", batch.Paths())
			summary, err := p.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			onRun(summary, err)
		}
	}
}

// watchScope returns the directory to watch and the filter for changes that
// should trigger a run. A file root is watched through its directory.
func (p *Pipeline) watchScope() (string, func(string) bool, error) {
	root, err := filepath.Abs(p.opts.Root)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", model.ErrDiscovery, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", model.ErrDiscovery, err)
	}
	if !info.IsDir() {
		return filepath.Dir(root), func(path string) bool {
			abs, err := filepath.Abs(path)
			return err == nil && abs == root
		}, nil
	}
	return root, func(path string) bool {
		_, ok := p.registry.GetByExtension(filepath.Ext(path))
		return ok
	}, nil
}
