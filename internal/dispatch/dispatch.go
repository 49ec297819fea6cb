// Package dispatch runs the analyzer over discovered files on a bounded pool
// of workers and returns one result per file in discovery order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/archaeo/internal/cache"
	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/model"
)

// ScopeCache stores analyzed trees between runs.
type ScopeCache interface {
	Get(ctx context.Context, key string) (*model.Scope, bool, error)
	Put(ctx context.Context, key string, scope *model.Scope) error
}

// Options configures a Dispatcher.
type Options struct {
	// Workers bounds concurrent analyses. Zero means runtime.NumCPU().
	Workers int
	// Timeout bounds a single file's analysis. Zero disables it.
	Timeout time.Duration
	Cache   ScopeCache
	Logger  *slog.Logger
}

// Stats counts what a Dispatch call did.
type Stats struct {
	Analyzed  int
	Failed    int
	CacheHits int
}

// Dispatcher fans files out to analyzers.
type Dispatcher struct {
	registry *lang.Registry
	opts     Options
	logger   *slog.Logger
}

// New creates a Dispatcher using the analyzers in registry.
func New(registry *lang.Registry, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{registry: registry, opts: opts, logger: logger}
}

// Dispatch analyzes every file and returns results aligned with files. A
// file's failure is recorded in its result and never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, files []model.FileDescriptor) ([]model.FileResult, Stats) {
	results := make([]model.FileResult, len(files))
	hits := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(d.opts.Workers, max(1, len(files))))

	for i := range files {
		g.Go(func() error {
			results[i], hits[i] = d.analyze(gctx, files[i])
			return nil
		})
	}
	_ = g.Wait()

	var stats Stats
	for i, r := range results {
		if r.OK() {
			stats.Analyzed++
		} else {
			stats.Failed++
		}
		if hits[i] {
			stats.CacheHits++
		}
	}
	return results, stats
}

// analyze produces the result for one file. The bool reports a cache hit.
func (d *Dispatcher) analyze(ctx context.Context, fd model.FileDescriptor) (res model.FileResult, hit bool) {
	if fd.Err != nil {
		return model.Failure(fd, model.StageDiscovery, fd.Err), false
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = model.Failure(fd, model.StageAnalysis, fmt.Errorf("%w: analyzer panic: %v", model.ErrAnalysis, r))
			hit = false
		}
		if !res.OK() {
			d.logger.Warn("dispatch.failed", "path", fd.RelPath, "stage", res.Stage, "error", res.Error)
			return
		}
		d.logger.Debug("dispatch.analyzed", "path", fd.RelPath, "cached", hit, "elapsed", time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return model.Failure(fd, model.StageAnalysis, fmt.Errorf("%w: %v", model.ErrAnalysis, err)), false
	}

	content, err := os.ReadFile(fd.Path)
	if err != nil {
		return model.Failure(fd, model.StageRead, err), false
	}

	analyzer, ok := d.registry.Get(fd.Language)
	if !ok {
		return model.Failure(fd, model.StageAnalysis, fmt.Errorf("%w: %s", model.ErrUnsupportedLanguage, fd.Language)), false
	}

	key := cache.Key(analyzer.Version(), fd.Language, content)
	if d.opts.Cache != nil {
		scope, found, err := d.opts.Cache.Get(ctx, key)
		if err != nil {
			d.logger.Warn("dispatch.cache_get_failed", "path", fd.RelPath, "error", err)
		}
		if found {
			scope.Name = fd.RelPath
			return model.Success(fd, scope), true
		}
	}

	actx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	scope, err := analyzer.Analyze(actx, fd.RelPath, content)
	if err == nil && scope == nil {
		err = errors.New("analyzer returned no scope")
	}
	if err != nil {
		return model.Failure(fd, model.StageAnalysis, fmt.Errorf("%w: %v", model.ErrAnalysis, err)), false
	}

	if err := normalize(scope, fd); err != nil {
		return model.Failure(fd, model.StageAnalysis, fmt.Errorf("%w: %v", model.ErrAnalysis, err)), false
	}

	if d.opts.Cache != nil {
		if err := d.opts.Cache.Put(ctx, key, scope); err != nil {
			d.logger.Warn("dispatch.cache_put_failed", "path", fd.RelPath, "error", err)
		}
	}
	return model.Success(fd, scope), false
}

// normalize turns analyzer output into a well-formed unit tree.
func normalize(scope *model.Scope, fd model.FileDescriptor) error {
	if scope.Kind != model.ScopeUnit {
		return fmt.Errorf("root scope has kind %q, want %q", scope.Kind, model.ScopeUnit)
	}
	scope.Name = fd.RelPath
	var fill func(s *model.Scope)
	fill = func(s *model.Scope) {
		if s.Metrics == nil {
			s.Metrics = make(map[string]float64)
		}
		for _, c := range s.Children {
			fill(c)
		}
	}
	fill(scope)
	scope.Normalize()
	return scope.Validate()
}
