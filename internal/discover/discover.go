// Package discover walks an input path and produces the ordered set of files
// a run will analyze.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/imyousuf/archaeo/internal/ignore"
	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/model"
)

// DefaultMaxFileSize is the size above which files are skipped.
const DefaultMaxFileSize int64 = 8 << 20

// Options controls what the discoverer accepts.
type Options struct {
	// Exclude holds gitignore-style patterns relative to the root.
	Exclude []string
	// MaxFileSize skips larger files. Zero disables the limit.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Result is the outcome of one discovery pass.
type Result struct {
	Root string
	// Single is set when the root is a file rather than a directory.
	Single  bool
	Files   []model.FileDescriptor
	Skipped []model.SkippedFile
}

// Discoverer enumerates source files under a root.
type Discoverer struct {
	registry *lang.Registry
	opts     Options
	logger   *slog.Logger
}

// New creates a Discoverer that accepts the languages registered in registry.
func New(registry *lang.Registry, opts Options) *Discoverer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Discoverer{registry: registry, opts: opts, logger: logger}
}

// Discover lists the files under root in lexical order of their relative
// paths. Symbolic links below the root are not followed. Per-path problems
// are recorded on the returned descriptors; only an unusable root is an
// error.
func (d *Discoverer) Discover(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDiscovery, err)
	}

	switch {
	case info.Mode().IsRegular():
		return d.discoverFile(root, info)
	case info.IsDir():
		return d.discoverDir(ctx, root)
	default:
		return nil, fmt.Errorf("%w: %s is neither a file nor a directory", model.ErrDiscovery, root)
	}
}

func (d *Discoverer) discoverFile(path string, info fs.FileInfo) (*Result, error) {
	res := &Result{Root: path, Single: true}
	a, ok := d.registry.GetByExtension(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedLanguage, path)
	}

	name := filepath.Base(path)
	if d.tooLarge(info.Size()) {
		res.Skipped = append(res.Skipped, model.SkippedFile{Path: name, Reason: model.ReasonTooLarge})
		return res, nil
	}
	res.Files = []model.FileDescriptor{{
		Path:     path,
		RelPath:  name,
		Language: a.Language(),
		Size:     info.Size(),
	}}
	return res, nil
}

func (d *Discoverer) discoverDir(ctx context.Context, root string) (*Result, error) {
	matcher := ignore.New([]string{root}, d.opts.Exclude)
	if err := matcher.Load(); err != nil {
		return nil, fmt.Errorf("%w: loading ignore rules: %v", model.ErrDiscovery, err)
	}
	d.logger.Debug("discover.ignore_rules", "root", root, "rules", matcher.Len())

	res := &Result{Root: root}
	seen := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := relPath(root, path)
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			d.logger.Warn("discover.unreadable", "path", rel, "error", walkErr)
			res.Files = append(res.Files, model.FileDescriptor{
				Path:    path,
				RelPath: rel,
				Err:     fmt.Errorf("%w: %v", model.ErrDiscovery, walkErr),
			})
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			d.logger.Debug("discover.symlink_ignored", "path", rel)
			return nil
		}
		if entry.IsDir() {
			if path != root && (entry.Name() == ".git" || matcher.Match(path, true)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || matcher.Match(path, false) {
			return nil
		}
		if seen[rel] {
			return nil
		}
		seen[rel] = true

		a, ok := d.registry.GetByExtension(filepath.Ext(path))
		if !ok {
			res.Skipped = append(res.Skipped, model.SkippedFile{Path: rel, Reason: model.ReasonUnsupported})
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			res.Files = append(res.Files, model.FileDescriptor{
				Path:     path,
				RelPath:  rel,
				Language: a.Language(),
				Err:      fmt.Errorf("%w: %v", model.ErrDiscovery, err),
			})
			return nil
		}
		if d.tooLarge(info.Size()) {
			d.logger.Debug("discover.too_large", "path", rel, "size", info.Size())
			res.Skipped = append(res.Skipped, model.SkippedFile{Path: rel, Reason: model.ReasonTooLarge})
			return nil
		}

		res.Files = append(res.Files, model.FileDescriptor{
			Path:     path,
			RelPath:  rel,
			Language: a.Language(),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrDiscovery, err)
	}

	sort.SliceStable(res.Files, func(i, j int) bool { return res.Files[i].RelPath < res.Files[j].RelPath })
	sort.SliceStable(res.Skipped, func(i, j int) bool { return res.Skipped[i].Path < res.Skipped[j].Path })
	for i := range res.Files {
		res.Files[i].Index = i
	}
	return res, nil
}

func (d *Discoverer) tooLarge(size int64) bool {
	return d.opts.MaxFileSize > 0 && size > d.opts.MaxFileSize
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
