package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imyousuf/archaeo/internal/config"
	"github.com/imyousuf/archaeo/internal/lang"
	"github.com/imyousuf/archaeo/internal/model"
)

// detectLanguages walks rootDir (depth-limited to 2 levels) and counts the
// source files of each supported language.
func detectLanguages(rootDir string) map[model.Language]int {
	found := make(map[model.Language]int)

	rootDepth := strings.Count(filepath.ToSlash(rootDir), "/")
	_ = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		// Depth limit: 2 levels below root
		depth := strings.Count(filepath.ToSlash(path), "/") - rootDepth
		if d.IsDir() {
			if depth >= 2 {
				return fs.SkipDir
			}
			base := d.Name()
			if base == ".git" || base == "build" || base == "third_party" {
				return fs.SkipDir
			}
			return nil
		}
		if l, ok := lang.Detect(path); ok {
			found[l]++
		}
		return nil
	})

	return found
}

func describeLanguages(found map[model.Language]int) string {
	if len(found) == 0 {
		return "No C or C++ files found near the working directory."
	}
	langs := make([]string, 0, len(found))
	for l := range found {
		langs = append(langs, string(l))
	}
	sort.Strings(langs)
	parts := make([]string, len(langs))
	for i, l := range langs {
		parts[i] = fmt.Sprintf("%s: %d files", l, found[model.Language(l)])
	}
	return "Detected " + strings.Join(parts, ", ")
}

// runConfigForm edits cfg in an interactive wizard. It reports whether the
// user confirmed the result, in which case cfg holds the new values.
func runConfigForm(cfg *config.Config, confirmTitle string) (bool, error) {
	detected := describeLanguages(detectLanguages("."))

	// Form variables
	var (
		format   = cfg.Source.Format
		output   = cfg.Source.Output
		workers  = strconv.Itoa(cfg.Source.Workers)
		timeout  = cfg.Source.Timeout
		maxSize  = cfg.Source.MaxFileSize
		exclude  = strings.Join(cfg.Source.Exclude, "\n")
		extended = cfg.Source.Extended
		split    = cfg.Source.Split
		useCache = cfg.Cache.Enabled
		cacheDir = cfg.Cache.Dir
		confirm  bool
	)

	formatOptions := []huh.Option[string]{
		huh.NewOption("Tabular (CSV)", "tabular"),
		huh.NewOption("Hierarchical (JSON)", "json"),
		huh.NewOption("Hierarchical (YAML)", "yaml"),
	}

	notEmpty := func(what string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s cannot be empty", what)
			}
			return nil
		}
	}

	form := huh.NewForm(
		// Group 1: Output
		huh.NewGroup(
			huh.NewNote().
				Title("Sources").
				Description(detected),
			huh.NewSelect[string]().
				Title("Output format").
				Options(formatOptions...).
				Value(&format),
			huh.NewInput().
				Title("Output directory").
				Value(&output).
				Validate(notEmpty("output directory")),
			huh.NewConfirm().
				Title("One artifact per source file?").
				Value(&split).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Add extended subtree statistics?").
				Description("Sum, average, min and max of function metrics for every scope").
				Value(&extended).
				Affirmative("Yes").
				Negative("No"),
		).Title("Output"),

		// Group 2: Analysis
		huh.NewGroup(
			huh.NewInput().
				Title("Workers").
				Description("0 uses every CPU").
				Value(&workers).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 0 {
						return fmt.Errorf("workers must be a non-negative number")
					}
					return nil
				}),
			huh.NewInput().
				Title("Per-file timeout").
				Placeholder("0s").
				Value(&timeout),
			huh.NewInput().
				Title("Skip files larger than").
				Placeholder("8MiB").
				Value(&maxSize),
			huh.NewText().
				Title("Exclude patterns").
				Description("One gitignore-style pattern per line").
				Value(&exclude),
		).Title("Analysis"),

		// Group 3: Cache
		huh.NewGroup(
			huh.NewConfirm().
				Title("Cache results of unchanged files?").
				Value(&useCache).
				Affirmative("Yes").
				Negative("No"),
			huh.NewInput().
				Title("Cache directory").
				Value(&cacheDir).
				Validate(notEmpty("cache directory")),
		).Title("Cache"),

		// Group 4: Confirm
		huh.NewGroup(
			huh.NewNote().
				Title("Summary").
				DescriptionFunc(func() string {
					return fmt.Sprintf(
						"Format:      %s\n"+
							"Output:      %s\n"+
							"Split:       %v\n"+
							"Extended:    %v\n"+
							"Workers:     %s\n"+
							"Cache:       %v",
						format, output, split, extended, workers, useCache,
					)
				}, &format),
			huh.NewConfirm().
				Title(confirmTitle).
				Value(&confirm).
				Affirmative("Yes").
				Negative("Cancel"),
		).Title("Confirm"),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		return false, err
	}
	if !confirm {
		return false, nil
	}

	n, _ := strconv.Atoi(strings.TrimSpace(workers))
	cfg.Source.Format = format
	cfg.Source.Output = strings.TrimSpace(output)
	cfg.Source.Workers = n
	cfg.Source.Timeout = strings.TrimSpace(timeout)
	cfg.Source.MaxFileSize = strings.TrimSpace(maxSize)
	cfg.Source.Exclude = splitLines(exclude)
	cfg.Source.Extended = extended
	cfg.Source.Split = split
	cfg.Cache.Enabled = useCache
	cfg.Cache.Dir = strings.TrimSpace(cacheDir)

	if err := cfg.Validate(); err != nil {
		return false, err
	}
	return true, nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
