package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/imyousuf/archaeo/internal/cache"
)

func newCacheCmd(g *globalOptions) *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the analysis cache",
	}
	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default: cache.dir from config)")

	// openStore resolves the cache directory from the flag or the config. A
	// missing directory yields a nil store rather than creating an empty one.
	openStore := func() (*cache.Store, string, error) {
		dir := cacheDir
		if dir == "" {
			cfg, err := g.loadConfig()
			if err != nil {
				return nil, "", fmt.Errorf("load config: %w", err)
			}
			dir = cfg.Cache.Dir
		}
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			return nil, dir, nil
		}
		store, err := cache.Open(dir)
		if err != nil {
			return nil, "", fmt.Errorf("open cache: %w", err)
		}
		return store, dir, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache entries and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, dir, err := openStore()
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No cache at %s\n", dir)
				return nil
			}
			defer store.Close()

			stats, err := store.Stats(contextOf(cmd))
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printSection(out, "Analysis Cache")
			printKV(out, "Directory", dir)
			printKV(out, "Entries", humanize.Comma(stats.Entries))
			printKV(out, "Size", humanize.Bytes(uint64(stats.Bytes)))
			fmt.Fprintln(out)

			if len(stats.ByVersion) > 0 {
				printSection(out, "Entries by analyzer")
				versions := make([]string, 0, len(stats.ByVersion))
				for v := range stats.ByVersion {
					versions = append(versions, v)
				}
				sort.Strings(versions)
				for _, v := range versions {
					fmt.Fprintf(out, "    %-20s %d\n", v, stats.ByVersion[v])
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, dir, err := openStore()
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No cache at %s\n", dir)
				return nil
			}
			defer store.Close()

			if err := store.Clear(contextOf(cmd)); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache at %s\n", dir)
			return nil
		},
	})

	return cmd
}
