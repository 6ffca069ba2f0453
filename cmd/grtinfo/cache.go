package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmagro/grtinfo/internal/config"
	"github.com/dmagro/grtinfo/internal/display"
)

func cacheCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the ENS name cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List fresh cache entries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheList(f)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete the cache file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCacheClear(f)
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the cache file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(f)
				if err != nil {
					return err
				}
				fmt.Println(cfg.ENS.CachePath)
				return nil
			},
		},
	)
	return cmd
}

func runCacheList(f *rootFlags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}
	entries := store.Entries()
	if f.json {
		return display.WriteJSON(os.Stdout, entries)
	}
	display.RenderCache(os.Stdout, entries, cfg.ENS.CacheTTL, time.Now())
	return nil
}

func runCacheClear(f *rootFlags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	if cfg.ENS.CacheBackend == config.BackendMemory {
		return nil
	}
	err = os.Remove(cfg.ENS.CachePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Cleared %s\n", cfg.ENS.CachePath)
	return nil
}
