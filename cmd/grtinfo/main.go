// Command grtinfo resolves Graph network participants to and from ENS names.
//
// Usage:
//
//	grtinfo ens resolve 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
//	grtinfo ens batch 0x... 0x... --json
//	grtinfo ens name ellipfra
//	grtinfo cache list
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmagro/grtinfo/internal/config"
	"github.com/dmagro/grtinfo/internal/display"
	"github.com/dmagro/grtinfo/internal/env"
	"github.com/dmagro/grtinfo/internal/logger"
)

type rootFlags struct {
	config   string
	logLevel string
	json     bool
	noCache  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:           "grtinfo",
		Short:         "ENS name resolution for The Graph reporting tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := env.Load(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
			if f.json {
				display.DisableColors()
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.config, "config", "", "Config file path (default ~/.grtinfo/config.yaml)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	pf.BoolVar(&f.json, "json", false, "Output JSON to stdout")
	pf.BoolVar(&f.noCache, "no-cache", false, "Do not read or write the on-disk name cache")

	root.AddCommand(ensCmd(f), cacheCmd(f))
	return root
}

// loadConfig loads the configuration and initialises the global logger from it.
func loadConfig(f *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if f.logLevel != "" {
		level = f.logLevel
	}
	if err := logger.Init(level); err != nil {
		return nil, err
	}
	logger.L().Debug("config loaded",
		zap.Bool("ens_configured", cfg.ENSSubgraphURL != ""),
		zap.String("cache_backend", cfg.ENS.CacheBackend),
		zap.String("cache_path", cfg.ENS.CachePath),
	)
	return cfg, nil
}
