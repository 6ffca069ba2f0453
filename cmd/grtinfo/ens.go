package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmagro/grtinfo/internal/display"
	"github.com/dmagro/grtinfo/internal/ens"
	"github.com/dmagro/grtinfo/internal/logger"
)

func ensCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ens",
		Short: "Resolve addresses and ENS names",
	}
	cmd.AddCommand(
		ensResolveCmd(f),
		ensBatchCmd(f),
		ensSearchCmd(f),
		ensNameCmd(f),
	)
	return cmd
}

func ensResolveCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <address>",
		Short: "Resolve an address to its ENS name",
		Long: `Resolve an address to the newest ENS name pointing at it.

Results, including misses, are cached in ~/.grtinfo/ens_cache.json for the
configured TTL (24h by default).

Example:
  grtinfo ens resolve 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), f, args[0])
		},
	}
}

func ensBatchCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <address>...",
		Short: "Resolve many addresses at once",
		Long: `Resolve several addresses, querying the subgraph only for the ones not
already cached.

Example:
  grtinfo ens batch 0x1111111111111111111111111111111111111111 0x2222222222222222222222222222222222222222`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), f, args)
		},
	}
}

func ensSearchCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <fragment>",
		Short: "List ENS names containing a fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), f, args[0])
		},
	}
}

func ensNameCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "name <name>",
		Short: "Resolve an ENS name to an address",
		Long: `Resolve an ENS name to an address.

If there is no exact match the name is retried with ".eth" appended, then
matched against names that start with it ("ellipfra" finds "ellipfra-indexer.eth").

Example:
  grtinfo ens name ellipfra`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runName(cmd.Context(), f, args[0])
		},
	}
}

func withResolver(f *rootFlags, fn func(r *ens.Resolver) error) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	r, err := openResolver(cfg, f.noCache)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.L().Warn("failed to close ens cache", zap.Error(err))
		}
	}()
	return fn(r)
}

func runResolve(ctx context.Context, f *rootFlags, address string) error {
	if err := ens.ValidateAddress(address); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	return withResolver(f, func(r *ens.Resolver) error {
		name, ok := r.ResolveAddress(ctx, address)
		l := display.Lookup{Query: address, Result: name, Found: ok}
		if f.json {
			return display.WriteJSON(os.Stdout, l)
		}
		display.RenderLookup(os.Stdout, l)
		return nil
	})
}

func runBatch(ctx context.Context, f *rootFlags, addresses []string) error {
	for _, a := range addresses {
		if err := ens.ValidateAddress(a); err != nil {
			return fmt.Errorf("invalid address %s: %w", a, err)
		}
	}
	return withResolver(f, func(r *ens.Resolver) error {
		rows := display.BatchRows(r.ResolveAddressesBatch(ctx, addresses))
		if f.json {
			return display.WriteJSON(os.Stdout, rows)
		}
		display.RenderBatch(os.Stdout, rows)
		return nil
	})
}

func runSearch(ctx context.Context, f *rootFlags, fragment string) error {
	return withResolver(f, func(r *ens.Resolver) error {
		records := r.SearchByName(ctx, fragment)
		if f.json {
			if records == nil {
				records = []ens.NameRecord{}
			}
			return display.WriteJSON(os.Stdout, records)
		}
		display.RenderSearch(os.Stdout, fragment, records)
		return nil
	})
}

func runName(ctx context.Context, f *rootFlags, name string) error {
	return withResolver(f, func(r *ens.Resolver) error {
		addr, ok := r.ResolveName(ctx, name)
		l := display.Lookup{Query: name, Result: addr, Found: ok}
		if f.json {
			return display.WriteJSON(os.Stdout, l)
		}
		display.RenderLookup(os.Stdout, l)
		return nil
	})
}
