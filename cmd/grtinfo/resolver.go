package main

import (
	"fmt"

	"github.com/dmagro/grtinfo/internal/config"
	"github.com/dmagro/grtinfo/internal/ens"
	"github.com/dmagro/grtinfo/internal/graphql"
	"github.com/dmagro/grtinfo/internal/logger"
)

// openStore builds the cache store selected by configuration.
func openStore(cfg *config.Config, noCache bool) (ens.Store, error) {
	opts := ens.StoreOptions{TTL: cfg.ENS.CacheTTL}
	if noCache {
		return ens.NewMemStore(opts), nil
	}

	switch cfg.ENS.CacheBackend {
	case config.BackendBolt:
		s, err := ens.OpenBoltStore(cfg.ENS.CachePath, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		return s, nil
	case config.BackendMemory:
		return ens.NewMemStore(opts), nil
	default:
		return ens.NewJSONStore(cfg.ENS.CachePath, opts), nil
	}
}

// openResolver wires the subgraph transport and cache store into a Resolver.
// The caller must Close it to persist the cache.
func openResolver(cfg *config.Config, noCache bool) (*ens.Resolver, error) {
	if err := cfg.RequireENS(); err != nil {
		return nil, err
	}

	store, err := openStore(cfg, noCache)
	if err != nil {
		return nil, err
	}

	client := graphql.NewClient(cfg.ENSSubgraphURL, cfg.Defaults.Timeout, cfg.Defaults.MaxRetries)
	transport := ens.NewSubgraphTransport(client, ens.TransportOptions{
		SearchLimit: cfg.ENS.SearchLimit,
		Logger:      logger.L().Named("ens.transport"),
	})

	return ens.NewResolver(store, transport,
		ens.WithLogger(logger.L().Named("ens")),
		ens.WithBatchSize(cfg.ENS.BatchSize),
	), nil
}
