// Package ens maps blockchain addresses to ENS names and back.
//
// A Resolver sits in front of a name-service Transport and a persistent Store.
// Every address lookup, found or not, is written to the store so repeated runs
// do not hit the network again until the entry's TTL has passed. Name lookups
// (name to address) go through a fallback chain and are never cached.
//
// Nothing in this package returns an error for an ordinary miss or a backend
// failure: callers get "no name" and the failure is logged.
package ens

import (
	"context"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var nopLogger = zap.NewNop()

// maxBatchConcurrency bounds concurrent batch round-trips.
const maxBatchConcurrency = 4

// Resolver resolves addresses and names. It is safe for concurrent use; all store
// access is serialized, network calls are not.
type Resolver struct {
	mu        sync.Mutex
	store     Store
	transport Transport
	log       *zap.Logger
	batchSize int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithBatchSize caps how many addresses go into a single batch query.
func WithBatchSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewResolver loads store and returns a Resolver over it. A store that fails to
// load starts empty.
func NewResolver(store Store, transport Transport, opts ...Option) *Resolver {
	r := &Resolver{
		store:     store,
		transport: transport,
		log:       nopLogger,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.mu.Lock()
	if err := r.store.Load(); err != nil {
		r.log.Warn("ens cache unreadable, starting empty", zap.Error(err))
	}
	r.log.Debug("ens cache loaded", zap.Int("entries", len(r.store.Entries())))
	r.mu.Unlock()
	return r
}

// saveLocked persists the store. r.mu must be held.
func (r *Resolver) saveLocked() {
	if err := r.store.Save(); err != nil {
		r.log.Warn("failed to save ens cache", zap.Error(err))
	}
}

func (r *Resolver) cached(address string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Get(address)
}

// ResolveAddress returns the name of address. Cached results, including cached
// misses, are returned without a network call.
func (r *Resolver) ResolveAddress(ctx context.Context, address string) (string, bool) {
	addr, ok := NormalizeAddress(address)
	if !ok {
		return "", false
	}

	if e, hit := r.cached(addr); hit {
		return e.Name, !e.Negative()
	}

	name, outcome := r.transport.ResolveOne(ctx, addr)
	if outcome != Resolved {
		if outcome == Failed {
			r.log.Debug("address lookup failed, caching as unresolved", zap.String("address", addr))
		}
		name = ""
	}

	r.mu.Lock()
	r.store.Put(addr, name)
	r.saveLocked()
	r.mu.Unlock()

	return name, name != ""
}

// ResolveAddressesBatch resolves addresses with as few round-trips as possible.
// The result has one key per distinct valid input address; an empty value means
// the address has no name. Only uncached addresses reach the network.
func (r *Resolver) ResolveAddressesBatch(ctx context.Context, addresses []string) map[string]string {
	results := make(map[string]string, len(addresses))
	var pending []string

	r.mu.Lock()
	for _, a := range addresses {
		addr, ok := NormalizeAddress(a)
		if !ok {
			continue
		}
		if _, dup := results[addr]; dup {
			continue
		}
		if e, hit := r.store.Get(addr); hit {
			results[addr] = e.Name
			continue
		}
		results[addr] = ""
		pending = append(pending, addr)
	}
	r.mu.Unlock()

	if len(pending) == 0 {
		return results
	}

	chunks := chunk(pending, r.batchSize)
	found := make([]map[string]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			names, outcome := r.transport.ResolveBatch(gctx, c)
			if outcome == Failed {
				r.log.Debug("batch lookup failed, caching as unresolved", zap.Int("addresses", len(c)))
			}
			found[i] = names
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	for i, c := range chunks {
		for _, addr := range c {
			name := found[i][addr]
			results[addr] = name
			r.store.Put(addr, name)
		}
	}
	r.saveLocked()
	r.mu.Unlock()

	return results
}

// SearchByName returns names containing fragment, newest first. Results are not cached.
func (r *Resolver) SearchByName(ctx context.Context, fragment string) []NameRecord {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil
	}
	records, outcome := r.transport.SearchPartial(ctx, fragment)
	if outcome == Failed {
		r.log.Debug("name search failed", zap.String("fragment", fragment))
	}
	return records
}

// Entries returns a snapshot of the cache, sorted by address.
func (r *Resolver) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Entries()
}

// Close persists and releases the store.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	if err := r.store.Save(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.store.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
