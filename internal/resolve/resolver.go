// Package resolve maps canonical entities to external registry identifiers
// with bounded caching and a never-fatal failure policy.
package resolve

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

// Resolver enriches entities with external identifiers. Lookups run in
// parallel up to the configured fan-out; each service enforces its own rate
// limit inside its adapter.
type Resolver struct {
	cfg      config.Resolver
	cache    *Cache
	adapters map[core.EntityType]ServiceAdapter
}

// New builds a resolver from configuration, opening the on-disk cache and one
// adapter per enabled service.
func New(cfg config.Resolver) (*Resolver, error) {
	cache, err := OpenCache(cfg.CachePath, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	r := &Resolver{cfg: cfg, cache: cache, adapters: make(map[core.EntityType]ServiceAdapter)}
	timeout := time.Duration(cfg.PerEntityTimeoutMS) * time.Millisecond
	for _, service := range cfg.ServicesEnabled {
		adapter, err := newAdapter(service, cfg.Endpoints, timeout)
		if err != nil {
			_ = cache.Close()
			return nil, err
		}
		for _, t := range adapter.Types() {
			// First enabled service for a type wins, except that the protein
			// service always takes proteins: the gene service covers proteins
			// only when the protein service is off.
			if _, taken := r.adapters[t]; !taken || service == ServiceProtein {
				r.adapters[t] = adapter
			}
		}
	}
	return r, nil
}

// NewWith builds a resolver with explicit adapters and cache. Used by tests.
func NewWith(cfg config.Resolver, cache *Cache, adapters map[core.EntityType]ServiceAdapter) *Resolver {
	return &Resolver{cfg: cfg, cache: cache, adapters: adapters}
}

// Close releases the cache.
func (r *Resolver) Close() error {
	if r.cache != nil {
		return r.cache.Close()
	}
	return nil
}

// Run resolves every entity in place and returns the input slice. Failures
// mark entities unresolved; they never fail the stage.
func (r *Resolver) Run(ctx context.Context, entities []*core.Entity) []*core.Entity {
	log := logger.With("resolution")
	fanout := r.cfg.Fanout
	if fanout <= 0 {
		fanout = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)
	for _, entity := range entities {
		g.Go(func() error {
			r.resolveOne(gctx, entity)
			return nil
		})
	}
	_ = g.Wait()

	resolved := 0
	for _, e := range entities {
		if e.Resolved {
			resolved++
		}
	}
	log.Info().
		Int("entities", len(entities)).
		Int("resolved", resolved).
		Bool("offline", r.cfg.OfflineMode).
		Msg("resolution complete")
	return entities
}

func (r *Resolver) resolveOne(ctx context.Context, entity *core.Entity) {
	adapter, ok := r.adapters[entity.Type]
	if !ok {
		// Type not served by any registry; entity passes through untouched.
		return
	}
	cacheKey := string(entity.Type) + "|" + entity.NormalizedKey

	if record, found := r.cache.Get(cacheKey); found {
		r.apply(entity, record)
		return
	}
	if r.cfg.OfflineMode {
		// Cache only; a miss is never an error offline.
		return
	}

	record, err := adapter.Lookup(ctx, entity.NormalizedKey)
	if err != nil {
		log := logger.With("resolution")
		log.Warn().
			Str("entity", entity.NormalizedKey).
			Str("service", adapter.Service()).
			Err(err).
			Msg("lookup failed, entity left unresolved")
		return
	}
	// Accept only results whose canonical name matches the query after
	// normalization; anything else is a mismatch, cached as a miss.
	if record != nil && core.NormalizeKey(record.CanonicalName) != entity.NormalizedKey {
		record = nil
	}
	_ = r.cache.Put(cacheKey, record)
	r.apply(entity, record)
}

func (r *Resolver) apply(entity *core.Entity, record *Record) {
	if record == nil {
		return
	}
	entity.CanonicalName = record.CanonicalName
	entity.ExternalIDs = append(entity.ExternalIDs, core.ExternalID{
		Registry:     record.Source,
		PrimaryID:    record.PrimaryID,
		SecondaryIDs: record.SecondaryIDs,
	})
	entity.Resolved = true
}
