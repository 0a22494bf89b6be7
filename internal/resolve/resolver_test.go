package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
)

// stubAdapter serves canned records and counts lookups.
type stubAdapter struct {
	service string
	records map[string]*Record
	err     error
	calls   int
}

func (s *stubAdapter) Service() string { return s.service }
func (s *stubAdapter) Types() []core.EntityType {
	return []core.EntityType{core.EntityGene}
}
func (s *stubAdapter) Lookup(ctx context.Context, key string) (*Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records[key], nil
}

func testResolverConfig() config.Resolver {
	return config.Resolver{
		ServicesEnabled:    []string{ServiceGene},
		PerEntityTimeoutMS: 1000,
		CacheTTLSeconds:    3600,
		Fanout:             4,
	}
}

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"), ttl)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func geneEntity(key string) *core.Entity {
	return &core.Entity{Type: core.EntityGene, CanonicalName: key, NormalizedKey: core.NormalizeKey(key)}
}

func TestResolveSuccess(t *testing.T) {
	adapter := &stubAdapter{
		service: ServiceGene,
		records: map[string]*Record{
			"tp53": {CanonicalName: "TP53", PrimaryID: "NCBIGene:7157", Source: ServiceGene},
		},
	}
	r := NewWith(testResolverConfig(), openTestCache(t, time.Hour),
		map[core.EntityType]ServiceAdapter{core.EntityGene: adapter})

	entities := r.Run(context.Background(), []*core.Entity{geneEntity("TP53")})
	e := entities[0]
	if !e.Resolved {
		t.Fatal("entity should be resolved")
	}
	if e.CanonicalName != "TP53" {
		t.Errorf("canonical name: %q", e.CanonicalName)
	}
	if len(e.ExternalIDs) != 1 || e.ExternalIDs[0].PrimaryID != "NCBIGene:7157" {
		t.Errorf("external ids: %+v", e.ExternalIDs)
	}
}

func TestResolveCacheHitSkipsService(t *testing.T) {
	adapter := &stubAdapter{
		service: ServiceGene,
		records: map[string]*Record{
			"tp53": {CanonicalName: "TP53", PrimaryID: "NCBIGene:7157", Source: ServiceGene},
		},
	}
	cache := openTestCache(t, time.Hour)
	cfg := testResolverConfig()
	r := NewWith(cfg, cache, map[core.EntityType]ServiceAdapter{core.EntityGene: adapter})

	r.Run(context.Background(), []*core.Entity{geneEntity("TP53")})
	if adapter.calls != 1 {
		t.Fatalf("expected 1 service call, got %d", adapter.calls)
	}
	// Second run hits the cache.
	entities := r.Run(context.Background(), []*core.Entity{geneEntity("TP53")})
	if adapter.calls != 1 {
		t.Fatalf("cache hit should not call the service, calls=%d", adapter.calls)
	}
	if !entities[0].Resolved {
		t.Error("cached record should still resolve")
	}
}

func TestResolveCanonicalMismatchRejected(t *testing.T) {
	adapter := &stubAdapter{
		service: ServiceGene,
		records: map[string]*Record{
			// Returned name does not normalize to the queried key.
			"tp53": {CanonicalName: "TRP53", PrimaryID: "NCBIGene:22059", Source: ServiceGene},
		},
	}
	r := NewWith(testResolverConfig(), openTestCache(t, time.Hour),
		map[core.EntityType]ServiceAdapter{core.EntityGene: adapter})

	entities := r.Run(context.Background(), []*core.Entity{geneEntity("TP53")})
	if entities[0].Resolved {
		t.Fatal("mismatched canonical name must not resolve")
	}
}

func TestResolveOutageNeverFatal(t *testing.T) {
	adapter := &stubAdapter{service: ServiceGene, err: fmt.Errorf("connection timed out")}
	r := NewWith(testResolverConfig(), openTestCache(t, time.Hour),
		map[core.EntityType]ServiceAdapter{core.EntityGene: adapter})

	entities := r.Run(context.Background(), []*core.Entity{
		geneEntity("TP53"), geneEntity("MYOD1"), geneEntity("CDKN1A"),
	})
	for _, e := range entities {
		if e.Resolved {
			t.Errorf("entity %s resolved despite outage", e.NormalizedKey)
		}
	}
}

func TestOfflineModeUsesCacheOnly(t *testing.T) {
	adapter := &stubAdapter{
		service: ServiceGene,
		records: map[string]*Record{
			"tp53": {CanonicalName: "TP53", PrimaryID: "NCBIGene:7157", Source: ServiceGene},
		},
	}
	cache := openTestCache(t, time.Hour)
	if err := cache.Put("GENE|tp53", &Record{CanonicalName: "TP53", PrimaryID: "NCBIGene:7157", Source: ServiceGene}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	cfg := testResolverConfig()
	cfg.OfflineMode = true
	r := NewWith(cfg, cache, map[core.EntityType]ServiceAdapter{core.EntityGene: adapter})

	entities := r.Run(context.Background(), []*core.Entity{geneEntity("TP53"), geneEntity("MYOD1")})
	if adapter.calls != 0 {
		t.Fatalf("offline mode must not call services, calls=%d", adapter.calls)
	}
	if !entities[0].Resolved {
		t.Error("cached entity should resolve offline")
	}
	if entities[1].Resolved {
		t.Error("uncached entity must stay unresolved offline, not fail")
	}
}

func TestUnservedTypePassesThrough(t *testing.T) {
	r := NewWith(testResolverConfig(), openTestCache(t, time.Hour),
		map[core.EntityType]ServiceAdapter{})
	stressor := &core.Entity{Type: core.EntityStressor, NormalizedKey: "microgravity"}
	entities := r.Run(context.Background(), []*core.Entity{stressor})
	if entities[0].Resolved {
		t.Error("types without a registry must pass through unresolved")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := openTestCache(t, time.Nanosecond)
	if err := cache.Put("GENE|tp53", &Record{CanonicalName: "TP53"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, found := cache.Get("GENE|tp53"); found {
		t.Fatal("expired entry must read as a miss")
	}
}

func TestCacheStoresMisses(t *testing.T) {
	cache := openTestCache(t, time.Hour)
	if err := cache.Put("GENE|nothere", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	record, found := cache.Get("GENE|nothere")
	if !found {
		t.Fatal("confirmed miss should be cached")
	}
	if record != nil {
		t.Fatal("cached miss must return a nil record")
	}
}
