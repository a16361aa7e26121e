package remote

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"planethub/pkg/models"
)

const latestKey = "latest"

// Cache holds the most recent successful remote fetch.
//
// The entry is replaced on every successful fetch and left alone when a fetch
// fails. A positive ttl also expires it; Invalidate drops it explicitly.
type Cache struct {
	cache *gocache.Cache
}

func NewCache(ttl time.Duration) *Cache {
	exp, cleanup := gocache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		exp, cleanup = ttl, 2*ttl
	}
	return &Cache{cache: gocache.New(exp, cleanup)}
}

// Latest returns a copy of the cached planets.
func (c *Cache) Latest() ([]models.Planet, bool) {
	v, found := c.cache.Get(latestKey)
	if !found {
		return nil, false
	}
	planets, ok := v.([]models.Planet)
	if !ok {
		return nil, false
	}
	return append([]models.Planet(nil), planets...), true
}

func (c *Cache) Put(planets []models.Planet) {
	c.cache.Set(latestKey, append([]models.Planet(nil), planets...), gocache.DefaultExpiration)
}

func (c *Cache) Invalidate() {
	c.cache.Delete(latestKey)
}

// CachingClient fetches through Catalog and records every successful result
// in Cache.
type CachingClient struct {
	Catalog Catalog
	Cache   *Cache
	logger  *zap.Logger
}

func NewCachingClient(catalog Catalog, cache *Cache, logger *zap.Logger) *CachingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingClient{Catalog: catalog, Cache: cache, logger: logger}
}

func (c *CachingClient) FetchCatalog(ctx context.Context) ([]models.Planet, error) {
	planets, err := c.Catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	c.Cache.Put(planets)
	return planets, nil
}

// Latest returns the cached planets, fetching fresh ones when nothing is cached.
func (c *CachingClient) Latest(ctx context.Context) ([]models.Planet, error) {
	if planets, ok := c.Cache.Latest(); ok {
		c.logger.Debug("catalog cache hit", zap.Int("planets", len(planets)))
		return planets, nil
	}
	return c.FetchCatalog(ctx)
}
