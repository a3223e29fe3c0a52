package catalog

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

const cacheKey = "supported_assets"

// CachedCatalog keeps the read-only asset catalog in memory for ttl. Only the
// catalog is cached; prices and balances are always read live.
type CachedCatalog struct {
	source port.AssetCatalog
	cache  *gocache.Cache
	group  singleflight.Group
	ttl    time.Duration
	logger port.Logger
}

// NewCachedCatalog wraps source. A non-positive ttl disables caching.
func NewCachedCatalog(source port.AssetCatalog, ttl time.Duration, l port.Logger) *CachedCatalog {
	return &CachedCatalog{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
		ttl:    ttl,
		logger: l,
	}
}

// ListSupportedAssets returns a copy of the cached catalog, loading it on a miss.
// Concurrent misses share one load.
func (c *CachedCatalog) ListSupportedAssets(ctx context.Context) ([]entity.SupportedAsset, error) {
	if c.ttl <= 0 {
		return c.source.ListSupportedAssets(ctx)
	}
	if v, ok := c.cache.Get(cacheKey); ok {
		return clone(v.([]entity.SupportedAsset)), nil
	}

	v, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v, nil
		}
		assets, err := c.source.ListSupportedAssets(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(cacheKey, assets)
		c.logger.Debug("Asset catalog cached", "count", len(assets))
		return assets, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]entity.SupportedAsset)), nil
}

// Invalidate drops the cached catalog.
func (c *CachedCatalog) Invalidate() {
	c.cache.Delete(cacheKey)
}

func clone(in []entity.SupportedAsset) []entity.SupportedAsset {
	return append([]entity.SupportedAsset(nil), in...)
}
