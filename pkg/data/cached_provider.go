package data

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/ducminhle1904/regime-backtester/pkg/types"
)

// CacheStats provides cache usage statistics
type CacheStats struct {
	HitCount  int64
	MissCount int64
	CacheSize int
}

// HitRatio returns hits / (hits + misses), 0 before any lookup
func (s CacheStats) HitRatio() float64 {
	total := s.HitCount + s.MissCount
	if total == 0 {
		return 0
	}
	return float64(s.HitCount) / float64(total)
}

// MemoryCache implements DataCache using in-memory storage
type MemoryCache struct {
	cache  map[string]*types.Dataset
	mutex  sync.RWMutex
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string]*types.Dataset),
	}
}

// Get retrieves a dataset from cache if available
func (c *MemoryCache) Get(key string) (*types.Dataset, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ds, exists := c.cache[key]
	if exists {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return ds, exists
}

// Set stores a dataset in cache
func (c *MemoryCache) Set(key string, ds *types.Dataset) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = ds
}

// Clear removes all cached data and resets the statistics
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string]*types.Dataset)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// Stats returns cache usage statistics
func (c *MemoryCache) Stats() CacheStats {
	return CacheStats{
		HitCount:  c.hits.Load(),
		MissCount: c.misses.Load(),
		CacheSize: c.Size(),
	}
}

// CachedProvider wraps another DataProvider with caching functionality
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
}

// NewCachedProvider creates a new cached data provider
func NewCachedProvider(provider DataProvider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    NewMemoryCache(),
	}
}

// NewCachedProviderWithCache creates a new cached data provider with custom cache
func NewCachedProviderWithCache(provider DataProvider, cache DataCache) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData loads data with caching; failed loads are not cached
func (p *CachedProvider) LoadData(source string) (*types.Dataset, error) {
	if ds, exists := p.cache.Get(source); exists {
		return ds, nil
	}

	log.Debug().Str("file", filepath.Base(source)).Msg("Loading historical data")
	ds, err := p.provider.LoadData(source)
	if err != nil {
		log.Error().Err(err).Str("file", filepath.Base(source)).Msg("Failed to load data")
		return nil, err
	}

	p.cache.Set(source, ds)

	log.Info().Str("file", filepath.Base(source)).Int("bars", ds.Len()).Msg("Loaded and cached data")
	return ds, nil
}

// GetCache returns the underlying cache for external management
func (p *CachedProvider) GetCache() DataCache {
	return p.cache
}

// ClearCache clears all cached data
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}
